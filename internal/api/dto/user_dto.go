package dto

import (
	"time"

	"github.com/spec-kit/activity-service/internal/domain"
)

// CreateUserRequest payload for new users.
type CreateUserRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Role     string  `json:"role"`
	Campus   string  `json:"campus"`
	Avatar   string  `json:"avatar"`
	CohortID *string `json:"cohort_id"`
}

// UpdateUserRequest payload for partial user updates. Nil fields are
// omitted from the payload and stay untouched.
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
	Campus   *string `json:"campus"`
	Avatar   *string `json:"avatar"`
	CohortID *string `json:"cohort_id"`
}

// UserResponse is the wire representation of a user. The password hash is
// never serialized.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Campus    string    `json:"campus"`
	Avatar    string    `json:"avatar,omitempty"`
	CohortID  *string   `json:"cohort_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FromUser maps a domain user to its response form.
func FromUser(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      string(user.Role),
		Campus:    user.Campus,
		Avatar:    user.Avatar,
		CohortID:  user.CohortID,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// FromUsers maps a slice of domain users.
func FromUsers(users []domain.User) []UserResponse {
	result := make([]UserResponse, 0, len(users))
	for i := range users {
		result = append(result, FromUser(&users[i]))
	}
	return result
}
