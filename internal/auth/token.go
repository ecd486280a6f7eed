package auth

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/activity-service/internal/domain"
)

// TokenManager issues and verifies signed session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager. A non-positive TTL falls back to
// seven days.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 168 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Claims is the identity payload embedded in a session token. Email is
// informational only; the resolver re-confirms the subject against the user
// store on every request.
type Claims struct {
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`
	CohortID *string     `json:"cohort_id,omitempty"`
	jwt.RegisteredClaims
}

// SubjectID returns the authenticated user's identifier.
func (c *Claims) SubjectID() string {
	return c.Subject
}

// Issue builds and signs a session token for the user.
func (tm *TokenManager) Issue(user *domain.User) (string, time.Time, error) {
	expiresAt := time.Now().Add(tm.ttl)
	claims := &Claims{
		Email:    user.Email,
		Role:     user.Role,
		CohortID: user.CohortID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Verify decodes the token and checks signature and expiry. It returns nil
// on any failure; callers treat a nil result uniformly as "unauthenticated"
// and never learn which check failed.
func (tm *TokenManager) Verify(tokenStr string) *Claims {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrSignatureInvalid
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil
	}
	if !claims.Role.Valid() || claims.Subject == "" {
		return nil
	}
	return claims
}
