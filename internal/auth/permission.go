package auth

import "github.com/spec-kit/activity-service/internal/domain"

// Action is the fixed vocabulary evaluated by CanPerform.
type Action string

const (
	ActionManageUsers    Action = "manage-users"
	ActionCreateActivity Action = "create-activity"
	ActionEditProfile    Action = "edit-profile"
)

// CanPerform maps (role, action) to allow/deny. The function is role-only:
// for edit-profile the caller must additionally check that the subject is
// editing their own record, which happens at the guard call site.
func CanPerform(role domain.Role, action Action) bool {
	switch role {
	case domain.RoleAdmin:
		return true
	case domain.RoleTutor:
		switch action {
		case ActionManageUsers, ActionCreateActivity, ActionEditProfile:
			return true
		}
		return false
	case domain.RoleBolsista:
		switch action {
		case ActionCreateActivity, ActionEditProfile:
			return true
		}
		return false
	default:
		return false
	}
}
