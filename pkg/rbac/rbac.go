package rbac

// Permissions
const (
	PermissionReadSchedule   = "schedule:read"
	PermissionChangeStatus   = "schedule:status"
	PermissionWriteSchedule  = "schedule:write"
	PermissionOverrideStatus = "schedule:status_override"
	PermissionReplayOutbox   = "outbox:replay"
)

// Roles
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

var rolePermissions = map[string][]string{
	RoleMember: {
		PermissionReadSchedule,
		PermissionChangeStatus,
	},
	RoleAdmin: {
		PermissionReadSchedule,
		PermissionChangeStatus,
		PermissionWriteSchedule,
		PermissionOverrideStatus,
		PermissionReplayOutbox,
	},
}

// NormalizeRole maps unknown or empty roles to member
func NormalizeRole(role string) string {
	if role == RoleAdmin {
		return RoleAdmin
	}
	return RoleMember
}

// HasPermission reports whether role grants permission
func HasPermission(role string, permission string) bool {
	permissions, ok := rolePermissions[NormalizeRole(role)]
	if !ok {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission is HasPermission returning an error for handlers
func CheckPermission(userID, role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			UserID:     userID,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError is returned when a role lacks a permission
type PermissionDeniedError struct {
	UserID     string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
