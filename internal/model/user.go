package model

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User is a profile from the external user store.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
