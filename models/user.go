package models

import "strconv"

// User is a row of the identity directory joined with its role
type User struct {
	ID          int64    `json:"id" db:"id"`
	UUID        string   `json:"uuid" db:"uuid"`
	Username    string   `json:"username" db:"username"`
	Email       string   `json:"email" db:"email"`
	RoleName    string   `json:"role" db:"role_name"`
	Permissions []string `json:"permissions" db:"-"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// IsSuperAdmin returns true if the user holds the super admin role
func (u *User) IsSuperAdmin() bool {
	return Role(u.RoleName) == RoleSuperAdmin
}

// ToPrincipal converts the directory record into a principal.
// The principal id is the uuid when present.
func (u *User) ToPrincipal() *Principal {
	id := u.UUID
	if id == "" {
		id = strconv.FormatInt(u.ID, 10)
	}
	role := RoleUser
	if u.IsSuperAdmin() {
		role = RoleSuperAdmin
	}
	return NewPrincipal(id, u.Username, u.Email, role, u.Permissions...)
}
