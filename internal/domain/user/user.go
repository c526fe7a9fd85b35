package user

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleVendor  Role = "vendor"
	RoleAdmin   Role = "admin"
)

// SelfRegistrableRoles lists the roles an unauthenticated caller may pick.
var SelfRegistrableRoles = []Role{RoleStudent, RoleVendor}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Public returns a copy of the user with the credential hash cleared.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}
