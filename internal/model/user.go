package model

import "fmt"

// User is an account in the directory. PasswordHash is persisted in the
// users collection but stripped from everything handed back to callers.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Name         string `json:"name"`
	Surname      string `json:"surname"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Role         string `json:"role"`
}

// Roles.
const (
	RoleGeneral = "General"
	RoleAssets  = "Bienes"
	RoleLibrary = "Biblioteca"
	RoleAdmin   = "Admin"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleGeneral, RoleAssets, RoleLibrary, RoleAdmin:
		return true
	}
	return false
}

// IsAdmin reports whether the role may manage user accounts.
func IsAdmin(role string) bool {
	return role == RoleAdmin
}

// CanManageLibrary reports whether the role may manage books and loans.
func CanManageLibrary(role string) bool {
	return role == RoleLibrary || role == RoleAdmin
}

// CanManageAssets reports whether the role may manage the asset registry.
func CanManageAssets(role string) bool {
	return role == RoleAssets || role == RoleAdmin
}

// FullName is the display name copied into loan and transaction snapshots.
func (u User) FullName() string {
	return u.Name + " " + u.Surname
}

// Sanitized returns a copy of the user without the password hash.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// ValidatePassword checks password strength requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
