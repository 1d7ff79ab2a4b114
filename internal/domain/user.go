package domain

import "time"

// User is an identity record. Users are never deleted; Active=false is the
// soft-deactivated state.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	NationalID   string
	PhoneNumber  string
	Role         Role
	ParentRole   *Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
