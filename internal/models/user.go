package models

import (
	"time"
)

type User struct {
	ID                  string
	Username            string
	PasswordHash        string
	Email               string
	FirstName           string
	LastName            string
	IsStaff             bool
	IsBlocked           bool       // Administrative block, cleared manually
	BlockedUntil        *time.Time // Temporary block expiration
	FailedLoginAttempts int
	LastFailedLogin     *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// CanAuthenticate reports whether the account is in a state that permits login.
func (u *User) CanAuthenticate(now time.Time) bool {
	if u.IsBlocked {
		return false
	}
	if u.BlockedUntil != nil && now.Before(*u.BlockedUntil) {
		return false
	}
	return true
}
