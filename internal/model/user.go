package model

import (
	"strings"
	"time"
)

// User data model.
type User struct {
	ID           string     `json:"id" db:"id"`
	FirstName    string     `json:"firstName" db:"first_name"`
	LastName     string     `json:"lastName" db:"last_name"`
	Phone        string     `json:"phone" db:"phone"`
	Email        string     `json:"email" db:"email"`
	DOB          string     `json:"dob" db:"dob"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Preferences  []Category `json:"preferences" db:"-"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// Name is the display name used when the user is shown as an author.
func (u User) Name() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
