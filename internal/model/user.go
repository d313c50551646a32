// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account.
//
// Users are created at signup and never modified afterwards. PasswordHash is
// never serialized: the json tag is "-" so a User can be returned from an API
// without leaking the hash.
type User struct {
	ID           string    `json:"id"        db:"id"`
	FirstName    string    `json:"firstName" db:"first_name"`
	LastName     string    `json:"lastName"  db:"last_name"`
	Email        string    `json:"email"     db:"email"`
	Username     string    `json:"username"  db:"username"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// DisplayName is shown in the page header.
func (u *User) DisplayName() string {
	if u.FirstName == "" {
		return u.Username
	}
	return u.FirstName
}
