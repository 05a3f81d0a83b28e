package model

import "time"

// User represents an application user record as stored in the `users`
// table. Email addresses are normalized to lower case before writing and
// are unique across the system. The identity of a user is immutable once
// created; only profile fields may change.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password.
//  FirstName    – given name, may be empty.
//  LastName     – family name, may be empty.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins the profile name fields for display purposes, falling back
// to the email address when both are empty.
func (u User) FullName() string {
	switch {
	case u.FirstName == "" && u.LastName == "":
		return u.Email
	case u.LastName == "":
		return u.FirstName
	case u.FirstName == "":
		return u.LastName
	}
	return u.FirstName + " " + u.LastName
}

// Session carries a freshly issued access/refresh token pair for a user.
// The refresh token is returned raw to the client; only its SHA-256 hash is
// persisted.
type Session struct {
	AccessToken    string
	AccessExpires  time.Time
	RefreshToken   string
	RefreshExpires time.Time
}
