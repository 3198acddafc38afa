package domain

import (
	"errors"
	"time"
)

// ErrEmailTaken is returned by the repository when the email unique constraint rejects an insert.
var ErrEmailTaken = errors.New("email already taken")

// Role is the principal's authorization role, carried in access tokens.
type Role string

const (
	RoleUser   Role = "USER"
	RoleDriver Role = "DRIVER"
	// RoleAdmin is assigned out of band and cannot be chosen at registration.
	RoleAdmin Role = "ADMIN"
)

// SelfAssignable reports whether the role may be chosen at registration.
func (r Role) SelfAssignable() bool {
	return r == RoleUser || r == RoleDriver
}

// Gender is the optional profile gender.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// Valid reports whether g is a known gender.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Profile holds the principal's personal details.
type Profile struct {
	ID        string
	FirstName string
	LastName  string
	Gender    *Gender
}

// User is an authenticatable principal. PasswordHash is empty for principals without a password.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	Profile      Profile
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether the principal can authenticate with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Sanitized returns a copy of u without the password hash. Every user leaving the auth service goes through it.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = ""
	if u.Profile.Gender != nil {
		g := *u.Profile.Gender
		c.Profile.Gender = &g
	}
	return &c
}

// Validate checks the fields required for persistence.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Profile.Gender != nil && !u.Profile.Gender.Valid() {
		return errors.New("gender is invalid")
	}
	return nil
}
