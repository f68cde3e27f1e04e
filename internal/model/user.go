// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Accounts come from credential sign-up or from a first OAuth sign-in.
// PasswordHash is empty for OAuth-only accounts and is never serialized:
// the json:"-" tag keeps it out of every API response.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Image        string    `json:"image,omitempty"` // Profile picture URL (may be empty)
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasPassword reports whether the account can sign in with credentials.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// PublicUser is the view of a user that any visitor may read.
type PublicUser struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Public strips the private fields from u.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Image: u.Image}
}

// OAuthAccount links an identity at an external provider to a local user.
// (Provider, ProviderAccountID) is unique.
type OAuthAccount struct {
	Provider          string
	ProviderAccountID string
	UserID            int64
}

// Principal is the authenticated identity attached to a request.
// It is carried inside the session token, so it reflects the user at the
// time the token was issued.
type Principal struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image,omitempty"`
}

// PrincipalOf builds the session principal for u.
func PrincipalOf(u *User) Principal {
	return Principal{ID: u.ID, Name: u.Name, Email: u.Email, Image: u.Image}
}
