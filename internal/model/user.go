// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents a registered account.
//
// Email is always stored trimmed and lowercased, so the UNIQUE constraint on
// the column behaves case-insensitively.
//
// WHY json:"-" ON PasswordHash?
// The hash never leaves the server. Tagging it "-" means even an accidental
// writeJSON(w, 200, user) cannot leak it.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// Session is the identity carried inside a signed session token.
// It is never persisted; the token itself is the only state.
type Session struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
}
