// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// PASSWORD STORAGE:
// PasswordHash holds the bcrypt hash of the user's password, never the
// plaintext. The `json:"-"` tag makes encoding/json skip the field entirely,
// so the hash can never leak into an API response by accident — even if a
// handler serializes the whole struct.
//
// Email is UNIQUE in the database and is stored exactly as the user typed it
// (case-sensitive). Login therefore requires the same casing as registration.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
