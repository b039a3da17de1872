package model

import "time"

// Contact is a single address-book entry. Every contact belongs to exactly
// one user (OwnerID); all repository operations are filtered by that owner,
// so one user's contacts are invisible to every other user.
//
// Only Name is required. The optional fields use the empty string as their
// zero value rather than pointers — simpler to work with, and the frontend
// treats "" and "absent" the same way.
type Contact struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Event kinds pushed over the realtime channel, one per successful mutation.
const (
	EventContactCreated = "created"
	EventContactUpdated = "updated"
	EventContactDeleted = "deleted"
)

// ContactEvent is the single message type delivered to a user's live
// realtime sessions after one of their contacts changes.
//
// Events are ephemeral: emitted once, never persisted, never replayed.
// A client that reconnects must re-fetch the contact list to resynchronize.
type ContactEvent struct {
	Kind    string  `json:"kind"` // created | updated | deleted
	Contact Contact `json:"contact"`
	OwnerID string  `json:"owner"`
}
