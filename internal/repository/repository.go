// Package repository defines the storage interfaces consumed by the service
// layer. The sqlite subpackage provides the concrete implementation; tests
// substitute in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/contact-manager/internal/model"
)

// UserRepository persists user accounts.
type UserRepository interface {
	// Create inserts a new user. Returns apperror.ErrConflict if the email
	// is already registered.
	Create(ctx context.Context, user *model.User) error
	// GetByEmail looks a user up by exact (case-sensitive) email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// ContactRepository persists contacts, always scoped to an owner.
//
// OWNERSHIP INVARIANT:
// Every read/update/delete filters by BOTH contact id AND owner id. A contact
// that exists but belongs to someone else is indistinguishable from one that
// doesn't exist — both surface apperror.ErrNotFound.
type ContactRepository interface {
	Create(ctx context.Context, contact *model.Contact) error
	GetByID(ctx context.Context, id, ownerID string) (*model.Contact, error)
	// ListByOwner returns the owner's contacts ordered by name, ascending,
	// case-folded.
	ListByOwner(ctx context.Context, ownerID string) ([]model.Contact, error)
	Update(ctx context.Context, contact *model.Contact) error
	Delete(ctx context.Context, id, ownerID string) error
}
