package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/contact-manager/internal/apperror"
	"github.com/sakif/contact-manager/internal/model"
	"github.com/sakif/contact-manager/internal/repository"
)

// Validation constants for contact fields.
const (
	MaxContactNameLength  = 100
	MaxContactFieldLength = 500
	MaxContactNotesLength = 5000
)

// Notifier receives a change event after each committed contact mutation.
// The realtime Hub implements it; tests substitute a recorder.
//
// Emit has no error return on purpose: delivery is best-effort and a
// notification failure must never fail the mutation that triggered it.
type Notifier interface {
	Emit(event model.ContactEvent)
}

// ContactService is the mutation coordinator: it validates, performs the
// owner-scoped storage operation, and then — synchronously, after the commit
// — notifies the realtime layer. Emitting after the commit (and never
// batching) is what keeps per-owner event order equal to commit order.
type ContactService struct {
	repo     repository.ContactRepository
	notifier Notifier
	logger   *slog.Logger
}

// NewContactService creates a ContactService. notifier may be nil (e.g. in
// repository-focused tests); mutations then simply don't broadcast.
func NewContactService(repo repository.ContactRepository, notifier Notifier, logger *slog.Logger) *ContactService {
	return &ContactService{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

// CreateContactInput carries the user-supplied fields for a new contact.
// Only Name is required.
type CreateContactInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
	Notes   string
}

// UpdateContactInput carries a partial update. Pointer fields distinguish
// "not provided" (nil — leave the stored value alone) from "provided as
// empty" (clear the field). An update where every field is nil is a
// validation error.
type UpdateContactInput struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
	Notes   *string
}

// Create validates and stores a new contact for the owner, then emits a
// "created" event.
func (s *ContactService) Create(ctx context.Context, ownerID string, in CreateContactInput) (*model.Contact, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "contact name is required")
	}
	if len(name) > MaxContactNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("contact name must be %d characters or less", MaxContactNameLength))
	}
	if err := checkFieldLengths(in.Email, in.Phone, in.Address, in.Notes); err != nil {
		return nil, err
	}

	contact := &model.Contact{
		OwnerID: ownerID,
		Name:    name,
		Email:   strings.TrimSpace(in.Email),
		Phone:   strings.TrimSpace(in.Phone),
		Address: strings.TrimSpace(in.Address),
		Notes:   in.Notes,
	}

	if err := s.repo.Create(ctx, contact); err != nil {
		s.logger.Error("failed to create contact",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating contact: %w", err)
	}

	s.logger.Info("contact created",
		slog.String("id", contact.ID),
		slog.String("ownerID", ownerID),
	)

	s.notify(model.EventContactCreated, contact)
	return contact, nil
}

// Get retrieves one contact, scoped to the owner. A contact owned by someone
// else surfaces as ErrNotFound.
func (s *ContactService) Get(ctx context.Context, ownerID, id string) (*model.Contact, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "contact ID is required")
	}
	return s.repo.GetByID(ctx, id, ownerID)
}

// List returns all of the owner's contacts, ordered by name ascending,
// case-folded (the repository's ORDER BY ... COLLATE NOCASE).
func (s *ContactService) List(ctx context.Context, ownerID string) ([]model.Contact, error) {
	contacts, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to list contacts",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	return contacts, nil
}

// Update applies a partial update to an owned contact and emits an "updated"
// event with the resulting snapshot.
//
// STRATEGY: fetch then update. The fetch is owner-scoped, so "missing" and
// "not owned" both stop here with ErrNotFound before any write happens.
func (s *ContactService) Update(ctx context.Context, ownerID, id string, in UpdateContactInput) (*model.Contact, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "contact ID is required")
	}
	if in.Name == nil && in.Email == nil && in.Phone == nil && in.Address == nil && in.Notes == nil {
		return nil, apperror.ValidationFailed("", "no fields to update")
	}

	contact, err := s.repo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperror.ValidationFailed("name", "contact name cannot be empty")
		}
		if len(name) > MaxContactNameLength {
			return nil, apperror.ValidationFailed("name",
				fmt.Sprintf("contact name must be %d characters or less", MaxContactNameLength))
		}
		contact.Name = name
	}
	if in.Email != nil {
		contact.Email = strings.TrimSpace(*in.Email)
	}
	if in.Phone != nil {
		contact.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		contact.Address = strings.TrimSpace(*in.Address)
	}
	if in.Notes != nil {
		contact.Notes = *in.Notes
	}
	if err := checkFieldLengths(contact.Email, contact.Phone, contact.Address, contact.Notes); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, contact); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to update contact",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating contact: %w", err)
	}

	s.logger.Info("contact updated",
		slog.String("id", contact.ID),
		slog.String("ownerID", ownerID),
	)

	s.notify(model.EventContactUpdated, contact)
	return contact, nil
}

// Delete removes an owned contact and emits a "deleted" event carrying the
// pre-delete snapshot (the client needs the data to remove it from its UI).
// Deleting an already-deleted id returns ErrNotFound.
func (s *ContactService) Delete(ctx context.Context, ownerID, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "contact ID is required")
	}

	// Snapshot before deleting — the event carries the full contact.
	contact, err := s.repo.GetByID(ctx, id, ownerID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		return err
	}

	s.logger.Info("contact deleted",
		slog.String("id", id),
		slog.String("ownerID", ownerID),
	)

	s.notify(model.EventContactDeleted, contact)
	return nil
}

// notify emits a change event to the realtime layer. Called only after a
// successful commit; there is deliberately no error path back to the caller.
func (s *ContactService) notify(kind string, contact *model.Contact) {
	if s.notifier == nil {
		return
	}
	s.notifier.Emit(model.ContactEvent{
		Kind:    kind,
		Contact: *contact,
		OwnerID: contact.OwnerID,
	})
}

func checkFieldLengths(email, phone, address, notes string) error {
	if len(email) > MaxContactFieldLength {
		return apperror.ValidationFailed("email",
			fmt.Sprintf("email must be %d characters or less", MaxContactFieldLength))
	}
	if len(phone) > MaxContactFieldLength {
		return apperror.ValidationFailed("phone",
			fmt.Sprintf("phone must be %d characters or less", MaxContactFieldLength))
	}
	if len(address) > MaxContactFieldLength {
		return apperror.ValidationFailed("address",
			fmt.Sprintf("address must be %d characters or less", MaxContactFieldLength))
	}
	if len(notes) > MaxContactNotesLength {
		return apperror.ValidationFailed("notes",
			fmt.Sprintf("notes must be %d characters or less", MaxContactNotesLength))
	}
	return nil
}
