package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/contact-manager/internal/apperror"
	"github.com/sakif/contact-manager/internal/model"
	"github.com/sakif/contact-manager/internal/repository"
)

// Compile-time check that *DB implements repository.ContactRepository.
var _ repository.ContactRepository = (*DB)(nil)

// Create inserts a new contact. The caller must have set OwnerID; the
// repository fills in ID and timestamps.
func (db *DB) Create(ctx context.Context, contact *model.Contact) error {
	now := time.Now()
	contact.ID = xid.New().String()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO contacts (id, owner_id, name, email, phone, address, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		contact.ID,
		contact.OwnerID,
		contact.Name,
		contact.Email,
		contact.Phone,
		contact.Address,
		contact.Notes,
		contact.CreatedAt,
		contact.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting contact (owner=%s): %w", contact.OwnerID, err)
	}

	return nil
}

// GetByID retrieves a contact by id, scoped to its owner.
//
// The WHERE clause filters by id AND owner_id: a contact owned by someone
// else produces the same ErrNotFound as a contact that doesn't exist, so the
// API never confirms the existence of another user's records.
func (db *DB) GetByID(ctx context.Context, id, ownerID string) (*model.Contact, error) {
	var c model.Contact

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, owner_id, name, email, phone, address, notes, created_at, updated_at
		 FROM contacts WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	).Scan(
		&c.ID,
		&c.OwnerID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.Address,
		&c.Notes,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("contact", id)
		}
		return nil, fmt.Errorf("sqlite: getting contact %s: %w", id, err)
	}

	return &c, nil
}

// ListByOwner returns all of the owner's contacts ordered by name,
// ascending. COLLATE NOCASE gives the case-folded ordering ("alice" sorts
// next to "Alice", not after "Zed").
func (db *DB) ListByOwner(ctx context.Context, ownerID string) ([]model.Contact, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, owner_id, name, email, phone, address, notes, created_at, updated_at
		 FROM contacts WHERE owner_id = ?
		 ORDER BY name COLLATE NOCASE ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing contacts for owner %s: %w", ownerID, err)
	}
	defer rows.Close()

	// Initialize as an empty slice (not nil) so an owner with no contacts
	// serializes to [] rather than null.
	contacts := []model.Contact{}
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(
			&c.ID,
			&c.OwnerID,
			&c.Name,
			&c.Email,
			&c.Phone,
			&c.Address,
			&c.Notes,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning contact row: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating contact rows: %w", err)
	}

	return contacts, nil
}

// Update writes the contact's mutable fields back, scoped to the owner.
// Returns apperror.ErrNotFound if no row matched (missing or not owned).
func (db *DB) Update(ctx context.Context, contact *model.Contact) error {
	contact.UpdatedAt = time.Now()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE contacts SET name = ?, email = ?, phone = ?, address = ?, notes = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		contact.Name,
		contact.Email,
		contact.Phone,
		contact.Address,
		contact.Notes,
		contact.UpdatedAt,
		contact.ID,
		contact.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating contact %s: %w", contact.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update of contact %s: %w", contact.ID, err)
	}
	if affected == 0 {
		return apperror.NotFound("contact", contact.ID)
	}

	return nil
}

// Delete removes a contact, scoped to the owner. Returns
// apperror.ErrNotFound if no row matched — which makes a repeated delete of
// the same id fail with NotFound, as callers expect.
func (db *DB) Delete(ctx context.Context, id, ownerID string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM contacts WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting contact %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking delete of contact %s: %w", id, err)
	}
	if affected == 0 {
		return apperror.NotFound("contact", id)
	}

	return nil
}
