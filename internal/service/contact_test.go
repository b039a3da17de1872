package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sakif/contact-manager/internal/apperror"
	"github.com/sakif/contact-manager/internal/model"
)

// =========================================================================
// FAKES
// =========================================================================

// fakeContactRepo is an in-memory, owner-scoped contact store.
type fakeContactRepo struct {
	contacts map[string]*model.Contact
	nextID   int
	// set to a non-nil error to simulate a database failure
	createErr error
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{contacts: make(map[string]*model.Contact)}
}

func (f *fakeContactRepo) Create(_ context.Context, c *model.Contact) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	c.ID = fmt.Sprintf("contact-%d", f.nextID)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	stored := *c
	f.contacts[c.ID] = &stored
	return nil
}

func (f *fakeContactRepo) GetByID(_ context.Context, id, ownerID string) (*model.Contact, error) {
	c, ok := f.contacts[id]
	if !ok || c.OwnerID != ownerID {
		return nil, apperror.NotFound("contact", id)
	}
	copied := *c
	return &copied, nil
}

func (f *fakeContactRepo) ListByOwner(_ context.Context, ownerID string) ([]model.Contact, error) {
	out := []model.Contact{}
	for _, c := range f.contacts {
		if c.OwnerID == ownerID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeContactRepo) Update(_ context.Context, c *model.Contact) error {
	existing, ok := f.contacts[c.ID]
	if !ok || existing.OwnerID != c.OwnerID {
		return apperror.NotFound("contact", c.ID)
	}
	c.UpdatedAt = time.Now()
	stored := *c
	f.contacts[c.ID] = &stored
	return nil
}

func (f *fakeContactRepo) Delete(_ context.Context, id, ownerID string) error {
	c, ok := f.contacts[id]
	if !ok || c.OwnerID != ownerID {
		return apperror.NotFound("contact", id)
	}
	delete(f.contacts, id)
	return nil
}

// recordingNotifier captures every emitted event in order.
type recordingNotifier struct {
	events []model.ContactEvent
}

func (r *recordingNotifier) Emit(event model.ContactEvent) {
	r.events = append(r.events, event)
}

func newTestContactService(t *testing.T) (*ContactService, *fakeContactRepo, *recordingNotifier) {
	t.Helper()
	repo := newFakeContactRepo()
	notifier := &recordingNotifier{}
	return NewContactService(repo, notifier, testLogger()), repo, notifier
}

func strptr(s string) *string { return &s }

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestContactCreate(t *testing.T) {
	svc, _, notifier := newTestContactService(t)

	contact, err := svc.Create(context.Background(), "owner-1", CreateContactInput{
		Name:  "  Bob  ",
		Phone: "555",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if contact.Name != "Bob" {
		t.Errorf("contact.Name = %q, want trimmed %q", contact.Name, "Bob")
	}
	if contact.OwnerID != "owner-1" {
		t.Errorf("contact.OwnerID = %q, want %q", contact.OwnerID, "owner-1")
	}

	// Exactly one "created" event with the stored snapshot.
	if len(notifier.events) != 1 {
		t.Fatalf("got %d events, want 1", len(notifier.events))
	}
	ev := notifier.events[0]
	if ev.Kind != model.EventContactCreated {
		t.Errorf("event.Kind = %q, want %q", ev.Kind, model.EventContactCreated)
	}
	if ev.OwnerID != "owner-1" {
		t.Errorf("event.OwnerID = %q, want %q", ev.OwnerID, "owner-1")
	}
	if ev.Contact.ID != contact.ID {
		t.Errorf("event.Contact.ID = %q, want %q", ev.Contact.ID, contact.ID)
	}
}

func TestContactCreate_NameRequired(t *testing.T) {
	svc, repo, notifier := newTestContactService(t)

	_, err := svc.Create(context.Background(), "owner-1", CreateContactInput{Name: "   "})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Create() error = %v, want ErrValidation", err)
	}

	// Validation fails BEFORE any storage call or emission.
	if len(repo.contacts) != 0 {
		t.Error("validation failure still stored a contact")
	}
	if len(notifier.events) != 0 {
		t.Error("validation failure still emitted an event")
	}
}

func TestContactCreate_StorageFailureNoEvent(t *testing.T) {
	svc, repo, notifier := newTestContactService(t)
	repo.createErr = errors.New("disk on fire")

	if _, err := svc.Create(context.Background(), "owner-1", CreateContactInput{Name: "Bob"}); err == nil {
		t.Fatal("Create() should propagate the storage failure")
	}
	if len(notifier.events) != 0 {
		t.Error("a failed mutation emitted an event")
	}
}

func TestContactCreate_NilNotifier(t *testing.T) {
	svc := NewContactService(newFakeContactRepo(), nil, testLogger())

	// Nil notifier: mutation succeeds, nothing broadcast, no panic.
	if _, err := svc.Create(context.Background(), "owner-1", CreateContactInput{Name: "Bob"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestContactUpdate_Partial(t *testing.T) {
	svc, _, notifier := newTestContactService(t)

	created, err := svc.Create(context.Background(), "owner-1", CreateContactInput{
		Name:  "Bob",
		Email: "bob@example.com",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	updated, err := svc.Update(context.Background(), "owner-1", created.ID, UpdateContactInput{
		Phone: strptr("555"),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	// Exactly the provided field changed; everything else untouched.
	if updated.Phone != "555" {
		t.Errorf("updated.Phone = %q, want %q", updated.Phone, "555")
	}
	if updated.Name != "Bob" || updated.Email != "bob@example.com" {
		t.Errorf("Update() touched fields that were not provided: %+v", updated)
	}

	if len(notifier.events) != 2 || notifier.events[1].Kind != model.EventContactUpdated {
		t.Fatalf("expected created+updated events, got %+v", notifier.events)
	}
	if notifier.events[1].Contact.Phone != "555" {
		t.Error("updated event does not carry the new snapshot")
	}
}

func TestContactUpdate_ClearField(t *testing.T) {
	svc, _, _ := newTestContactService(t)

	created, err := svc.Create(context.Background(), "owner-1", CreateContactInput{
		Name:  "Bob",
		Phone: "555",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Explicit "" clears the field — distinct from omitting it.
	updated, err := svc.Update(context.Background(), "owner-1", created.ID, UpdateContactInput{
		Phone: strptr(""),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Phone != "" {
		t.Errorf("updated.Phone = %q, want cleared", updated.Phone)
	}
}

func TestContactUpdate_NoFields(t *testing.T) {
	svc, _, _ := newTestContactService(t)

	created, err := svc.Create(context.Background(), "owner-1", CreateContactInput{Name: "Bob"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err = svc.Update(context.Background(), "owner-1", created.ID, UpdateContactInput{})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Update() with no fields error = %v, want ErrValidation", err)
	}
}

func TestContactUpdate_OtherOwnerIsNotFound(t *testing.T) {
	svc, _, notifier := newTestContactService(t)

	created, err := svc.Create(context.Background(), "owner-1", CreateContactInput{Name: "Bob"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// NotFound, not Forbidden: the caller learns nothing about whether the
	// id exists under someone else.
	_, err = svc.Update(context.Background(), "owner-2", created.ID, UpdateContactInput{Name: strptr("X")})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update(other owner) error = %v, want ErrNotFound", err)
	}
	if errors.Is(err, apperror.ErrForbidden) {
		t.Error("Update(other owner) must not surface Forbidden")
	}
	if len(notifier.events) != 1 { // only the create
		t.Errorf("failed update emitted an event: %+v", notifier.events)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestContactDelete_EmitsSnapshot(t *testing.T) {
	svc, _, notifier := newTestContactService(t)

	created, err := svc.Create(context.Background(), "owner-1", CreateContactInput{Name: "Bob"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Delete(context.Background(), "owner-1", created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	last := notifier.events[len(notifier.events)-1]
	if last.Kind != model.EventContactDeleted {
		t.Errorf("event.Kind = %q, want %q", last.Kind, model.EventContactDeleted)
	}
	if last.Contact.Name != "Bob" {
		t.Error("deleted event does not carry the pre-delete snapshot")
	}
}

func TestContactDelete_Twice(t *testing.T) {
	svc, _, _ := newTestContactService(t)

	created, err := svc.Create(context.Background(), "owner-1", CreateContactInput{Name: "Bob"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Delete(context.Background(), "owner-1", created.ID); err != nil {
		t.Fatalf("first Delete() error = %v", err)
	}
	err = svc.Delete(context.Background(), "owner-1", created.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// EVENT ORDERING
// =========================================================================

func TestEvents_FollowCommitOrder(t *testing.T) {
	svc, _, notifier := newTestContactService(t)

	created, err := svc.Create(context.Background(), "owner-1", CreateContactInput{Name: "Bob"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Update(context.Background(), "owner-1", created.ID, UpdateContactInput{Phone: strptr("555")}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := svc.Delete(context.Background(), "owner-1", created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	want := []string{model.EventContactCreated, model.EventContactUpdated, model.EventContactDeleted}
	if len(notifier.events) != len(want) {
		t.Fatalf("got %d events, want %d", len(notifier.events), len(want))
	}
	for i, kind := range want {
		if notifier.events[i].Kind != kind {
			t.Errorf("events[%d].Kind = %q, want %q", i, notifier.events[i].Kind, kind)
		}
	}
}
