package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/contact-manager/internal/auth"
	"github.com/sakif/contact-manager/internal/service"
)

// ContactHandler exposes the owner-scoped contact CRUD API.
//
// Every route sits behind auth.RequireAuth, so the identity is always in the
// request context; the handler's job is to thread that identity into every
// service call. Ownership enforcement itself happens below, in the service
// and repository — the handler never sees another user's data to leak.
type ContactHandler struct {
	contacts *service.ContactService
	logger   *slog.Logger
}

// NewContactHandler creates a ContactHandler.
func NewContactHandler(contacts *service.ContactService, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{contacts: contacts, logger: logger}
}

// createContactRequest mirrors service.CreateContactInput on the wire.
type createContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

// updateContactRequest uses pointers so an absent JSON key (nil) is
// distinguishable from an explicit empty string: absent leaves the stored
// value untouched, "" clears it.
type updateContactRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	Notes   *string `json:"notes"`
}

// HandleList returns the caller's contacts ordered by name.
//
// HTTP: GET /api/contacts
func (h *ContactHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	contacts, err := h.contacts.List(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, contacts)
}

// HandleGet returns one contact.
//
// HTTP: GET /api/contacts/{id}
// 404 if the contact doesn't exist — or belongs to someone else.
func (h *ContactHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	contact, err := h.contacts.Get(r.Context(), identity.UserID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, contact)
}

// HandleCreate stores a new contact for the caller.
//
// HTTP: POST /api/contacts
// Body: {"name": "...", "email": "...", ...} — name is required.
func (h *ContactHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	var req createContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	contact, err := h.contacts.Create(r.Context(), identity.UserID, service.CreateContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Notes:   req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, contact)
}

// HandleUpdate applies a partial update.
//
// HTTP: PUT /api/contacts/{id}
// A body with no recognized fields is a validation error; 404 if the contact
// is missing or not owned by the caller.
func (h *ContactHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	var req updateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	contact, err := h.contacts.Update(r.Context(), identity.UserID, r.PathValue("id"), service.UpdateContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Notes:   req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, contact)
}

// HandleDelete removes a contact.
//
// HTTP: DELETE /api/contacts/{id}
// 204 on success; 404 if missing or not owned — including a second delete of
// the same id.
func (h *ContactHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	if err := h.contacts.Delete(r.Context(), identity.UserID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeUnauthenticated(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error:   "unauthenticated",
		Message: "no credential presented",
	})
}
