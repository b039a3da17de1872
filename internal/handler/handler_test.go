package handler

// Shared test harness: a real chi router wired exactly like production
// (in-memory sqlite, real token/password services), driven through an
// httptest server with a cookie-jar client so the JWT cookies flow the way
// a browser would send them.

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/contact-manager/internal/auth"
	"github.com/sakif/contact-manager/internal/model"
	"github.com/sakif/contact-manager/internal/repository/sqlite"
	"github.com/sakif/contact-manager/internal/service"
)

// recordingNotifier captures the events the contact service emits, in order.
type recordingNotifier struct {
	events []model.ContactEvent
}

func (r *recordingNotifier) Emit(event model.ContactEvent) {
	r.events = append(r.events, event)
}

type testEnv struct {
	t        *testing.T
	server   *httptest.Server
	client   *http.Client
	tokens   *auth.TokenService
	notifier *recordingNotifier
}

const testSessionTTL = time.Hour

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService(
		"session-secret-at-least-16-chars",
		"realtime-secret-at-least-16-char",
		testSessionTTL,
		time.Minute,
	)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	notifier := &recordingNotifier{}

	authService := service.NewAuthService(db.Users(), tokens, auth.NewPasswordServiceForTest(4), logger)
	contactService := service.NewContactService(db, notifier, logger)

	authHandler := NewAuthHandler(authService, testSessionTTL, logger)
	contactHandler := NewContactHandler(contactService, logger)

	requireAuth := auth.RequireAuth(tokens)

	router := chi.NewRouter()
	router.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", authHandler.HandleMe)
			r.Post("/realtime-token", authHandler.HandleRealtimeToken)
		})
	})
	router.Route("/api/contacts", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", contactHandler.HandleList)
		r.Post("/", contactHandler.HandleCreate)
		r.Get("/{id}", contactHandler.HandleGet)
		r.Put("/{id}", contactHandler.HandleUpdate)
		r.Delete("/{id}", contactHandler.HandleDelete)
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	env := &testEnv{
		t:        t,
		server:   srv,
		tokens:   tokens,
		notifier: notifier,
	}
	env.client = env.newClient()
	return env
}

// newClient returns a fresh client with its own cookie jar — a separate
// "browser", for tests involving two different users.
func (e *testEnv) newClient() *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(e.t, err)
	return &http.Client{Jar: jar}
}

func (e *testEnv) do(client *http.Client, method, path string, body any) *http.Response {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(e.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	require.NoError(e.t, err)
	return resp
}

// decode reads and closes the response body into v.
func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// registerAs registers a user through the API with the given client and
// returns the created user. The session cookie lands in the client's jar.
func (e *testEnv) registerAs(client *http.Client, email, name string) model.User {
	e.t.Helper()
	resp := e.do(client, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    email,
		"password": "pw123456",
		"name":     name,
	})
	require.Equal(e.t, http.StatusCreated, resp.StatusCode)

	var body struct {
		User model.User `json:"user"`
	}
	decode(e.t, resp, &body)
	return body.User
}
