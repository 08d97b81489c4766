package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lobisloby/privacyfill/internal/store"
)

func newTestAuthenticator(t *testing.T, userinfo http.HandlerFunc) (*Authenticator, *store.Store) {
	t.Helper()
	server := httptest.NewServer(userinfo)
	t.Cleanup(server.Close)

	s, err := store.Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a := New("client-id", "https://example.com/cb", s, nil, logger)
	a.userinfoURL = server.URL
	return a, s
}

func TestAuthURL(t *testing.T) {
	a, _ := newTestAuthenticator(t, nil)

	url := a.AuthURL("state-1")
	if !strings.Contains(url, "response_type=token") {
		t.Errorf("url = %s, want implicit grant", url)
	}
	if !strings.Contains(url, "client_id=client-id") || !strings.Contains(url, "state=state-1") {
		t.Errorf("url = %s", url)
	}
}

func TestSignIn(t *testing.T) {
	a, s := newTestAuthenticator(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("Authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id": "google-1", "email": "alice@gmail.com", "name": "Alice",
		})
	})

	user, err := a.SignIn(context.Background(), "tok-123")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if user.ID != "google-1" || user.Email != "alice@gmail.com" {
		t.Errorf("user = %+v", user)
	}

	stored := s.User()
	if stored == nil || stored.ID != "google-1" {
		t.Errorf("stored user = %+v", stored)
	}
}

func TestSignIn_EmptyToken(t *testing.T) {
	a, _ := newTestAuthenticator(t, nil)

	if _, err := a.SignIn(context.Background(), "  "); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("error = %v, want ErrEmptyToken", err)
	}
}

func TestSignIn_UserinfoFailure(t *testing.T) {
	a, s := newTestAuthenticator(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	})

	if _, err := a.SignIn(context.Background(), "bad-token"); err == nil {
		t.Error("expected error for rejected token")
	}
	if s.User() != nil {
		t.Error("user persisted despite userinfo failure")
	}
}

func TestSignOut(t *testing.T) {
	a, s := newTestAuthenticator(t, nil)
	_ = s.SetUser(store.User{ID: "google-1", Email: "a@b.com"})

	if err := a.SignOut(); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if s.User() != nil {
		t.Error("user survived sign-out")
	}
	if sub, _ := s.Subscription(); sub != nil {
		t.Error("subscription cache survived sign-out")
	}
}
