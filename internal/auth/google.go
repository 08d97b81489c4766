// Package auth implements Google sign-in for the agent. The flow
// mirrors a browser extension's implicit grant: the user opens the
// consent URL, completes sign-in, and pastes the access token back.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/lobisloby/privacyfill/internal/apiclient"
	"github.com/lobisloby/privacyfill/internal/store"
)

const userinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var ErrEmptyToken = errors.New("access token is required")

// Authenticator completes Google sign-in and records the user locally.
type Authenticator struct {
	config      *oauth2.Config
	store       *store.Store
	backend     *apiclient.Client
	logger      *slog.Logger
	userinfoURL string
}

// New creates an Authenticator. backend may be nil when no API is
// configured; registration is then skipped.
func New(clientID, redirectURL string, s *store.Store, backend *apiclient.Client, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		config: &oauth2.Config{
			ClientID:    clientID,
			RedirectURL: redirectURL,
			Endpoint:    google.Endpoint,
			Scopes:      []string{"openid", "email", "profile"},
		},
		store:       s,
		backend:     backend,
		logger:      logger,
		userinfoURL: userinfoURL,
	}
}

// AuthURL returns the consent URL for the implicit grant.
func (a *Authenticator) AuthURL(state string) string {
	url := a.config.AuthCodeURL(state)
	// The extension flow receives the token directly in the redirect
	// fragment rather than exchanging a code.
	return strings.Replace(url, "response_type=code", "response_type=token", 1)
}

// userInfo is the Google userinfo response.
type userInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// SignIn fetches the user's profile with accessToken, persists the
// user locally, and registers it with the backend. Backend failures
// are logged, not fatal: the backend learns about the user on the next
// sync.
func (a *Authenticator) SignIn(ctx context.Context, accessToken string) (*store.User, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, ErrEmptyToken
	}

	info, err := a.fetchUserInfo(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if info.ID == "" || info.Email == "" {
		return nil, errors.New("userinfo response missing id or email")
	}

	user := store.User{ID: info.ID, Email: info.Email, Name: info.Name}
	if err := a.store.SetUser(user); err != nil {
		return nil, err
	}

	if a.backend != nil {
		if err := a.backend.RegisterUser(ctx, user); err != nil {
			a.logger.Warn("backend registration failed", "error", err)
		}
	}

	a.logger.Info("signed in", "email", user.Email)
	return &user, nil
}

// SignOut clears the local user and cached subscription.
func (a *Authenticator) SignOut() error {
	return a.store.ClearUser()
}

func (a *Authenticator) fetchUserInfo(ctx context.Context, accessToken string) (*userInfo, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	client := oauth2.NewClient(ctx, source)

	resp, err := client.Get(a.userinfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}
