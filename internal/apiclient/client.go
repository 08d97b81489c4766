// Package apiclient talks to the privacyfill-api backend on behalf of
// the agent, caching subscription state in the local store.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lobisloby/privacyfill/internal/models"
	"github.com/lobisloby/privacyfill/internal/store"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrNoUser       = errors.New("no signed-in user")
)

// Client calls the backend API. Responses use the backend's
// {success, data, error} envelope.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      *store.Store
}

func New(baseURL string, s *store.Store) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		store:      s,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// RegisterUser registers the signed-in user with the backend. The call
// is idempotent server-side.
func (c *Client) RegisterUser(ctx context.Context, user store.User) error {
	body := map[string]string{
		"userId": user.ID,
		"email":  user.Email,
		"name":   user.Name,
	}
	_, err := c.post(ctx, "/registerUser", body)
	return err
}

// FetchSubscriptionStatus pulls the canonical subscription from the
// backend and overwrites the local cache. On failure the cache is left
// untouched so a previously synced subscription keeps working.
func (c *Client) FetchSubscriptionStatus(ctx context.Context) (*models.Subscription, error) {
	user := c.store.User()
	if user == nil {
		return nil, ErrNoUser
	}

	data, err := c.get(ctx, "/getSubscriptionStatus", url.Values{"userId": {user.ID}})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Subscription models.Subscription `json:"subscription"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode subscription: %w", err)
	}

	if err := c.store.SetSubscription(payload.Subscription, time.Now()); err != nil {
		return nil, err
	}
	return &payload.Subscription, nil
}

// TrackResult is the server-side usage counter after an increment.
type TrackResult struct {
	Count int  `json:"count"`
	Reset bool `json:"reset"`
}

// TrackUsage reports one generation to the backend counter. The server
// count is canonical for signed-in users.
func (c *Client) TrackUsage(ctx context.Context) (*TrackResult, error) {
	user := c.store.User()
	if user == nil {
		return nil, ErrNoUser
	}

	data, err := c.post(ctx, "/trackUsage", map[string]string{"userId": user.ID})
	if err != nil {
		return nil, err
	}

	var result TrackResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode usage: %w", err)
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env); err != nil {
		return nil, fmt.Errorf("invalid response from %s: %w", req.URL.Path, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrUserNotFound
	}
	if !env.Success {
		if env.Error != "" {
			return nil, fmt.Errorf("%s: %s", req.URL.Path, env.Error)
		}
		return nil, fmt.Errorf("%s: unexpected status %d", req.URL.Path, resp.StatusCode)
	}
	return env.Data, nil
}
