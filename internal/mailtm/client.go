// Package mailtm is a minimal client for the mail.tm disposable
// mailbox API used when generating identities with a live inbox.
package mailtm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"
)

const DefaultBaseURL = "https://api.mail.tm"

var ErrNoDomains = errors.New("no mailbox domains available")

// Client talks to a mail.tm compatible API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Domain is an available mailbox domain.
type Domain struct {
	ID       string `json:"id"`
	Domain   string `json:"domain"`
	IsActive bool   `json:"isActive"`
}

// Account is a provisioned mailbox.
type Account struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// Message is a summary entry from the inbox listing.
type Message struct {
	ID      string    `json:"id"`
	From    Address   `json:"from"`
	Subject string    `json:"subject"`
	Intro   string    `json:"intro"`
	Seen    bool      `json:"seen"`
	Created time.Time `json:"createdAt"`
}

// MessageDetail is a full message body.
type MessageDetail struct {
	Message
	Text string   `json:"text"`
	HTML []string `json:"html"`
}

type Address struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// hydraList matches the API's hydra collection envelope.
type hydraList[T any] struct {
	Members []T `json:"hydra:member"`
}

// Domains returns the active domains available for new mailboxes.
func (c *Client) Domains(ctx context.Context) ([]Domain, error) {
	var list hydraList[Domain]
	if err := c.do(ctx, http.MethodGet, "/domains", "", nil, &list); err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}

	active := make([]Domain, 0, len(list.Members))
	for _, d := range list.Members {
		if d.IsActive {
			active = append(active, d)
		}
	}
	if len(active) == 0 {
		return nil, ErrNoDomains
	}
	return active, nil
}

// CreateAccount provisions a mailbox for the given address.
func (c *Client) CreateAccount(ctx context.Context, address, password string) (*Account, error) {
	body := map[string]string{"address": address, "password": password}
	var account Account
	if err := c.do(ctx, http.MethodPost, "/accounts", "", body, &account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return &account, nil
}

// Token authenticates a mailbox and returns its bearer token.
func (c *Client) Token(ctx context.Context, address, password string) (string, error) {
	body := map[string]string{"address": address, "password": password}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/token", "", body, &resp); err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}
	if resp.Token == "" {
		return "", errors.New("empty token in response")
	}
	return resp.Token, nil
}

// Messages lists the inbox, newest first.
func (c *Client) Messages(ctx context.Context, token string) ([]Message, error) {
	var list hydraList[Message]
	if err := c.do(ctx, http.MethodGet, "/messages", token, nil, &list); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return list.Members, nil
}

// Message fetches a single message with its body.
func (c *Client) Message(ctx context.Context, token, id string) (*MessageDetail, error) {
	var detail MessageDetail
	if err := c.do(ctx, http.MethodGet, "/messages/"+id, token, nil, &detail); err != nil {
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}
	return &detail, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// codePatterns are tried in order against a message body. The first
// capture group of the first matching pattern wins.
var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)verification code[^0-9]{0,20}(\d{4,8})`),
	regexp.MustCompile(`(?i)code is[^0-9]{0,10}(\d{4,8})`),
	regexp.MustCompile(`(?i)\bcode[:\s]+(\d{4,8})\b`),
	regexp.MustCompile(`(?i)\bOTP[^0-9]{0,10}(\d{4,8})`),
	regexp.MustCompile(`\b(\d{6})\b`),
	regexp.MustCompile(`\b(\d{4,8})\b`),
}

// ExtractCode pulls a numeric verification code out of a message body.
// Returns an empty string when nothing looks like a code.
func ExtractCode(body string) string {
	for _, pattern := range codePatterns {
		if m := pattern.FindStringSubmatch(body); m != nil {
			return m[1]
		}
	}
	return ""
}
