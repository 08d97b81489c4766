// Package store persists the agent's local state as a single JSON
// file with atomic writes and owner-only permissions. License keys and
// mailbox credentials are encrypted at rest.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lobisloby/privacyfill/internal/crypto"
	"github.com/lobisloby/privacyfill/internal/identity"
	"github.com/lobisloby/privacyfill/internal/models"
)

const (
	// HistoryLimit bounds the identity history, newest first.
	HistoryLimit = 50

	dirPerm  = 0o700
	filePerm = 0o600
)

// User is the locally known account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LicenseInfo is the locally recorded license activation.
type LicenseInfo struct {
	Key           string     `json:"key"`
	InstanceID    string     `json:"instanceId"`
	InstanceName  string     `json:"instanceName,omitempty"`
	ProductName   string     `json:"productName,omitempty"`
	CustomerName  string     `json:"customerName,omitempty"`
	CustomerEmail string     `json:"customerEmail,omitempty"`
	ActivatedAt   *time.Time `json:"activatedAt,omitempty"`
}

// Usage is the local generation counter.
type Usage struct {
	Count     int        `json:"count"`
	ResetDate *time.Time `json:"resetDate,omitempty"`
}

// state is the on-disk document. Key and mailbox credentials are
// ciphertext on disk and plaintext in memory.
type state struct {
	InstanceID      string               `json:"instanceId"`
	User            *User                `json:"user,omitempty"`
	Subscription    *models.Subscription `json:"subscription,omitempty"`
	SubscriptionAt  *time.Time           `json:"subscriptionSyncedAt,omitempty"`
	License         *LicenseInfo         `json:"license,omitempty"`
	Usage           Usage                `json:"usage"`
	CurrentIdentity *identity.Identity   `json:"currentIdentity,omitempty"`
	History         []identity.Identity  `json:"history,omitempty"`
}

// Store is a mutex-guarded view over the state file. Every mutation
// persists before returning.
type Store struct {
	mu    sync.Mutex
	path  string
	enc   *crypto.Encryptor
	state state
}

// DefaultPath returns the per-user state file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config dir: %w", err)
	}
	return filepath.Join(dir, "privacyfill", "state.json"), nil
}

// Open loads the state file at path, creating a fresh state with a new
// install instance ID when none exists.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.state = state{InstanceID: uuid.NewString()}
		if err := s.initEncryptor(); err != nil {
			return nil, err
		}
		if err := s.persist(); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	if err := json.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("corrupt state file %s: %w", path, err)
	}
	if s.state.InstanceID == "" {
		s.state.InstanceID = uuid.NewString()
	}
	if err := s.initEncryptor(); err != nil {
		return nil, err
	}
	if err := s.decryptSensitive(); err != nil {
		return nil, err
	}
	return s, nil
}

// initEncryptor derives the at-rest key from the install instance ID,
// which ties the state file to this install.
func (s *Store) initEncryptor() error {
	key, err := crypto.DeriveKey(s.state.InstanceID, "privacyfill-store")
	if err != nil {
		return err
	}
	enc, err := crypto.NewEncryptor(key)
	if err != nil {
		return err
	}
	s.enc = enc
	return nil
}

func (s *Store) decryptSensitive() error {
	if s.state.License != nil {
		key, err := s.enc.Decrypt(s.state.License.Key)
		if err != nil {
			return fmt.Errorf("failed to decrypt license key: %w", err)
		}
		s.state.License.Key = key
	}
	decryptMailbox := func(id *identity.Identity) error {
		if id == nil || id.Mailbox == nil {
			return nil
		}
		password, err := s.enc.Decrypt(id.Mailbox.Password)
		if err != nil {
			return fmt.Errorf("failed to decrypt mailbox password: %w", err)
		}
		token, err := s.enc.Decrypt(id.Mailbox.Token)
		if err != nil {
			return fmt.Errorf("failed to decrypt mailbox token: %w", err)
		}
		id.Mailbox.Password = password
		id.Mailbox.Token = token
		return nil
	}
	if err := decryptMailbox(s.state.CurrentIdentity); err != nil {
		return err
	}
	for i := range s.state.History {
		if err := decryptMailbox(&s.state.History[i]); err != nil {
			return err
		}
	}
	return nil
}

// persist writes the state atomically via a temp file rename. Callers
// hold s.mu.
func (s *Store) persist() error {
	onDisk, err := s.encryptedCopy()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(onDisk, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return err
	}
	cleanup = false
	return nil
}

// encryptedCopy clones the state with sensitive fields as ciphertext.
func (s *Store) encryptedCopy() (state, error) {
	onDisk := s.state

	if s.state.License != nil {
		lic := *s.state.License
		key, err := s.enc.Encrypt(lic.Key)
		if err != nil {
			return state{}, err
		}
		lic.Key = key
		onDisk.License = &lic
	}

	encryptIdentity := func(id identity.Identity) (identity.Identity, error) {
		if id.Mailbox == nil {
			return id, nil
		}
		mailbox := *id.Mailbox
		password, err := s.enc.Encrypt(mailbox.Password)
		if err != nil {
			return id, err
		}
		token, err := s.enc.Encrypt(mailbox.Token)
		if err != nil {
			return id, err
		}
		mailbox.Password = password
		mailbox.Token = token
		id.Mailbox = &mailbox
		return id, nil
	}

	if s.state.CurrentIdentity != nil {
		enc, err := encryptIdentity(*s.state.CurrentIdentity)
		if err != nil {
			return state{}, err
		}
		onDisk.CurrentIdentity = &enc
	}
	if len(s.state.History) > 0 {
		history := make([]identity.Identity, len(s.state.History))
		for i, id := range s.state.History {
			enc, err := encryptIdentity(id)
			if err != nil {
				return state{}, err
			}
			history[i] = enc
		}
		onDisk.History = history
	}

	return onDisk, nil
}

// InstanceID returns the stable install identifier.
func (s *Store) InstanceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.InstanceID
}

func (s *Store) User() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.User == nil {
		return nil
	}
	u := *s.state.User
	return &u
}

func (s *Store) SetUser(u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.User = &u
	return s.persist()
}

// ClearUser removes the user and the cached subscription.
func (s *Store) ClearUser() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.User = nil
	s.state.Subscription = nil
	s.state.SubscriptionAt = nil
	return s.persist()
}

// Subscription returns the cached backend subscription and when it was
// last synced. Either may be nil.
func (s *Store) Subscription() (*models.Subscription, *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Subscription == nil {
		return nil, nil
	}
	sub := *s.state.Subscription
	return &sub, s.state.SubscriptionAt
}

func (s *Store) SetSubscription(sub models.Subscription, syncedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Subscription = &sub
	s.state.SubscriptionAt = &syncedAt
	return s.persist()
}

func (s *Store) License() *LicenseInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.License == nil {
		return nil
	}
	lic := *s.state.License
	return &lic
}

func (s *Store) SetLicense(info LicenseInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.License = &info
	return s.persist()
}

func (s *Store) ClearLicense() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.License = nil
	return s.persist()
}

// IsPremium reports whether premium features are unlocked, either by
// an active cached subscription or a standalone license activation.
func (s *Store) IsPremium() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.License != nil {
		return true
	}
	sub := s.state.Subscription
	return sub != nil && sub.Status == models.StatusActive && sub.Plan == models.PlanPremium
}

func (s *Store) Usage() Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	usage := s.state.Usage
	if usage.ResetDate != nil {
		t := *usage.ResetDate
		usage.ResetDate = &t
	}
	return usage
}

func (s *Store) SetUsage(count int, resetDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Usage = Usage{Count: count, ResetDate: &resetDate}
	return s.persist()
}

func (s *Store) CurrentIdentity() *identity.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentIdentity == nil {
		return nil
	}
	id := *s.state.CurrentIdentity
	return &id
}

// SetCurrentIdentity makes id current and pushes it onto the history,
// newest first, trimming past HistoryLimit.
func (s *Store) SetCurrentIdentity(id identity.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CurrentIdentity = &id
	s.state.History = append([]identity.Identity{id}, s.state.History...)
	if len(s.state.History) > HistoryLimit {
		s.state.History = s.state.History[:HistoryLimit]
	}
	return s.persist()
}

// History returns the identity history, newest first.
func (s *Store) History() []identity.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]identity.Identity, len(s.state.History))
	copy(history, s.state.History)
	return history
}

func (s *Store) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.History = nil
	return s.persist()
}
