// Package identity generates disposable identities: name, email,
// username, password and an optional bio, with an optional live
// mailbox provisioned through mail.tm.
package identity

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lobisloby/privacyfill/internal/mailtm"
)

// Mailbox holds credentials for a provisioned disposable inbox.
type Mailbox struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	Token    string `json:"token"`
}

// Identity is a complete generated persona.
type Identity struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Bio       string    `json:"bio,omitempty"`
	Mailbox   *Mailbox  `json:"mailbox,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// FullName returns "First Last".
func (i Identity) FullName() string {
	return i.FirstName + " " + i.LastName
}

// Options controls a single generation.
type Options struct {
	// Premium enables premium-only output (bio).
	Premium bool
	// WithMailbox provisions a live inbox. Failure falls back to a
	// fallback-domain address rather than failing the generation.
	WithMailbox bool
	// PasswordLength below the minimum is raised to 16.
	PasswordLength int
}

const minPasswordLength = 12

// Mail is the subset of the mail.tm client the generator needs.
type Mail interface {
	Domains(ctx context.Context) ([]mailtm.Domain, error)
	CreateAccount(ctx context.Context, address, password string) (*mailtm.Account, error)
	Token(ctx context.Context, address, password string) (string, error)
}

// Generator produces identities. All randomness comes from crypto/rand.
type Generator struct {
	mail   Mail
	logger *slog.Logger
	now    func() time.Time
}

// NewGenerator creates a Generator. mail may be nil when mailbox
// provisioning is never requested.
func NewGenerator(mail Mail, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{mail: mail, logger: logger, now: time.Now}
}

// Generate produces a new identity per opts.
func (g *Generator) Generate(ctx context.Context, opts Options) (*Identity, error) {
	first, err := pick(firstNames)
	if err != nil {
		return nil, err
	}
	last, err := pick(lastNames)
	if err != nil {
		return nil, err
	}

	length := opts.PasswordLength
	if length < minPasswordLength {
		length = 16
	}
	password, err := GeneratePassword(length)
	if err != nil {
		return nil, fmt.Errorf("failed to generate password: %w", err)
	}

	num, err := randomInt(1000)
	if err != nil {
		return nil, err
	}
	localPart := strings.ToLower(first) + fmt.Sprintf("%d", num)

	suffix, err := randomDigits(4)
	if err != nil {
		return nil, err
	}
	username := strings.ToLower(first) + "_" + suffix

	identity := &Identity{
		ID:        uuid.NewString(),
		FirstName: first,
		LastName:  last,
		Username:  username,
		Password:  password,
		CreatedAt: g.now(),
	}

	if opts.WithMailbox && g.mail != nil {
		mailbox, err := g.provisionMailbox(ctx, localPart)
		if err != nil {
			g.logger.Warn("mailbox provisioning failed, using fallback domain", "error", err)
		} else {
			identity.Email = mailbox.Address
			identity.Mailbox = mailbox
		}
	}

	if identity.Email == "" {
		domain, err := pick(fallbackDomains)
		if err != nil {
			return nil, err
		}
		identity.Email = localPart + "@" + domain
	}

	if opts.Premium {
		bio, err := generateBio()
		if err != nil {
			return nil, err
		}
		identity.Bio = bio
	}

	return identity, nil
}

func (g *Generator) provisionMailbox(ctx context.Context, localPart string) (*Mailbox, error) {
	domains, err := g.mail.Domains(ctx)
	if err != nil {
		return nil, err
	}

	address := localPart + "@" + domains[0].Domain
	password, err := GeneratePassword(16)
	if err != nil {
		return nil, err
	}

	if _, err := g.mail.CreateAccount(ctx, address, password); err != nil {
		return nil, err
	}
	token, err := g.mail.Token(ctx, address, password)
	if err != nil {
		return nil, err
	}

	return &Mailbox{Address: address, Password: password, Token: token}, nil
}

// GeneratePassword returns a random password of the given length with
// at least one lowercase, uppercase, digit and symbol character.
func GeneratePassword(length int) (string, error) {
	if length < 4 {
		length = 4
	}

	classes := []string{passwordLower, passwordUpper, passwordDigits, passwordSymbols}
	all := strings.Join(classes, "")

	chars := make([]byte, 0, length)
	// One guaranteed character per class
	for _, class := range classes {
		c, err := pickByte(class)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}
	for len(chars) < length {
		c, err := pickByte(all)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}

	// Fisher-Yates so the guaranteed characters are not positional
	for i := len(chars) - 1; i > 0; i-- {
		j, err := randomInt(i + 1)
		if err != nil {
			return "", err
		}
		chars[i], chars[j] = chars[j], chars[i]
	}

	return string(chars), nil
}

func generateBio() (string, error) {
	template, err := pick(bioTemplates)
	if err != nil {
		return "", err
	}
	adjective, err := pick(bioAdjectives)
	if err != nil {
		return "", err
	}
	first, err := pick(interests)
	if err != nil {
		return "", err
	}
	second := first
	for second == first {
		second, err = pick(interests)
		if err != nil {
			return "", err
		}
	}
	return fmt.Sprintf(template, adjective, first, second), nil
}

func pick(list []string) (string, error) {
	i, err := randomInt(len(list))
	if err != nil {
		return "", err
	}
	return list[i], nil
}

func pickByte(set string) (byte, error) {
	i, err := randomInt(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

func randomInt(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, fmt.Errorf("failed to read random source: %w", err)
	}
	return int(n.Int64()), nil
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	for i := 0; i < n; i++ {
		d, err := randomInt(10)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%d", d)
	}
	return b.String(), nil
}
