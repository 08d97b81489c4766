package identity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/lobisloby/privacyfill/internal/mailtm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeMail struct {
	domains    []mailtm.Domain
	domainsErr error
	createErr  error
	tokenErr   error

	createdAddress string
}

func (f *fakeMail) Domains(ctx context.Context) ([]mailtm.Domain, error) {
	return f.domains, f.domainsErr
}

func (f *fakeMail) CreateAccount(ctx context.Context, address, password string) (*mailtm.Account, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.createdAddress = address
	return &mailtm.Account{ID: "acc-1", Address: address}, nil
}

func (f *fakeMail) Token(ctx context.Context, address, password string) (string, error) {
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return "jwt-abc", nil
}

func TestGenerate_Basic(t *testing.T) {
	gen := NewGenerator(nil, testLogger())

	id, err := gen.Generate(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if id.ID == "" {
		t.Error("expected non-empty id")
	}
	if id.FirstName == "" || id.LastName == "" {
		t.Errorf("name = %q %q", id.FirstName, id.LastName)
	}
	if id.FullName() != id.FirstName+" "+id.LastName {
		t.Errorf("FullName() = %q", id.FullName())
	}
	if !strings.Contains(id.Email, "@") {
		t.Errorf("email = %q", id.Email)
	}
	if !strings.HasPrefix(id.Email, strings.ToLower(id.FirstName)) {
		t.Errorf("email %q does not start with first name", id.Email)
	}
	if !strings.HasPrefix(id.Username, strings.ToLower(id.FirstName)+"_") {
		t.Errorf("username = %q", id.Username)
	}
	if id.Bio != "" {
		t.Errorf("free identity has bio %q", id.Bio)
	}
	if id.Mailbox != nil {
		t.Error("mailbox provisioned without WithMailbox")
	}
	if id.CreatedAt.IsZero() {
		t.Error("createdAt not set")
	}
}

func TestGenerate_PremiumBio(t *testing.T) {
	gen := NewGenerator(nil, testLogger())

	id, err := gen.Generate(context.Background(), Options{Premium: true})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if id.Bio == "" {
		t.Error("premium identity missing bio")
	}
}

func TestGenerate_WithMailbox(t *testing.T) {
	mail := &fakeMail{domains: []mailtm.Domain{{ID: "1", Domain: "indigobook.com", IsActive: true}}}
	gen := NewGenerator(mail, testLogger())

	id, err := gen.Generate(context.Background(), Options{WithMailbox: true})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if id.Mailbox == nil {
		t.Fatal("expected provisioned mailbox")
	}
	if id.Email != mail.createdAddress {
		t.Errorf("email = %q, created address = %q", id.Email, mail.createdAddress)
	}
	if !strings.HasSuffix(id.Email, "@indigobook.com") {
		t.Errorf("email = %q, want mail.tm domain", id.Email)
	}
	if id.Mailbox.Token != "jwt-abc" {
		t.Errorf("token = %q", id.Mailbox.Token)
	}
	if id.Mailbox.Password == "" {
		t.Error("mailbox password empty")
	}
}

func TestGenerate_MailboxFailureFallsBack(t *testing.T) {
	mail := &fakeMail{domainsErr: errors.New("api down")}
	gen := NewGenerator(mail, testLogger())

	id, err := gen.Generate(context.Background(), Options{WithMailbox: true})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if id.Mailbox != nil {
		t.Error("expected no mailbox on provisioning failure")
	}
	domain := id.Email[strings.Index(id.Email, "@")+1:]
	found := false
	for _, d := range fallbackDomains {
		if d == domain {
			found = true
		}
	}
	if !found {
		t.Errorf("email domain %q is not a fallback domain", domain)
	}
}

func TestGeneratePassword(t *testing.T) {
	for _, length := range []int{12, 16, 32} {
		password, err := GeneratePassword(length)
		if err != nil {
			t.Fatalf("GeneratePassword(%d) error = %v", length, err)
		}
		if len(password) != length {
			t.Errorf("length = %d, want %d", len(password), length)
		}

		if !strings.ContainsAny(password, passwordLower) {
			t.Errorf("password %q missing lowercase", password)
		}
		if !strings.ContainsAny(password, passwordUpper) {
			t.Errorf("password %q missing uppercase", password)
		}
		if !strings.ContainsAny(password, passwordDigits) {
			t.Errorf("password %q missing digit", password)
		}
		if !strings.ContainsAny(password, passwordSymbols) {
			t.Errorf("password %q missing symbol", password)
		}
	}
}

func TestGeneratePassword_Unique(t *testing.T) {
	a, _ := GeneratePassword(20)
	b, _ := GeneratePassword(20)
	if a == b {
		t.Error("two generated passwords are identical")
	}
}
