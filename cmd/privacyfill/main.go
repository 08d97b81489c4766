// Package main is the PrivacyFill agent CLI: it generates disposable
// identities, manages the free-tier quota, and keeps license and
// subscription state in sync with the backend.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lobisloby/privacyfill/internal/apiclient"
	"github.com/lobisloby/privacyfill/internal/auth"
	"github.com/lobisloby/privacyfill/internal/config"
	"github.com/lobisloby/privacyfill/internal/identity"
	"github.com/lobisloby/privacyfill/internal/lemonsqueezy"
	"github.com/lobisloby/privacyfill/internal/license"
	"github.com/lobisloby/privacyfill/internal/logging"
	"github.com/lobisloby/privacyfill/internal/mailtm"
	"github.com/lobisloby/privacyfill/internal/quota"
	"github.com/lobisloby/privacyfill/internal/store"
	"github.com/lobisloby/privacyfill/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "privacyfill",
	Short:   "PrivacyFill - disposable identity generator",
	Long:    `PrivacyFill generates disposable identities (name, email, username, password) with optional live inboxes, gated by a monthly free quota or a premium subscription.`,
	Version: version.Get().String(),
}

func init() {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(deactivateCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(inboxCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app wires the agent's components for a single command invocation.
type app struct {
	cfg      *config.Config
	store    *store.Store
	quota    *quota.Engine
	mail     *mailtm.Client
	gen      *identity.Generator
	backend  *apiclient.Client
	licenses *license.Reconciler
	auth     *auth.Authenticator
}

func newApp() (*app, error) {
	logger := logging.SetDefault()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	s, err := store.Open(filepath.Join(cfg.DataDir, "state.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to open state: %w", err)
	}

	mail := mailtm.NewClient(cfg.MailAPIURL)
	backend := apiclient.New(cfg.BaseURL, s)
	licenseClient := lemonsqueezy.NewLicenseClient(cfg.LemonSqueezyAPIURL)

	return &app{
		cfg:      cfg,
		store:    s,
		quota:    quota.NewEngine(s, cfg.FreeLimit),
		mail:     mail,
		gen:      identity.NewGenerator(mail, logger),
		backend:  backend,
		licenses: license.NewReconciler(s, licenseClient, logger),
		auth:     auth.New(cfg.GoogleClientID, "https://localhost/oauth", s, backend, logger),
	}, nil
}
