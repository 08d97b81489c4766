package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lobisloby/privacyfill/internal/apiclient"
	"github.com/lobisloby/privacyfill/internal/identity"
)

var generateWithMailbox bool

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new disposable identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		allowed, err := a.quota.CanGenerate()
		if err != nil {
			return err
		}
		if !allowed {
			fmt.Printf("Free limit of %d identities per month reached.\n", a.quota.Limit())
			if a.cfg.LemonSqueezyCheckoutURL != "" {
				fmt.Printf("Upgrade to premium: %s\n", a.cfg.LemonSqueezyCheckoutURL)
			}
			return nil
		}

		id, err := a.gen.Generate(ctx, identity.Options{
			Premium:     a.store.IsPremium(),
			WithMailbox: generateWithMailbox,
		})
		if err != nil {
			return fmt.Errorf("generation failed: %w", err)
		}

		if err := a.store.SetCurrentIdentity(*id); err != nil {
			return err
		}
		count, err := a.quota.RecordGeneration()
		if err != nil {
			return err
		}

		// The server count is canonical for signed-in users; local
		// tracking still gates offline use.
		if _, err := a.backend.TrackUsage(ctx); err != nil && !errors.Is(err, apiclient.ErrNoUser) {
			fmt.Printf("Note: could not report usage to the server: %v\n", err)
		}

		printIdentity(*id)
		if !a.store.IsPremium() {
			fmt.Printf("\nUsed %d of %d free identities this month.\n", count, a.quota.Limit())
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().BoolVar(&generateWithMailbox, "mailbox", false, "provision a live disposable inbox for the identity")
}

func printIdentity(id identity.Identity) {
	fmt.Printf("Name:     %s\n", id.FullName())
	fmt.Printf("Email:    %s\n", id.Email)
	fmt.Printf("Username: %s\n", id.Username)
	fmt.Printf("Password: %s\n", id.Password)
	if id.Bio != "" {
		fmt.Printf("Bio:      %s\n", id.Bio)
	}
	if id.Mailbox != nil {
		fmt.Printf("Inbox:    live (use 'privacyfill inbox' to read messages)\n")
	}
}
