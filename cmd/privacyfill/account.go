package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lobisloby/privacyfill/internal/apiclient"
	"github.com/lobisloby/privacyfill/internal/models"
)

var loginToken string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with Google",
	Long: `Sign in with Google. Without --token this prints the consent URL;
open it, complete sign-in, and re-run with --token set to the access
token from the redirect.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		if loginToken == "" {
			if a.cfg.GoogleClientID == "" {
				return errors.New("GOOGLE_CLIENT_ID is not configured")
			}
			fmt.Println("Open this URL, sign in, then re-run with --token:")
			fmt.Println(a.auth.AuthURL("privacyfill-cli"))
			return nil
		}

		user, err := a.auth.SignIn(cmd.Context(), loginToken)
		if err != nil {
			return err
		}
		fmt.Printf("Signed in as %s\n", user.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the cached subscription",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.auth.SignOut(); err != nil {
			return err
		}
		fmt.Println("Signed out.")
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh the subscription status from the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		sub, err := a.backend.FetchSubscriptionStatus(cmd.Context())
		if errors.Is(err, apiclient.ErrNoUser) {
			return errors.New("not signed in; run 'privacyfill login' first")
		}
		if err != nil {
			return fmt.Errorf("sync failed (cached status kept): %w", err)
		}
		fmt.Printf("Subscription: %s (%s plan)\n", sub.Status, sub.Plan)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show account, subscription, license and quota state",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		if user := a.store.User(); user != nil {
			fmt.Printf("Account:      %s\n", user.Email)
		} else {
			fmt.Println("Account:      not signed in")
		}

		sub, syncedAt := a.store.Subscription()
		switch {
		case sub != nil && syncedAt != nil:
			fmt.Printf("Subscription: %s (%s plan), synced %s\n", sub.Status, sub.Plan, syncedAt.Format("2006-01-02 15:04"))
		case sub != nil:
			fmt.Printf("Subscription: %s (%s plan)\n", sub.Status, sub.Plan)
		default:
			fmt.Printf("Subscription: %s\n", models.StatusFree)
		}

		if lic := a.store.License(); lic != nil {
			product := lic.ProductName
			if product == "" {
				product = "premium license"
			}
			fmt.Printf("License:      %s\n", product)
		}

		if a.store.IsPremium() {
			fmt.Println("Tier:         premium (unlimited generations)")
			return nil
		}

		remaining, err := a.quota.Remaining()
		if err != nil {
			return err
		}
		fmt.Printf("Tier:         free, %d of %d generations left this month\n", remaining, a.quota.Limit())
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "Google access token from the completed sign-in redirect")
}
