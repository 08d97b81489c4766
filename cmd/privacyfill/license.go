package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var activateCmd = &cobra.Command{
	Use:   "activate <license-key>",
	Short: "Activate a premium license key on this install",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		result, err := a.licenses.Activate(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(result.Message)
		if result.Success {
			fmt.Println("Premium features are now unlocked.")
		}
		return nil
	},
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Release this install's license seat and clear it locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		if a.store.License() == nil {
			fmt.Println("No license is active on this install.")
			return nil
		}
		if err := a.licenses.Deactivate(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("License deactivated.")
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Revalidate the stored license key with the license server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		if a.store.License() == nil {
			fmt.Println("No license is active on this install.")
			return nil
		}

		valid, err := a.licenses.Verify(cmd.Context())
		if err != nil {
			// State untouched: a transport failure must not lock a
			// paying user out.
			return fmt.Errorf("could not verify license: %w", err)
		}
		if valid {
			fmt.Println("License is valid.")
		} else {
			fmt.Println("License is no longer valid and has been removed from this install.")
		}
		return nil
	},
}
