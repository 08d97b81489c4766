package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lobisloby/privacyfill/internal/mailtm"
)

var inboxCmd = &cobra.Command{
	Use:   "inbox [message-id]",
	Short: "Read the current identity's disposable inbox",
	Long: `Read the current identity's disposable inbox. Without arguments the
messages are listed newest first; with a message ID the full message is
shown along with any verification code found in it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		current := a.store.CurrentIdentity()
		if current == nil || current.Mailbox == nil {
			return errors.New("the current identity has no live inbox; generate one with 'privacyfill generate --mailbox'")
		}

		if len(args) == 1 {
			detail, err := a.mail.Message(ctx, current.Mailbox.Token, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("From:    %s\n", detail.From.Address)
			fmt.Printf("Subject: %s\n\n", detail.Subject)
			fmt.Println(detail.Text)
			if code := mailtm.ExtractCode(detail.Text); code != "" {
				fmt.Printf("\nVerification code: %s\n", code)
			}
			return nil
		}

		messages, err := a.mail.Messages(ctx, current.Mailbox.Token)
		if err != nil {
			return err
		}
		if len(messages) == 0 {
			fmt.Printf("Inbox %s is empty.\n", current.Mailbox.Address)
			return nil
		}
		for _, msg := range messages {
			marker := " "
			if !msg.Seen {
				marker = "*"
			}
			fmt.Printf("%s %-28s %-40s %s\n", marker, msg.ID, msg.Subject, msg.Created.Format("2006-01-02 15:04"))
		}
		return nil
	},
}
