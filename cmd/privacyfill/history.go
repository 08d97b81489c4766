package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyClear bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previously generated identities, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		if historyClear {
			if err := a.store.ClearHistory(); err != nil {
				return err
			}
			fmt.Println("History cleared.")
			return nil
		}

		history := a.store.History()
		if len(history) == 0 {
			fmt.Println("No identities generated yet.")
			return nil
		}

		for i, id := range history {
			fmt.Printf("%2d. %-24s %-32s %s\n", i+1, id.FullName(), id.Email, id.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "delete the stored identity history")
}
