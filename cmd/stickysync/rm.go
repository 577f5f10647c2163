package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a sticky note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sys := openSystem()
		defer sys.Close()

		ctx := context.Background()
		// Warm the cache so the id resolves to its file path.
		if _, err := sys.Manager.Notes(ctx); err != nil {
			fatal("Failed to scan notes", err)
		}
		if err := sys.Manager.DeleteNote(ctx, args[0]); err != nil {
			fatal("Failed to delete note", err)
		}
		fmt.Printf("Deleted %s\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
