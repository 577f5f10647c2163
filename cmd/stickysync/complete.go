package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var completeUndo bool

var completeCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Mark a sticky note completed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sys := openSystem()
		defer sys.Close()

		ctx := context.Background()
		if _, err := sys.Manager.Notes(ctx); err != nil {
			fatal("Failed to scan notes", err)
		}
		note, err := sys.Manager.CompleteNote(ctx, args[0], !completeUndo)
		if err != nil {
			fatal("Failed to update note", err)
		}
		fmt.Printf("%s completed=%v\n", note.ID, note.Completed)
	},
}

func init() {
	rootCmd.AddCommand(completeCmd)
	completeCmd.Flags().BoolVar(&completeUndo, "undo", false, "Mark as not completed")
}
