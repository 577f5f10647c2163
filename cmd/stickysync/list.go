package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sticky notes in the folder",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		sys := openSystem()
		defer sys.Close()

		notes, err := sys.Manager.Notes(context.Background())
		if err != nil {
			fatal("Failed to list notes", err)
		}

		if listJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(notes); err != nil {
				fatal("Failed to encode JSON", err)
			}
			return
		}

		for _, note := range notes {
			mark := " "
			if note.Completed {
				mark = "x"
			}
			fmt.Printf("[%s] %s  %s\n", mark, note.ID, note.Title)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
}
