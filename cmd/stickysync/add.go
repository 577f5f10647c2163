package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telmoq/stickysync/pkg/manager"
)

var (
	addTitle   string
	addContent string
	addTags    []string
)

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a sticky note",
	Run: func(cmd *cobra.Command, args []string) {
		sys := openSystem()
		defer sys.Close()

		note, err := sys.Manager.CreateNote(context.Background(), manager.CreateRequest{
			Title:   addTitle,
			Content: addContent,
			Tags:    addTags,
		})
		if err != nil {
			fatal("Failed to create note", err)
		}

		fmt.Printf("Created %s (%s)\n", note.ID, note.FilePath)
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVar(&addTitle, "title", "", "Note title")
	addCmd.Flags().StringVar(&addContent, "content", "", "Note body")
	addCmd.Flags().StringSliceVar(&addTags, "tag", nil, "Tags (repeatable)")
}
