package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/telmoq/stickysync"
	"github.com/telmoq/stickysync/pkg/naming"
)

var (
	verbose    bool
	folder     string
	namingKind string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stickysync",
	Short: "Sticky notes as markdown files, kept in sync with whoever else edits them",
	Long: `stickysync persists sticky notes one markdown file each and keeps the
in-memory view reconciled with external edits: debounced writes, retries
with backoff, and deterministic conflict resolution.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&folder, "folder", "f", ".", "Notes folder")
	rootCmd.PersistentFlags().StringVar(&namingKind, "naming", "timestamp", "File naming strategy (timestamp, sequential, custom)")
}

func openSystem() *stickysync.System {
	sys, err := stickysync.New(folder,
		stickysync.WithLogger(slog.Default()),
		stickysync.WithNaming(naming.Kind(namingKind)),
	)
	if err != nil {
		fatal("Failed to initialize", err)
	}
	return sys
}
