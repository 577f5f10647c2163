package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the folder and print change events until interrupted",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		sys := openSystem()
		defer sys.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		unsub, err := sys.Bus.Subscribe("**", func(topic string, payload any) {
			fmt.Printf("%-28s %+v\n", topic, payload)
		})
		if err != nil {
			fatal("Failed to subscribe", err)
		}
		defer unsub()

		// Initial scan installs the file watchers.
		if _, err := sys.Manager.Notes(ctx); err != nil {
			fatal("Failed to scan notes", err)
		}

		fmt.Println("Watching. Ctrl-C to stop.")
		<-ctx.Done()
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
