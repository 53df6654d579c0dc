/*
Package main is the entry point for the Police and Thief server.

The serve command loads configuration, initializes the global logging system, opens the
store, the chat bus and the reminder queue, serves HTTP and WebSocket traffic, and shuts
everything down gracefully on SIGINT or SIGTERM. The migrate command manages the schema.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const programName = "policethief"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Police and Thief meeting server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCommand(), migrateCommand())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		stop()
		os.Exit(1)
	}
}
