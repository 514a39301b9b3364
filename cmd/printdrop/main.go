package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "printdrop: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "printdrop",
		Short: "PrintDrop shop tooling",
		Long: `PrintDrop CLI prices documents and pages locally and lets shop staff list
orders and change their status against the configured order store.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newQuoteCmd(),
		newPagesCmd(),
		newOrdersCmd(),
	)
	return cmd
}
