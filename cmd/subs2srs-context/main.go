package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abdnh/subs2srs-context/internal/cli"
	"github.com/abdnh/subs2srs-context/internal/processor"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command; subcommands build a processor from the loaded settings
	rootCmd := cli.CreateRootCommand(flags, func(settings *cli.Settings) (cli.App, error) {
		return processor.NewProcessor(settings), nil
	})

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Execute command
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
