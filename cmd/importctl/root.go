package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	_ "github.com/edrees2022/log-and-ledger-sub006/internal/core/targets"
	"github.com/edrees2022/log-and-ledger-sub006/internal/logging"
)

func newRootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           "importctl",
		Short:         "Validate and import contacts, items and accounts spreadsheets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			// stdout carries JSON results
			slog.SetDefault(logging.New(os.Stderr, logLevel, "text"))
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	cmd.AddCommand(newTargetsCmd())
	cmd.AddCommand(newTemplateCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newImportCmd())
	return cmd
}
