package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the SafeChain CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "safechain",
		Short: "SafeChain - resident account backend",
		Long: `SafeChain is the mobile backend for the resident safety application,
providing account registration, login, and the password reset flow.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
