// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sport Tournaments Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the authd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authd",
		Short: "authd - authentication and session service",
		Long: `authd manages accounts, credentials, and refresh-token sessions
for the tournament platform. It issues short-lived JWT access tokens and
rotates opaque refresh tokens on every use.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSweepCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}
