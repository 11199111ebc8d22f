// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sport Tournaments Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sport-tournaments/auth-service/internal/config"
	"github.com/sport-tournaments/auth-service/internal/store"
)

// ServiceStatus holds the status information reported by the status command.
type ServiceStatus struct {
	Database         string `json:"database"`
	MigrationVersion uint   `json:"migration_version"`
	MigrationDirty   bool   `json:"migration_dirty"`
	Accounts         int64  `json:"accounts"`
	ActiveSessions   int64  `json:"active_sessions"`
	Error            string `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
}

// newStatusCmd creates the status subcommand with all flags configured.
func newStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show database and schema status",
		Long:  `Ping the database and report migration version, account count, and active session count.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	// Register flags
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

// runStatus executes the status command.
func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	appCfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := appCfg.Validate(false); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	status := queryServiceStatus(ctx, appCfg.Database.URL)

	var output string
	if cfg.jsonOutput {
		output, err = formatStatusJSON(status)
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
	} else {
		output = formatStatusTable(status)
	}

	cmd.Println(output)
	return nil
}

// queryServiceStatus connects to the database and gathers status fields.
// Failures are reported in the Error field rather than aborting, so status
// stays useful when the database is down.
func queryServiceStatus(ctx context.Context, databaseURL string) ServiceStatus {
	status := ServiceStatus{Database: "unreachable"}

	pool, err := store.Connect(ctx, databaseURL)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	defer pool.Close()

	status.Database = "ok"

	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	defer func() { _ = migrator.Close() }()

	status.MigrationVersion, status.MigrationDirty, err = migrator.Version()
	if err != nil {
		status.Error = err.Error()
		return status
	}

	if err := pool.QueryRow(ctx, `SELECT count(*) FROM accounts`).Scan(&status.Accounts); err != nil {
		status.Error = err.Error()
		return status
	}
	if err := pool.QueryRow(ctx,
		`SELECT count(*) FROM sessions WHERE NOT revoked AND expires_at > now()`).Scan(&status.ActiveSessions); err != nil {
		status.Error = err.Error()
		return status
	}

	return status
}

// formatStatusJSON renders the status as indented JSON.
func formatStatusJSON(status ServiceStatus) (string, error) {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// formatStatusTable renders the status as an aligned table.
func formatStatusTable(status ServiceStatus) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "DATABASE\t%s\n", status.Database)
	if status.Database == "ok" {
		dirty := ""
		if status.MigrationDirty {
			dirty = " (dirty)"
		}
		fmt.Fprintf(w, "MIGRATION\t%d%s\n", status.MigrationVersion, dirty)
		fmt.Fprintf(w, "ACCOUNTS\t%d\n", status.Accounts)
		fmt.Fprintf(w, "ACTIVE SESSIONS\t%d\n", status.ActiveSessions)
	}
	if status.Error != "" {
		fmt.Fprintf(w, "ERROR\t%s\n", status.Error)
	}

	_ = w.Flush()
	return strings.TrimRight(sb.String(), "\n")
}
