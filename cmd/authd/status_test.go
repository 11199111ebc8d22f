// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sport Tournaments Contributors

package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Properties(t *testing.T) {
	cmd := newStatusCmd()

	assert.Equal(t, "status", cmd.Use)
	assert.Contains(t, cmd.Short, "status")
	assert.Contains(t, cmd.Long, "migration")
	assert.NotNil(t, cmd.Flags().Lookup("json"), "status should have a --json flag")
}

func TestFormatStatusJSON(t *testing.T) {
	status := ServiceStatus{
		Database:         "ok",
		MigrationVersion: 1,
		Accounts:         42,
		ActiveSessions:   7,
	}

	output, err := formatStatusJSON(status)
	require.NoError(t, err)

	var decoded ServiceStatus
	require.NoError(t, json.Unmarshal([]byte(output), &decoded))
	assert.Equal(t, status, decoded)
}

func TestFormatStatusJSON_OmitsEmptyError(t *testing.T) {
	output, err := formatStatusJSON(ServiceStatus{Database: "ok"})
	require.NoError(t, err)
	assert.NotContains(t, output, `"error"`)
}

func TestFormatStatusTable_Healthy(t *testing.T) {
	output := formatStatusTable(ServiceStatus{
		Database:         "ok",
		MigrationVersion: 1,
		Accounts:         42,
		ActiveSessions:   7,
	})

	assert.Contains(t, output, "DATABASE")
	assert.Contains(t, output, "ok")
	assert.Contains(t, output, "42")
	assert.Contains(t, output, "ACTIVE SESSIONS")
	assert.NotContains(t, output, "ERROR")
}

func TestFormatStatusTable_Unreachable(t *testing.T) {
	output := formatStatusTable(ServiceStatus{
		Database: "unreachable",
		Error:    "connection refused",
	})

	assert.Contains(t, output, "unreachable")
	assert.Contains(t, output, "connection refused")
	// Counts are meaningless without a connection
	assert.NotContains(t, output, "ACCOUNTS")
}

func TestFormatStatusTable_Dirty(t *testing.T) {
	output := formatStatusTable(ServiceStatus{
		Database:         "ok",
		MigrationVersion: 1,
		MigrationDirty:   true,
	})

	require.True(t, strings.Contains(output, "dirty"), "dirty state should be visible: %s", output)
}
