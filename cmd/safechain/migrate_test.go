// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeChain Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateCommand_HasActions(t *testing.T) {
	cmd := NewMigrateCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, action := range []string{"up", "down", "status", "force"} {
		assert.Contains(t, output, action, "migrate help missing %q action", action)
	}
}

func TestMigrateForce_RejectsBadVersion(t *testing.T) {
	tests := []struct {
		name string
		arg  string
	}{
		{"non-numeric", "abc"},
		{"negative", "-1"},
		{"empty", ""},
		{"float", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configFile = ""

			cmd := NewRootCmd()
			cmd.SetOut(new(bytes.Buffer))
			cmd.SetErr(new(bytes.Buffer))
			cmd.SetArgs([]string{"migrate", "force", tt.arg})

			err := cmd.Execute()
			require.Error(t, err)
		})
	}
}

func TestMigrateUp_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DATABASE_URL", "")
	configFile = ""

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"migrate", "up"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL is required")
}
