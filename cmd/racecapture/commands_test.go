package main

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/racecapture/internal/models"
)

func TestValidateRange(t *testing.T) {
	assert.NoError(t, validateRange("2026-02-05", "2026-02-05"))
	assert.NoError(t, validateRange("2026-02-01", "2026-02-28"))
	assert.Error(t, validateRange("2026-02-06", "2026-02-05"))
	assert.Error(t, validateRange("05/02/2026", "2026-02-05"))
	assert.Error(t, validateRange("2026-02-05", ""))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitPartialFailure, exitCode(fmt.Errorf("nightly: %w", errPartialFailure)))
	assert.Equal(t, exitMissingInput, exitCode(fmt.Errorf("aggregate: %w", models.ErrMissingPrerequisite)))
	assert.Equal(t, exitFailure, exitCode(fmt.Errorf("boom")))
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"monitor", "crawl", "transform", "aggregate", "features", "run", "daemon", "verify-leakage", "version"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)
	assert.Contains(t, out.String(), "racecapture dev")
}
