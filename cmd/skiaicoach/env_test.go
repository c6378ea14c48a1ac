package main

import (
	"testing"

	"github.com/spf13/cobra"
	"gotest.tools/assert"
)

func TestBindEnv(t *testing.T) {
	t.Setenv("SKI_BIND_PORT", "9000")
	t.Setenv("SKI_MODEL", "gpt-4o")

	cmd := &cobra.Command{}
	port := cmd.Flags().Int("bind-port", 5000, "")
	model := cmd.Flags().String("model", "gemini-3-flash-preview", "")
	other := cmd.Flags().String("upload-dir", "uploads", "")

	assert.NilError(t, bindEnv("SKI_", cmd))
	assert.Equal(t, *port, 9000)
	assert.Equal(t, *model, "gpt-4o")
	assert.Equal(t, *other, "uploads")
}

func TestBindEnvKeepsExplicitFlags(t *testing.T) {
	t.Setenv("SKI_BIND_PORT", "9000")

	cmd := &cobra.Command{}
	port := cmd.Flags().Int("bind-port", 5000, "")
	assert.NilError(t, cmd.Flags().Set("bind-port", "8080"))

	assert.NilError(t, bindEnv("SKI_", cmd))
	assert.Equal(t, *port, 8080)
}

func TestBindEnvBadValue(t *testing.T) {
	t.Setenv("SKI_BIND_PORT", "not-a-port")

	cmd := &cobra.Command{}
	cmd.Flags().Int("bind-port", 5000, "")

	err := bindEnv("SKI_", cmd)
	assert.ErrorContains(t, err, "SKI_BIND_PORT")
}
