package main

import (
	"os"
	"testing"

	"gotest.tools/assert"
)

func TestMaybeInjectRootAlias(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "bare invocation runs the server",
			args:     []string{"skiaicoach"},
			expected: []string{"skiaicoach", "run"},
		},
		{
			name:     "flags go to the run command",
			args:     []string{"skiaicoach", "--bind-port", "8000"},
			expected: []string{"skiaicoach", "run", "--bind-port", "8000"},
		},
		{
			name:     "subcommands are left alone",
			args:     []string{"skiaicoach", "deploy", "all"},
			expected: []string{"skiaicoach", "deploy", "all"},
		},
		{
			name:     "help is left alone",
			args:     []string{"skiaicoach", "--help"},
			expected: []string{"skiaicoach", "--help"},
		},
	}

	realArgs := os.Args
	defer func() { os.Args = realArgs }()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			maybeInjectRootAlias(newRootCmd(), "run")
			assert.DeepEqual(t, os.Args, tt.expected)
		})
	}
}
