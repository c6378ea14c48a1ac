// Package deploy automates the Azure App Service deployment of skiaicoach:
// app settings from .env, zip packaging and deploy, the site's managed
// identity with its storage role, and the process startup command. All
// control-plane calls go through the az binary.
package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// AzCLI wraps the az binary.
type AzCLI struct {
	binary string

	// commandFactory is swapped out in tests.
	commandFactory func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewAzCLI returns a wrapper around the given az binary; a bare name is
// resolved on PATH.
func NewAzCLI(binary string) *AzCLI {
	if binary == "" {
		binary = "az"
	}
	return &AzCLI{binary: binary}
}

// Check verifies the az binary exists and returns its azure-cli version.
func (a *AzCLI) Check(ctx context.Context) (string, error) {
	if _, err := exec.LookPath(a.binary); err != nil {
		return "", errors.Wrapf(err,
			"%q not found; install the Azure CLI and retry", a.binary)
	}

	var version struct {
		AzureCLI string `json:"azure-cli"`
	}
	if err := a.RunJSON(ctx, &version, "version"); err != nil {
		return "", errors.Wrap(err, "probing az version")
	}
	return version.AzureCLI, nil
}

// Run executes az with the given arguments and returns its stdout.
func (a *AzCLI) Run(ctx context.Context, args ...string) ([]byte, error) {
	factory := a.commandFactory
	if factory == nil {
		factory = exec.CommandContext
	}
	cmd := factory(ctx, a.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debugf("running az %s", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "az %s failed: %s",
			firstArg(args), strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// RunJSON executes az with --output json appended and decodes stdout into
// out. A nil out discards the response.
func (a *AzCLI) RunJSON(ctx context.Context, out interface{}, args ...string) error {
	stdout, err := a.Run(ctx, append(args, "--output", "json")...)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(stdout, out); err != nil {
		return errors.Wrapf(err, "decoding az %s output", firstArg(args))
	}
	return nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return "(no args)"
	}
	// The first couple of arguments name the command group, which is enough
	// to identify the failing step without echoing setting values.
	if len(args) >= 2 && !strings.HasPrefix(args[1], "-") {
		return args[0] + " " + args[1]
	}
	return args[0]
}
