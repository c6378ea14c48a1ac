package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// bindEnv fills any flag the command line left untouched from a prefixed
// environment variable, e.g. SKI_BIND_PORT for --bind-port. Flags given
// explicitly win over the environment.
func bindEnv(prefix string, cmd *cobra.Command) error {
	var failed []string
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}
		name := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		value, ok := os.LookupEnv(name)
		if !ok {
			return
		}
		if err := f.Value.Set(value); err != nil {
			failed = append(failed, fmt.Sprintf("%s (%s): %v", name, f.Value.Type(), err))
		}
	})
	if len(failed) > 0 {
		return errors.Errorf("invalid environment overrides: %s", strings.Join(failed, "; "))
	}
	return nil
}
