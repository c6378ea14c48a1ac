package main

import (
	"github.com/spf13/cobra"

	"github.com/shelfeng/skiaicoach/internal/logger"
	"github.com/shelfeng/skiaicoach/version"
)

type rootOptions struct {
	logger.Config
}

func newRootCmd() *cobra.Command {
	opts := rootOptions{Config: logger.DefaultConfig()}

	cmd := &cobra.Command{
		Use:     "skiaicoach",
		Short:   "ski video analysis server and Azure deployment tool",
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindEnv("SKI_", cmd); err != nil {
				return err
			}
			logger.SetLogrus(opts.Config)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Level, "level", opts.Level,
		"set the logging level (can be one of: debug, info, warn, error, or fatal)")
	cmd.PersistentFlags().BoolVar(&opts.Color, "color", opts.Color, "enable colored output")
	cmd.PersistentFlags().BoolVar(&opts.Structured, "structured", false, "enable structured logging")

	cmd.AddCommand(newCompletionCmd())
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newDeployCmd())

	return cmd
}
