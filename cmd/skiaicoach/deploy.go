package main

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shelfeng/skiaicoach/internal/analysis"
	"github.com/shelfeng/skiaicoach/internal/deploy"
	"github.com/shelfeng/skiaicoach/internal/options"
	"github.com/shelfeng/skiaicoach/pkg/check"
)

func newDeployCmd() *cobra.Command {
	opts := options.DefaultOptions().Deploy

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "deploy the app to Azure App Service",
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.AppName, "app", opts.AppName, "App Service web app name")
	flags.StringVar(&opts.ResourceGroup, "resource-group", opts.ResourceGroup, "Azure resource group")
	flags.StringVar(&opts.EnvFile, "env-file", opts.EnvFile, "dotenv file pushed as app settings")
	flags.StringVar(&opts.SourceDir, "src", opts.SourceDir, "source directory to package")
	flags.StringVar(&opts.Artifact, "artifact", opts.Artifact, "zip artifact path")
	flags.StringVar(&opts.StorageScope, "storage-scope", opts.StorageScope,
		"resource ID of the storage account granted to the managed identity")
	flags.StringVar(&opts.Role, "role", opts.Role, "role granted on the storage scope")
	flags.StringVar(&opts.StartupCommand, "startup-command", opts.StartupCommand,
		"App Service startup command")
	flags.StringVar(&opts.AzBinary, "az", opts.AzBinary, "az binary")

	deployer := func() (*deploy.Deployer, error) {
		if err := check.Validate(opts); err != nil {
			return nil, errors.Wrap(err, "invalid deployment configuration")
		}
		return deploy.New(opts), nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "doctor",
		Short: "check the deployment prerequisites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := deployer()
			if err != nil {
				return err
			}
			if err := d.Doctor(cmd.Context()); err != nil {
				return err
			}
			// ffmpeg is a runtime concern of the deployed site, so a missing
			// local install is only worth a warning.
			if path, err := analysis.NewFrameExtractor("").Check(); err != nil {
				log.WithError(err).Warn("ffmpeg not found locally")
			} else {
				log.Infof("ffmpeg found at %s", path)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "settings",
		Short: "push the env file as App Service app settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := deployer()
			if err != nil {
				return err
			}
			return d.Settings(cmd.Context())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "package",
		Short: "zip the source directory into the deployment artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := deployer()
			if err != nil {
				return err
			}
			return d.PackageArtifact()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "code",
		Short: "zip-deploy the artifact to the web app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := deployer()
			if err != nil {
				return err
			}
			return d.DeployCode(cmd.Context())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "identity",
		Short: "enable the managed identity and grant its storage role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := deployer()
			if err != nil {
				return err
			}
			return d.Identity(cmd.Context())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "startup",
		Short: "set the App Service startup command",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := deployer()
			if err != nil {
				return err
			}
			return d.SetStartupCommand(cmd.Context())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "all",
		Short: "run the full deployment end to end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := deployer()
			if err != nil {
				return err
			}
			return d.All(cmd.Context())
		},
	})

	return cmd
}
