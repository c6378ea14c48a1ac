package deploy

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/shelfeng/skiaicoach/internal/options"
)

// Deployer runs the App Service deployment steps against a single web app.
type Deployer struct {
	az   *AzCLI
	opts options.DeployOptions
}

// New returns a deployer for the configured web app.
func New(opts options.DeployOptions) *Deployer {
	return &Deployer{az: NewAzCLI(opts.AzBinary), opts: opts}
}

// CLI exposes the underlying az wrapper.
func (d *Deployer) CLI() *AzCLI { return d.az }

// Doctor checks the deployment prerequisites: the az binary and an active
// login.
func (d *Deployer) Doctor(ctx context.Context) error {
	version, err := d.az.Check(ctx)
	if err != nil {
		return err
	}
	log.Infof("azure-cli %s found", version)

	account, err := d.az.CheckLogin(ctx)
	if err != nil {
		return err
	}
	log.Infof("logged in to subscription %q as %s", account.Name, account.User.Name)
	return nil
}

// Settings loads the env file and applies it as app settings.
func (d *Deployer) Settings(ctx context.Context) error {
	settings, err := LoadEnvFile(d.opts.EnvFile)
	if err != nil {
		return err
	}
	return d.ApplySettings(ctx, settings)
}

// PackageArtifact zips the source directory into the artifact.
func (d *Deployer) PackageArtifact() error {
	_, err := Package(d.opts.SourceDir, d.opts.Artifact)
	return err
}

// Identity enables the managed identity and grants its storage role when a
// scope is configured.
func (d *Deployer) Identity(ctx context.Context) error {
	principalID, err := d.EnsureIdentity(ctx)
	if err != nil {
		return err
	}
	if d.opts.StorageScope == "" {
		log.Warn("no storage scope configured; skipping role assignment")
		return nil
	}
	return d.GrantStorageRole(ctx, principalID)
}

// All runs the full deployment in runbook order: prerequisites, app settings,
// package, zip deploy, identity and role, startup command.
func (d *Deployer) All(ctx context.Context) error {
	steps := []struct {
		name string
		run  func() error
	}{
		{"doctor", func() error { return d.Doctor(ctx) }},
		{"settings", func() error { return d.Settings(ctx) }},
		{"package", d.PackageArtifact},
		{"code", func() error { return d.DeployCode(ctx) }},
		{"identity", func() error { return d.Identity(ctx) }},
		{"startup", func() error { return d.SetStartupCommand(ctx) }},
	}
	for _, step := range steps {
		log.Infof("deploy step: %s", step.name)
		if err := step.run(); err != nil {
			return errors.Wrapf(err, "deploy step %s", step.name)
		}
	}
	log.Infof("deployment complete: https://%s.azurewebsites.net", d.opts.AppName)
	return nil
}
