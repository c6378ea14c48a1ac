package deploy

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// SetStartupCommand configures the App Service startup command, by default
// the production web server invocation:
//
//	gunicorn --bind=0.0.0.0 --timeout 600 app:app
func (d *Deployer) SetStartupCommand(ctx context.Context) error {
	log.Infof("setting startup command on %s: %s", d.opts.AppName, d.opts.StartupCommand)
	return d.az.RunJSON(ctx, nil,
		"webapp", "config", "set",
		"--resource-group", d.opts.ResourceGroup,
		"--name", d.opts.AppName,
		"--startup-file", d.opts.StartupCommand,
	)
}
