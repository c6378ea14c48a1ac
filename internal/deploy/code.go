package deploy

import (
	"context"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DeployCode pushes the zip artifact to the web app, equivalent to:
//
//	az webapp deployment source config-zip --resource-group <rg> --name <app> --src app.zip
func (d *Deployer) DeployCode(ctx context.Context) error {
	if _, err := os.Stat(d.opts.Artifact); err != nil {
		return errors.Wrapf(err, "artifact %s missing; run the package step first", d.opts.Artifact)
	}

	log.Infof("deploying %s to %s (resource group %s)",
		d.opts.Artifact, d.opts.AppName, d.opts.ResourceGroup)
	return d.az.RunJSON(ctx, nil,
		"webapp", "deployment", "source", "config-zip",
		"--resource-group", d.opts.ResourceGroup,
		"--name", d.opts.AppName,
		"--src", d.opts.Artifact,
	)
}
