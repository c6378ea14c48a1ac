package deploy

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// EnsureIdentity enables the system-assigned managed identity on the web app
// and returns its principal ID. Assigning is idempotent.
func (d *Deployer) EnsureIdentity(ctx context.Context) (string, error) {
	var identity struct {
		PrincipalID string `json:"principalId"`
	}
	err := d.az.RunJSON(ctx, &identity,
		"webapp", "identity", "assign",
		"--resource-group", d.opts.ResourceGroup,
		"--name", d.opts.AppName,
	)
	if err != nil {
		return "", err
	}
	if identity.PrincipalID == "" {
		return "", errors.New("identity assign returned no principal ID")
	}
	log.Infof("managed identity enabled for %s (principal %s)",
		d.opts.AppName, identity.PrincipalID)
	return identity.PrincipalID, nil
}

// GrantStorageRole grants the managed identity its storage role on the
// configured storage account scope.
func (d *Deployer) GrantStorageRole(ctx context.Context, principalID string) error {
	if d.opts.StorageScope == "" {
		return errors.New(
			"no storage scope configured; set deploy.storage_scope to the storage account resource ID")
	}

	log.Infof("granting role %q on %s to principal %s",
		d.opts.Role, d.opts.StorageScope, principalID)
	return d.az.RunJSON(ctx, nil,
		"role", "assignment", "create",
		"--assignee", principalID,
		"--role", d.opts.Role,
		"--scope", d.opts.StorageScope,
	)
}
