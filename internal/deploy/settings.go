package deploy

import (
	"context"
	"fmt"
	"sort"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// LoadEnvFile reads a dotenv file into app setting pairs. A file with no
// usable pairs is an error: pushing an empty settings update is never what
// the operator meant.
func LoadEnvFile(path string) (map[string]string, error) {
	settings, err := godotenv.Read(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading env file %s", path)
	}
	for key := range settings {
		if key == "" {
			delete(settings, key)
		}
	}
	if len(settings) == 0 {
		return nil, errors.Errorf("env file %s contains no settings", path)
	}
	return settings, nil
}

// ApplySettings pushes the pairs to the web app as App Service app settings,
// equivalent to:
//
//	az webapp config appsettings set --resource-group <rg> --name <app> --settings K=V ...
func (d *Deployer) ApplySettings(ctx context.Context, settings map[string]string) error {
	keys := make([]string, 0, len(settings))
	for key := range settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	args := []string{
		"webapp", "config", "appsettings", "set",
		"--resource-group", d.opts.ResourceGroup,
		"--name", d.opts.AppName,
		"--settings",
	}
	for _, key := range keys {
		args = append(args, fmt.Sprintf("%s=%s", key, settings[key]))
	}

	log.Infof("applying %d app settings to %s: %v", len(keys), d.opts.AppName, keys)
	return d.az.RunJSON(ctx, nil, args...)
}
