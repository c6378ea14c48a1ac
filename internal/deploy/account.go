package deploy

import (
	"context"

	"github.com/pkg/errors"
)

// Account identifies the signed-in Azure subscription and user.
type Account struct {
	Name string `json:"name"`
	ID   string `json:"id"`
	User struct {
		Name string `json:"name"`
	} `json:"user"`
}

// CheckLogin verifies an Azure login is present. The tool never logs in
// interactively; the operator runs `az login` once.
func (a *AzCLI) CheckLogin(ctx context.Context) (*Account, error) {
	var account Account
	if err := a.RunJSON(ctx, &account, "account", "show"); err != nil {
		return nil, errors.Wrap(err, "no active Azure login; run `az login` first")
	}
	return &account, nil
}
