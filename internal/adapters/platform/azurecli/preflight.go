package azurecli

import (
	"context"
	"os/exec"

	"github.com/avdops/azmon-reconciler/internal/core/ports"
	"github.com/avdops/azmon-reconciler/internal/errors"
)

// Preflight verifies everything the run depends on before the first
// apply: the az binary, a valid login, and the target workspace. Any
// failure here is fatal.
type Preflight struct {
	runner Runner
	logger ports.Logger
}

func NewPreflight(runner Runner, logger ports.Logger) *Preflight {
	return &Preflight{runner: runner, logger: logger}
}

// Check returns the resolved workspace resource ID on success.
func (p *Preflight) Check(ctx context.Context, subscription, resourceGroup, workspace string) (string, error) {
	if _, err := exec.LookPath(azBinary); err != nil {
		return "", errors.NewUserFacing(errors.CodeCLINotFound,
			"the Azure CLI ('az') was not found on PATH",
			"Install the Azure CLI and ensure 'az' is on PATH.")
	}
	p.logger.Debugf(ctx, "Found az binary on PATH")

	if _, err := p.runner.Run(ctx, "account", "show", "--subscription", subscription, "-o", "json"); err != nil {
		classified := ClassifyError(ctx, err, "subscription", subscription)
		return "", errors.WrapUserFacing(classified, errors.CodePlatformAuthError,
			"Azure authentication failed",
			"Run 'az login' and verify access to the subscription.")
	}
	p.logger.Debugf(ctx, "Authenticated against subscription %s", subscription)

	out, err := p.runner.Run(ctx,
		"monitor", "log-analytics", "workspace", "show",
		"--resource-group", resourceGroup,
		"--workspace-name", workspace,
		"--subscription", subscription,
		"-o", "json",
	)
	if err != nil {
		classified := ClassifyError(ctx, err, "workspace", workspace)
		if IsNotFound(classified) {
			return "", errors.WrapUserFacing(classified, errors.CodeWorkspaceNotFound,
				"the Log Analytics workspace was not found",
				"Verify the resource group and workspace names.")
		}
		return "", classified
	}

	var ws struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(out, &ws); err != nil {
		return "", errors.Wrap(err, errors.CodePreflightError, "failed to parse workspace ID from az output")
	}
	if ws.ID == "" {
		return "", errors.New(errors.CodePreflightError, "az returned a workspace without an ID")
	}

	p.logger.Infof(ctx, "Resolved workspace '%s'", workspace)
	return ws.ID, nil
}
