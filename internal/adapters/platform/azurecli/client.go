package azurecli

import (
	"context"
	"fmt"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/avdops/azmon-reconciler/internal/core/domain"
	"github.com/avdops/azmon-reconciler/internal/core/ports"
	"github.com/avdops/azmon-reconciler/internal/errors"
)

const ClientTypeAzureCLI = "azurecli"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Config struct {
	Subscription  string
	ResourceGroup string
	Workspace     string
	// WorkspaceID is the full resource ID of the Log Analytics
	// workspace, resolved during preflight.
	WorkspaceID string
	// ActionGroupName is the action group alert definitions notify.
	ActionGroupName string
}

// Client implements ports.ResourceClient over the az CLI. Every read
// and write is one external process invocation; no state is cached here
// beyond resolved diagnostic-setting target IDs and the resource
// group's location, which are stable within a run.
type Client struct {
	cfg    Config
	runner Runner
	logger ports.Logger

	// mu guards the memoized resolutions below; one client is shared
	// across all engine workers.
	mu        sync.Mutex
	targetIDs map[string]string
	location  string
}

var _ ports.ResourceClient = (*Client)(nil)

func NewClient(cfg Config, runner Runner, logger ports.Logger) (*Client, error) {
	if cfg.Subscription == "" || cfg.ResourceGroup == "" {
		return nil, errors.New(errors.CodeConfigValidation, "azurecli client requires subscription and resource group")
	}
	if cfg.WorkspaceID == "" {
		return nil, errors.New(errors.CodeConfigValidation, "azurecli client requires a resolved workspace ID")
	}
	if runner == nil {
		return nil, errors.New(errors.CodeInternal, "azurecli client requires a runner")
	}
	return &Client{
		cfg:       cfg,
		runner:    runner,
		logger:    logger,
		targetIDs: make(map[string]string),
	}, nil
}

func (c *Client) Type() string {
	return ClientTypeAzureCLI
}

func (c *Client) List(ctx context.Context, kind domain.ResourceKind, prefix string) ([]string, error) {
	args, err := c.listArgs(kind)
	if err != nil {
		return nil, err
	}

	out, runErr := c.runner.Run(ctx, args...)
	if runErr != nil {
		return nil, ClassifyError(ctx, runErr, kind.String(), "<list>")
	}

	var entries []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(out, &entries); err != nil {
		return nil, errors.Wrap(err, errors.CodePlatformAPIError,
			fmt.Sprintf("failed to parse az list output for kind %s", kind))
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if prefix == "" || strings.HasPrefix(e.Name, prefix) {
			names = append(names, e.Name)
		}
	}
	c.logger.Debugf(ctx, "Listed %d existing %s resources (prefix %q)", len(names), kind, prefix)
	return names, nil
}

func (c *Client) Exists(ctx context.Context, def domain.ResourceDefinition) (bool, error) {
	args, err := c.showArgs(ctx, def)
	if err != nil {
		return false, err
	}

	_, runErr := c.runner.Run(ctx, args...)
	if runErr != nil {
		classified := ClassifyError(ctx, runErr, def.Kind.String(), def.Name)
		if IsNotFound(classified) {
			return false, nil
		}
		return false, classified
	}
	return true, nil
}

func (c *Client) LivePayload(ctx context.Context, def domain.ResourceDefinition) (any, error) {
	args, err := c.showArgs(ctx, def)
	if err != nil {
		return nil, err
	}

	out, runErr := c.runner.Run(ctx, args...)
	if runErr != nil {
		return nil, ClassifyError(ctx, runErr, def.Kind.String(), def.Name)
	}
	return mapLivePayload(def, out)
}

func (c *Client) Apply(ctx context.Context, def domain.ResourceDefinition, update bool) (ports.ApplyOutcome, error) {
	args, cleanup, err := c.applyArgs(ctx, def, update)
	if err != nil {
		return ports.OutcomeFailure, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	_, runErr := c.runner.Run(ctx, args...)
	if runErr != nil {
		classified := ClassifyError(ctx, runErr, def.Kind.String(), def.Name)
		if IsBenignConflict(classified) {
			c.logger.Debugf(ctx, "Apply of %s '%s' hit a benign conflict", def.Kind, def.Name)
			return ports.OutcomeConflict, nil
		}
		return ports.OutcomeFailure, classified
	}
	return ports.OutcomeSuccess, nil
}

// resolveTargetID finds the single resource of the given type in the
// resource group that diagnostic settings attach to. Resolutions are
// memoized; the set of AVD resources does not change mid-run.
func (c *Client) resolveTargetID(ctx context.Context, resourceType string) (string, error) {
	c.mu.Lock()
	id, ok := c.targetIDs[resourceType]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	args := c.common(
		"resource", "list",
		"--resource-group", c.cfg.ResourceGroup,
		"--resource-type", resourceType,
	)
	out, runErr := c.runner.Run(ctx, args...)
	if runErr != nil {
		return "", ClassifyError(ctx, runErr, "resource enumeration", resourceType)
	}

	var entries []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(out, &entries); err != nil {
		return "", errors.Wrap(err, errors.CodePlatformAPIError, "failed to parse az resource list output")
	}
	if len(entries) == 0 {
		return "", errors.Newf(errors.CodeResourceNotFound,
			"no resource of type %s found in resource group %s", resourceType, c.cfg.ResourceGroup)
	}

	c.mu.Lock()
	c.targetIDs[resourceType] = entries[0].ID
	c.mu.Unlock()
	return entries[0].ID, nil
}

// resolveLocation reads the resource group's location, which the data
// collection rule document must carry. Memoized for the run.
func (c *Client) resolveLocation(ctx context.Context) (string, error) {
	c.mu.Lock()
	loc := c.location
	c.mu.Unlock()
	if loc != "" {
		return loc, nil
	}

	args := c.common("group", "show", "--name", c.cfg.ResourceGroup)
	out, runErr := c.runner.Run(ctx, args...)
	if runErr != nil {
		return "", ClassifyError(ctx, runErr, "resource group", c.cfg.ResourceGroup)
	}

	var group struct {
		Location string `json:"location"`
	}
	if err := json.Unmarshal(out, &group); err != nil {
		return "", errors.Wrap(err, errors.CodePlatformAPIError, "failed to parse az group show output")
	}
	if group.Location == "" {
		return "", errors.Newf(errors.CodePlatformAPIError,
			"resource group %s reports no location", c.cfg.ResourceGroup)
	}

	c.mu.Lock()
	c.location = group.Location
	c.mu.Unlock()
	return group.Location, nil
}

func (c *Client) actionGroupID() string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/microsoft.insights/actionGroups/%s",
		c.cfg.Subscription, c.cfg.ResourceGroup, c.cfg.ActionGroupName)
}

func (c *Client) common(args ...string) []string {
	return append(args, "--subscription", c.cfg.Subscription, "-o", "json")
}
