package azurecli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/avdops/azmon-reconciler/internal/core/domain"
	"github.com/avdops/azmon-reconciler/internal/errors"
)

func (c *Client) listArgs(kind domain.ResourceKind) ([]string, error) {
	switch kind {
	case domain.KindScheduledQueryAlert:
		return c.common("monitor", "scheduled-query", "list", "--resource-group", c.cfg.ResourceGroup), nil
	case domain.KindDataCollectionRule:
		return c.common("monitor", "data-collection", "rule", "list", "--resource-group", c.cfg.ResourceGroup), nil
	case domain.KindActionGroup:
		return c.common("monitor", "action-group", "list", "--resource-group", c.cfg.ResourceGroup), nil
	case domain.KindDiagnosticSetting:
		// Settings hang off their target resource, and bulk listing
		// would need every target resolved up front. The existence
		// cache treats this as an indeterminate kind and falls back to
		// per-name lookups.
		return nil, errors.Newf(errors.CodePlatformAPIError,
			"bulk enumeration is not supported for %s", kind)
	}
	return nil, errors.Newf(errors.CodeInternal, "unhandled resource kind %s", kind)
}

func (c *Client) showArgs(ctx context.Context, def domain.ResourceDefinition) ([]string, error) {
	switch def.Kind {
	case domain.KindScheduledQueryAlert:
		return c.common("monitor", "scheduled-query", "show",
			"--resource-group", c.cfg.ResourceGroup, "--name", def.Name), nil
	case domain.KindDataCollectionRule:
		return c.common("monitor", "data-collection", "rule", "show",
			"--resource-group", c.cfg.ResourceGroup, "--name", def.Name), nil
	case domain.KindActionGroup:
		return c.common("monitor", "action-group", "show",
			"--resource-group", c.cfg.ResourceGroup, "--name", def.Name), nil
	case domain.KindDiagnosticSetting:
		if def.Diagnostic == nil {
			return nil, errors.Newf(errors.CodeDefinitionError, "definition '%s' has no diagnostic payload", def.Name)
		}
		targetID, err := c.resolveTargetID(ctx, def.Diagnostic.TargetResourceType)
		if err != nil {
			return nil, err
		}
		return c.common("monitor", "diagnostic-settings", "show",
			"--resource", targetID, "--name", def.Name), nil
	}
	return nil, errors.Newf(errors.CodeInternal, "unhandled resource kind %s", def.Kind)
}

// applyArgs builds the mutating invocation. The returned cleanup, when
// non-nil, removes a temporary rule file and must run after the call.
func (c *Client) applyArgs(ctx context.Context, def domain.ResourceDefinition, update bool) ([]string, func(), error) {
	switch def.Kind {
	case domain.KindScheduledQueryAlert:
		args, err := c.scheduledQueryArgs(def, update)
		return args, nil, err
	case domain.KindDiagnosticSetting:
		args, err := c.diagnosticArgs(ctx, def)
		return args, nil, err
	case domain.KindDataCollectionRule:
		return c.dataCollectionRuleArgs(ctx, def)
	case domain.KindActionGroup:
		args, err := c.actionGroupArgs(def)
		return args, nil, err
	}
	return nil, nil, errors.Newf(errors.CodeInternal, "unhandled resource kind %s", def.Kind)
}

func (c *Client) scheduledQueryArgs(def domain.ResourceDefinition, update bool) ([]string, error) {
	p := def.Alert
	if p == nil {
		return nil, errors.Newf(errors.CodeDefinitionError, "definition '%s' has no alert payload", def.Name)
	}

	verb := "create"
	if update {
		verb = "update"
	}
	return c.common("monitor", "scheduled-query", verb,
		"--resource-group", c.cfg.ResourceGroup,
		"--name", def.Name,
		"--scopes", c.cfg.WorkspaceID,
		"--description", def.Description,
		"--severity", strconv.Itoa(int(def.Severity)),
		"--condition", fmt.Sprintf("count 'query1' %s %s", p.Operator, formatThreshold(p.Threshold)),
		"--condition-query", "query1="+p.Query,
		"--evaluation-frequency", isoDuration(p.EvaluationFrequency),
		"--window-size", isoDuration(p.WindowSize),
		"--auto-mitigate", strconv.FormatBool(p.AutoMitigate),
		"--action-groups", c.actionGroupID(),
	), nil
}

func (c *Client) diagnosticArgs(ctx context.Context, def domain.ResourceDefinition) ([]string, error) {
	p := def.Diagnostic
	if p == nil {
		return nil, errors.Newf(errors.CodeDefinitionError, "definition '%s' has no diagnostic payload", def.Name)
	}

	targetID, err := c.resolveTargetID(ctx, p.TargetResourceType)
	if err != nil {
		return nil, err
	}

	logs := make([]map[string]any, 0, len(p.LogCategories))
	for _, category := range p.LogCategories {
		logs = append(logs, map[string]any{"category": category, "enabled": true})
	}
	logsJSON, err := json.Marshal(logs)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to encode diagnostic log categories")
	}

	// az applies diagnostic settings with PUT semantics, so create
	// covers the update path as well.
	return c.common("monitor", "diagnostic-settings", "create",
		"--resource", targetID,
		"--name", def.Name,
		"--workspace", c.cfg.WorkspaceID,
		"--logs", string(logsJSON),
	), nil
}

func (c *Client) dataCollectionRuleArgs(ctx context.Context, def domain.ResourceDefinition) ([]string, func(), error) {
	p := def.DCR
	if p == nil {
		return nil, nil, errors.Newf(errors.CodeDefinitionError, "definition '%s' has no data collection payload", def.Name)
	}

	location, err := c.resolveLocation(ctx)
	if err != nil {
		return nil, nil, err
	}

	doc := map[string]any{
		"location": location,
		"properties": map[string]any{
			"dataSources": map[string]any{
				"performanceCounters": []map[string]any{{
					"name":                       "perfCounters",
					"streams":                    []string{p.StreamName},
					"samplingFrequencyInSeconds": int(p.SampleInterval.Seconds()),
					"counterSpecifiers":          p.PerformanceCounters,
				}},
			},
			"destinations": map[string]any{
				"logAnalytics": []map[string]any{{
					"name":                "workspaceDest",
					"workspaceResourceId": c.cfg.WorkspaceID,
				}},
			},
			"dataFlows": []map[string]any{{
				"streams":      []string{p.StreamName},
				"destinations": []string{"workspaceDest"},
			}},
		},
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeInternal, "failed to encode data collection rule document")
	}

	ruleFile, err := os.CreateTemp("", "azmon-dcr-*.json")
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeInternal, "failed to create data collection rule file")
	}
	if _, err := ruleFile.Write(body); err != nil {
		ruleFile.Close()
		os.Remove(ruleFile.Name())
		return nil, nil, errors.Wrap(err, errors.CodeInternal, "failed to write data collection rule file")
	}
	if err := ruleFile.Close(); err != nil {
		os.Remove(ruleFile.Name())
		return nil, nil, errors.Wrap(err, errors.CodeInternal, "failed to close data collection rule file")
	}
	cleanup := func() { os.Remove(ruleFile.Name()) }

	// create is a PUT on the rule name; it also serves the update path.
	args := c.common("monitor", "data-collection", "rule", "create",
		"--resource-group", c.cfg.ResourceGroup,
		"--name", def.Name,
		"--rule-file", ruleFile.Name(),
	)
	return args, cleanup, nil
}

func (c *Client) actionGroupArgs(def domain.ResourceDefinition) ([]string, error) {
	p := def.ActionGroup
	if p == nil {
		return nil, errors.Newf(errors.CodeDefinitionError, "definition '%s' has no action group payload", def.Name)
	}

	args := c.common("monitor", "action-group", "create",
		"--resource-group", c.cfg.ResourceGroup,
		"--name", def.Name,
		"--short-name", p.ShortName,
	)
	for i, email := range p.EmailReceivers {
		args = append(args, "--action", "email", fmt.Sprintf("email%d", i+1), email)
	}
	return args, nil
}

func isoDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		return fmt.Sprintf("PT%dH", int(d.Hours()))
	}
	return fmt.Sprintf("PT%dM", int(d.Minutes()))
}

func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
