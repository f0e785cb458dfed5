package definitions

import (
	"time"

	"github.com/avdops/azmon-reconciler/internal/core/domain"
)

// ActionGroupName derives the notification group's name from the run's
// prefix. The client and the catalog must agree on it, since alert
// definitions reference the group by name.
func ActionGroupName(prefix string) string {
	return prefix + "actiongroup"
}

// builtinCatalog is the AVD monitoring baseline: scheduled query alerts
// over the Log Analytics workspace, diagnostic settings for the AVD
// control-plane objects, a performance-counter DCR for session hosts,
// and the action group the alerts notify.
func builtinCatalog(prefix, alertEmail string) []domain.ResourceDefinition {
	name := func(suffix string) string { return prefix + suffix }

	return []domain.ResourceDefinition{
		{
			Name:        ActionGroupName(prefix),
			Kind:        domain.KindActionGroup,
			Description: "AVD monitoring notifications",
			ActionGroup: &domain.ActionGroupPayload{
				ShortName:      "avdmon",
				EmailReceivers: []string{alertEmail},
			},
		},
		{
			Name:        name("dcr-sessionhost-perf"),
			Kind:        domain.KindDataCollectionRule,
			Description: "Session host performance counters",
			DCR: &domain.DCRPayload{
				PerformanceCounters: []string{
					`\Processor Information(_Total)\% Processor Time`,
					`\Memory\Available MBytes`,
					`\LogicalDisk(C:)\Avg. Disk Queue Length`,
					`\LogicalDisk(C:)\Current Disk Queue Length`,
					`\User Input Delay per Session(*)\Max Input Delay`,
					`\Terminal Services(*)\Active Sessions`,
				},
				SampleInterval: 30 * time.Second,
				StreamName:     "Microsoft-Perf",
			},
		},
		{
			Name:        name("diag-hostpool"),
			Kind:        domain.KindDiagnosticSetting,
			Description: "Host pool diagnostics to the workspace",
			Diagnostic: &domain.DiagnosticPayload{
				TargetResourceType: "Microsoft.DesktopVirtualization/hostPools",
				LogCategories:      []string{"Checkpoint", "Connection", "Error", "HostRegistration", "Management"},
			},
		},
		{
			Name:        name("diag-workspace"),
			Kind:        domain.KindDiagnosticSetting,
			Description: "AVD workspace diagnostics to the workspace",
			Diagnostic: &domain.DiagnosticPayload{
				TargetResourceType: "Microsoft.DesktopVirtualization/workspaces",
				LogCategories:      []string{"Checkpoint", "Error", "Feed", "Management"},
			},
		},
		{
			Name:        name("diag-appgroup"),
			Kind:        domain.KindDiagnosticSetting,
			Description: "Application group diagnostics to the workspace",
			Diagnostic: &domain.DiagnosticPayload{
				TargetResourceType: "Microsoft.DesktopVirtualization/applicationGroups",
				LogCategories:      []string{"Checkpoint", "Error", "Management"},
			},
		},
		{
			Name:        name("alert-host-unavailable"),
			Kind:        domain.KindScheduledQueryAlert,
			Description: "A session host stopped reporting a healthy status",
			Severity:    domain.SeverityCritical,
			Alert: &domain.AlertPayload{
				Query: `WVDAgentHealthStatus
| where TimeGenerated > ago(15m)
| where Status != "Available"
| summarize count() by SessionHostName`,
				EvaluationFrequency: 5 * time.Minute,
				WindowSize:          15 * time.Minute,
				Threshold:           0,
				Operator:            ">",
				AutoMitigate:        true,
			},
		},
		{
			Name:        name("alert-connection-errors"),
			Kind:        domain.KindScheduledQueryAlert,
			Description: "User connections failing at an elevated rate",
			Severity:    domain.SeverityError,
			Alert: &domain.AlertPayload{
				Query: `WVDConnections
| where TimeGenerated > ago(30m)
| where State == "Failed"
| summarize count() by UserName`,
				EvaluationFrequency: 15 * time.Minute,
				WindowSize:          30 * time.Minute,
				Threshold:           5,
				Operator:            ">",
				AutoMitigate:        true,
			},
		},
		{
			Name:        name("alert-session-capacity"),
			Kind:        domain.KindScheduledQueryAlert,
			Description: "Host pool nearing its session capacity",
			Severity:    domain.SeverityWarning,
			Alert: &domain.AlertPayload{
				Query: `WVDAgentHealthStatus
| where TimeGenerated > ago(15m)
| summarize Sessions = sum(ActiveSessions), Hosts = dcount(SessionHostName)
| extend SessionsPerHost = Sessions * 1.0 / Hosts
| where SessionsPerHost > 10`,
				EvaluationFrequency: 15 * time.Minute,
				WindowSize:          15 * time.Minute,
				Threshold:           0,
				Operator:            ">",
				AutoMitigate:        true,
			},
		},
		{
			Name:        name("alert-profile-disk-latency"),
			Kind:        domain.KindScheduledQueryAlert,
			Description: "FSLogix profile disk latency above threshold",
			Severity:    domain.SeverityWarning,
			Alert: &domain.AlertPayload{
				Query: `Perf
| where TimeGenerated > ago(30m)
| where ObjectName == "LogicalDisk" and CounterName == "Avg. Disk sec/Transfer"
| summarize AvgLatency = avg(CounterValue) by Computer
| where AvgLatency > 0.05`,
				EvaluationFrequency: 15 * time.Minute,
				WindowSize:          30 * time.Minute,
				Threshold:           0,
				Operator:            ">",
				AutoMitigate:        true,
			},
		},
		{
			Name:        name("alert-input-delay"),
			Kind:        domain.KindScheduledQueryAlert,
			Description: "User input delay indicates degraded interactivity",
			Severity:    domain.SeverityInformational,
			Alert: &domain.AlertPayload{
				Query: `Perf
| where TimeGenerated > ago(30m)
| where ObjectName == "User Input Delay per Session" and CounterName == "Max Input Delay"
| summarize MaxDelay = max(CounterValue) by Computer
| where MaxDelay > 1000`,
				EvaluationFrequency: 15 * time.Minute,
				WindowSize:          30 * time.Minute,
				Threshold:           0,
				Operator:            ">",
				AutoMitigate:        true,
			},
		},
		{
			Name:        name("alert-agent-version-drift"),
			Kind:        domain.KindScheduledQueryAlert,
			Description: "Session hosts running more than one agent version",
			Severity:    domain.SeverityInformational,
			Alert: &domain.AlertPayload{
				Query: `WVDAgentHealthStatus
| where TimeGenerated > ago(1h)
| summarize Versions = dcount(AgentVersion)
| where Versions > 1`,
				EvaluationFrequency: 1 * time.Hour,
				WindowSize:          1 * time.Hour,
				Threshold:           0,
				Operator:            ">",
				AutoMitigate:        true,
			},
		},
	}
}
