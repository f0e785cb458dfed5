package domain

import "time"

// Severity follows the Azure Monitor scale: 0 (critical) to 4 (verbose).
type Severity int

const (
	SeverityCritical      Severity = 0
	SeverityError         Severity = 1
	SeverityWarning       Severity = 2
	SeverityInformational Severity = 3
	SeverityVerbose       Severity = 4
)

// AlertPayload carries the scheduled query rule body: the KQL text plus
// its evaluation cadence.
type AlertPayload struct {
	Query               string        `yaml:"query"`
	EvaluationFrequency time.Duration `yaml:"evaluation_frequency"`
	WindowSize          time.Duration `yaml:"window_size"`
	Threshold           float64       `yaml:"threshold"`
	Operator            string        `yaml:"operator"`
	AutoMitigate        bool          `yaml:"auto_mitigate"`
}

type DiagnosticPayload struct {
	TargetResourceType string   `yaml:"target_resource_type"`
	LogCategories      []string `yaml:"log_categories"`
}

type DCRPayload struct {
	PerformanceCounters []string      `yaml:"performance_counters"`
	SampleInterval      time.Duration `yaml:"sample_interval"`
	StreamName          string        `yaml:"stream_name"`
}

type ActionGroupPayload struct {
	ShortName      string   `yaml:"short_name"`
	EmailReceivers []string `yaml:"email_receivers"`
}

// ResourceDefinition describes one target resource to ensure exists.
// Name is the idempotency key and must be unique within a run.
// Definitions are built once at startup and never mutated.
type ResourceDefinition struct {
	Name        string
	Kind        ResourceKind
	Description string
	Severity    Severity

	Alert       *AlertPayload
	Diagnostic  *DiagnosticPayload
	DCR         *DCRPayload
	ActionGroup *ActionGroupPayload
}

// PayloadDocument returns the kind-specific payload as a comparable
// value, used to decide whether an existing resource needs an update.
func (d ResourceDefinition) PayloadDocument() any {
	switch d.Kind {
	case KindScheduledQueryAlert:
		return d.Alert
	case KindDiagnosticSetting:
		return d.Diagnostic
	case KindDataCollectionRule:
		return d.DCR
	case KindActionGroup:
		return d.ActionGroup
	}
	return nil
}
