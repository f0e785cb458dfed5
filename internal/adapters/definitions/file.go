package definitions

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/avdops/azmon-reconciler/internal/core/domain"
	"github.com/avdops/azmon-reconciler/internal/errors"
)

// The file format mirrors ResourceDefinition but keeps durations as
// strings ("5m", "1h") since YAML has no native duration scalar.

type fileDocument struct {
	Definitions []fileDefinition `yaml:"definitions"`
}

type fileDefinition struct {
	Name        string           `yaml:"name"`
	Kind        string           `yaml:"kind"`
	Description string           `yaml:"description"`
	Severity    int              `yaml:"severity"`
	Alert       *fileAlert       `yaml:"alert"`
	Diagnostic  *fileDiagnostic  `yaml:"diagnostic"`
	DCR         *fileDCR         `yaml:"data_collection_rule"`
	ActionGroup *fileActionGroup `yaml:"action_group"`
}

type fileAlert struct {
	Query               string  `yaml:"query"`
	EvaluationFrequency string  `yaml:"evaluation_frequency"`
	WindowSize          string  `yaml:"window_size"`
	Threshold           float64 `yaml:"threshold"`
	Operator            string  `yaml:"operator"`
	AutoMitigate        *bool   `yaml:"auto_mitigate"`
}

type fileDiagnostic struct {
	TargetResourceType string   `yaml:"target_resource_type"`
	LogCategories      []string `yaml:"log_categories"`
}

type fileDCR struct {
	PerformanceCounters []string `yaml:"performance_counters"`
	SampleInterval      string   `yaml:"sample_interval"`
	StreamName          string   `yaml:"stream_name"`
}

type fileActionGroup struct {
	ShortName      string   `yaml:"short_name"`
	EmailReceivers []string `yaml:"email_receivers"`
}

func loadFile(path string) ([]domain.ResourceDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDefinitionError,
			fmt.Sprintf("failed to read definitions file %s", path))
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.CodeDefinitionError,
			fmt.Sprintf("failed to parse definitions file %s", path))
	}

	defs := make([]domain.ResourceDefinition, 0, len(doc.Definitions))
	for i, fd := range doc.Definitions {
		def, err := fd.toDomain()
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeDefinitionError,
				fmt.Sprintf("invalid definition #%d in %s", i+1, path))
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (fd fileDefinition) toDomain() (domain.ResourceDefinition, error) {
	kind := domain.ResourceKind(fd.Kind)
	if !kind.Valid() {
		return domain.ResourceDefinition{}, errors.Newf(errors.CodeDefinitionError,
			"unknown resource kind %q for definition %q", fd.Kind, fd.Name)
	}
	if fd.Name == "" {
		return domain.ResourceDefinition{}, errors.New(errors.CodeDefinitionError, "definition has no name")
	}

	def := domain.ResourceDefinition{
		Name:        fd.Name,
		Kind:        kind,
		Description: fd.Description,
		Severity:    domain.Severity(fd.Severity),
	}

	switch kind {
	case domain.KindScheduledQueryAlert:
		if fd.Alert == nil {
			return def, errors.Newf(errors.CodeDefinitionError, "alert definition %q has no alert block", fd.Name)
		}
		freq, err := parseDuration(fd.Alert.EvaluationFrequency, "evaluation_frequency", fd.Name)
		if err != nil {
			return def, err
		}
		window, err := parseDuration(fd.Alert.WindowSize, "window_size", fd.Name)
		if err != nil {
			return def, err
		}
		autoMitigate := true
		if fd.Alert.AutoMitigate != nil {
			autoMitigate = *fd.Alert.AutoMitigate
		}
		operator := fd.Alert.Operator
		if operator == "" {
			operator = ">"
		}
		def.Alert = &domain.AlertPayload{
			Query:               fd.Alert.Query,
			EvaluationFrequency: freq,
			WindowSize:          window,
			Threshold:           fd.Alert.Threshold,
			Operator:            operator,
			AutoMitigate:        autoMitigate,
		}
	case domain.KindDiagnosticSetting:
		if fd.Diagnostic == nil {
			return def, errors.Newf(errors.CodeDefinitionError, "diagnostic definition %q has no diagnostic block", fd.Name)
		}
		def.Diagnostic = &domain.DiagnosticPayload{
			TargetResourceType: fd.Diagnostic.TargetResourceType,
			LogCategories:      fd.Diagnostic.LogCategories,
		}
	case domain.KindDataCollectionRule:
		if fd.DCR == nil {
			return def, errors.Newf(errors.CodeDefinitionError, "data collection definition %q has no data_collection_rule block", fd.Name)
		}
		interval, err := parseDuration(fd.DCR.SampleInterval, "sample_interval", fd.Name)
		if err != nil {
			return def, err
		}
		stream := fd.DCR.StreamName
		if stream == "" {
			stream = "Microsoft-Perf"
		}
		def.DCR = &domain.DCRPayload{
			PerformanceCounters: fd.DCR.PerformanceCounters,
			SampleInterval:      interval,
			StreamName:          stream,
		}
	case domain.KindActionGroup:
		if fd.ActionGroup == nil {
			return def, errors.Newf(errors.CodeDefinitionError, "action group definition %q has no action_group block", fd.Name)
		}
		def.ActionGroup = &domain.ActionGroupPayload{
			ShortName:      fd.ActionGroup.ShortName,
			EmailReceivers: fd.ActionGroup.EmailReceivers,
		}
	}

	return def, nil
}

func parseDuration(raw, field, name string) (time.Duration, error) {
	if raw == "" {
		return 0, errors.Newf(errors.CodeDefinitionError, "definition %q is missing %s", name, field)
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeDefinitionError,
			fmt.Sprintf("definition %q has invalid %s %q", name, field, raw))
	}
	return d, nil
}
