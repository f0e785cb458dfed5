package azurecli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/avdops/azmon-reconciler/internal/core/domain"
	"github.com/avdops/azmon-reconciler/internal/errors"
)

// mapLivePayload converts az show output into the same document shape
// as ResourceDefinition.PayloadDocument, so the reconciler can compare
// desired against observed without knowing the provider representation.
func mapLivePayload(def domain.ResourceDefinition, raw []byte) (any, error) {
	switch def.Kind {
	case domain.KindScheduledQueryAlert:
		return mapScheduledQuery(raw)
	case domain.KindDiagnosticSetting:
		return mapDiagnosticSetting(def, raw)
	case domain.KindDataCollectionRule:
		return mapDataCollectionRule(raw)
	case domain.KindActionGroup:
		return mapActionGroup(raw)
	}
	return nil, errors.Newf(errors.CodeInternal, "unhandled resource kind %s", def.Kind)
}

func mapScheduledQuery(raw []byte) (*domain.AlertPayload, error) {
	var live struct {
		Criteria struct {
			AllOf []struct {
				Query     string  `json:"query"`
				Threshold float64 `json:"threshold"`
				Operator  string  `json:"operator"`
			} `json:"allOf"`
		} `json:"criteria"`
		EvaluationFrequency string `json:"evaluationFrequency"`
		WindowSize          string `json:"windowSize"`
		AutoMitigate        bool   `json:"autoMitigate"`
	}
	if err := json.Unmarshal(raw, &live); err != nil {
		return nil, errors.Wrap(err, errors.CodePlatformAPIError, "failed to parse scheduled query output")
	}
	if len(live.Criteria.AllOf) == 0 {
		return nil, errors.New(errors.CodePlatformAPIError, "scheduled query output has no criteria")
	}

	freq, err := parseISODuration(live.EvaluationFrequency)
	if err != nil {
		return nil, err
	}
	window, err := parseISODuration(live.WindowSize)
	if err != nil {
		return nil, err
	}

	crit := live.Criteria.AllOf[0]
	return &domain.AlertPayload{
		Query:               crit.Query,
		EvaluationFrequency: freq,
		WindowSize:          window,
		Threshold:           crit.Threshold,
		Operator:            operatorSymbol(crit.Operator),
		AutoMitigate:        live.AutoMitigate,
	}, nil
}

func mapDiagnosticSetting(def domain.ResourceDefinition, raw []byte) (*domain.DiagnosticPayload, error) {
	var live struct {
		Logs []struct {
			Category string `json:"category"`
			Enabled  bool   `json:"enabled"`
		} `json:"logs"`
	}
	if err := json.Unmarshal(raw, &live); err != nil {
		return nil, errors.Wrap(err, errors.CodePlatformAPIError, "failed to parse diagnostic setting output")
	}

	categories := make([]string, 0, len(live.Logs))
	for _, l := range live.Logs {
		if l.Enabled {
			categories = append(categories, l.Category)
		}
	}
	sort.Strings(categories)

	target := ""
	if def.Diagnostic != nil {
		target = def.Diagnostic.TargetResourceType
	}
	return &domain.DiagnosticPayload{
		TargetResourceType: target,
		LogCategories:      categories,
	}, nil
}

func mapDataCollectionRule(raw []byte) (*domain.DCRPayload, error) {
	var live struct {
		DataSources struct {
			PerformanceCounters []struct {
				Streams                    []string `json:"streams"`
				SamplingFrequencyInSeconds int      `json:"samplingFrequencyInSeconds"`
				CounterSpecifiers          []string `json:"counterSpecifiers"`
			} `json:"performanceCounters"`
		} `json:"dataSources"`
	}
	if err := json.Unmarshal(raw, &live); err != nil {
		return nil, errors.Wrap(err, errors.CodePlatformAPIError, "failed to parse data collection rule output")
	}
	if len(live.DataSources.PerformanceCounters) == 0 {
		return nil, errors.New(errors.CodePlatformAPIError, "data collection rule output has no performance counters")
	}

	pc := live.DataSources.PerformanceCounters[0]
	counters := append([]string(nil), pc.CounterSpecifiers...)
	sort.Strings(counters)

	stream := ""
	if len(pc.Streams) > 0 {
		stream = pc.Streams[0]
	}
	return &domain.DCRPayload{
		PerformanceCounters: counters,
		SampleInterval:      time.Duration(pc.SamplingFrequencyInSeconds) * time.Second,
		StreamName:          stream,
	}, nil
}

func mapActionGroup(raw []byte) (*domain.ActionGroupPayload, error) {
	var live struct {
		GroupShortName string `json:"groupShortName"`
		EmailReceivers []struct {
			EmailAddress string `json:"emailAddress"`
		} `json:"emailReceivers"`
	}
	if err := json.Unmarshal(raw, &live); err != nil {
		return nil, errors.Wrap(err, errors.CodePlatformAPIError, "failed to parse action group output")
	}

	emails := make([]string, 0, len(live.EmailReceivers))
	for _, r := range live.EmailReceivers {
		emails = append(emails, r.EmailAddress)
	}
	sort.Strings(emails)

	return &domain.ActionGroupPayload{
		ShortName:      live.GroupShortName,
		EmailReceivers: emails,
	}, nil
}

// parseISODuration handles the PT#H / PT#M / PT#S forms the management
// plane emits for alert cadences.
func parseISODuration(s string) (time.Duration, error) {
	trimmed := strings.TrimPrefix(strings.ToUpper(s), "PT")
	if trimmed == s || trimmed == "" {
		return 0, errors.Newf(errors.CodePlatformAPIError, "unsupported ISO-8601 duration %q", s)
	}

	var total time.Duration
	num := ""
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
		case r == 'H' || r == 'M' || r == 'S':
			if num == "" {
				return 0, errors.Newf(errors.CodePlatformAPIError, "unsupported ISO-8601 duration %q", s)
			}
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0, errors.Wrap(err, errors.CodePlatformAPIError, fmt.Sprintf("unsupported ISO-8601 duration %q", s))
			}
			switch r {
			case 'H':
				total += time.Duration(n) * time.Hour
			case 'M':
				total += time.Duration(n) * time.Minute
			case 'S':
				total += time.Duration(n) * time.Second
			}
			num = ""
		default:
			return 0, errors.Newf(errors.CodePlatformAPIError, "unsupported ISO-8601 duration %q", s)
		}
	}
	if num != "" {
		return 0, errors.Newf(errors.CodePlatformAPIError, "unsupported ISO-8601 duration %q", s)
	}
	return total, nil
}

func operatorSymbol(op string) string {
	switch op {
	case "GreaterThan":
		return ">"
	case "GreaterThanOrEqual":
		return ">="
	case "LessThan":
		return "<"
	case "LessThanOrEqual":
		return "<="
	case "Equal", "Equals":
		return "=="
	}
	return op
}
