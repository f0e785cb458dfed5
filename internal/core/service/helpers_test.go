package service_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/avdops/azmon-reconciler/internal/core/domain"
	"github.com/avdops/azmon-reconciler/internal/core/ports"
	"github.com/avdops/azmon-reconciler/internal/errors"
)

type nopLogger struct{}

func (nopLogger) Debugf(ctx context.Context, format string, args ...any)            {}
func (nopLogger) Infof(ctx context.Context, format string, args ...any)             {}
func (nopLogger) Warnf(ctx context.Context, format string, args ...any)             {}
func (nopLogger) Errorf(ctx context.Context, err error, format string, args ...any) {}
func (nopLogger) WithFields(fields map[string]any) ports.Logger                     { return nopLogger{} }

// fakeClient is an in-memory ResourceClient. `existing` holds the
// simulated platform state; per-name and per-kind error injection
// drives the failure-path tests.
type fakeClient struct {
	mu sync.Mutex

	existing map[string]domain.ResourceKind

	listErr   error
	listDelay time.Duration

	existsErr map[string]error

	applyOutcome map[string]ports.ApplyOutcome
	applyErr     map[string]error

	live    map[string]any
	liveErr map[string]error

	listCalls   int
	existsCalls []string
	applyCalls  []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		existing:     make(map[string]domain.ResourceKind),
		existsErr:    make(map[string]error),
		applyOutcome: make(map[string]ports.ApplyOutcome),
		applyErr:     make(map[string]error),
		live:         make(map[string]any),
		liveErr:      make(map[string]error),
	}
}

func (f *fakeClient) Type() string { return "fake" }

func (f *fakeClient) List(ctx context.Context, kind domain.ResourceKind, prefix string) ([]string, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()

	if f.listDelay > 0 {
		select {
		case <-time.After(f.listDelay):
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), errors.CodeLookupTimeout, "bulk listing timed out")
		}
	}
	if f.listErr != nil {
		return nil, f.listErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for name, k := range f.existing {
		if k == kind && strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}

func (f *fakeClient) Exists(ctx context.Context, def domain.ResourceDefinition) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.existsCalls = append(f.existsCalls, def.Name)
	if err := f.existsErr[def.Name]; err != nil {
		return false, err
	}
	_, ok := f.existing[def.Name]
	return ok, nil
}

func (f *fakeClient) LivePayload(ctx context.Context, def domain.ResourceDefinition) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.liveErr[def.Name]; err != nil {
		return nil, err
	}
	return f.live[def.Name], nil
}

func (f *fakeClient) Apply(ctx context.Context, def domain.ResourceDefinition, update bool) (ports.ApplyOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyCalls = append(f.applyCalls, def.Name)
	if err := f.applyErr[def.Name]; err != nil {
		return ports.OutcomeFailure, err
	}
	if outcome, ok := f.applyOutcome[def.Name]; ok {
		return outcome, nil
	}
	f.existing[def.Name] = def.Kind
	return ports.OutcomeSuccess, nil
}

func (f *fakeClient) applied() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.applyCalls))
	copy(out, f.applyCalls)
	return out
}

type staticSource struct {
	defs []domain.ResourceDefinition
	err  error
}

func (s *staticSource) Type() string { return "static" }

func (s *staticSource) Load(ctx context.Context) ([]domain.ResourceDefinition, error) {
	return s.defs, s.err
}

type captureReporter struct {
	mu      sync.Mutex
	results []domain.ReconciliationResult
}

func (r *captureReporter) Report(ctx context.Context, results []domain.ReconciliationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append([]domain.ReconciliationResult(nil), results...)
	return nil
}

type failingExporter struct {
	called bool
}

func (e *failingExporter) Export(ctx context.Context, results []domain.ReconciliationResult) error {
	e.called = true
	return errors.New(errors.CodeExportError, "disk full")
}

func groupDef(name string) domain.ResourceDefinition {
	return domain.ResourceDefinition{
		Name:        name,
		Kind:        domain.KindActionGroup,
		Description: "test action group",
		ActionGroup: &domain.ActionGroupPayload{
			ShortName:      "avdmon",
			EmailReceivers: []string{"oncall@example.com"},
		},
	}
}

func alertDef(name string) domain.ResourceDefinition {
	return domain.ResourceDefinition{
		Name:        name,
		Kind:        domain.KindScheduledQueryAlert,
		Description: "test alert",
		Severity:    domain.SeverityWarning,
		Alert: &domain.AlertPayload{
			Query:               "WVDConnections | count",
			EvaluationFrequency: 5 * time.Minute,
			WindowSize:          15 * time.Minute,
			Threshold:           0,
			Operator:            ">",
			AutoMitigate:        true,
		},
	}
}
