package azurecli

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avdops/azmon-reconciler/internal/core/domain"
	"github.com/avdops/azmon-reconciler/internal/core/ports"
	"github.com/avdops/azmon-reconciler/internal/errors"
)

type testLogger struct{}

func (testLogger) Debugf(context.Context, string, ...any)        {}
func (testLogger) Infof(context.Context, string, ...any)         {}
func (testLogger) Warnf(context.Context, string, ...any)         {}
func (testLogger) Errorf(context.Context, error, string, ...any) {}
func (l testLogger) WithFields(map[string]any) ports.Logger      { return l }

// scriptRunner resolves each invocation against ordered rules; the
// first rule whose fragment appears in the joined argument list wins.
type scriptRunner struct {
	mu    sync.Mutex
	rules []scriptRule
	calls [][]string
}

type scriptRule struct {
	fragment string
	out      []byte
	err      error
}

func (r *scriptRunner) Run(_ context.Context, args ...string) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, args)
	r.mu.Unlock()

	joined := strings.Join(args, " ")
	for _, rule := range r.rules {
		if strings.Contains(joined, rule.fragment) {
			return rule.out, rule.err
		}
	}
	return nil, &CommandError{Args: args, ExitCode: 1, Stderr: "no scripted response"}
}

func (r *scriptRunner) callContaining(fragment string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, call := range r.calls {
		if strings.Contains(strings.Join(call, " "), fragment) {
			return call
		}
	}
	return nil
}

func (r *scriptRunner) countContaining(fragment string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, call := range r.calls {
		if strings.Contains(strings.Join(call, " "), fragment) {
			count++
		}
	}
	return count
}

func testClientConfig() Config {
	return Config{
		Subscription:    "00000000-0000-0000-0000-000000000000",
		ResourceGroup:   "rg-avd",
		Workspace:       "law-avd",
		WorkspaceID:     "/subscriptions/00000000-0000-0000-0000-000000000000/resourceGroups/rg-avd/providers/Microsoft.OperationalInsights/workspaces/law-avd",
		ActionGroupName: "avd-actiongroup",
	}
}

func newTestClient(t *testing.T, runner Runner) *Client {
	t.Helper()
	client, err := NewClient(testClientConfig(), runner, testLogger{})
	require.NoError(t, err)
	return client
}

func alertDefinition(name string) domain.ResourceDefinition {
	return domain.ResourceDefinition{
		Name:        name,
		Kind:        domain.KindScheduledQueryAlert,
		Description: "test alert",
		Severity:    domain.SeverityError,
		Alert: &domain.AlertPayload{
			Query:               "WVDErrors | summarize count()",
			EvaluationFrequency: 5 * time.Minute,
			WindowSize:          15 * time.Minute,
			Threshold:           10,
			Operator:            ">",
			AutoMitigate:        true,
		},
	}
}

func TestNewClient_Validation(t *testing.T) {
	runner := &scriptRunner{}

	_, err := NewClient(Config{}, runner, testLogger{})
	assert.True(t, errors.Is(err, errors.CodeConfigValidation))

	cfg := testClientConfig()
	cfg.WorkspaceID = ""
	_, err = NewClient(cfg, runner, testLogger{})
	assert.True(t, errors.Is(err, errors.CodeConfigValidation))

	_, err = NewClient(testClientConfig(), nil, testLogger{})
	assert.Error(t, err)
}

func TestClient_List_FiltersByPrefix(t *testing.T) {
	runner := &scriptRunner{rules: []scriptRule{
		{fragment: "scheduled-query list", out: []byte(`[{"name":"avd-host-unavailable"},{"name":"unrelated-alert"},{"name":"avd-input-delay"}]`)},
	}}
	client := newTestClient(t, runner)

	names, err := client.List(context.Background(), domain.KindScheduledQueryAlert, "avd-")
	require.NoError(t, err)
	assert.Equal(t, []string{"avd-host-unavailable", "avd-input-delay"}, names)
}

func TestClient_List_DiagnosticSettingsUnsupported(t *testing.T) {
	runner := &scriptRunner{}
	client := newTestClient(t, runner)

	_, err := client.List(context.Background(), domain.KindDiagnosticSetting, "avd-")
	require.Error(t, err)
	assert.Empty(t, runner.calls, "unsupported kinds must not reach the CLI")
}

func TestClient_List_MalformedOutput(t *testing.T) {
	runner := &scriptRunner{rules: []scriptRule{
		{fragment: "action-group list", out: []byte(`WARNING: not json`)},
	}}
	client := newTestClient(t, runner)

	_, err := client.List(context.Background(), domain.KindActionGroup, "avd-")
	assert.True(t, errors.Is(err, errors.CodePlatformAPIError))
}

func TestClient_Exists(t *testing.T) {
	runner := &scriptRunner{rules: []scriptRule{
		{fragment: "--name avd-present", out: []byte(`{"name":"avd-present"}`)},
		{fragment: "--name avd-missing", err: cmdError("(ResourceNotFound) The Resource was not found")},
		{fragment: "--name avd-denied", err: cmdError("(AuthorizationFailed) no access")},
	}}
	client := newTestClient(t, runner)
	ctx := context.Background()

	exists, err := client.Exists(ctx, alertDefinition("avd-present"))
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = client.Exists(ctx, alertDefinition("avd-missing"))
	require.NoError(t, err, "not-found is a definitive answer, not a failure")
	assert.False(t, exists)

	_, err = client.Exists(ctx, alertDefinition("avd-denied"))
	assert.True(t, errors.Is(err, errors.CodePlatformAuthError))
}

func TestClient_Apply_ScheduledQueryArgs(t *testing.T) {
	runner := &scriptRunner{rules: []scriptRule{
		{fragment: "scheduled-query create", out: []byte(`{}`)},
	}}
	client := newTestClient(t, runner)

	outcome, err := client.Apply(context.Background(), alertDefinition("avd-host-unavailable"), false)
	require.NoError(t, err)
	assert.Equal(t, ports.OutcomeSuccess, outcome)

	call := runner.callContaining("scheduled-query create")
	require.NotNil(t, call)
	joined := strings.Join(call, " ")
	assert.Contains(t, joined, "--name avd-host-unavailable")
	assert.Contains(t, joined, "--condition count 'query1' > 10")
	assert.Contains(t, joined, "--condition-query query1=WVDErrors | summarize count()")
	assert.Contains(t, joined, "--evaluation-frequency PT5M")
	assert.Contains(t, joined, "--window-size PT15M")
	assert.Contains(t, joined, "--severity 1")
	assert.Contains(t, joined, "--action-groups "+client.actionGroupID())
	assert.Contains(t, joined, "--subscription "+testClientConfig().Subscription)
}

func TestClient_Apply_UpdateUsesUpdateVerb(t *testing.T) {
	runner := &scriptRunner{rules: []scriptRule{
		{fragment: "scheduled-query update", out: []byte(`{}`)},
	}}
	client := newTestClient(t, runner)

	outcome, err := client.Apply(context.Background(), alertDefinition("avd-host-unavailable"), true)
	require.NoError(t, err)
	assert.Equal(t, ports.OutcomeSuccess, outcome)
	assert.NotNil(t, runner.callContaining("scheduled-query update"))
}

func TestClient_Apply_BenignConflictIsNotFailure(t *testing.T) {
	runner := &scriptRunner{rules: []scriptRule{
		{fragment: "diagnostic-settings create", err: cmdError("(Conflict) Data sink is already used in diagnostic setting 'other'")},
		{fragment: "resource list", out: []byte(`[{"id":"/subscriptions/s/resourceGroups/rg-avd/providers/Microsoft.DesktopVirtualization/hostPools/hp1"}]`)},
	}}
	client := newTestClient(t, runner)

	def := domain.ResourceDefinition{
		Name: "avd-hostpool-diagnostics",
		Kind: domain.KindDiagnosticSetting,
		Diagnostic: &domain.DiagnosticPayload{
			TargetResourceType: "Microsoft.DesktopVirtualization/hostPools",
			LogCategories:      []string{"Checkpoint", "Error"},
		},
	}
	outcome, err := client.Apply(context.Background(), def, false)
	require.NoError(t, err)
	assert.Equal(t, ports.OutcomeConflict, outcome)
}

func TestClient_Apply_FailureIsClassified(t *testing.T) {
	runner := &scriptRunner{rules: []scriptRule{
		{fragment: "action-group create", err: cmdError("(InternalServerError) boom")},
	}}
	client := newTestClient(t, runner)

	def := domain.ResourceDefinition{
		Name: "avd-actiongroup",
		Kind: domain.KindActionGroup,
		ActionGroup: &domain.ActionGroupPayload{
			ShortName:      "avdops",
			EmailReceivers: []string{"oncall@example.com"},
		},
	}
	outcome, err := client.Apply(context.Background(), def, false)
	assert.Equal(t, ports.OutcomeFailure, outcome)
	assert.True(t, errors.Is(err, errors.CodePlatformAPIError))
}

func TestClient_ResolveTargetID_Memoized(t *testing.T) {
	runner := &scriptRunner{rules: []scriptRule{
		{fragment: "resource list", out: []byte(`[{"id":"/subscriptions/s/resourceGroups/rg-avd/providers/Microsoft.DesktopVirtualization/hostPools/hp1"}]`)},
		{fragment: "diagnostic-settings show", out: []byte(`{"logs":[]}`)},
	}}
	client := newTestClient(t, runner)

	def := domain.ResourceDefinition{
		Name: "avd-hostpool-diagnostics",
		Kind: domain.KindDiagnosticSetting,
		Diagnostic: &domain.DiagnosticPayload{
			TargetResourceType: "Microsoft.DesktopVirtualization/hostPools",
		},
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := client.Exists(ctx, def)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, runner.countContaining("resource list"))
}

func TestClient_ResolveTargetID_ParallelLookups(t *testing.T) {
	runner := &scriptRunner{rules: []scriptRule{
		{fragment: "resource list", out: []byte(`[{"id":"/subscriptions/s/resourceGroups/rg-avd/providers/Microsoft.DesktopVirtualization/hostPools/hp1"}]`)},
		{fragment: "diagnostic-settings show", out: []byte(`{"logs":[]}`)},
	}}
	client := newTestClient(t, runner)

	def := domain.ResourceDefinition{
		Name: "avd-hostpool-diagnostics",
		Kind: domain.KindDiagnosticSetting,
		Diagnostic: &domain.DiagnosticPayload{
			TargetResourceType: "Microsoft.DesktopVirtualization/hostPools",
		},
	}

	// Engine workers share one client, so concurrent lookups of the
	// same kind must be safe.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Exists(context.Background(), def)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, runner.countContaining("diagnostic-settings show"))
}

func TestClient_ResolveTargetID_NoTarget(t *testing.T) {
	runner := &scriptRunner{rules: []scriptRule{
		{fragment: "resource list", out: []byte(`[]`)},
	}}
	client := newTestClient(t, runner)

	def := domain.ResourceDefinition{
		Name: "avd-hostpool-diagnostics",
		Kind: domain.KindDiagnosticSetting,
		Diagnostic: &domain.DiagnosticPayload{
			TargetResourceType: "Microsoft.DesktopVirtualization/hostPools",
		},
	}
	_, err := client.Exists(context.Background(), def)
	assert.True(t, errors.Is(err, errors.CodeResourceNotFound))
}

// ruleFileReader snapshots the temporary rule document before the
// client's cleanup removes it.
type ruleFileReader struct {
	next Runner
	body []byte
}

func (r *ruleFileReader) Run(ctx context.Context, args ...string) ([]byte, error) {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "--rule-file" {
			if b, err := os.ReadFile(args[i+1]); err == nil {
				r.body = b
			}
		}
	}
	return r.next.Run(ctx, args...)
}

func TestClient_Apply_DataCollectionRuleDocument(t *testing.T) {
	runner := &scriptRunner{rules: []scriptRule{
		{fragment: "group show", out: []byte(`{"location":"eastus","name":"rg-avd"}`)},
		{fragment: "data-collection rule create", out: []byte(`{}`)},
	}}
	capture := &ruleFileReader{next: runner}
	client := newTestClient(t, capture)

	def := domain.ResourceDefinition{
		Name: "avd-dcr-sessionhost-perf",
		Kind: domain.KindDataCollectionRule,
		DCR: &domain.DCRPayload{
			PerformanceCounters: []string{`\Memory\Available MBytes`},
			SampleInterval:      30 * time.Second,
			StreamName:          "Microsoft-Perf",
		},
	}
	outcome, err := client.Apply(context.Background(), def, false)
	require.NoError(t, err)
	assert.Equal(t, ports.OutcomeSuccess, outcome)

	require.NotEmpty(t, capture.body, "rule document must be written before invocation")
	doc := string(capture.body)
	assert.Contains(t, doc, `"location":"eastus"`)
	assert.Contains(t, doc, `"workspaceResourceId":"`+testClientConfig().WorkspaceID+`"`)
	assert.Contains(t, doc, `"samplingFrequencyInSeconds":30`)

	assert.Equal(t, 1, runner.countContaining("group show"))
}

func TestRedactArgs(t *testing.T) {
	args := []string{
		"monitor", "scheduled-query", "create",
		"--condition-query", "query1=WVDErrors | summarize count()",
		"--name", "avd-x",
	}
	redacted := redactArgs(args)
	assert.Equal(t, "<omitted>", redacted[4])
	assert.Equal(t, "avd-x", redacted[6])
	assert.Equal(t, "query1=WVDErrors | summarize count()", args[4], "input must not be mutated")
}
