package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/avdops/azmon-reconciler/internal/core/domain"
	"github.com/avdops/azmon-reconciler/internal/core/ports"
	"github.com/avdops/azmon-reconciler/internal/errors"
)

const defaultConcurrency = 5

type EngineConfig struct {
	Concurrency  int
	Policy       domain.Policy
	DryRun       bool
	NamePrefix   string
	BulkTimeout  time.Duration
	ApplyTimeout time.Duration
}

// ReconcileEngine fans the reconciler out over all definitions with
// bounded concurrency. Kinds run as ordered stages (alerts reference
// the action group by resource ID, so dependency targets must finish
// first); within a stage definitions are independent units of work,
// each name handled by exactly one worker.
type ReconcileEngine struct {
	source   ports.DefinitionSource
	client   ports.ResourceClient
	reporter ports.Reporter
	exporter ports.Exporter
	logger   ports.Logger
	progress ports.ProgressFunc
	cfg      EngineConfig
}

// resultCollector is the run-scoped accumulator; workers append under
// the lock and nothing else holds results between stages.
type resultCollector struct {
	mu      sync.Mutex
	results []domain.ReconciliationResult
	done    int
}

func (c *resultCollector) add(res domain.ReconciliationResult) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, res)
	c.done++
	return c.done
}

func (c *resultCollector) snapshot() []domain.ReconciliationResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ReconciliationResult, len(c.results))
	copy(out, c.results)
	return out
}

func NewReconcileEngine(
	source ports.DefinitionSource,
	client ports.ResourceClient,
	reporter ports.Reporter,
	exporter ports.Exporter,
	logger ports.Logger,
	progress ports.ProgressFunc,
	cfg EngineConfig,
) (*ReconcileEngine, error) {
	if source == nil {
		return nil, errors.New(errors.CodeConfigValidation, "definition source cannot be nil")
	}
	if client == nil {
		return nil, errors.New(errors.CodeConfigValidation, "resource client cannot be nil")
	}
	if reporter == nil {
		return nil, errors.New(errors.CodeConfigValidation, "reporter cannot be nil")
	}
	if !cfg.Policy.Valid() {
		return nil, errors.Newf(errors.CodeConfigValidation, "invalid reconciliation policy %q", cfg.Policy)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}

	return &ReconcileEngine{
		source:   source,
		client:   client,
		reporter: reporter,
		exporter: exporter,
		logger:   logger,
		progress: progress,
		cfg:      cfg,
	}, nil
}

func (e *ReconcileEngine) Run(ctx context.Context) (ports.RunSummary, error) {
	e.logger.Infof(ctx, "Starting reconciliation run (policy: %s, concurrency: %d, dry run: %t)",
		e.cfg.Policy, e.cfg.Concurrency, e.cfg.DryRun)

	defs, err := e.source.Load(ctx)
	if err != nil {
		return ports.RunSummary{}, err
	}
	if len(defs) == 0 {
		e.logger.Warnf(ctx, "No resource definitions to reconcile")
		return ports.RunSummary{}, nil
	}

	cache := NewExistenceCache(e.client, e.logger, e.cfg.NamePrefix, e.cfg.BulkTimeout)
	cache.Build(ctx, defs)

	reconciler := NewReconciler(e.client, cache, e.logger, e.cfg.Policy, e.cfg.DryRun, e.cfg.ApplyTimeout)

	collector := &resultCollector{}
	total := len(defs)

	byKind := make(map[domain.ResourceKind][]domain.ResourceDefinition, len(defs))
	for _, def := range defs {
		byKind[def.Kind] = append(byKind[def.Kind], def)
	}

	var runErr error
	for _, kind := range domain.AllKinds() {
		if len(byKind[kind]) == 0 {
			continue
		}
		if err := e.dispatchKind(ctx, reconciler, collector, total, byKind[kind]); err != nil {
			runErr = err
			break
		}
	}

	results := collector.snapshot()
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	if runErr != nil {
		if runErr == context.Canceled || runErr == context.DeadlineExceeded {
			e.logger.Warnf(ctx, "Reconciliation run cancelled or timed out: %v", runErr)
		} else {
			e.logger.Errorf(ctx, runErr, "Reconciliation run encountered an error")
		}
		if len(results) > 0 && runErr != context.Canceled && runErr != context.DeadlineExceeded {
			if reportErr := e.reporter.Report(ctx, results); reportErr != nil {
				e.logger.Errorf(ctx, reportErr, "Failed to report partial results after error")
			}
		}
		return summarize(results), runErr
	}

	if reportErr := e.reporter.Report(ctx, results); reportErr != nil {
		return summarize(results), errors.Wrap(reportErr, errors.CodeInternal, "failed to generate final report")
	}

	// Export failure never fails the run; console output is
	// authoritative.
	if e.exporter != nil {
		if exportErr := e.exporter.Export(ctx, results); exportErr != nil {
			e.logger.Warnf(ctx, "Result export failed: %v", exportErr)
		}
	}

	summary := summarize(results)
	e.logger.Infof(ctx, "Reconciliation run finished: %d created, %d updated, %d skipped, %d planned, %d failed",
		summary.Created, summary.Updated, summary.Skipped, summary.Planned, summary.Failed)
	return summary, nil
}

// dispatchKind runs one stage: a worker pool over a single kind's
// definitions. It returns only when every worker has drained, so the
// next stage never starts while this kind is still being applied.
func (e *ReconcileEngine) dispatchKind(
	ctx context.Context,
	reconciler *Reconciler,
	collector *resultCollector,
	total int,
	defs []domain.ResourceDefinition,
) error {
	jobs := make(chan domain.ResourceDefinition)
	g, childCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for _, def := range defs {
			select {
			case jobs <- def:
			case <-childCtx.Done():
				return childCtx.Err()
			}
		}
		return nil
	})

	workers := e.cfg.Concurrency
	if workers > len(defs) {
		workers = len(defs)
	}
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for def := range jobs {
				if childCtx.Err() != nil {
					return childCtx.Err()
				}
				res := reconciler.Reconcile(childCtx, def)
				done := collector.add(res)
				if e.progress != nil {
					e.progress(done, total, res)
				}
			}
			return nil
		})
	}

	return g.Wait()
}

func summarize(results []domain.ReconciliationResult) ports.RunSummary {
	summary := ports.RunSummary{Total: len(results)}
	for _, res := range results {
		switch res.Action {
		case domain.ActionCreated:
			summary.Created++
		case domain.ActionUpdated:
			summary.Updated++
		case domain.ActionSkipped:
			summary.Skipped++
		case domain.ActionPlanned:
			summary.Planned++
		case domain.ActionFailed:
			summary.Failed++
		}
	}
	return summary
}
