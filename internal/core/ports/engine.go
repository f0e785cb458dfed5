package ports

import (
	"context"

	"github.com/avdops/azmon-reconciler/internal/core/domain"
)

type RunSummary struct {
	Total   int
	Created int
	Updated int
	Skipped int
	Planned int
	Failed  int
}

type ReconcileEngine interface {
	Run(ctx context.Context) (RunSummary, error)
}

// ProgressFunc is invoked by the dispatcher after each completed item.
type ProgressFunc func(done, total int, result domain.ReconciliationResult)
