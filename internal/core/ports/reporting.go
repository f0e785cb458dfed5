package ports

import (
	"context"

	"github.com/avdops/azmon-reconciler/internal/core/domain"
)

type Reporter interface {
	Report(ctx context.Context, results []domain.ReconciliationResult) error
}

// Exporter writes the tabular export. A failed export must never fail
// the run; callers log the error and continue.
type Exporter interface {
	Export(ctx context.Context, results []domain.ReconciliationResult) error
}
