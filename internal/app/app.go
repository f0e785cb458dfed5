package app

import (
	"context"
	"fmt"

	"github.com/avdops/azmon-reconciler/internal/core/ports"
	"github.com/avdops/azmon-reconciler/internal/errors"
)

type Application struct {
	Engine ports.ReconcileEngine
	Logger ports.Logger
}

func NewApplication(engine ports.ReconcileEngine, logger ports.Logger) *Application {
	return &Application{
		Engine: engine,
		Logger: logger,
	}
}

// Run executes the reconciliation and enforces the exit-code policy:
// any individual resource failure fails the run as a whole, after all
// resources have been attempted.
func (a *Application) Run(ctx context.Context) error {
	a.Logger.Infof(ctx, "Starting Azure Monitor reconciliation...")

	summary, err := a.Engine.Run(ctx)
	if err != nil {
		a.Logger.Errorf(ctx, err, "Reconciliation failed")
		return err
	}

	if summary.Failed > 0 {
		return errors.NewUserFacing(errors.CodeApplyError,
			fmt.Sprintf("%d of %d resources failed to reconcile", summary.Failed, summary.Total),
			"Inspect the report above and the export file for per-resource errors.")
	}

	a.Logger.Infof(ctx, "Reconciliation completed successfully")
	return nil
}
