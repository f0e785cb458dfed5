package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/avdops/azmon-reconciler/internal/core/domain"
	"github.com/avdops/azmon-reconciler/internal/core/ports"
	"github.com/avdops/azmon-reconciler/internal/errors"
)

const ExporterTypeCSV = "csv"

type Config struct {
	// Path is overwritten on every run.
	Path string `mapstructure:"path"`
}

// Exporter writes the flat result table. Callers treat its errors as
// warnings; the console report stays authoritative.
type Exporter struct {
	config Config
	logger ports.Logger
}

var _ ports.Exporter = (*Exporter)(nil)

func NewExporter(cfg Config, logger ports.Logger) (*Exporter, error) {
	if cfg.Path == "" {
		return nil, errors.New(errors.CodeConfigValidation, "csv exporter requires an output path")
	}
	return &Exporter{config: cfg, logger: logger}, nil
}

func (e *Exporter) Export(ctx context.Context, results []domain.ReconciliationResult) error {
	f, err := os.Create(e.config.Path)
	if err != nil {
		return errors.Wrap(err, errors.CodeExportError,
			fmt.Sprintf("failed to create export file %s", e.config.Path))
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"name", "kind", "description", "severity", "action", "status", "error"}
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, errors.CodeExportError, "failed to write export header")
	}

	for _, res := range results {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		errText := ""
		if res.Error != nil {
			errText = res.Error.Error()
		}
		row := []string{
			res.Name,
			string(res.Kind),
			res.Description,
			strconv.Itoa(int(res.Severity)),
			string(res.Action),
			string(res.Status),
			errText,
		}
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, errors.CodeExportError, "failed to write export row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, errors.CodeExportError, "failed to flush export file")
	}

	e.logger.Infof(ctx, "Exported %d results to %s", len(results), e.config.Path)
	return nil
}
