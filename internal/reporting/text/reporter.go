package text

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/avdops/azmon-reconciler/internal/core/domain"
	"github.com/avdops/azmon-reconciler/internal/core/ports"
)

const ReporterTypeText = "text"

type Config struct {
	NoColor bool `mapstructure:"no_color"`
}

type Reporter struct {
	config Config
	writer io.Writer
	logger ports.Logger
}

func NewReporter(cfg Config, logger ports.Logger) (*Reporter, error) {
	if cfg.NoColor || !isTerminal(os.Stdout) {
		color.NoColor = true
	}

	return &Reporter{
		config: cfg,
		writer: os.Stdout,
		logger: logger,
	}, nil
}

func isTerminal(f *os.File) bool {
	stat, _ := f.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func (r *Reporter) Report(ctx context.Context, results []domain.ReconciliationResult) error {
	if len(results) == 0 {
		fmt.Fprintln(r.writer, "No resources processed.")
		return nil
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Kind != results[j].Kind {
			return results[i].Kind < results[j].Kind
		}
		return results[i].Name < results[j].Name
	})

	tw := tabwriter.NewWriter(r.writer, 0, 8, 2, ' ', 0)
	defer tw.Flush()

	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	magenta := color.New(color.FgMagenta).SprintFunc()

	fmt.Fprintln(tw, "Azure Monitor Reconciliation Report")
	fmt.Fprintln(tw, "===================================")
	fmt.Fprintln(tw, "Status\tKind\tName\tDetails")
	fmt.Fprintln(tw, "------\t----\t----\t-------")

	createdCount := 0
	updatedCount := 0
	skippedCount := 0
	plannedCount := 0
	failedCount := 0

	for _, res := range results {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		statusStr := ""
		details := res.Description

		switch res.Action {
		case domain.ActionCreated:
			createdCount++
			statusStr = green("[CREATED]")
		case domain.ActionUpdated:
			updatedCount++
			statusStr = cyan("[UPDATED]")
		case domain.ActionSkipped:
			skippedCount++
			statusStr = yellow("[SKIPPED]")
		case domain.ActionPlanned:
			plannedCount++
			statusStr = cyan("[PLANNED]")
			details = "Dry run: no changes applied."
		case domain.ActionFailed:
			failedCount++
			statusStr = red("[FAILED]")
			details = fmt.Sprintf("Apply failed: %v", res.Error)
			if res.Status == domain.StatusError {
				statusStr = magenta("[ERROR]")
				details = fmt.Sprintf("Reconciliation error: %v", res.Error)
			}
		default:
			statusStr = "[UNKNOWN]"
			details = "Unknown reconciliation outcome."
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", statusStr, res.Kind, res.Name, details)
	}

	fmt.Fprintln(tw, "\nSummary:")
	fmt.Fprintln(tw, "-------")
	fmt.Fprintf(tw, "Total Resources Processed:\t%d\n", len(results))
	fmt.Fprintf(tw, "Created:\t%s\n", green(createdCount))
	fmt.Fprintf(tw, "Updated:\t%s\n", cyan(updatedCount))
	fmt.Fprintf(tw, "Skipped:\t%s\n", yellow(skippedCount))
	fmt.Fprintf(tw, "Planned (dry run):\t%s\n", cyan(plannedCount))
	fmt.Fprintf(tw, "Failed:\t%s\n", red(failedCount))

	return nil
}
