package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/avdops/azmon-reconciler/internal/adapters/definitions"
	"github.com/avdops/azmon-reconciler/internal/adapters/platform/azurecli"
	"github.com/avdops/azmon-reconciler/internal/config"
	"github.com/avdops/azmon-reconciler/internal/core/domain"
	"github.com/avdops/azmon-reconciler/internal/core/ports"
	"github.com/avdops/azmon-reconciler/internal/core/service"
	"github.com/avdops/azmon-reconciler/internal/errors"
	"github.com/avdops/azmon-reconciler/internal/log"
	"github.com/avdops/azmon-reconciler/internal/reporting/csvfile"
	"github.com/avdops/azmon-reconciler/internal/reporting/text"
)

func BuildApplicationFromViper(ctx context.Context, v *viper.Viper) (*Application, error) {
	cfg := config.DefaultConfig()
	err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigParseError, "failed to unmarshal configuration")
	}

	logCfg := log.Config{Level: cfg.Settings.LogLevel, Format: cfg.Settings.LogFormat}
	logger, err := log.NewLogger(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logger: %v\n", err)
		return nil, errors.Wrap(err, errors.CodeInternal, "logger initialization failed")
	}

	runID := uuid.NewString()[:8]
	logger = logger.WithFields(map[string]any{"run_id": runID})
	logger.Infof(ctx, "Logger initialized (Level: %s, Format: %s)", cfg.Settings.LogLevel, cfg.Settings.LogFormat)
	if v.ConfigFileUsed() != "" {
		logger.Debugf(ctx, "Using configuration file: %s", v.ConfigFileUsed())
	}

	if err := validateConfig(ctx, cfg, logger); err != nil {
		return nil, err
	}

	azurecli.InitializeLimiter(cfg.Settings.RateLimitRPS, logger)

	provLog := logger.WithFields(map[string]any{"provider": azurecli.ClientTypeAzureCLI})
	runner := azurecli.NewRunner(provLog)

	preflight := azurecli.NewPreflight(runner, provLog)
	workspaceID, err := preflight.Check(ctx,
		cfg.Target.Subscription, cfg.Target.ResourceGroup, cfg.Target.Workspace)
	if err != nil {
		return nil, err
	}

	azClient, err := azurecli.NewClient(azurecli.Config{
		Subscription:    cfg.Target.Subscription,
		ResourceGroup:   cfg.Target.ResourceGroup,
		Workspace:       cfg.Target.Workspace,
		WorkspaceID:     workspaceID,
		ActionGroupName: definitions.ActionGroupName(cfg.Target.NamePrefix),
	}, runner, provLog)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigValidation, "failed to initialize Azure CLI client")
	}

	registry := service.NewComponentRegistry()
	if err := registry.RegisterResourceClient(azClient); err != nil {
		return nil, err
	}
	provLog.Infof(ctx, "Using Azure CLI resource client (workspace: %s)", cfg.Target.Workspace)

	srcLog := logger.WithFields(map[string]any{"component": "definitions"})
	catalogSource, err := definitions.NewSource(definitions.Config{
		NamePrefix:  cfg.Target.NamePrefix,
		AlertEmail:  cfg.Target.AlertEmail,
		MinSeverity: domain.Severity(cfg.Definitions.MinSeverity),
		FilePath:    cfg.Definitions.File,
		Mode:        definitions.Mode(cfg.Definitions.Mode),
	}, srcLog)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigValidation, "failed to initialize definition source")
	}
	if err := registry.RegisterDefinitionSource(catalogSource); err != nil {
		return nil, err
	}

	// The engine consumes its collaborators through the registry so
	// that the active client and source are selected by type name.
	client, err := registry.GetResourceClient(azurecli.ClientTypeAzureCLI)
	if err != nil {
		return nil, err
	}
	source, err := registry.GetDefinitionSource(definitions.SourceTypeCatalog)
	if err != nil {
		return nil, err
	}

	reportLog := logger.WithFields(map[string]any{"component": "reporter"})
	reporter, err := text.NewReporter(text.Config{NoColor: cfg.Reporting.NoColor}, reportLog)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to initialize text reporter")
	}

	var exporter ports.Exporter
	if cfg.Reporting.OutputPath != "" {
		exporter, err = csvfile.NewExporter(csvfile.Config{Path: cfg.Reporting.OutputPath}, reportLog)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeConfigValidation, "failed to initialize CSV exporter")
		}
		reportLog.Debugf(ctx, "CSV export enabled: %s", cfg.Reporting.OutputPath)
	}

	engLog := logger.WithFields(map[string]any{"component": "engine"})
	progress := func(done, total int, res domain.ReconciliationResult) {
		engLog.Infof(ctx, "Progress %d/%d: %s %s '%s'", done, total, res.Action, res.Kind, res.Name)
	}

	engine, err := service.NewReconcileEngine(source, client, reporter, exporter, engLog, progress,
		service.EngineConfig{
			Concurrency:  cfg.Settings.Concurrency,
			Policy:       cfg.Settings.Policy,
			DryRun:       cfg.Settings.DryRun,
			NamePrefix:   cfg.Target.NamePrefix,
			BulkTimeout:  cfg.Settings.BulkTimeout,
			ApplyTimeout: cfg.Settings.ApplyTimeout,
		})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to initialize reconcile engine")
	}

	logger.Infof(ctx, "Application bootstrap complete")
	return NewApplication(engine, logger), nil
}

func validateConfig(ctx context.Context, cfg *config.Config, logger ports.Logger) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	err := validate.StructCtx(ctx, cfg)
	if err != nil {
		var errorDetails strings.Builder
		errorDetails.WriteString("Configuration validation failed:")
		validationErrors := err.(validator.ValidationErrors)
		for _, fe := range validationErrors {
			errorDetails.WriteString(fmt.Sprintf("\n - Field '%s': Failed on '%s' validation (value: '%v')", fe.Namespace(), fe.Tag(), fe.Value()))
		}
		wrappedErr := errors.NewUserFacing(errors.CodeConfigValidation, errorDetails.String(), "Please check your configuration file or flags.")
		logger.Errorf(ctx, wrappedErr, "Configuration validation failed")
		return wrappedErr
	}

	if !cfg.Settings.Policy.Valid() {
		return errors.NewUserFacing(errors.CodeConfigValidation,
			fmt.Sprintf("invalid reconciliation policy %q", cfg.Settings.Policy),
			fmt.Sprintf("Supported policies: %s, %s.", domain.PolicyCreateOnly, domain.PolicyCreateOrUpdate))
	}

	logger.Debugf(ctx, "Configuration validated successfully")
	return nil
}
