package definitions

import (
	"context"
	"fmt"

	"github.com/avdops/azmon-reconciler/internal/core/domain"
	"github.com/avdops/azmon-reconciler/internal/core/ports"
	"github.com/avdops/azmon-reconciler/internal/errors"
)

const SourceTypeCatalog = "catalog"

type Mode string

const (
	ModeExtend  Mode = "extend"
	ModeReplace Mode = "replace"
)

type Config struct {
	NamePrefix  string
	AlertEmail  string
	MinSeverity domain.Severity
	// FilePath optionally points at a YAML definitions document that
	// extends or replaces the built-in catalog, per Mode.
	FilePath string
	Mode     Mode
}

// Source produces the run's desired-state definition list: built-in AVD
// catalog, optional file overlay, severity filter, uniqueness check.
type Source struct {
	cfg    Config
	logger ports.Logger
}

var _ ports.DefinitionSource = (*Source)(nil)

func NewSource(cfg Config, logger ports.Logger) (*Source, error) {
	if cfg.AlertEmail == "" {
		return nil, errors.New(errors.CodeConfigValidation, "definitions source requires an alert email")
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeExtend
	}
	if cfg.Mode != ModeExtend && cfg.Mode != ModeReplace {
		return nil, errors.Newf(errors.CodeConfigValidation, "unknown definitions mode %q", cfg.Mode)
	}
	return &Source{cfg: cfg, logger: logger}, nil
}

func (s *Source) Type() string {
	return SourceTypeCatalog
}

func (s *Source) Load(ctx context.Context) ([]domain.ResourceDefinition, error) {
	var defs []domain.ResourceDefinition

	if s.cfg.FilePath == "" || s.cfg.Mode == ModeExtend {
		defs = builtinCatalog(s.cfg.NamePrefix, s.cfg.AlertEmail)
		s.logger.Debugf(ctx, "Loaded %d built-in definitions", len(defs))
	}

	if s.cfg.FilePath != "" {
		fileDefs, err := loadFile(s.cfg.FilePath)
		if err != nil {
			return nil, err
		}
		s.logger.Debugf(ctx, "Loaded %d definitions from %s", len(fileDefs), s.cfg.FilePath)
		defs = append(defs, fileDefs...)
	}

	defs = s.filterSeverity(ctx, defs)

	if err := validateUnique(defs); err != nil {
		return nil, err
	}

	s.logger.Infof(ctx, "Definition set ready: %d resources", len(defs))
	return defs, nil
}

// filterSeverity drops alert definitions less severe than the
// configured minimum. Lower numbers are more severe on the Azure scale,
// so "less severe" means a larger value. Non-alert kinds always pass.
func (s *Source) filterSeverity(ctx context.Context, defs []domain.ResourceDefinition) []domain.ResourceDefinition {
	kept := make([]domain.ResourceDefinition, 0, len(defs))
	for _, def := range defs {
		if def.Kind == domain.KindScheduledQueryAlert && def.Severity > s.cfg.MinSeverity {
			s.logger.Debugf(ctx, "Filtering out alert '%s' (severity %d below minimum %d)",
				def.Name, def.Severity, s.cfg.MinSeverity)
			continue
		}
		kept = append(kept, def)
	}
	return kept
}

func validateUnique(defs []domain.ResourceDefinition) error {
	seen := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		if _, dup := seen[def.Name]; dup {
			return errors.NewUserFacing(errors.CodeDuplicateDefinition,
				fmt.Sprintf("definition name %q appears more than once", def.Name),
				"Definition names are idempotency keys and must be unique; rename the duplicate.")
		}
		seen[def.Name] = struct{}{}
	}
	return nil
}
