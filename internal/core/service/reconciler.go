package service

import (
	"context"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/avdops/azmon-reconciler/internal/core/domain"
	"github.com/avdops/azmon-reconciler/internal/core/ports"
	"github.com/avdops/azmon-reconciler/internal/errors"
)

// Reconciler decides and executes one resource's desired-state
// application: Unknown -> {Exists, NotExists} -> {Skip, Create, Update,
// Fail}. Nothing escapes the per-resource boundary; every path,
// including a panic, converts into a ReconciliationResult.
type Reconciler struct {
	client       ports.ResourceClient
	cache        *ExistenceCache
	logger       ports.Logger
	policy       domain.Policy
	dryRun       bool
	applyTimeout time.Duration
}

func NewReconciler(client ports.ResourceClient, cache *ExistenceCache, logger ports.Logger, policy domain.Policy, dryRun bool, applyTimeout time.Duration) *Reconciler {
	return &Reconciler{
		client:       client,
		cache:        cache,
		logger:       logger,
		policy:       policy,
		dryRun:       dryRun,
		applyTimeout: applyTimeout,
	}
}

func (r *Reconciler) Reconcile(ctx context.Context, def domain.ResourceDefinition) (result domain.ReconciliationResult) {
	start := time.Now()

	result = domain.ReconciliationResult{
		Name:        def.Name,
		Kind:        def.Kind,
		Description: def.Description,
		Severity:    def.Severity,
	}

	defer func() {
		if rec := recover(); rec != nil {
			result.Action = domain.ActionFailed
			result.Status = domain.StatusError
			result.Error = errors.Newf(errors.CodeInternal, "panic reconciling '%s': %v", def.Name, rec)
			r.logger.Errorf(ctx, result.Error, "Recovered from panic while reconciling '%s'", def.Name)
		}
		result.Duration = time.Since(start)
	}()

	log := r.logger.WithFields(map[string]any{
		"resource_kind": def.Kind,
		"resource_name": def.Name,
	})

	exists, err := r.cache.Lookup(ctx, def)
	if err != nil {
		log.Errorf(ctx, err, "Existence lookup failed")
		result.Action = domain.ActionFailed
		result.Status = domain.StatusError
		result.Error = err
		return result
	}

	update := false
	if exists {
		switch r.policy {
		case domain.PolicyCreateOnly:
			log.Debugf(ctx, "Resource exists, create-only policy: skipping")
			result.Action = domain.ActionSkipped
			result.Status = domain.StatusSuccess
			if r.dryRun {
				result.Status = domain.StatusWhatIf
			}
			return result
		case domain.PolicyCreateOrUpdate:
			changed, diffErr := r.payloadChanged(ctx, def, log)
			if diffErr != nil {
				// The write is idempotent, so an unreadable live payload
				// degrades to an unconditional update.
				log.Warnf(ctx, "Could not read live payload (%v), updating unconditionally", diffErr)
				changed = true
			}
			if !changed {
				log.Debugf(ctx, "Resource exists with matching payload: skipping")
				result.Action = domain.ActionSkipped
				result.Status = domain.StatusSuccess
				if r.dryRun {
					result.Status = domain.StatusWhatIf
				}
				return result
			}
			update = true
		}
	}

	if r.dryRun {
		verb := "create"
		if update {
			verb = "update"
		}
		log.Infof(ctx, "Dry run: would %s %s '%s'", verb, def.Kind, def.Name)
		result.Action = domain.ActionPlanned
		result.Status = domain.StatusWhatIf
		return result
	}

	applyCtx, cancel := context.WithTimeout(ctx, r.applyTimeout)
	defer cancel()

	outcome, applyErr := r.client.Apply(applyCtx, def, update)
	switch outcome {
	case ports.OutcomeSuccess:
		if update {
			result.Action = domain.ActionUpdated
		} else {
			result.Action = domain.ActionCreated
		}
		result.Status = domain.StatusSuccess
		log.Infof(ctx, "%s %s '%s'", result.Action, def.Kind, def.Name)
	case ports.OutcomeConflict:
		result.Action = domain.ActionSkipped
		result.Status = domain.StatusSuccess
		log.Infof(ctx, "Skipped %s '%s': already satisfied by an existing resource", def.Kind, def.Name)
	default:
		if errors.Is(applyErr, errors.CodeBenignConflict) {
			result.Action = domain.ActionSkipped
			result.Status = domain.StatusSuccess
			log.Infof(ctx, "Skipped %s '%s': benign conflict", def.Kind, def.Name)
			break
		}
		if applyErr == nil {
			applyErr = errors.Newf(errors.CodeApplyError, "apply of '%s' failed without detail", def.Name)
		}
		result.Action = domain.ActionFailed
		result.Status = domain.StatusFailed
		result.Error = applyErr
		log.Errorf(ctx, applyErr, "Apply failed for %s '%s'", def.Kind, def.Name)
	}

	return result
}

// payloadChanged compares the desired payload against the live one.
func (r *Reconciler) payloadChanged(ctx context.Context, def domain.ResourceDefinition, log ports.Logger) (bool, error) {
	live, err := r.client.LivePayload(ctx, def)
	if err != nil {
		return false, err
	}

	diff := cmp.Diff(def.PayloadDocument(), live,
		cmpopts.SortSlices(func(a, b string) bool { return a < b }),
		cmpopts.EquateEmpty(),
	)
	if diff != "" {
		log.Debugf(ctx, "Payload drift for '%s':\n%s", def.Name, diff)
		return true, nil
	}
	return false, nil
}
