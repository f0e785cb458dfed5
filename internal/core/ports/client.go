package ports

import (
	"context"

	"github.com/avdops/azmon-reconciler/internal/core/domain"
)

type ApplyOutcome string

const (
	OutcomeSuccess ApplyOutcome = "SUCCESS"
	// OutcomeConflict means the target state is already satisfied under a
	// different identity (e.g. another setting forwards to the same sink)
	// and must not be treated as a hard failure.
	OutcomeConflict ApplyOutcome = "CONFLICT"
	OutcomeFailure  ApplyOutcome = "FAILURE"
)

// ResourceClient is the single choke point for control-plane
// interaction. Implementations do not cache; caching is the existence
// cache's job.
type ResourceClient interface {
	Type() string

	// List enumerates the names of existing resources of the given kind
	// whose names carry the given prefix. An empty slice with a nil
	// error means "confirmed zero exist".
	List(ctx context.Context, kind domain.ResourceKind, prefix string) ([]string, error)

	// Exists reports whether the named resource is present. A clean
	// not-found is (false, nil); transport failures and timeouts return
	// an error distinct from not-found.
	Exists(ctx context.Context, def domain.ResourceDefinition) (bool, error)

	// LivePayload fetches the resource's current configuration mapped
	// into the same document shape as def.PayloadDocument, so callers
	// can compare desired against observed.
	LivePayload(ctx context.Context, def domain.ResourceDefinition) (any, error)

	// Apply creates the resource, or overwrites it when update is true.
	Apply(ctx context.Context, def domain.ResourceDefinition, update bool) (ApplyOutcome, error)
}
