package service

import (
	"context"
	"sync"
	"time"

	"github.com/avdops/azmon-reconciler/internal/core/domain"
	"github.com/avdops/azmon-reconciler/internal/core/ports"
)

// ExistenceCache answers "does resource X already exist" for the run.
// It is built once from bulk listings and read-only during dispatch;
// kinds whose bulk listing failed or timed out stay indeterminate and
// fall back to live per-name lookups, which are memoized.
type ExistenceCache struct {
	client      ports.ResourceClient
	logger      ports.Logger
	prefix      string
	bulkTimeout time.Duration

	mu     sync.Mutex
	states map[string]domain.ExistenceState
}

func NewExistenceCache(client ports.ResourceClient, logger ports.Logger, prefix string, bulkTimeout time.Duration) *ExistenceCache {
	return &ExistenceCache{
		client:      client,
		logger:      logger,
		prefix:      prefix,
		bulkTimeout: bulkTimeout,
		states:      make(map[string]domain.ExistenceState),
	}
}

// Build issues one bulk listing per kind, each bounded by the timeout
// budget. A successful listing is authoritative for its kind, even when
// empty: every desired name it does not contain is confirmed absent.
// Build never fails the run; degraded kinds resolve through Lookup.
func (c *ExistenceCache) Build(ctx context.Context, defs []domain.ResourceDefinition) {
	byKind := make(map[domain.ResourceKind][]domain.ResourceDefinition)
	for _, def := range defs {
		byKind[def.Kind] = append(byKind[def.Kind], def)
	}

	for kind, kindDefs := range byKind {
		listCtx, cancel := context.WithTimeout(ctx, c.bulkTimeout)
		names, err := c.client.List(listCtx, kind, c.prefix)
		cancel()

		if err != nil {
			c.logger.Warnf(ctx, "Bulk listing for kind %s unavailable (%v); falling back to per-name lookups", kind, err)
			continue
		}

		existing := make(map[string]struct{}, len(names))
		for _, n := range names {
			existing[n] = struct{}{}
		}

		c.mu.Lock()
		for _, def := range kindDefs {
			if _, ok := existing[def.Name]; ok {
				c.states[def.Name] = domain.ExistenceConfirmed
			} else {
				c.states[def.Name] = domain.ExistenceAbsent
			}
		}
		c.mu.Unlock()

		c.logger.Debugf(ctx, "Existence cache for kind %s: %d desired, %d already present", kind, len(kindDefs), len(names))
	}
}

// Lookup returns a definitive existence determination for one name,
// consulting the cache first and the client on a cache miss. Fallback
// lookups are independent and idempotent.
func (c *ExistenceCache) Lookup(ctx context.Context, def domain.ResourceDefinition) (bool, error) {
	c.mu.Lock()
	state := c.states[def.Name]
	c.mu.Unlock()

	switch state {
	case domain.ExistenceConfirmed:
		return true, nil
	case domain.ExistenceAbsent:
		return false, nil
	}

	exists, err := c.client.Exists(ctx, def)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	if exists {
		c.states[def.Name] = domain.ExistenceConfirmed
	} else {
		c.states[def.Name] = domain.ExistenceAbsent
	}
	c.mu.Unlock()

	return exists, nil
}
