package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avdops/azmon-reconciler/internal/core/domain"
	"github.com/avdops/azmon-reconciler/internal/core/service"
	"github.com/avdops/azmon-reconciler/internal/errors"
)

func TestExistenceCache_BulkAuthoritative(t *testing.T) {
	ctx := context.Background()
	defs := []domain.ResourceDefinition{alertDef("avd-a"), alertDef("avd-b"), alertDef("avd-c")}

	client := newFakeClient()
	client.existing["avd-b"] = domain.KindScheduledQueryAlert

	cache := service.NewExistenceCache(client, nopLogger{}, "avd-", 5*time.Second)
	cache.Build(ctx, defs)

	for name, want := range map[string]bool{"avd-a": false, "avd-b": true, "avd-c": false} {
		exists, err := cache.Lookup(ctx, alertDef(name))
		require.NoError(t, err)
		assert.Equal(t, want, exists, "existence of %s", name)
	}

	// A definitive bulk listing means no per-name lookups at all.
	assert.Empty(t, client.existsCalls)
	assert.Equal(t, 1, client.listCalls)
}

func TestExistenceCache_EmptyBulkIsAuthoritative(t *testing.T) {
	ctx := context.Background()
	defs := []domain.ResourceDefinition{alertDef("avd-a"), alertDef("avd-b")}

	client := newFakeClient()

	cache := service.NewExistenceCache(client, nopLogger{}, "avd-", 5*time.Second)
	cache.Build(ctx, defs)

	exists, err := cache.Lookup(ctx, alertDef("avd-a"))
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, client.existsCalls, "empty-but-successful listing must not trigger fallback")
}

func TestExistenceCache_FallbackOnBulkError(t *testing.T) {
	ctx := context.Background()
	defs := []domain.ResourceDefinition{alertDef("avd-a"), alertDef("avd-b")}

	client := newFakeClient()
	client.listErr = errors.New(errors.CodePlatformAPIError, "throttled")
	client.existing["avd-b"] = domain.KindScheduledQueryAlert

	cache := service.NewExistenceCache(client, nopLogger{}, "avd-", 5*time.Second)
	cache.Build(ctx, defs)

	exists, err := cache.Lookup(ctx, alertDef("avd-a"))
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = cache.Lookup(ctx, alertDef("avd-b"))
	require.NoError(t, err)
	assert.True(t, exists)

	assert.ElementsMatch(t, []string{"avd-a", "avd-b"}, client.existsCalls)
}

func TestExistenceCache_FallbackOnBulkTimeout(t *testing.T) {
	ctx := context.Background()
	defs := []domain.ResourceDefinition{alertDef("avd-a")}

	client := newFakeClient()
	client.listDelay = 200 * time.Millisecond
	client.existing["avd-a"] = domain.KindScheduledQueryAlert

	cache := service.NewExistenceCache(client, nopLogger{}, "avd-", 10*time.Millisecond)
	cache.Build(ctx, defs)

	// The run must still reach a definitive determination.
	exists, err := cache.Lookup(ctx, alertDef("avd-a"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestExistenceCache_FallbackMemoized(t *testing.T) {
	ctx := context.Background()

	client := newFakeClient()
	client.listErr = errors.New(errors.CodePlatformAPIError, "throttled")
	client.existing["avd-a"] = domain.KindScheduledQueryAlert

	cache := service.NewExistenceCache(client, nopLogger{}, "avd-", 5*time.Second)
	cache.Build(ctx, []domain.ResourceDefinition{alertDef("avd-a")})

	for i := 0; i < 3; i++ {
		exists, err := cache.Lookup(ctx, alertDef("avd-a"))
		require.NoError(t, err)
		assert.True(t, exists)
	}
	assert.Len(t, client.existsCalls, 1)
}

func TestExistenceCache_LookupErrorPropagates(t *testing.T) {
	ctx := context.Background()

	client := newFakeClient()
	client.listErr = errors.New(errors.CodePlatformAPIError, "throttled")
	client.existsErr["avd-a"] = errors.New(errors.CodeLookupTimeout, "unreachable")

	cache := service.NewExistenceCache(client, nopLogger{}, "avd-", 5*time.Second)
	cache.Build(ctx, []domain.ResourceDefinition{alertDef("avd-a")})

	_, err := cache.Lookup(ctx, alertDef("avd-a"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeLookupTimeout))
}
