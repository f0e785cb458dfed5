package azurecli

import (
	"context"
	"sync"

	"github.com/avdops/azmon-reconciler/internal/core/ports"
	"golang.org/x/time/rate"
)

const (
	defaultRateLimitRPS = 10
	minRateLimitRPS     = 1
	maxRateLimitRPS     = 50
)

var (
	cliLimiter  *rate.Limiter
	limiterOnce sync.Once
)

// InitializeLimiter configures the process-wide limiter on az
// invocations. The Azure management plane throttles aggressively per
// subscription, so every call path shares one limiter.
func InitializeLimiter(rps int, logger ports.Logger) {
	limiterOnce.Do(func() {
		limitValue := defaultRateLimitRPS
		if rps >= minRateLimitRPS && rps <= maxRateLimitRPS {
			limitValue = rps
		} else if rps != 0 {
			logger.Warnf(nil, "Invalid az CLI RPS configured (%d), using default %d RPS. Valid range: %d-%d.", rps, defaultRateLimitRPS, minRateLimitRPS, maxRateLimitRPS)
		}
		cliLimiter = rate.NewLimiter(rate.Limit(limitValue), limitValue)
		logger.Infof(nil, "Initialized global az CLI rate limiter: %d RPS", limitValue)
	})
}

func waitLimiter(ctx context.Context, logger ports.Logger) error {
	if cliLimiter == nil {
		logger.Errorf(ctx, nil, "az CLI rate limiter accessed before initialization, initializing with default")
		InitializeLimiter(defaultRateLimitRPS, logger)
	}
	err := cliLimiter.Wait(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warnf(ctx, "Error waiting for az CLI rate limiter: %v", err)
		}
		return err
	}
	return nil
}
