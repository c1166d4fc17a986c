// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ManuGH/vastplay/internal/config"
	"github.com/ManuGH/vastplay/internal/log"
	"github.com/ManuGH/vastplay/internal/resilience"
)

// PingFunc probes a dependency.
type PingFunc func(ctx context.Context) error

// PingChecker reports a dependency unhealthy while its probe fails.
type PingChecker struct {
	name    string
	ping    PingFunc
	timeout time.Duration
}

// NewPingChecker wraps ping, bounding each probe by timeout.
func NewPingChecker(name string, ping PingFunc, timeout time.Duration) *PingChecker {
	return &PingChecker{name: name, ping: ping, timeout: timeout}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// BreakerChecker reports degraded service while ad server breakers are open.
type BreakerChecker struct {
	set *resilience.Set
}

// NewBreakerChecker inspects the breakers of set.
func NewBreakerChecker(set *resilience.Set) *BreakerChecker {
	return &BreakerChecker{set: set}
}

func (c *BreakerChecker) Name() string { return "ad_servers" }

func (c *BreakerChecker) Check(_ context.Context) CheckResult {
	var open []string
	for host, st := range c.set.States() {
		if st == resilience.StateOpen {
			open = append(open, host)
		}
	}
	if len(open) == 0 {
		return CheckResult{Status: StatusHealthy}
	}
	sort.Strings(open)
	return CheckResult{
		Status:  StatusDegraded,
		Message: "circuit open: " + strings.Join(open, ", "),
	}
}

// PerformStartupChecks validates the configuration and probes every checker
// once before the server starts. Degraded results are logged, unhealthy
// ones abort startup.
func PerformStartupChecks(ctx context.Context, cfg config.AppConfig, checkers ...Checker) error {
	logger := log.WithComponent("startup-check")

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	for _, c := range checkers {
		res := c.Check(ctx)
		switch res.Status {
		case StatusUnhealthy:
			return fmt.Errorf("%s check failed: %s", c.Name(), res.Error)
		case StatusDegraded:
			logger.Warn().Str("check", c.Name()).Str("message", res.Message).Msg("dependency degraded")
		}
	}
	logger.Info().Int("checks", len(checkers)).Msg("startup checks passed")
	return nil
}
