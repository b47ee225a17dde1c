package health

import (
	"context"
	"net/http"
	"time"
)

// Status values reported by /health.
const (
	StatusHealthy      = "healthy"
	StatusDegraded     = "degraded"
	StatusOverloaded   = "overloaded"
	StatusShuttingDown = "shutting-down"
)

// Config holds the thresholds used by Evaluate. A zero window or percentage disables that check.
type Config struct {
	OverloadWindow       time.Duration
	OverloadThresholdPct int
	RateLimitRPS         int // 0 when rate limiter disabled
	DegradedWindow       time.Duration
	DegradedErrorPct     int
	// StorePing, when set, is called to check data store reachability.
	StorePing func(ctx context.Context) error
}

// Result is the computed health state.
type Result struct {
	Status     string
	StatusCode int
	Reason     string
	StoreOK    bool
}

// Evaluate determines the current health status.
// Decision order: shutting-down > store unreachable > overloaded > degraded > healthy.
func Evaluate(ctx context.Context, cfg Config) Result {
	if IsDraining() {
		return Result{StatusShuttingDown, http.StatusServiceUnavailable, "signal", true}
	}
	if cfg.StorePing != nil {
		if err := cfg.StorePing(ctx); err != nil {
			return Result{StatusDegraded, http.StatusServiceUnavailable, "store_unreachable", false}
		}
	}
	if cfg.RateLimitRPS > 0 && cfg.OverloadWindow > 0 && cfg.OverloadThresholdPct > 0 {
		threshold := float64(cfg.RateLimitRPS) * cfg.OverloadWindow.Seconds() * float64(cfg.OverloadThresholdPct) / 100
		if float64(RequestCount(cfg.OverloadWindow)) > threshold {
			return Result{StatusOverloaded, http.StatusServiceUnavailable, "overload_threshold", true}
		}
	}
	if cfg.DegradedWindow > 0 && cfg.DegradedErrorPct > 0 {
		errors, total := ErrorRate(cfg.DegradedWindow)
		if total > 0 && float64(errors)*100/float64(total) >= float64(cfg.DegradedErrorPct) {
			return Result{StatusDegraded, http.StatusServiceUnavailable, "error_rate_breach", true}
		}
	}
	return Result{StatusHealthy, http.StatusOK, "", true}
}
