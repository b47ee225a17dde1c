package health

import "sync/atomic"

var draining atomic.Bool

// SetDraining marks the process as shutting down. serve sets it on SIGTERM/SIGINT
// before http.Server.Shutdown so Evaluate reports shutting-down immediately.
func SetDraining(v bool) { draining.Store(v) }

// IsDraining reports whether the process is shutting down.
func IsDraining() bool { return draining.Load() }
