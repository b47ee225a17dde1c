package health

import (
	"sync"
	"time"
)

// retention bounds how long outcomes are kept; windows longer than this see truncated history.
const retention = 5 * time.Minute

var defaultTracker Tracker

// RecordSuccess records a request that reached the data store and succeeded.
func RecordSuccess() { defaultTracker.RecordSuccess() }

// RecordError records a data store failure.
func RecordError() { defaultTracker.RecordError() }

// RecordDenied records a rate-limit denial (429).
func RecordDenied() { defaultTracker.RecordDenied() }

// RequestCount returns outcomes (success + error + denied) within window.
func RequestCount(window time.Duration) int { return defaultTracker.RequestCount(window) }

// DenialCount returns denials within window.
func DenialCount(window time.Duration) int { return defaultTracker.DenialCount(window) }

// ErrorRate returns (errors, successes+errors) within window.
func ErrorRate(window time.Duration) (errors, total int) { return defaultTracker.ErrorRate(window) }

// Reset clears the process-wide tracker. For tests only.
func Reset() { defaultTracker.Reset() }

// Tracker keeps sliding windows of request outcome timestamps. It is the single
// source for the overloaded (denials) and degraded (store error rate) health states.
type Tracker struct {
	mu        sync.Mutex
	successes []time.Time
	errors    []time.Time
	denials   []time.Time
}

func (t *Tracker) RecordSuccess() { t.record(&t.successes) }

func (t *Tracker) RecordError() { t.record(&t.errors) }

func (t *Tracker) RecordDenied() { t.record(&t.denials) }

func (t *Tracker) record(slice *[]time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	*slice = append(*slice, now)
	t.pruneLocked(now)
}

// RequestCount returns the total number of outcomes within the window.
func (t *Tracker) RequestCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := time.Now().Add(-window)
	return countSince(t.successes, cutoff) + countSince(t.errors, cutoff) + countSince(t.denials, cutoff)
}

// DenialCount returns the number of rate-limit denials within the window.
func (t *Tracker) DenialCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return countSince(t.denials, time.Now().Add(-window))
}

// ErrorRate returns (errorCount, totalCount) within the window. Denials are not part of the total.
func (t *Tracker) ErrorRate(window time.Duration) (errors, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := time.Now().Add(-window)
	errors = countSince(t.errors, cutoff)
	return errors, errors + countSince(t.successes, cutoff)
}

// Reset drops all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successes = nil
	t.errors = nil
	t.denials = nil
}

func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked must be called with mu held. Slices are append-only in time order.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	for _, slice := range []*[]time.Time{&t.successes, &t.errors, &t.denials} {
		times := *slice
		i := 0
		for i < len(times) && times[i].Before(cutoff) {
			i++
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
}
