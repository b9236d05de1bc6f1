// Package tracker counts provider calls for the stats endpoint.
package tracker

import (
	"sync"
	"sync/atomic"
	"time"
)

// Tracker holds per-provider counters. The zero value is not usable; call New.
type Tracker struct {
	providers sync.Map // name -> *counters
}

type counters struct {
	success   atomic.Int64
	failures  atomic.Int64
	skipped   atomic.Int64
	lastMS    atomic.Int64
	totalMS   atomic.Int64
	completed atomic.Int64
}

// ProviderStats is a point-in-time copy of one provider's counters.
type ProviderStats struct {
	APISuccess    int64 `json:"api_success"`
	APIFailures   int64 `json:"api_failures"`
	Skipped       int64 `json:"skipped"`
	LastLatencyMS int64 `json:"last_latency_ms"`
	AvgLatencyMS  int64 `json:"avg_latency_ms"`
}

func New() *Tracker { return &Tracker{} }

func (t *Tracker) counters(provider string) *counters {
	if c, ok := t.providers.Load(provider); ok {
		return c.(*counters)
	}
	c, _ := t.providers.LoadOrStore(provider, &counters{})
	return c.(*counters)
}

// Observe records one completed call started at start. A nil err counts as success.
func (t *Tracker) Observe(provider string, start time.Time, err error) {
	t.TrackLatency(provider, time.Since(start))
	if err != nil {
		t.TrackAPIFailure(provider)
		return
	}
	t.TrackAPISuccess(provider)
}

func (t *Tracker) TrackAPISuccess(provider string) { t.counters(provider).success.Add(1) }
func (t *Tracker) TrackAPIFailure(provider string) { t.counters(provider).failures.Add(1) }

// TrackSkip counts calls the failover chain routed around this provider.
func (t *Tracker) TrackSkip(provider string) { t.counters(provider).skipped.Add(1) }

func (t *Tracker) TrackLatency(provider string, d time.Duration) {
	c := t.counters(provider)
	ms := d.Milliseconds()
	c.lastMS.Store(ms)
	c.totalMS.Add(ms)
	c.completed.Add(1)
}

// Snapshot copies the counters of every provider seen so far.
func (t *Tracker) Snapshot() map[string]ProviderStats {
	out := make(map[string]ProviderStats)
	t.providers.Range(func(k, v any) bool {
		c := v.(*counters)
		s := ProviderStats{
			APISuccess:    c.success.Load(),
			APIFailures:   c.failures.Load(),
			Skipped:       c.skipped.Load(),
			LastLatencyMS: c.lastMS.Load(),
		}
		if n := c.completed.Load(); n > 0 {
			s.AvgLatencyMS = c.totalMS.Load() / n
		}
		out[k.(string)] = s
		return true
	})
	return out
}

// Reset drops all counters.
func (t *Tracker) Reset() {
	t.providers.Clear()
}
