package probe

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"voyageai/pkg/llm"
)

const defaultTimeout = 5 * time.Second

// CheckFunc returns nil when the checked dependency is usable.
type CheckFunc func(ctx context.Context) error

// Probe is one named startup check. Critical failures are returned by AnalyzeResults.
type Probe struct {
	Name     string
	Check    CheckFunc
	Critical bool
	Timeout  time.Duration // zero means defaultTimeout
}

// Result is the outcome of one probe.
type Result struct {
	Probe    Probe
	Error    error
	Duration time.Duration
}

// Provider is the part of a generative provider a startup probe needs.
type Provider interface {
	Configured() bool
	HealthCheck(ctx context.Context) error
}

// Pinger is a backend that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Credentials checks that the provider chain has a key and answers.
// A missing key is reported without a network call.
func Credentials(p Provider, critical bool) Probe {
	return Probe{
		Name:     "LLM credentials",
		Critical: critical,
		Timeout:  15 * time.Second,
		Check: func(ctx context.Context) error {
			if !p.Configured() {
				return llm.ErrMissingCredentials
			}
			return p.HealthCheck(ctx)
		},
	}
}

// Store checks that the itinerary store backend is reachable.
func Store(p Pinger) Probe {
	return Probe{
		Name:     "Itinerary store",
		Critical: true,
		Check:    p.Ping,
	}
}

// Run executes the probes concurrently, each under its own timeout.
// Results keep the order of probes.
func Run(ctx context.Context, probes []Probe) []Result {
	results := make([]Result, len(probes))
	var g errgroup.Group
	for i, p := range probes {
		g.Go(func() error {
			timeout := cmp.Or(p.Timeout, defaultTimeout)
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			err := p.Check(checkCtx)
			results[i] = Result{Probe: p, Error: err, Duration: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// AnalyzeResults logs one line per probe and joins the errors of failed critical probes.
func AnalyzeResults(results []Result) error {
	var critical []error
	for _, r := range results {
		attrs := []any{"probe", r.Probe.Name, "took", r.Duration.Round(time.Millisecond)}
		switch {
		case r.Error == nil:
			slog.Info("Startup: check passed", attrs...)
		case r.Probe.Critical:
			slog.Error("Startup: critical check failed", append(attrs, "error", r.Error)...)
			critical = append(critical, fmt.Errorf("%s: %w", r.Probe.Name, r.Error))
		default:
			slog.Warn("Startup: check failed", append(attrs, "error", r.Error)...)
		}
	}
	return errors.Join(critical...)
}
