package failover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"voyageai/pkg/llm"
	"voyageai/pkg/tracker"
)

// Entry is one named provider in a chain.
type Entry[T any] struct {
	Name string
	Gen  T
}

type backend interface {
	Configured() bool
	HealthCheck(ctx context.Context) error
}

// Provider wraps ordered text and image providers and falls through on failure.
// Each provider is called at most once per request.
type Provider struct {
	text     []Entry[llm.TextGenerator]
	images   []Entry[llm.ImageGenerator]
	disabled map[string]bool          // key: kind:providerName
	backoffs map[string]*backoffState // key: providerName:intent
	logPath  string
	tracker  *tracker.Tracker
	mu       sync.RWMutex
}

type backoffState struct {
	subsequentFailures int
	skippedRequests    int
}

const (
	kindText  = "text"
	kindImage = "image"
)

// New creates a new Provider with failover and unified prompt logging.
// An empty logPath disables the prompt history.
func New(text []Entry[llm.TextGenerator], images []Entry[llm.ImageGenerator], logPath string, t *tracker.Tracker) (*Provider, error) {
	if len(text) == 0 {
		return nil, fmt.Errorf("at least one text provider required for failover")
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("at least one image provider required for failover")
	}
	return &Provider{
		text:     text,
		images:   images,
		disabled: make(map[string]bool),
		backoffs: make(map[string]*backoffState),
		logPath:  logPath,
		tracker:  t,
	}, nil
}

// GenerateText implements llm.TextGenerator.
func (f *Provider) GenerateText(ctx context.Context, intent string, p llm.Prompt) (string, error) {
	return execute(ctx, f, kindText, intent, p.Text, f.text, func(g llm.TextGenerator) (string, error) {
		return g.GenerateText(ctx, intent, p)
	}, func(s string) string { return s })
}

// GenerateImage implements llm.ImageGenerator.
func (f *Provider) GenerateImage(ctx context.Context, prompt string, opts llm.ImageOptions) (llm.Image, error) {
	return execute(ctx, f, kindImage, kindImage, prompt, f.images, func(g llm.ImageGenerator) (llm.Image, error) {
		return g.GenerateImage(ctx, prompt, opts)
	}, func(img llm.Image) string {
		return fmt.Sprintf("<%d bytes %s>", len(img.Data), img.MIMEType)
	})
}

// Configured reports whether any text provider has credentials.
func (f *Provider) Configured() bool {
	return anyConfigured(f.text)
}

// ImagesConfigured reports whether any image provider has credentials.
func (f *Provider) ImagesConfigured() bool {
	return anyConfigured(f.images)
}

func anyConfigured[T backend](chain []Entry[T]) bool {
	for _, e := range chain {
		if e.Gen.Configured() {
			return true
		}
	}
	return false
}

// HealthCheck verifies that at least one text provider is healthy.
func (f *Provider) HealthCheck(ctx context.Context) error {
	return healthCheck(ctx, f, kindText, f.text)
}

// Images returns a view of the chain that satisfies llm.ImageGenerator on its own.
func (f *Provider) Images() llm.ImageGenerator { return imageView{f} }

type imageView struct{ f *Provider }

func (v imageView) GenerateImage(ctx context.Context, prompt string, opts llm.ImageOptions) (llm.Image, error) {
	return v.f.GenerateImage(ctx, prompt, opts)
}
func (v imageView) HealthCheck(ctx context.Context) error {
	return healthCheck(ctx, v.f, kindImage, v.f.images)
}
func (v imageView) Configured() bool { return v.f.ImagesConfigured() }

func healthCheck[T backend](ctx context.Context, f *Provider, kind string, chain []Entry[T]) error {
	var errs []string
	for _, e := range chain {
		if f.isDisabled(kind, e.Name) || !e.Gen.Configured() {
			continue
		}
		if err := e.Gen.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", e.Name, err))
			continue
		}
		return nil // At least one is healthy
	}

	if len(errs) == 0 {
		return llm.ErrMissingCredentials
	}
	return fmt.Errorf("all %s providers failed health check: %s", kind, strings.Join(errs, "; "))
}

func (f *Provider) isDisabled(kind, name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.disabled[kind+":"+name]
}

// execute runs fn against the chain, trying each usable provider once.
func execute[T backend, R any](ctx context.Context, f *Provider, kind, intent, prompt string, chain []Entry[T], fn func(T) (R, error), describe func(R) string) (R, error) {
	var zero R

	var candidates []Entry[T]
	for _, e := range chain {
		if !e.Gen.Configured() {
			continue
		}
		// Circuit breaker
		if f.isDisabled(kind, e.Name) {
			continue
		}
		candidates = append(candidates, e)
	}

	if len(candidates) == 0 {
		return zero, llm.ErrMissingCredentials
	}

	var lastErr error
	for idx, c := range candidates {
		isLast := idx == len(candidates)-1

		// Smart backoff: a provider that keeps failing sits out a growing number of
		// requests, unless it is the only option left.
		backoffKey := c.Name + ":" + intent
		f.mu.Lock()
		bs, exists := f.backoffs[backoffKey]
		if exists && !isLast && bs.skippedRequests < bs.subsequentFailures {
			bs.skippedRequests++
			slog.Debug("LLM Provider in backoff, skipping", "provider", c.Name, "intent", intent, "skipped", bs.skippedRequests, "target", bs.subsequentFailures)
			f.mu.Unlock()
			f.trackSkip(c.Name)
			continue
		}
		f.mu.Unlock()

		start := time.Now()
		res, err := fn(c.Gen)
		if err == nil {
			f.mu.Lock()
			delete(f.backoffs, backoffKey)
			f.mu.Unlock()

			f.logRequest(c.Name, intent, prompt, describe(res), time.Since(start), nil)
			return res, nil
		}

		lastErr = err
		f.logRequest(c.Name, intent, prompt, "", time.Since(start), err)

		// The caller gave up; this says nothing about the provider.
		if ctx.Err() != nil {
			return zero, err
		}

		if isUnrecoverable(err) {
			if isLast {
				return zero, err
			}
			slog.Warn("LLM Provider fatal error, disabling for the session", "provider", c.Name, "kind", kind, "error", err)
			f.mu.Lock()
			f.disabled[kind+":"+c.Name] = true
			f.mu.Unlock()
			continue
		}

		f.mu.Lock()
		bs, exists = f.backoffs[backoffKey]
		if !exists {
			bs = &backoffState{}
			f.backoffs[backoffKey] = bs
		}
		bs.subsequentFailures++
		bs.skippedRequests = 0
		failures := bs.subsequentFailures
		f.mu.Unlock()

		if isLast {
			return zero, err
		}
		slog.Info("LLM Provider failed (retryable), falling back", "provider", c.Name, "next", candidates[idx+1].Name, "error", err, "backoff_failures", failures)
	}

	if lastErr != nil {
		return zero, lastErr
	}
	return zero, fmt.Errorf("all %s providers exhausted for intent %q", kind, intent)
}

func (f *Provider) trackSkip(name string) {
	if f.tracker != nil {
		f.tracker.TrackSkip(name)
	}
}

func (f *Provider) logRequest(providerName, intent, prompt, response string, took time.Duration, err error) {
	if f.logPath == "" {
		return
	}

	if mkErr := os.MkdirAll(filepath.Dir(f.logPath), 0o755); mkErr != nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	file, fErr := os.OpenFile(f.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if fErr != nil {
		return
	}
	defer file.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	var entry string

	if err != nil {
		// Failed requests only record that they happened and why.
		entry = fmt.Sprintf("[%s][%s] ERROR: %s - %v (%s)\n%s\n",
			timestamp, strings.ToUpper(providerName), intent, err, took.Round(time.Millisecond), strings.Repeat("-", 80))
	} else {
		wrappedResponse := llm.WordWrap(response, 80)
		truncatedPrompt := llm.TruncateLines(prompt, 160)

		entry = fmt.Sprintf("[%s][%s] PROMPT: %s (%s)\nPROMPT_TEXT:\n%s\n\nRESPONSE:\n%s\n%s\n",
			timestamp, strings.ToUpper(providerName), intent, took.Round(time.Millisecond), truncatedPrompt, wrappedResponse, strings.Repeat("-", 80))
	}

	_, _ = file.WriteString(entry)
}

// isUnrecoverable identifies errors that should trigger a circuit break (unless it's the last provider).
func isUnrecoverable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, llm.ErrMissingCredentials) {
		return true
	}
	msg := strings.ToLower(err.Error())
	// 401: Unauthorized (Invalid Key)
	// 403: Forbidden (Disabled Key / Restricted Access)
	// 429 and 400 are NOT fatal: they can be quota or prompt specific.
	return strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") || strings.Contains(msg, "unauthenticated") ||
		strings.Contains(msg, "forbidden") || strings.Contains(msg, "permission_denied") ||
		strings.Contains(msg, "invalid_api_key") || strings.Contains(msg, "api key not valid")
}
