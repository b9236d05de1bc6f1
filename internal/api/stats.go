package api

import (
	"net/http"
	"runtime"
	"sync"

	"voyageai/pkg/tracker"
)

// SessionCounter reports the number of live planning sessions.
type SessionCounter interface {
	Len() int
}

type StatsHandler struct {
	tracker     *tracker.Tracker
	sessions    SessionCounter
	llmFallback []string

	mu      sync.Mutex
	maxHeap uint64
}

func NewStatsHandler(t *tracker.Tracker, sessions SessionCounter, fallback []string) *StatsHandler {
	return &StatsHandler{
		tracker:     t,
		sessions:    sessions,
		llmFallback: fallback,
	}
}

type ProviderStatsDTO struct {
	APISuccess    int64 `json:"api_success"`
	APIFailures   int64 `json:"api_errors"`
	Skipped       int64 `json:"skipped"`
	LastLatencyMS int64 `json:"last_latency_ms"`
	AvgLatencyMS  int64 `json:"avg_latency_ms"`
	// SuccessRate is the percentage of successful calls, 0 when there were none.
	SuccessRate int64 `json:"success_rate"`
}

type Diagnostics struct {
	HeapMB     uint64 `json:"heap_mb"`
	HeapMaxMB  uint64 `json:"heap_max_mb"`
	Goroutines int    `json:"goroutines"`
}

type StatsResponse struct {
	Diagnostics Diagnostics                 `json:"diagnostics"`
	Sessions    int                         `json:"sessions"`
	Providers   map[string]ProviderStatsDTO `json:"providers"`
	LLMFallback []string                    `json:"llm_fallback"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot := h.tracker.Snapshot()

	resp := StatsResponse{
		Diagnostics: h.gatherDiagnostics(),
		Providers:   make(map[string]ProviderStatsDTO, len(snapshot)),
		LLMFallback: h.llmFallback,
	}
	if h.sessions != nil {
		resp.Sessions = h.sessions.Len()
	}

	for provider, stats := range snapshot {
		total := stats.APISuccess + stats.APIFailures
		rate := int64(0)
		if total > 0 {
			rate = (stats.APISuccess * 100) / total
		}
		resp.Providers[provider] = ProviderStatsDTO{
			APISuccess:    stats.APISuccess,
			APIFailures:   stats.APIFailures,
			Skipped:       stats.Skipped,
			LastLatencyMS: stats.LastLatencyMS,
			AvgLatencyMS:  stats.AvgLatencyMS,
			SuccessRate:   rate,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *StatsHandler) gatherDiagnostics() Diagnostics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	h.mu.Lock()
	if ms.HeapAlloc > h.maxHeap {
		h.maxHeap = ms.HeapAlloc
	}
	peak := h.maxHeap
	h.mu.Unlock()

	return Diagnostics{
		HeapMB:     bToMb(ms.HeapAlloc),
		HeapMaxMB:  bToMb(peak),
		Goroutines: runtime.NumGoroutine(),
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
