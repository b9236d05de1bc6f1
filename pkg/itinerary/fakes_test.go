package itinerary

import (
	"context"
	"strings"
	"sync"
	"testing"

	"voyageai/pkg/llm"
	"voyageai/pkg/llm/prompts"
)

type fakeText struct {
	mu        sync.Mutex
	responses []string
	err       error
	unset     bool
	block     chan struct{}
	prompts   []llm.Prompt
	intents   []string
}

func (f *fakeText) GenerateText(ctx context.Context, intent string, p llm.Prompt) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	f.intents = append(f.intents, intent)
	idx := len(f.prompts) - 1
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

func (f *fakeText) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeText) Configured() bool                      { return !f.unset }

func (f *fakeText) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// fakeImages fails any prompt containing "fail" and blocks prompts containing "slow" until released.
type fakeImages struct {
	mu      sync.Mutex
	unset   bool
	release chan struct{}
	prompts []string
}

func (f *fakeImages) GenerateImage(ctx context.Context, prompt string, opts llm.ImageOptions) (llm.Image, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	release := f.release
	f.mu.Unlock()

	if strings.Contains(prompt, "slow") && release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return llm.Image{}, ctx.Err()
		}
	}
	if strings.Contains(prompt, "fail") {
		return llm.Image{}, context.DeadlineExceeded
	}
	return llm.Image{Data: []byte("img:" + prompt), MIMEType: "image/png"}, nil
}

func (f *fakeImages) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeImages) Configured() bool                      { return !f.unset }

func newBuilder(t *testing.T) *PromptBuilder {
	t.Helper()
	m, err := prompts.NewManager()
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return NewPromptBuilder(m, 0.7)
}

const kyotoResponse = "```json\n" + `{
  "summary": "Three days of temples and tea in Kyoto.",
  "accommodations": [
    {"name": "Hotel Kanra", "type": "Boutique Hotel", "description": "Modern machiya style.", "maps_link": "https://www.google.com/maps/search/?api=1&query=Hotel+Kanra+Kyoto"},
    {"name": "Piece Hostel Sanjo", "type": "Hostel", "description": "Social and central."},
    {"name": "Ryokan Yachiyo", "type": "Ryokan", "description": "Garden views near Nanzen-ji."}
  ],
  "itinerary": [
    {
      "day": 1,
      "title": "Temples at Dawn",
      "weather": {"high_temp": 18, "low_temp": 9, "summary": "Sunny"},
      "image_prompt": "misty temple at sunrise",
      "morning": [{"time": "8:00 AM", "name": "Fushimi Inari", "description": "Walk the torii gates."}],
      "afternoon": [{"time": "1:00 PM", "name": "Nishiki Market", "description": "Snack your way through."}],
      "evening": [{"time": "7:00 PM", "name": "Pontocho", "description": "Dinner by the river."}],
      "vibe_tags": ["⛩️ Shrines", "🍡 Snacks"]
    },
    {
      "day": 2,
      "title": "Bamboo and Tea",
      "weather": {"high_temp": 17.5, "low_temp": 10, "summary": "Cloudy"},
      "image_prompt": "bamboo grove, please fail",
      "morning": [{"time": "9:00 AM", "name": "Arashiyama Bamboo Grove", "description": "Go early."}],
      "afternoon": [],
      "evening": [{"time": "6:30 PM", "name": "Gion", "description": "Lantern-lit streets."}],
      "vibe_tags": ["🎋 Bamboo"]
    }
  ]
}` + "\n```"
