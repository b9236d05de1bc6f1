package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"voyageai/pkg/model"
)

// ItineraryStore owns the saved itinerary collection, newest first.
// The whole collection is read and written as one value.
type ItineraryStore struct {
	backend StateStore
	now     func() time.Time
	newID   func() string

	mu      sync.Mutex
	items   []model.SavedItinerary
	warning string
}

func NewItineraryStore(backend StateStore) *ItineraryStore {
	return &ItineraryStore{
		backend: backend,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// Open loads the collection once at startup.
func (s *ItineraryStore) Open(ctx context.Context) error {
	_, err := s.Load(ctx)
	return err
}

// Load re-reads the collection. Corrupt data yields an empty (or partial) collection
// and a warning; only a failed read is an error.
func (s *ItineraryStore) Load(ctx context.Context) ([]model.SavedItinerary, error) {
	raw, found, err := s.backend.GetState(ctx, model.SavedItineraryKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read saved itineraries: %w", err)
	}

	var items []model.SavedItinerary
	var warning string
	if found && raw != "" {
		items, warning = decodeSaved(raw)
	}
	if warning != "" {
		slog.Warn("Store: saved itineraries are corrupt", "detail", warning, "kept", len(items))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.warning = warning
	return cloneAll(items), nil
}

// decodeSaved decodes the collection, skipping entries that do not decode.
func decodeSaved(raw string) ([]model.SavedItinerary, string) {
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Sprintf("saved itineraries could not be read and were reset: %v", err)
	}

	items := make([]model.SavedItinerary, 0, len(entries))
	skipped := 0
	for _, e := range entries {
		var it model.SavedItinerary
		if err := json.Unmarshal(e, &it); err != nil || it.ID == "" {
			skipped++
			continue
		}
		items = append(items, it)
	}
	if skipped > 0 {
		return items, fmt.Sprintf("%d saved itineraries could not be read and were skipped", skipped)
	}
	return items, ""
}

// Save replaces the whole collection.
func (s *ItineraryStore) Save(ctx context.Context, list []model.SavedItinerary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(ctx, cloneAll(list))
}

// Add saves a frozen copy of result with a fresh ID and the current time, as the first entry.
func (s *ItineraryStore) Add(ctx context.Context, req model.TripRequest, result *model.ItineraryResult) (model.SavedItinerary, error) {
	if result == nil {
		return model.SavedItinerary{}, fmt.Errorf("nothing to save")
	}
	entry := model.SavedItinerary{
		ID:        s.newID(),
		Timestamp: s.now(),
		Request:   req.Clone(),
		Result:    *result.Clone(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := append([]model.SavedItinerary{entry}, s.items...)
	if err := s.persist(ctx, next); err != nil {
		return model.SavedItinerary{}, err
	}
	slog.Info("Store: itinerary saved", "id", entry.ID, "destination", req.Destination, "total", len(next))
	return entry.Clone(), nil
}

// Remove deletes the entry with id.
func (s *ItineraryStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := lo.Reject(s.items, func(it model.SavedItinerary, _ int) bool { return it.ID == id })
	if len(next) == len(s.items) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	slog.Info("Store: itinerary deleted", "id", id, "total", len(next))
	return nil
}

// List returns a copy of the collection, newest first.
func (s *ItineraryStore) List() []model.SavedItinerary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.items)
}

// Get returns a copy of one entry.
func (s *ItineraryStore) Get(id string) (model.SavedItinerary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := lo.Find(s.items, func(it model.SavedItinerary) bool { return it.ID == id })
	if !ok {
		return model.SavedItinerary{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return it.Clone(), nil
}

// Warning returns the last non-fatal load problem, if any.
func (s *ItineraryStore) Warning() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.warning
}

// persist writes next and makes it current. The in-memory list is unchanged on failure. Caller holds s.mu.
func (s *ItineraryStore) persist(ctx context.Context, next []model.SavedItinerary) error {
	if next == nil {
		next = []model.SavedItinerary{}
	}
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode saved itineraries: %w", err)
	}
	if err := s.backend.SetState(ctx, model.SavedItineraryKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist saved itineraries: %w", err)
	}
	s.items = next
	return nil
}

func cloneAll(items []model.SavedItinerary) []model.SavedItinerary {
	out := make([]model.SavedItinerary, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}
