package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"voyageai/pkg/model"
	"voyageai/pkg/store"
)

// SavedHandler serves the saved-itinerary collection.
type SavedHandler struct {
	store    *store.ItineraryStore
	sessions *Sessions
}

func NewSavedHandler(st *store.ItineraryStore, sessions *Sessions) *SavedHandler {
	return &SavedHandler{store: st, sessions: sessions}
}

type savedListResponse struct {
	Items   []model.SavedItinerary `json:"items"`
	Warning string                 `json:"warning,omitempty"`
}

// HandleList returns saved itineraries, newest first, plus any load warning.
// GET /api/saved
func (h *SavedHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	items := h.store.List()
	if items == nil {
		items = []model.SavedItinerary{}
	}
	writeJSON(w, http.StatusOK, savedListResponse{Items: items, Warning: h.store.Warning()})
}

// HandleSave freezes the session's current itinerary into the collection.
// POST /api/saved
func (h *SavedHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	o, ok := orchestratorFor(h.sessions, w, r)
	if !ok {
		return
	}

	req, result, ok := o.Current()
	if !ok {
		writeError(w, http.StatusConflict, codeNotReady, "there is no itinerary to save")
		return
	}

	saved, err := h.store.Add(r.Context(), req, result)
	if err != nil {
		slog.Error("Saved: failed to save itinerary", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to save itinerary")
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// HandleGet returns one saved itinerary.
// GET /api/saved/{id}
func (h *SavedHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	saved, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// HandleDelete removes a saved itinerary.
// DELETE /api/saved/{id}
func (h *SavedHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.store.Remove(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "saved itinerary not found")
	default:
		slog.Error("Saved: failed to delete itinerary", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to delete itinerary")
	}
}

// HandleView makes a saved itinerary the session's current one.
// POST /api/saved/{id}/view
func (h *SavedHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	o, ok := orchestratorFor(h.sessions, w, r)
	if !ok {
		return
	}
	saved, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, o.Restore(saved))
}

func (h *SavedHandler) lookup(w http.ResponseWriter, r *http.Request) (model.SavedItinerary, bool) {
	saved, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound, "saved itinerary not found")
		} else {
			writeError(w, http.StatusInternalServerError, codeInternal, "failed to read saved itinerary")
		}
		return model.SavedItinerary{}, false
	}
	return saved, true
}
