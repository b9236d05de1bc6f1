package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"voyageai/pkg/config"
	"voyageai/pkg/export"
	"voyageai/pkg/itinerary"
	"voyageai/pkg/model"
)

const (
	maxBodyBytes = 1 << 20
	maxWait      = 10 * time.Minute

	streamWriteWait    = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

// ItineraryHandler serves the current planning session's itinerary.
type ItineraryHandler struct {
	sessions *Sessions
	upgrader websocket.Upgrader
	now      func() time.Time
}

// NewItineraryHandler creates the handler. Websocket connections are accepted from
// allowedOrigins, or from anywhere when the list contains "*".
func NewItineraryHandler(sessions *Sessions, allowedOrigins []string) *ItineraryHandler {
	return &ItineraryHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || lo.Contains(allowedOrigins, "*") || lo.Contains(allowedOrigins, origin)
			},
		},
		now: time.Now,
	}
}

// HandleGenerate starts a generation and answers once the text phase settles.
// POST /api/itinerary
func (h *ItineraryHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	o, ok := orchestratorFor(h.sessions, w, r)
	if !ok {
		return
	}

	var req model.TripRequest
	if !decodeBody(w, r, &req) {
		return
	}

	snap, err := o.Generate(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, snap)
	case isValidation(err):
		writeError(w, http.StatusUnprocessableEntity, codeValidation, validationMessage(err))
	case errors.Is(err, itinerary.ErrSuperseded):
		writeError(w, http.StatusConflict, codeSuperseded, "a newer itinerary request replaced this one")
	case snap.Failure != nil && snap.Failure.Reason == itinerary.ReasonConfiguration:
		writeJSON(w, http.StatusServiceUnavailable, snap)
	case snap.Failure != nil:
		writeJSON(w, http.StatusBadGateway, snap)
	default:
		slog.Error("Itinerary: unexpected generate error", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to generate itinerary")
	}
}

// HandleGet returns the current snapshot.
// GET /api/itinerary
func (h *ItineraryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	o, ok := orchestratorFor(h.sessions, w, r)
	if !ok {
		return
	}
	snap := o.Snapshot()
	if snap.State == itinerary.StateIdle {
		writeError(w, http.StatusNotFound, codeNotFound, "no itinerary has been generated yet")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleWait blocks until the current generation is Complete or Failed.
// An optional timeout query parameter ("30s") bounds the wait.
// GET /api/itinerary/wait
func (h *ItineraryHandler) HandleWait(w http.ResponseWriter, r *http.Request) {
	o, ok := orchestratorFor(h.sessions, w, r)
	if !ok {
		return
	}

	timeout := maxWait
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		d, err := config.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Sprintf("invalid timeout %q", raw))
			return
		}
		timeout = min(d, maxWait)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	snap, err := o.Wait(ctx)
	if err != nil {
		writeError(w, http.StatusGatewayTimeout, codeTimeout, "itinerary is still being enriched")
		return
	}
	if snap.State == itinerary.StateIdle {
		writeError(w, http.StatusNotFound, codeNotFound, "no itinerary has been generated yet")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type summaryRequest struct {
	Summary *string `json:"summary"`
}

// HandleSummary replaces the summary with the user's edit.
// PUT /api/itinerary/summary
func (h *ItineraryHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	o, ok := orchestratorFor(h.sessions, w, r)
	if !ok {
		return
	}

	var body summaryRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Summary == nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "summary is required")
		return
	}

	snap, err := o.SetSummary(*body.Summary)
	if err != nil {
		writeError(w, http.StatusConflict, codeNotReady, "there is no itinerary to edit")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type activitiesResponse struct {
	Added []model.PeriodActivity `json:"added"`
	Day   model.ItineraryDay     `json:"day"`
}

// HandleActivities appends AI-suggested activities to one day.
// POST /api/itinerary/days/{day}/activities
func (h *ItineraryHandler) HandleActivities(w http.ResponseWriter, r *http.Request) {
	o, ok := orchestratorFor(h.sessions, w, r)
	if !ok {
		return
	}

	dayIndex, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "day must be an integer")
		return
	}

	added, day, err := o.AddMoreActivities(r.Context(), dayIndex)
	switch {
	case err == nil:
		if added == nil {
			added = []model.PeriodActivity{}
		}
		writeJSON(w, http.StatusOK, activitiesResponse{Added: added, Day: day})
	case errors.Is(err, itinerary.ErrNotReady):
		writeError(w, http.StatusConflict, codeNotReady, "activities can be added once the itinerary is complete")
	case errors.Is(err, itinerary.ErrSuperseded):
		writeError(w, http.StatusConflict, codeSuperseded, "the itinerary changed while activities were being added")
	case errors.Is(err, itinerary.ErrDayNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, fmt.Sprintf("day %d not found", dayIndex))
	case errors.Is(err, itinerary.ErrAugmentation):
		writeError(w, http.StatusBadGateway, codeAugmentation, "Could not add more activities. Please try again.")
	default:
		slog.Error("Itinerary: unexpected add-activities error", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to add activities")
	}
}

// HandleExport downloads the current itinerary as txt, ics, pdf or json.
// GET /api/itinerary/export?format=txt
func (h *ItineraryHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	o, ok := orchestratorFor(h.sessions, w, r)
	if !ok {
		return
	}

	req, result, ok := o.Current()
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "no itinerary has been generated yet")
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	switch format {
	case "", "txt":
		attachment(w, "text/plain; charset=utf-8", "itinerary.txt", []byte(export.Text(result)))
	case "ics":
		cal, err := export.ICal(req, result, h.now())
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, codeValidation, err.Error())
			return
		}
		attachment(w, "text/calendar; charset=utf-8", "itinerary.ics", []byte(cal))
	case "pdf":
		var buf bytes.Buffer
		if err := export.PDF(&buf, req, result); err != nil {
			slog.Error("Export: PDF rendering failed", "error", err)
			writeError(w, http.StatusInternalServerError, codeInternal, "failed to render PDF")
			return
		}
		attachment(w, "application/pdf", "itinerary.pdf", buf.Bytes())
	case "json":
		writeJSON(w, http.StatusOK, result)
	default:
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Sprintf("unknown export format %q", format))
	}
}

// HandleStream pushes a snapshot over a websocket on every change of the session's itinerary.
// GET /api/itinerary/stream?session=<id>
func (h *ItineraryHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	o, ok := orchestratorFor(h.sessions, w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		slog.Debug("Stream: upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, cancel := o.Subscribe()
	defer cancel()

	// Drain client frames so close and pong messages are processed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(snap); err != nil {
				slog.Debug("Stream: write failed", "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func attachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if _, err := w.Write(body); err != nil {
		slog.Error("Failed to write export", "error", err)
	}
}

// decodeBody reads a JSON body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeBadRequest, "request body is too large")
			return false
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
