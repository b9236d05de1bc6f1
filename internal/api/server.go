package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"voyageai/pkg/logging"
	"voyageai/pkg/model"
	"voyageai/pkg/version"
)

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Itinerary *ItineraryHandler
	Saved     *SavedHandler
	Stats     *StatsHandler
}

// NewRouter builds the HTTP routing tree.
// Middleware runs in order: RequestID, RealIP, request log, Recoverer, CORS.
// shutdown may be nil, in which case the shutdown endpoint is not registered.
func NewRouter(allowedOrigins []string, h Handlers, shutdown func()) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(NewSlogLogger(logging.RequestLogger))
	r.Use(chimiddleware.Recoverer)
	r.Use(NewCORSHandler(allowedOrigins))

	r.Get("/health", handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", handleVersion)
		r.Get("/options", handleOptions)
		r.Get("/log/latest", handleLatestLog)
		if h.Stats != nil {
			r.Method(http.MethodGet, "/stats", h.Stats)
		}

		r.Route("/itinerary", func(r chi.Router) {
			r.Post("/", h.Itinerary.HandleGenerate)
			r.Get("/", h.Itinerary.HandleGet)
			r.Get("/wait", h.Itinerary.HandleWait)
			r.Put("/summary", h.Itinerary.HandleSummary)
			r.Post("/days/{day}/activities", h.Itinerary.HandleActivities)
			r.Get("/export", h.Itinerary.HandleExport)
			r.Get("/stream", h.Itinerary.HandleStream)
		})

		r.Route("/saved", func(r chi.Router) {
			r.Get("/", h.Saved.HandleList)
			r.Post("/", h.Saved.HandleSave)
			r.Get("/{id}", h.Saved.HandleGet)
			r.Delete("/{id}", h.Saved.HandleDelete)
			r.Post("/{id}/view", h.Saved.HandleView)
		})

		if shutdown != nil {
			r.Post("/shutdown", func(w http.ResponseWriter, r *http.Request) {
				slog.Info("Graceful shutdown initiated via API")
				w.WriteHeader(http.StatusAccepted)
				if _, err := w.Write([]byte("Shutting down...")); err != nil {
					slog.Error("Failed to write shutdown response", "error", err)
				}
				// Let the response flush before the listener closes.
				go func() {
					time.Sleep(100 * time.Millisecond)
					shutdown()
				}()
			})
		}
	})

	return r
}

// NewServer wraps handler in an http.Server.
// There is no write timeout: generation, wait and stream requests stay open for minutes.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.Get())
}

func handleOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.AllOptions())
}

// writeJSON writes v with the given status. Encoding errors can only be logged.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
