package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/steamdash/internal/domain"
	"github.com/steamdash/internal/library"
)

// Handler provides HTTP handlers for the dashboard API
type Handler struct {
	orchestrator *library.Orchestrator
	logger       *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(orchestrator *library.Orchestrator, logger *slog.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/library", func(r chi.Router) {
			r.Get("/", h.GetLibrary)
			r.Post("/more", h.LoadMore)
			r.Post("/resync", h.FullResync)
			r.Delete("/", h.ClearAll)
			r.Get("/stats", h.GetLibraryStats)
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/genres", h.GetGenres)
			r.Get("/unlocks", h.GetUnlockPatterns)
			r.Get("/completion", h.GetCompletion)
		})

		r.Get("/achievements/recent", h.GetRecentAchievements)
		r.Get("/profile", h.GetProfile)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// writeDomainError maps domain errors to HTTP status codes
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrMissingIdentity), errors.Is(err, domain.ErrInvalidRequest):
		h.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrNoMoreGames):
		h.writeError(w, http.StatusConflict, err)
	case domain.IsNotFoundError(err):
		h.writeError(w, http.StatusNotFound, err)
	default:
		h.logger.Error("request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
	}
}

// steamID extracts the identity from the request. Identity is
// obtained by the out-of-scope login collaborator; here it arrives as
// a query parameter.
func steamID(r *http.Request) string {
	return r.URL.Query().Get("steam_id")
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// GetLibrary returns the current library view, running a fresh-load
// if this identity has none yet
func (h *Handler) GetLibrary(w http.ResponseWriter, r *http.Request) {
	id := steamID(r)

	view, err := h.orchestrator.View(id)
	if errors.Is(err, domain.ErrLibraryNotFound) {
		view, err = h.orchestrator.FreshLoad(r.Context(), id)
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeSuccess(w, view)
}

// LoadMore appends the next page of games to the displayed set
func (h *Handler) LoadMore(w http.ResponseWriter, r *http.Request) {
	view, err := h.orchestrator.LoadMore(r.Context(), steamID(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, view)
}

// FullResync re-fetches the entire library, bypassing all caches
func (h *Handler) FullResync(w http.ResponseWriter, r *http.Request) {
	view, err := h.orchestrator.FullResync(r.Context(), steamID(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, view)
}

// ClearAll wipes all locally cached data
func (h *Handler) ClearAll(w http.ResponseWriter, r *http.Request) {
	if err := h.orchestrator.ClearAll(r.Context()); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "cleared"})
}

// GetLibraryStats returns the whole-library aggregates
func (h *Handler) GetLibraryStats(w http.ResponseWriter, r *http.Request) {
	view, err := h.orchestrator.View(steamID(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, view.Stats)
}

// GetGenres returns the genre-distribution chart data
func (h *Handler) GetGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.orchestrator.GenreDistribution(steamID(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, genres)
}

// GetUnlockPatterns returns the unlock time-of-day/day-of-week chart
// data
func (h *Handler) GetUnlockPatterns(w http.ResponseWriter, r *http.Request) {
	patterns, err := h.orchestrator.UnlockPatterns(steamID(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, patterns)
}

// GetCompletion returns per-game completion ratios
func (h *Handler) GetCompletion(w http.ResponseWriter, r *http.Request) {
	completion, err := h.orchestrator.Completion(steamID(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, completion)
}

// GetRecentAchievements returns the recent-achievements feed
func (h *Handler) GetRecentAchievements(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			h.writeDomainError(w, fmt.Errorf("limit %q: %w", limitStr, domain.ErrInvalidRequest))
			return
		}
		limit = l
	}

	feed, err := h.orchestrator.RecentAchievements(steamID(r), limit)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, feed)
}

// GetProfile returns the player profile summary
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.orchestrator.Profile(r.Context(), steamID(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, profile)
}
