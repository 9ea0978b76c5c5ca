package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/trogers1052/stock-signal-service/internal/models"
	"github.com/trogers1052/stock-signal-service/internal/orchestrator"
)

// UpdateController starts, stops and reports the bulk update
type UpdateController interface {
	Start() bool
	Stop()
	Status() orchestrator.Status
}

// InstrumentReader loads one instrument
type InstrumentReader interface {
	Get(ctx context.Context, symbol string) (*models.Instrument, error)
}

// CacheDeleter evicts cached series
type CacheDeleter interface {
	Delete(ctx context.Context, symbol string) error
}

// RunHistory lists recent runs
type RunHistory interface {
	RecentRuns(ctx context.Context, limit int) ([]*models.RunRecord, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	updates     UpdateController
	instruments InstrumentReader
	cache       CacheDeleter
	runs        RunHistory
	logger      zerolog.Logger
}

// NewHandler creates a new Handler
func NewHandler(updates UpdateController, instruments InstrumentReader, cache CacheDeleter, runs RunHistory, logger zerolog.Logger) *Handler {
	return &Handler{
		updates:     updates,
		instruments: instruments,
		cache:       cache,
		runs:        runs,
		logger:      logger.With().Str("component", "api").Logger(),
	}
}

type startResponse struct {
	Started bool   `json:"started"`
	Status  string `json:"status"`
}

// StartUpdate handles POST /update/start
func (h *Handler) StartUpdate(w http.ResponseWriter, r *http.Request) {
	if !h.updates.Start() {
		respondJSON(w, http.StatusConflict, startResponse{Started: false, Status: "already_running"})
		return
	}
	h.logger.Info().Str("remote", r.RemoteAddr).Msg("update started via api")
	respondJSON(w, http.StatusAccepted, startResponse{Started: true, Status: "started"})
}

// StopUpdate handles POST /update/stop
func (h *Handler) StopUpdate(w http.ResponseWriter, r *http.Request) {
	h.updates.Stop()
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
}

// GetStatus handles GET /update/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.updates.Status())
}

// ListRuns handles GET /update/runs?limit=N
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusNotFound, "run history is not enabled")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	runs, err := h.runs.RecentRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list runs")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*models.RunRecord{}
	}
	respondJSON(w, http.StatusOK, runs)
}

// GetSnapshot handles GET /instruments/{symbol}/snapshot
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	symbol := symbolVar(r)

	inst, err := h.instruments.Get(r.Context(), symbol)
	if errors.Is(err, models.ErrNotFound) {
		respondError(w, http.StatusNotFound, "instrument not found: "+symbol)
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("symbol", symbol).Msg("failed to load instrument")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, inst)
}

// DeleteCache handles DELETE /instruments/{symbol}/cache
func (h *Handler) DeleteCache(w http.ResponseWriter, r *http.Request) {
	symbol := symbolVar(r)

	if err := h.cache.Delete(r.Context(), symbol); err != nil {
		h.logger.Error().Err(err).Str("symbol", symbol).Msg("failed to delete cached series")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func symbolVar(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(mux.Vars(r)["symbol"]))
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
