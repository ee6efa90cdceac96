package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go-history-harvester/internal/checkpoint"
	"go-history-harvester/internal/model"
	"go-history-harvester/internal/store"
	"go-history-harvester/pkg/logger"
)

// ErrRunInProgress is returned by a Trigger while another run is active.
var ErrRunInProgress = errors.New("a harvest run is already in progress")

// RunStore is the read side of the run database.
type RunStore interface {
	ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error)
	GetRun(ctx context.Context, runID string) (*model.RunSummary, error)
	ListAlerts(ctx context.Context, runID string, limit int) ([]model.Alert, error)
}

// Trigger starts a harvest run in the background and returns its id.
type Trigger interface {
	Trigger(req model.TriggerRequest) (string, error)
}

// Handler serves the status API.
type Handler struct {
	Runs        RunStore
	Checkpoints checkpoint.Store
	Trigger     Trigger
	Log         logger.Logger
}

const runsPrefix = "/api/v1/runs/"

// ListRuns retrieves the latest harvest runs
// @Summary List runs
// @Description Get the latest harvest runs, newest first, without per-source outcomes
// @Tags runs
// @Produce json
// @Param limit query int false "Maximum number of runs" default(50)
// @Success 200 {array} model.RunSummary
// @Failure 500 {string} string "Internal server error"
// @Router /runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Runs.ListRuns(r.Context(), queryLimit(r, 50))
	if err != nil {
		h.fail(w, "Failed to fetch runs", err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun retrieves one run with its outcomes
// @Summary Get run
// @Description Retrieve a harvest run and the final state of every source
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} model.RunSummary
// @Failure 400 {string} string "Run ID is required"
// @Failure 404 {string} string "Run not found"
// @Router /runs/{id} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimPrefix(r.URL.Path, runsPrefix)
	if runID == "" || strings.Contains(runID, "/") {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return
	}

	run, err := h.Runs.GetRun(r.Context(), runID)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.fail(w, "Failed to fetch run", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// GetRunAlerts retrieves the alerts raised by one run
// @Summary Get run alerts
// @Description Retrieve the alerts a harvest run raised
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {string} string "Run ID is required"
// @Router /runs/{id}/alerts [get]
func (h *Handler) GetRunAlerts(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, runsPrefix)
	runID := strings.TrimSuffix(path, "/alerts")
	if runID == "" || runID == path {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return
	}
	h.writeAlerts(w, r, runID)
}

// TriggerRun starts a harvest run
// @Summary Trigger a run
// @Description Start a harvest run in the background. Only one run may be active at a time.
// @Tags runs
// @Accept json
// @Produce json
// @Param request body model.TriggerRequest false "Run options"
// @Success 202 {object} model.TriggerResponse
// @Failure 400 {string} string "Invalid JSON payload"
// @Failure 409 {string} string "A run is already in progress"
// @Router /runs [post]
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req model.TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.MaxDocuments < 0 {
		http.Error(w, "max_documents must not be negative", http.StatusBadRequest)
		return
	}

	runID, err := h.Trigger.Trigger(req)
	if errors.Is(err, ErrRunInProgress) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		h.fail(w, "Failed to start run", err)
		return
	}

	h.logger().Info("▶️ Run %s triggered over HTTP", runID)
	writeJSON(w, http.StatusAccepted, model.TriggerResponse{
		RunID:   runID,
		Message: "Harvest run started",
	})
}

// ListCheckpoints returns the persisted watermark of every source
// @Summary List checkpoints
// @Description Get the watermark each source will resume from
// @Tags checkpoints
// @Produce json
// @Success 200 {array} model.CheckpointEntry
// @Failure 500 {string} string "Internal server error"
// @Router /checkpoints [get]
func (h *Handler) ListCheckpoints(w http.ResponseWriter, r *http.Request) {
	cp, err := h.Checkpoints.LoadAll(r.Context())
	if err != nil {
		h.fail(w, "Failed to load checkpoint", err)
		return
	}

	entries := make([]model.CheckpointEntry, 0, len(cp))
	for name, wm := range cp {
		entries = append(entries, model.CheckpointEntry{
			Source:        name,
			Watermark:     wm,
			WatermarkTime: time.Unix(wm, 0).UTC(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Source < entries[j].Source })
	writeJSON(w, http.StatusOK, entries)
}

// ListAlerts returns the latest alerts
// @Summary List alerts
// @Description Get the latest alerts, optionally for one run
// @Tags alerts
// @Produce json
// @Param run_id query string false "Restrict to one run"
// @Param limit query int false "Maximum number of alerts" default(100)
// @Success 200 {object} map[string]interface{}
// @Router /alerts [get]
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	h.writeAlerts(w, r, r.URL.Query().Get("run_id"))
}

func (h *Handler) writeAlerts(w http.ResponseWriter, r *http.Request, runID string) {
	limit := queryLimit(r, 100)
	alerts, err := h.Runs.ListAlerts(r.Context(), runID, limit)
	if err != nil {
		h.fail(w, "Failed to fetch alerts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": runID,
		"alerts": alerts,
		"count":  len(alerts),
		"limit":  limit,
	})
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger().Error("❌ %s: %v", msg, err)
	http.Error(w, msg, http.StatusInternalServerError)
}

func (h *Handler) logger() logger.Logger {
	if h.Log == nil {
		return logger.GetDefault()
	}
	return h.Log
}

func queryLimit(r *http.Request, fallback int) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
