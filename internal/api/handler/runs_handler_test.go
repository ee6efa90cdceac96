package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-history-harvester/internal/checkpoint"
	"go-history-harvester/internal/model"
	"go-history-harvester/internal/store"
	"go-history-harvester/pkg/logger"
)

type fakeRuns struct {
	runs       []model.RunSummary
	alerts     []model.Alert
	err        error
	alertRunID string
}

func (f *fakeRuns) ListRuns(_ context.Context, limit int) ([]model.RunSummary, error) {
	if len(f.runs) > limit {
		return f.runs[:limit], f.err
	}
	return f.runs, f.err
}

func (f *fakeRuns) GetRun(_ context.Context, runID string) (*model.RunSummary, error) {
	for _, r := range f.runs {
		if r.RunID == runID {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("run %s: %w", runID, store.ErrNotFound)
}

func (f *fakeRuns) ListAlerts(_ context.Context, runID string, _ int) ([]model.Alert, error) {
	f.alertRunID = runID
	return f.alerts, f.err
}

type fakeTrigger struct {
	req  model.TriggerRequest
	err  error
	runs int
}

func (f *fakeTrigger) Trigger(req model.TriggerRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.req = req
	f.runs++
	return "run-new", nil
}

func newHandler(t *testing.T) (*Handler, *fakeRuns, *fakeTrigger, *checkpoint.FileStore) {
	t.Helper()
	cp, err := checkpoint.NewFileStore(filepath.Join(t.TempDir(), "checkpoint.json"))
	require.NoError(t, err)
	runs := &fakeRuns{runs: []model.RunSummary{
		{RunID: "r2", Status: model.RunCompleted},
		{RunID: "r1", Status: model.RunFailed, Outcomes: []model.HarvestOutcome{{Source: "s1", State: model.StateTimeout}}},
	}}
	trig := &fakeTrigger{}
	return &Handler{Runs: runs, Checkpoints: cp, Trigger: trig, Log: logger.NewDiscardLogger()}, runs, trig, cp
}

func serve(h http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestListRuns(t *testing.T) {
	h, runs, _, _ := newHandler(t)

	rec := serve(h.ListRuns, http.MethodGet, "/api/v1/runs?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []model.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "r2", got[0].RunID)

	runs.err = errors.New("db locked")
	rec = serve(h.ListRuns, http.MethodGet, "/api/v1/runs", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetRun(t *testing.T) {
	h, _, _, _ := newHandler(t)

	rec := serve(h.GetRun, http.MethodGet, "/api/v1/runs/r1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, model.RunFailed, got.Status)
	require.Len(t, got.Outcomes, 1)
	assert.Equal(t, model.StateTimeout, got.Outcomes[0].State)

	assert.Equal(t, http.StatusNotFound, serve(h.GetRun, http.MethodGet, "/api/v1/runs/nope", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(h.GetRun, http.MethodGet, "/api/v1/runs/", "").Code)
}

func TestGetRunAlerts(t *testing.T) {
	h, runs, _, _ := newHandler(t)
	runs.alerts = []model.Alert{{ID: 1, RunID: "r1", Subject: "timeout", Message: "late"}}

	rec := serve(h.GetRunAlerts, http.MethodGet, "/api/v1/runs/r1/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "r1", runs.alertRunID)

	var got struct {
		RunID  string        `json:"run_id"`
		Alerts []model.Alert `json:"alerts"`
		Count  int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, "late", got.Alerts[0].Message)
}

func TestListAlertsFilter(t *testing.T) {
	h, runs, _, _ := newHandler(t)

	rec := serve(h.ListAlerts, http.MethodGet, "/api/v1/alerts?run_id=r2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "r2", runs.alertRunID)

	serve(h.ListAlerts, http.MethodGet, "/api/v1/alerts", "")
	assert.Equal(t, "", runs.alertRunID)
}

func TestTriggerRun(t *testing.T) {
	h, _, trig, _ := newHandler(t)

	rec := serve(h.TriggerRun, http.MethodPost, "/api/v1/runs", `{"sources":["s1"],"read_only":true,"max_documents":5}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp model.TriggerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run-new", resp.RunID)
	assert.Equal(t, []string{"s1"}, trig.req.Sources)
	assert.True(t, trig.req.ReadOnly)
	assert.Equal(t, 5, trig.req.MaxDocuments)

	// an empty body uses the configured defaults
	rec = serve(h.TriggerRun, http.MethodPost, "/api/v1/runs", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 2, trig.runs)

	assert.Equal(t, http.StatusBadRequest, serve(h.TriggerRun, http.MethodPost, "/api/v1/runs", "{").Code)
	assert.Equal(t, http.StatusBadRequest, serve(h.TriggerRun, http.MethodPost, "/api/v1/runs", `{"max_documents":-1}`).Code)

	trig.err = ErrRunInProgress
	assert.Equal(t, http.StatusConflict, serve(h.TriggerRun, http.MethodPost, "/api/v1/runs", "").Code)
}

func TestListCheckpoints(t *testing.T) {
	h, _, _, cp := newHandler(t)
	ctx := context.Background()
	require.NoError(t, cp.MergeAndPersist(ctx, "schedd-b", 1700000000))
	require.NoError(t, cp.MergeAndPersist(ctx, "schedd-a", 1600000000))

	rec := serve(h.ListCheckpoints, http.MethodGet, "/api/v1/checkpoints", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []model.CheckpointEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "schedd-a", got[0].Source)
	assert.Equal(t, int64(1600000000), got[0].Watermark)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), got[1].WatermarkTime)
}
