package pipeline

import (
	"sync"
	"time"

	"go-history-harvester/internal/model"
	"go-history-harvester/pkg/logger"
)

// Error types recorded by the tracker
const (
	errConversion = "conversion_error"
	errQuery      = "query_error"
	errStream     = "stream_error"
	errTimeout    = "timeout"
	errSink       = "sink_error"
	errAbandoned  = "abandoned"
	errCheckpoint = "checkpoint_error"
)

// RunTracker collects the metrics of one harvest run. Harvesters report
// flushes, errors and outcomes concurrently.
type RunTracker struct {
	mu      sync.RWMutex
	metrics model.RunMetrics
	log     logger.Logger
}

// NewRunTracker creates a new run tracker
func NewRunTracker(runID string, sources []model.SourceDescriptor, log logger.Logger) *RunTracker {
	if log == nil {
		log = logger.GetDefault()
	}
	t := &RunTracker{
		log: log,
		metrics: model.RunMetrics{
			RunID:         runID,
			StartTime:     time.Now(),
			Status:        model.RunRunning,
			Errors:        make([]model.ErrorDetail, 0),
			SourceMetrics: make(map[string]model.SourceMetrics),
		},
	}
	for _, src := range sources {
		t.metrics.SourceMetrics[src.Name] = model.SourceMetrics{Source: src.Name, State: model.StateInit}
	}
	return t
}

// RecordFlush accounts one batch delivery
func (t *RunTracker) RecordFlush(res model.FlushResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sm := t.metrics.SourceMetrics[res.Source]
	sm.Source = res.Source
	sm.Flushes++
	sm.UploadDuration += res.Duration
	if res.Success {
		sm.DocumentsSent += int64(res.Count)
		t.metrics.DocumentsSent += int64(res.Count)
	} else {
		sm.FailedFlushes++
		t.metrics.FailedFlushes++
	}
	t.metrics.SourceMetrics[res.Source] = sm
}

// RecordError records an error with its context
func (t *RunTracker) RecordError(source, errorType, message string) {
	detail := model.ErrorDetail{
		Timestamp: time.Now(),
		Source:    source,
		ErrorType: errorType,
		Message:   message,
		Severity:  determineSeverity(errorType),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics.Errors = append(t.metrics.Errors, detail)
	t.metrics.ErrorCount++
	if errorType == errConversion {
		t.metrics.ConversionErrors++
	}
	if source != "" {
		sm := t.metrics.SourceMetrics[source]
		sm.Source = source
		sm.ErrorCount++
		sm.LastError = message
		t.metrics.SourceMetrics[source] = sm
	}
	if detail.Severity == "critical" {
		t.log.Error("🚨 CRITICAL ERROR [%s]: %s", errorType, message)
	}
}

// RecordOutcome stores the final state of a source
func (t *RunTracker) RecordOutcome(o model.HarvestOutcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sm := t.metrics.SourceMetrics[o.Source]
	sm.Source = o.Source
	sm.State = o.State
	sm.Records = int64(o.RecordCount)
	sm.QueryDuration = o.QueryDuration
	sm.UploadDuration = o.UploadDuration
	t.metrics.SourceMetrics[o.Source] = sm
	t.metrics.TotalRecords += int64(o.RecordCount)
}

// Complete marks the run as finished with status
func (t *RunTracker) Complete(status string) model.RunMetrics {
	t.mu.Lock()
	now := time.Now()
	t.metrics.EndTime = &now
	t.metrics.Status = status
	t.metrics.Duration = now.Sub(t.metrics.StartTime)
	if t.metrics.Duration > 0 {
		t.metrics.RecordsPerSecond = float64(t.metrics.TotalRecords) / t.metrics.Duration.Seconds()
	}
	t.mu.Unlock()

	m := t.GetMetrics()
	t.log.Info("📊 Run %s %s in %v", m.RunID, m.Status, m.Duration.Round(time.Millisecond))
	t.log.Info("📊 Total records: %d, Sent: %d, Conversion errors: %d, Failed flushes: %d, Errors: %d",
		m.TotalRecords, m.DocumentsSent, m.ConversionErrors, m.FailedFlushes, m.ErrorCount)
	return m
}

// GetMetrics returns a copy of the current run metrics
func (t *RunTracker) GetMetrics() model.RunMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	m := t.metrics
	m.Errors = append([]model.ErrorDetail(nil), t.metrics.Errors...)
	m.SourceMetrics = make(map[string]model.SourceMetrics, len(t.metrics.SourceMetrics))
	for k, v := range t.metrics.SourceMetrics {
		m.SourceMetrics[k] = v
	}
	if t.metrics.EndTime != nil {
		end := *t.metrics.EndTime
		m.EndTime = &end
	}
	return m
}

// determineSeverity ranks harvester error types
func determineSeverity(errorType string) string {
	switch errorType {
	case errCheckpoint:
		return "critical"
	case errSink, errAbandoned:
		return "high"
	case errQuery, errStream, errTimeout:
		return "medium"
	default:
		return "low"
	}
}
