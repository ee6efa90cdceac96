package model

import "time"

// SourceDescriptor identifies one history source (a schedd)
type SourceDescriptor struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// Document is a normalized job ad: field name to scalar value
type Document map[string]interface{}

// IndexedDocument pairs a document with its idempotent id
type IndexedDocument struct {
	ID  string   `json:"id"`
	Doc Document `json:"doc"`
}

// Checkpoint maps source name to its watermark (epoch seconds)
type Checkpoint map[string]int64

// Copy returns an independent copy of the checkpoint
func (c Checkpoint) Copy() Checkpoint {
	out := make(Checkpoint, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// HarvestState is a state of the per-source harvester
type HarvestState string

const (
	StateInit           HarvestState = "INIT"
	StateQuery          HarvestState = "QUERY"
	StateStream         HarvestState = "STREAM"
	StateTimeout        HarvestState = "TIMEOUT"
	StateConnectorError HarvestState = "CONNECTOR_ERROR"
	StateSinkError      HarvestState = "SINK_ERROR"
	StateDone           HarvestState = "DONE"
	// StateAbandoned is assigned by the coordinator to sources still running
	// at the hard deadline.
	StateAbandoned HarvestState = "ABANDONED"
)

// Terminal reports whether no further transitions are possible
func (s HarvestState) Terminal() bool {
	switch s {
	case StateTimeout, StateConnectorError, StateSinkError, StateDone, StateAbandoned:
		return true
	}
	return false
}

// HarvestOutcome is the final report of one harvester
type HarvestOutcome struct {
	Source                  string        `json:"source"`
	State                   HarvestState  `json:"state"`
	StartWatermark          int64         `json:"start_watermark"`
	FinalWatermark          int64         `json:"final_watermark"`
	RecordCount             int           `json:"record_count"`
	DocumentsSent           int           `json:"documents_sent"`
	ConversionErrors        int           `json:"conversion_errors"`
	CompletedWithoutTimeout bool          `json:"completed_without_timeout"`
	Err                     error         `json:"-"`
	Error                   string        `json:"error,omitempty"`
	QueryDuration           time.Duration `json:"query_duration"`
	UploadDuration          time.Duration `json:"upload_duration"`
	Duration                time.Duration `json:"duration"`
}

// Run statuses
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// RunSummary describes one coordinator run
type RunSummary struct {
	RunID      string           `json:"run_id"`
	Status     string           `json:"status"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Sources    int              `json:"sources"`
	Completed  int              `json:"completed"`
	Failed     int              `json:"failed"`
	Abandoned  int              `json:"abandoned"`
	Records    int              `json:"records"`
	Error      string           `json:"error,omitempty"`
	Outcomes   []HarvestOutcome `json:"outcomes,omitempty"`
}
