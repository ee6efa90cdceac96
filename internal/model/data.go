package model

import "time"

// FlushResult represents the result of one batch delivery to the sink
type FlushResult struct {
	Source    string        `json:"source"`
	Partition string        `json:"partition"`
	Count     int           `json:"count"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// Alert is a notification persisted for the status API
type Alert struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// CheckpointEntry is one row of the checkpoint view
type CheckpointEntry struct {
	Source        string    `json:"source"`
	Watermark     int64     `json:"watermark"`
	WatermarkTime time.Time `json:"watermark_time"`
}
