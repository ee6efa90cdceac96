package model

import "time"

// RunMetrics represents overall metrics of one harvest run
type RunMetrics struct {
	RunID            string                   `json:"run_id"`
	StartTime        time.Time                `json:"start_time"`
	EndTime          *time.Time               `json:"end_time,omitempty"`
	Duration         time.Duration            `json:"duration"`
	Status           string                   `json:"status"`
	TotalRecords     int64                    `json:"total_records"`
	DocumentsSent    int64                    `json:"documents_sent"`
	ConversionErrors int64                    `json:"conversion_errors"`
	FailedFlushes    int64                    `json:"failed_flushes"`
	ErrorCount       int64                    `json:"error_count"`
	RecordsPerSecond float64                  `json:"records_per_second"`
	Errors           []ErrorDetail            `json:"errors"`
	SourceMetrics    map[string]SourceMetrics `json:"source_metrics"`
}

// SourceMetrics represents metrics for a single source
type SourceMetrics struct {
	Source         string        `json:"source"`
	State          HarvestState  `json:"state"`
	Records        int64         `json:"records"`
	DocumentsSent  int64         `json:"documents_sent"`
	Flushes        int64         `json:"flushes"`
	FailedFlushes  int64         `json:"failed_flushes"`
	QueryDuration  time.Duration `json:"query_duration"`
	UploadDuration time.Duration `json:"upload_duration"`
	ErrorCount     int64         `json:"error_count"`
	LastError      string        `json:"last_error,omitempty"`
}

// ErrorDetail represents a detailed error with context
type ErrorDetail struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
	ErrorType string    `json:"error_type"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"` // "low", "medium", "high", "critical"
}
