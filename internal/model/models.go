package model

// TriggerRequest is the body for POST /api/v1/runs
type TriggerRequest struct {
	Sources      []string `json:"sources,omitempty"`       // restrict to these source names
	ReadOnly     bool     `json:"read_only,omitempty"`     // skip sink writes
	DryRun       bool     `json:"dry_run,omitempty"`       // skip source queries
	MaxDocuments int      `json:"max_documents,omitempty"` // per-source cap, 0 keeps config
}

// TriggerResponse is returned when a run has been accepted
type TriggerResponse struct {
	RunID   string `json:"run_id"`
	Message string `json:"message"`
}
