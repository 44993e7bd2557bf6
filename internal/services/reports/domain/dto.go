// Package domain holds DTOs and ports for the reports http and service contracts
package domain

import "time"

// RunStatus is the lifecycle state of a report run
type RunStatus string

const (
	// RunRunning means the report is still computing
	RunRunning RunStatus = "Running"

	// RunComplete means the report finished and CSV is available
	RunComplete RunStatus = "Complete"

	// RunFailed means the report failed; Error carries the diagnostic
	RunFailed RunStatus = "Failed"
)

// TriggerInput starts a new report run
// NowOverride lets tests and operators pin the report's reference instant
// instead of wall-clock now; empty means use the process clock
type TriggerInput struct {
	NowOverride string `json:"now,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00" example:"2024-01-01T12:00:00Z"`
	ChunkSize   int    `json:"chunk_size,omitempty" validate:"omitempty,min=1,max=10000" example:"500"`
}

// TriggerOutput is returned by POST /reports
type TriggerOutput struct {
	ReportID string `json:"report_id" example:"b3f1c2e4-9a3b-4e1a-8c2d-7f6e5d4c3b2a"`
}

// PollOutput is returned by GET /reports/{id}
type PollOutput struct {
	Status     RunStatus `json:"status"`
	ReportCSV  string    `json:"report_csv,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}
