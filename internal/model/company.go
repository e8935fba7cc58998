package model

import "time"

// Founder is a person associated with a company.
type Founder struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// StepStatus records the outcome of one processing step for a company.
type StepStatus struct {
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
	Detail    string    `json:"detail,omitempty"`
}

// Step status values.
const (
	StepCompleted = "completed"
	StepFailed    = "failed"
	StepSkipped   = "skipped"
)

// CompanyMetadata is the per-company record persisted as metadata.json.
type CompanyMetadata struct {
	Company    string                `json:"company"`
	Founders   []Founder             `json:"founders,omitempty"`
	Sector     string                `json:"sector,omitempty"`
	Stage      string                `json:"stage,omitempty"`
	Website    string                `json:"website,omitempty"`
	Extra      map[string]any        `json:"extra,omitempty"`
	Processing map[string]StepStatus `json:"processing,omitempty"`
}

// RunStatus represents the state of a recorded command run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded CLI or server invocation against a company.
type Run struct {
	ID        string    `json:"id"`
	Company   string    `json:"company"`
	Command   string    `json:"command"`
	Status    RunStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
