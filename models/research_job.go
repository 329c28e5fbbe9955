package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ResearchJobStatus represents the status of a research job
type ResearchJobStatus string

const (
	JobStatusPending    ResearchJobStatus = "pending"
	JobStatusInProgress ResearchJobStatus = "in_progress"
	JobStatusCompleted  ResearchJobStatus = "completed"
	JobStatusFailed     ResearchJobStatus = "failed"
)

// ResearchStep represents a step in the research pipeline
type ResearchStep struct {
	Name        string `json:"name"`
	Status      string `json:"status"` // "pending", "in_progress", "completed", "failed"
	Description string `json:"description,omitempty"`
}

// ResearchSteps represents a list of research steps
type ResearchSteps []ResearchStep

// Value implements driver.Valuer for JSONB
func (r ResearchSteps) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB
func (r *ResearchSteps) Scan(value interface{}) error {
	if value == nil {
		*r = make(ResearchSteps, 0)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*r = make(ResearchSteps, 0)
		return nil
	}

	if len(bytes) == 0 {
		*r = make(ResearchSteps, 0)
		return nil
	}

	return json.Unmarshal(bytes, r)
}

// ResearchJob represents an async research run for a matter
type ResearchJob struct {
	ID           uuid.UUID         `json:"id"`
	MatterID     uuid.UUID         `json:"matter_id"`
	Question     string            `json:"question"`
	Status       ResearchJobStatus `json:"status"`
	CurrentStep  *string           `json:"current_step,omitempty"`
	Steps        ResearchSteps     `json:"steps"`
	Answer       *StructuredAnswer `json:"answer,omitempty"`
	ErrorMessage *string           `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
}
