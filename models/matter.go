package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MatterStatus represents the status of a matter
type MatterStatus string

const (
	MatterStatusOpen     MatterStatus = "open"
	MatterStatusResearch MatterStatus = "in_research"
	MatterStatusAdvised  MatterStatus = "advised"
	MatterStatusClosed   MatterStatus = "closed"
)

// MatterFacts holds free-form intake facts for a matter
type MatterFacts map[string]interface{}

// Value implements driver.Valuer for JSONB
func (m MatterFacts) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB
func (m *MatterFacts) Scan(value interface{}) error {
	if value == nil {
		*m = make(MatterFacts)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	if len(bytes) == 0 {
		*m = make(MatterFacts)
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// Matter represents an ongoing client engagement that research runs attach to
type Matter struct {
	ID             uuid.UUID    `json:"id"`
	Status         MatterStatus `json:"status"`
	ClientName     string       `json:"client_name"`
	OpposingParty  string       `json:"opposing_party"`
	Jurisdiction   string       `json:"jurisdiction"`
	TargetForum    string       `json:"target_forum"`
	Facts          MatterFacts  `json:"facts"`
	LatestQuestion *string      `json:"latest_question,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	ClosedAt       *time.Time   `json:"closed_at,omitempty"`
}
