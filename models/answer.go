package models

import (
	"database/sql/driver"
	"encoding/json"
)

// Authority is a single cited source in a structured answer.
type Authority struct {
	Court     string `json:"court"`
	Year      int    `json:"year"`
	Title     string `json:"title"`
	Pinpoint  string `json:"pinpoint,omitempty"`
	Holding   string `json:"holding"`
	Relevance string `json:"relevance"`
	Primary   bool   `json:"primary"`
}

// ApplicabilityRow maps a legal proposition to whether it supports the user's
// position and why.
type ApplicabilityRow struct {
	Proposition string `json:"proposition"`
	Supports    bool   `json:"supports"`
	Reason      string `json:"reason"`
}

// StructuredAnswer is the final schema-conformant output of the synthesis
// step. Confidence is capped below a fixed ceiling whenever no authority is
// flagged primary.
type StructuredAnswer struct {
	IssueFraming  string             `json:"issue_framing"`
	ShortAnswer   string             `json:"short_answer"`
	LongAnswer    string             `json:"long_answer"`
	Authorities   []Authority        `json:"authorities"`
	Applicability []ApplicabilityRow `json:"applicability"`
	MissingFacts  []string           `json:"missing_facts"`
	NextSteps     []string           `json:"next_steps"`
	Confidence    float64            `json:"confidence"`
}

// Value implements driver.Valuer for JSONB
func (a StructuredAnswer) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner for JSONB
func (a *StructuredAnswer) Scan(value interface{}) error {
	if value == nil {
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
		return nil
	}

	return json.Unmarshal(bytes, a)
}
