package models

// NormalizedQuery is the structured form of a user's legal question. Derived
// once per query and treated as an immutable input to retrieval and the
// guardrail check.
type NormalizedQuery struct {
	PartySeeking    string   `json:"partySeeking"`
	PartyResponding string   `json:"partyResponding,omitempty"`
	Relief          string   `json:"relief"`
	Forum           string   `json:"forum"`
	Provisions      []string `json:"provisions,omitempty"`
}
