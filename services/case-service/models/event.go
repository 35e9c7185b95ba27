package models

import "time"

const (
	EventCaseRegistered = "case.registered"
	EventCaseUpdated    = "case.updated"
)

// CaseEvent is published after a case write succeeds.
type CaseEvent struct {
	Type       string    `json:"type"`
	CaseID     string    `json:"case_id"`
	OwnerID    string    `json:"owner_id"`
	ActorID    string    `json:"actor_id"`
	Field      string    `json:"field,omitempty"`
	Value      any       `json:"value,omitempty"`
	Category   string    `json:"category,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
