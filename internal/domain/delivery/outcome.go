package delivery

import "time"

// Status is the terminal-state machine for one (event, destination) pair:
// pending transitions to exactly one of success or failed and never changes
// afterwards.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Outcome is the append-only record of one delivery attempt. DestinationID
// is nil for the zero-active-destinations case.
type Outcome struct {
	ID              int64     `json:"id,string"`
	Platform        string    `json:"platform"`
	EventType       string    `json:"event_type"`
	Project         string    `json:"project"`
	Author          string    `json:"author,omitempty"`
	Branch          string    `json:"branch,omitempty"`
	DestinationID   *int64    `json:"destination_id,omitempty"`
	DestinationName string    `json:"destination_name,omitempty"`
	Status          Status    `json:"status"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
