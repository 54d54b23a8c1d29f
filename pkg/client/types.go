package client

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Time is a backend timestamp. The API emits naive UTC timestamps
// ("2006-01-02T15:04:05.999999") as well as RFC 3339; both decode.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// UnmarshalJSON implements json.Unmarshaler. Naive timestamps are UTC.
func (t *Time) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("timestamp must be a string, got %s", data)
	}
	value := string(data[1 : len(data)-1])
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", value)
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	return t.Time.UTC().MarshalJSON()
}

// Agent is an agent as listed by /api/v1/agents.
type Agent struct {
	ID                uuid.UUID  `json:"id"`
	BoardID           *uuid.UUID `json:"board_id,omitempty"`
	Name              string     `json:"name"`
	Status            string     `json:"status"`
	IsBoardLead       bool       `json:"is_board_lead"`
	IsGatewayMain     bool       `json:"is_gateway_main"`
	OpenclawSessionID *string    `json:"openclaw_session_id,omitempty"`
	LastSeenAt        *Time      `json:"last_seen_at,omitempty"`
	CreatedAt         Time       `json:"created_at"`
	UpdatedAt         Time       `json:"updated_at"`
}

// Identity returns the list identity of the agent.
func (a Agent) Identity() string { return a.ID.String() }

// Board is a board as listed by /api/v1/boards.
type Board struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description,omitempty"`
	GatewayID   *uuid.UUID `json:"gateway_id,omitempty"`
	CreatedAt   Time       `json:"created_at"`
	UpdatedAt   Time       `json:"updated_at"`
}

// Identity returns the list identity of the board.
func (b Board) Identity() string { return b.ID.String() }

// Task is a board task as listed by /api/v1/boards/{board_id}/tasks.
type Task struct {
	ID              uuid.UUID  `json:"id"`
	BoardID         uuid.UUID  `json:"board_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	AssignedAgentID *uuid.UUID `json:"assigned_agent_id,omitempty"`
	DueAt           *Time      `json:"due_at,omitempty"`
	CreatedAt       Time       `json:"created_at"`
	UpdatedAt       Time       `json:"updated_at"`
}

// Identity returns the list identity of the task.
func (t Task) Identity() string { return t.ID.String() }

// Approval statuses.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// Approval is a board approval as listed by /api/v1/boards/{board_id}/approvals.
type Approval struct {
	ID         uuid.UUID      `json:"id"`
	BoardID    uuid.UUID      `json:"board_id"`
	TaskID     *uuid.UUID     `json:"task_id,omitempty"`
	ActionType string         `json:"action_type"`
	Payload    map[string]any `json:"payload,omitempty"`
	Confidence float64        `json:"confidence"`
	Status     string         `json:"status"`
	CreatedAt  Time           `json:"created_at"`
	ResolvedAt *Time          `json:"resolved_at,omitempty"`
}

// Identity returns the list identity of the approval.
func (a Approval) Identity() string { return a.ID.String() }
