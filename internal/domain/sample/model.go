package sample

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sample statuses, ordered by workflow progress.
const (
	StatusReceived    = "received"
	StatusAssigned    = "assigned"
	StatusInProgress  = "in_progress"
	StatusUnderReview = "under_review"
	StatusApproved    = "approved"
	StatusRejected    = "rejected"
)

// transitions is the allowed forward edges of the status state machine.
// approved and rejected are terminal.
var transitions = map[string][]string{
	StatusReceived:    {StatusAssigned},
	StatusAssigned:    {StatusInProgress},
	StatusInProgress:  {StatusUnderReview},
	StatusUnderReview: {StatusApproved, StatusRejected},
	StatusApproved:    {},
	StatusRejected:    {},
}

var statusRank = map[string]int{
	StatusReceived:    0,
	StatusAssigned:    1,
	StatusInProgress:  2,
	StatusUnderReview: 3,
	StatusApproved:    4,
	StatusRejected:    4,
}

// ValidateTransition reports whether moving from one status to another is an
// allowed edge of the state machine.
func ValidateTransition(from, to string) error {
	allowed, ok := transitions[from]
	if !ok {
		return fmt.Errorf("unknown status %q", from)
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("invalid status transition %s -> %s", from, to)
}

// StatusRank orders statuses by workflow progress. Used to keep automatic
// promotion monotonic.
func StatusRank(status string) int {
	return statusRank[status]
}

// Sample maps to the sample table.
type Sample struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ClientID    uuid.UUID `db:"client_id" json:"client_id"`
	SampleCode  string    `db:"sample_code" json:"sample_code"`
	SampleType  string    `db:"sample_type" json:"sample_type"`
	Weight      float64   `db:"weight" json:"weight"`
	Temperature *float64  `db:"temperature" json:"temperature,omitempty"`
	Humidity    *float64  `db:"humidity" json:"humidity,omitempty"`
	Status      string    `db:"status" json:"status"`
	ReceivedAt  time.Time `db:"received_at" json:"received_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// StatusHistory records every status change on a sample.
type StatusHistory struct {
	ID         uuid.UUID `db:"id" json:"id"`
	SampleID   uuid.UUID `db:"sample_id" json:"sample_id"`
	FromStatus string    `db:"from_status" json:"from_status"`
	ToStatus   string    `db:"to_status" json:"to_status"`
	ChangedBy  string    `db:"changed_by" json:"changed_by"`
	Reason     *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
