package qc

import (
	"time"

	"github.com/google/uuid"
)

// QCMetrics is the 1:1 quality-control record for a control assignment.
type QCMetrics struct {
	ID              uuid.UUID `db:"id" json:"id"`
	AssignmentID    uuid.UUID `db:"assignment_id" json:"assignment_id"`
	ExpectedValue   *float64  `db:"expected_value" json:"expected_value,omitempty"`
	Tolerance       *float64  `db:"tolerance" json:"tolerance,omitempty"`
	MinAcceptable   *float64  `db:"min_acceptable" json:"min_acceptable,omitempty"`
	MaxAcceptable   *float64  `db:"max_acceptable" json:"max_acceptable,omitempty"`
	MeasuredValue   *float64  `db:"measured_value" json:"measured_value,omitempty"`
	RecoveryPercent *float64  `db:"recovery_percent" json:"recovery_percent,omitempty"`
	Status          string    `db:"status" json:"status"`
	Notes           *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
