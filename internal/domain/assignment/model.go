package assignment

import (
	"time"

	"github.com/google/uuid"
)

// Assignment statuses.
const (
	StatusPending    = "pending"
	StatusAssigned   = "assigned"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusVerified   = "verified"
	StatusRejected   = "rejected"
)

// Result sources.
const (
	SourceManual = "manual"
	SourceSystem = "system"
)

// TestAssignment links a sample to one parameter to be tested, optionally
// owned by an analyst. Control assignments carry QC metrics instead of a
// regular result.
type TestAssignment struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	SampleID       uuid.UUID  `db:"sample_id" json:"sample_id"`
	ParameterID    uuid.UUID  `db:"parameter_id" json:"parameter_id"`
	AnalystID      *string    `db:"analyst_id" json:"analyst_id,omitempty"`
	EquipmentID    *uuid.UUID `db:"equipment_id" json:"equipment_id,omitempty"`
	Status         string     `db:"status" json:"status"`
	IsControl      bool       `db:"is_control" json:"is_control"`
	IsReference    bool       `db:"is_reference" json:"is_reference"`
	ManagerComment *string    `db:"manager_comment" json:"manager_comment,omitempty"`
	AssignedAt     time.Time  `db:"assigned_at" json:"assigned_at"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// TestResult is the 1:1 measurement for a non-control assignment.
type TestResult struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	AssignmentID    uuid.UUID  `db:"assignment_id" json:"assignment_id"`
	Value           *float64   `db:"value" json:"value,omitempty"`
	RecordedBy      *string    `db:"recorded_by" json:"recorded_by,omitempty"`
	RecordedAt      time.Time  `db:"recorded_at" json:"recorded_at"`
	StartedAt       *time.Time `db:"started_at" json:"started_at,omitempty"`
	Source          string     `db:"source" json:"source"`
	CalculationNote *string    `db:"calculation_note" json:"calculation_note,omitempty"`
}

// SampleResult is a result joined with its parameter, keyed by name. Used by
// the derived-value calculator and COA assembly.
type SampleResult struct {
	AssignmentID  uuid.UUID `db:"assignment_id" json:"assignment_id"`
	ParameterID   uuid.UUID `db:"parameter_id" json:"parameter_id"`
	ParameterName string    `db:"parameter_name" json:"parameter_name"`
	Unit          string    `db:"unit" json:"unit"`
	Method        *string   `db:"method" json:"method,omitempty"`
	RefLimit      *string   `db:"ref_limit" json:"ref_limit,omitempty"`
	Value         *float64  `db:"value" json:"value,omitempty"`
	Source        string    `db:"source" json:"source"`
}
