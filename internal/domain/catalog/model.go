package catalog

import (
	"time"

	"github.com/google/uuid"
)

// ParameterGroup clusters related test parameters (e.g. Proximates,
// Minerals). Extension groups are add-on panels priced separately.
type ParameterGroup struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	IsExtension bool      `db:"is_extension" json:"is_extension"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Parameter is a named laboratory test.
type Parameter struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	GroupID            uuid.UUID  `db:"group_id" json:"group_id"`
	Name               string     `db:"name" json:"name"`
	Unit               string     `db:"unit" json:"unit"`
	Method             *string    `db:"method" json:"method,omitempty"`
	RefLimit           *string    `db:"ref_limit" json:"ref_limit,omitempty"`
	DefaultPrice       *float64   `db:"default_price" json:"default_price,omitempty"`
	DefaultEquipmentID *uuid.UUID `db:"default_equipment_id" json:"default_equipment_id,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// ControlSpec defines the acceptable range and optional fixed expected value
// used to evaluate QC checks for one parameter (1:1).
type ControlSpec struct {
	ID               uuid.UUID `db:"id" json:"id"`
	ParameterID      uuid.UUID `db:"parameter_id" json:"parameter_id"`
	MinAcceptable    *float64  `db:"min_acceptable" json:"min_acceptable,omitempty"`
	MaxAcceptable    *float64  `db:"max_acceptable" json:"max_acceptable,omitempty"`
	ExpectedValue    *float64  `db:"expected_value" json:"expected_value,omitempty"`
	DefaultTolerance *float64  `db:"default_tolerance" json:"default_tolerance,omitempty"`
	Unit             string    `db:"unit" json:"unit"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
