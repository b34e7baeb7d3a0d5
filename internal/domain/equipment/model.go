package equipment

import (
	"time"

	"github.com/google/uuid"
)

// Equipment maps to the equipment table.
type Equipment struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	SerialNumber string    `db:"serial_number" json:"serial_number"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	Location     *string   `db:"location" json:"location,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CalibrationRecord tracks a single calibration event and when the next one
// falls due.
type CalibrationRecord struct {
	ID           uuid.UUID `db:"id" json:"id"`
	EquipmentID  uuid.UUID `db:"equipment_id" json:"equipment_id"`
	CalibratedAt time.Time `db:"calibrated_at" json:"calibrated_at"`
	DueAt        time.Time `db:"due_at" json:"due_at"`
	PerformedBy  string    `db:"performed_by" json:"performed_by"`
	Notes        *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
