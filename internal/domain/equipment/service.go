package equipment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	equipment    EquipmentRepository
	calibrations CalibrationRepository
}

func NewService(equipment EquipmentRepository, calibrations CalibrationRepository) *Service {
	return &Service{equipment: equipment, calibrations: calibrations}
}

func (s *Service) CreateEquipment(ctx context.Context, e *Equipment) error {
	if e.Name == "" {
		return fmt.Errorf("name is required")
	}
	if e.SerialNumber == "" {
		return fmt.Errorf("serial_number is required")
	}
	return s.equipment.Create(ctx, e)
}

func (s *Service) GetEquipment(ctx context.Context, id uuid.UUID) (*Equipment, error) {
	return s.equipment.GetByID(ctx, id)
}

func (s *Service) UpdateEquipment(ctx context.Context, e *Equipment) error {
	if e.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.equipment.Update(ctx, e)
}

func (s *Service) DeleteEquipment(ctx context.Context, id uuid.UUID) error {
	return s.equipment.Delete(ctx, id)
}

func (s *Service) ListEquipment(ctx context.Context, limit, offset int) ([]*Equipment, int, error) {
	return s.equipment.List(ctx, limit, offset)
}

func (s *Service) RecordCalibration(ctx context.Context, r *CalibrationRecord) error {
	if r.EquipmentID == uuid.Nil {
		return fmt.Errorf("equipment_id is required")
	}
	if r.PerformedBy == "" {
		return fmt.Errorf("performed_by is required")
	}
	if r.CalibratedAt.IsZero() {
		r.CalibratedAt = time.Now().UTC()
	}
	if r.DueAt.IsZero() {
		return fmt.Errorf("due_at is required")
	}
	if !r.DueAt.After(r.CalibratedAt) {
		return fmt.Errorf("due_at must be after calibrated_at")
	}
	if _, err := s.equipment.GetByID(ctx, r.EquipmentID); err != nil {
		return fmt.Errorf("unknown equipment: %s", r.EquipmentID)
	}
	return s.calibrations.Create(ctx, r)
}

func (s *Service) ListCalibrations(ctx context.Context, equipmentID uuid.UUID, limit, offset int) ([]*CalibrationRecord, int, error) {
	return s.calibrations.ListByEquipment(ctx, equipmentID, limit, offset)
}

// ListDueCalibrations returns records whose due date is on or before the
// given cutoff.
func (s *Service) ListDueCalibrations(ctx context.Context, before time.Time, limit, offset int) ([]*CalibrationRecord, int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}
	return s.calibrations.ListDue(ctx, before, limit, offset)
}
