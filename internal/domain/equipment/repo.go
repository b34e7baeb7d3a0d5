package equipment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EquipmentRepository interface {
	Create(ctx context.Context, e *Equipment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Equipment, error)
	Update(ctx context.Context, e *Equipment) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Equipment, int, error)
}

type CalibrationRepository interface {
	Create(ctx context.Context, r *CalibrationRecord) error
	ListByEquipment(ctx context.Context, equipmentID uuid.UUID, limit, offset int) ([]*CalibrationRecord, int, error)
	ListDue(ctx context.Context, before time.Time, limit, offset int) ([]*CalibrationRecord, int, error)
}
