package qc

import (
	"context"

	"github.com/google/uuid"
)

type MetricsRepository interface {
	// Upsert keeps the 1:1 invariant with the control assignment.
	Upsert(ctx context.Context, m *QCMetrics) error
	GetByAssignment(ctx context.Context, assignmentID uuid.UUID) (*QCMetrics, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*QCMetrics, int, error)
}
