package sample

import (
	"context"

	"github.com/google/uuid"
)

type SampleRepository interface {
	Create(ctx context.Context, s *Sample) error
	GetByID(ctx context.Context, id uuid.UUID) (*Sample, error)
	GetByCode(ctx context.Context, code string) (*Sample, error)
	Update(ctx context.Context, s *Sample) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Sample, int, error)
	ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*Sample, int, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Sample, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Sample, int, error)
	// NextSequence returns the next per-client sample sequence number.
	NextSequence(ctx context.Context, clientID uuid.UUID) (int, error)
}

type StatusHistoryRepository interface {
	Create(ctx context.Context, h *StatusHistory) error
	ListBySample(ctx context.Context, sampleID uuid.UUID, limit, offset int) ([]*StatusHistory, int, error)
}
