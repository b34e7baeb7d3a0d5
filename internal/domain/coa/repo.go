package coa

import (
	"context"

	"github.com/google/uuid"
)

type CertificateRepository interface {
	Create(ctx context.Context, c *Certificate) error
	GetByID(ctx context.Context, id uuid.UUID) (*Certificate, error)
	ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*Certificate, int, error)
	// NextSequence returns the next certificate sequence number for a client.
	NextSequence(ctx context.Context, clientID uuid.UUID) (int, error)
}

type InterpretationRepository interface {
	Create(ctx context.Context, i *COAInterpretation) error
	GetByID(ctx context.Context, id uuid.UUID) (*COAInterpretation, error)
	Update(ctx context.Context, i *COAInterpretation) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*COAInterpretation, int, error)
}
