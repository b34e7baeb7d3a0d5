package assignment

import (
	"context"

	"github.com/google/uuid"
)

type AssignmentRepository interface {
	Create(ctx context.Context, a *TestAssignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*TestAssignment, error)
	// GetBySampleAndParameter finds the assignment a derived value would be
	// injected against.
	GetBySampleAndParameter(ctx context.Context, sampleID, parameterID uuid.UUID) (*TestAssignment, error)
	Update(ctx context.Context, a *TestAssignment) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListBySample returns the complete assignment set for a sample; the
	// promotion predicate needs all rows, so it is unpaginated.
	ListBySample(ctx context.Context, sampleID uuid.UUID) ([]*TestAssignment, error)
	ListByAnalyst(ctx context.Context, analystID string, limit, offset int) ([]*TestAssignment, int, error)
	ListByParameter(ctx context.Context, parameterID uuid.UUID, limit, offset int) ([]*TestAssignment, int, error)
}

type ResultRepository interface {
	// Upsert inserts the result for an assignment or updates it in place.
	// A second submission never duplicates the row.
	Upsert(ctx context.Context, r *TestResult) error
	GetByAssignment(ctx context.Context, assignmentID uuid.UUID) (*TestResult, error)
	ListBySample(ctx context.Context, sampleID uuid.UUID) ([]*SampleResult, error)
}
