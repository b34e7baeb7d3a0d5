package catalog

import (
	"context"

	"github.com/google/uuid"
)

type GroupRepository interface {
	Create(ctx context.Context, g *ParameterGroup) error
	GetByID(ctx context.Context, id uuid.UUID) (*ParameterGroup, error)
	Update(ctx context.Context, g *ParameterGroup) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*ParameterGroup, int, error)
}

type ParameterRepository interface {
	Create(ctx context.Context, p *Parameter) error
	GetByID(ctx context.Context, id uuid.UUID) (*Parameter, error)
	GetByName(ctx context.Context, name string) (*Parameter, error)
	Update(ctx context.Context, p *Parameter) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Parameter, int, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*Parameter, int, error)
}

type ControlSpecRepository interface {
	Create(ctx context.Context, cs *ControlSpec) error
	GetByID(ctx context.Context, id uuid.UUID) (*ControlSpec, error)
	GetByParameter(ctx context.Context, parameterID uuid.UUID) (*ControlSpec, error)
	Update(ctx context.Context, cs *ControlSpec) error
	Delete(ctx context.Context, id uuid.UUID) error
}
