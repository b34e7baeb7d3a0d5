package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	groups     GroupRepository
	parameters ParameterRepository
	specs      ControlSpecRepository
}

func NewService(groups GroupRepository, parameters ParameterRepository, specs ControlSpecRepository) *Service {
	return &Service{groups: groups, parameters: parameters, specs: specs}
}

// -- ParameterGroup --

func (s *Service) CreateGroup(ctx context.Context, g *ParameterGroup) error {
	if g.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.groups.Create(ctx, g)
}

func (s *Service) GetGroup(ctx context.Context, id uuid.UUID) (*ParameterGroup, error) {
	return s.groups.GetByID(ctx, id)
}

func (s *Service) UpdateGroup(ctx context.Context, g *ParameterGroup) error {
	if g.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.groups.Update(ctx, g)
}

func (s *Service) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	return s.groups.Delete(ctx, id)
}

func (s *Service) ListGroups(ctx context.Context, limit, offset int) ([]*ParameterGroup, int, error) {
	return s.groups.List(ctx, limit, offset)
}

// -- Parameter --

func (s *Service) CreateParameter(ctx context.Context, p *Parameter) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Unit == "" {
		return fmt.Errorf("unit is required")
	}
	if p.GroupID == uuid.Nil {
		return fmt.Errorf("group_id is required")
	}
	if _, err := s.groups.GetByID(ctx, p.GroupID); err != nil {
		return fmt.Errorf("unknown group: %s", p.GroupID)
	}
	return s.parameters.Create(ctx, p)
}

func (s *Service) GetParameter(ctx context.Context, id uuid.UUID) (*Parameter, error) {
	return s.parameters.GetByID(ctx, id)
}

func (s *Service) GetParameterByName(ctx context.Context, name string) (*Parameter, error) {
	return s.parameters.GetByName(ctx, name)
}

func (s *Service) UpdateParameter(ctx context.Context, p *Parameter) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Unit == "" {
		return fmt.Errorf("unit is required")
	}
	return s.parameters.Update(ctx, p)
}

func (s *Service) DeleteParameter(ctx context.Context, id uuid.UUID) error {
	return s.parameters.Delete(ctx, id)
}

func (s *Service) ListParameters(ctx context.Context, limit, offset int) ([]*Parameter, int, error) {
	return s.parameters.List(ctx, limit, offset)
}

func (s *Service) ListParametersByGroup(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*Parameter, int, error) {
	return s.parameters.ListByGroup(ctx, groupID, limit, offset)
}

// -- ControlSpec --

func (s *Service) CreateControlSpec(ctx context.Context, cs *ControlSpec) error {
	if err := validateControlSpec(cs); err != nil {
		return err
	}
	if _, err := s.parameters.GetByID(ctx, cs.ParameterID); err != nil {
		return fmt.Errorf("unknown parameter: %s", cs.ParameterID)
	}
	return s.specs.Create(ctx, cs)
}

func (s *Service) GetControlSpec(ctx context.Context, id uuid.UUID) (*ControlSpec, error) {
	return s.specs.GetByID(ctx, id)
}

// GetControlSpecByParameter returns the spec for a parameter, or an error if
// the parameter has none.
func (s *Service) GetControlSpecByParameter(ctx context.Context, parameterID uuid.UUID) (*ControlSpec, error) {
	return s.specs.GetByParameter(ctx, parameterID)
}

func (s *Service) UpdateControlSpec(ctx context.Context, cs *ControlSpec) error {
	if err := validateControlSpec(cs); err != nil {
		return err
	}
	return s.specs.Update(ctx, cs)
}

func (s *Service) DeleteControlSpec(ctx context.Context, id uuid.UUID) error {
	return s.specs.Delete(ctx, id)
}

func validateControlSpec(cs *ControlSpec) error {
	if cs.ParameterID == uuid.Nil {
		return fmt.Errorf("parameter_id is required")
	}
	if cs.MinAcceptable != nil && cs.MaxAcceptable != nil && *cs.MinAcceptable > *cs.MaxAcceptable {
		return fmt.Errorf("min_acceptable must not exceed max_acceptable")
	}
	if cs.DefaultTolerance != nil && *cs.DefaultTolerance < 0 {
		return fmt.Errorf("default_tolerance must not be negative")
	}
	return nil
}
