package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

// -- Mock Repositories --

type mockGroupRepo struct {
	store map[uuid.UUID]*ParameterGroup
}

func newMockGroupRepo() *mockGroupRepo {
	return &mockGroupRepo{store: make(map[uuid.UUID]*ParameterGroup)}
}

func (m *mockGroupRepo) Create(_ context.Context, g *ParameterGroup) error {
	g.ID = uuid.New()
	m.store[g.ID] = g
	return nil
}

func (m *mockGroupRepo) GetByID(_ context.Context, id uuid.UUID) (*ParameterGroup, error) {
	g, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return g, nil
}

func (m *mockGroupRepo) Update(_ context.Context, g *ParameterGroup) error {
	if _, ok := m.store[g.ID]; !ok {
		return fmt.Errorf("not found")
	}
	m.store[g.ID] = g
	return nil
}

func (m *mockGroupRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockGroupRepo) List(_ context.Context, limit, offset int) ([]*ParameterGroup, int, error) {
	var r []*ParameterGroup
	for _, g := range m.store {
		r = append(r, g)
	}
	return r, len(r), nil
}

type mockParameterRepo struct {
	store map[uuid.UUID]*Parameter
}

func newMockParameterRepo() *mockParameterRepo {
	return &mockParameterRepo{store: make(map[uuid.UUID]*Parameter)}
}

func (m *mockParameterRepo) Create(_ context.Context, p *Parameter) error {
	p.ID = uuid.New()
	m.store[p.ID] = p
	return nil
}

func (m *mockParameterRepo) GetByID(_ context.Context, id uuid.UUID) (*Parameter, error) {
	p, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}

func (m *mockParameterRepo) GetByName(_ context.Context, name string) (*Parameter, error) {
	for _, p := range m.store {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockParameterRepo) Update(_ context.Context, p *Parameter) error {
	if _, ok := m.store[p.ID]; !ok {
		return fmt.Errorf("not found")
	}
	m.store[p.ID] = p
	return nil
}

func (m *mockParameterRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockParameterRepo) List(_ context.Context, limit, offset int) ([]*Parameter, int, error) {
	var r []*Parameter
	for _, p := range m.store {
		r = append(r, p)
	}
	return r, len(r), nil
}

func (m *mockParameterRepo) ListByGroup(_ context.Context, gid uuid.UUID, limit, offset int) ([]*Parameter, int, error) {
	var r []*Parameter
	for _, p := range m.store {
		if p.GroupID == gid {
			r = append(r, p)
		}
	}
	return r, len(r), nil
}

type mockControlSpecRepo struct {
	store map[uuid.UUID]*ControlSpec
}

func newMockControlSpecRepo() *mockControlSpecRepo {
	return &mockControlSpecRepo{store: make(map[uuid.UUID]*ControlSpec)}
}

func (m *mockControlSpecRepo) Create(_ context.Context, cs *ControlSpec) error {
	cs.ID = uuid.New()
	m.store[cs.ID] = cs
	return nil
}

func (m *mockControlSpecRepo) GetByID(_ context.Context, id uuid.UUID) (*ControlSpec, error) {
	cs, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return cs, nil
}

func (m *mockControlSpecRepo) GetByParameter(_ context.Context, pid uuid.UUID) (*ControlSpec, error) {
	for _, cs := range m.store {
		if cs.ParameterID == pid {
			return cs, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockControlSpecRepo) Update(_ context.Context, cs *ControlSpec) error {
	if _, ok := m.store[cs.ID]; !ok {
		return fmt.Errorf("not found")
	}
	m.store[cs.ID] = cs
	return nil
}

func (m *mockControlSpecRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func newTestService() *Service {
	return NewService(newMockGroupRepo(), newMockParameterRepo(), newMockControlSpecRepo())
}

func ptrFloat(f float64) *float64 { return &f }

func makeGroup(t *testing.T, svc *Service) *ParameterGroup {
	t.Helper()
	g := &ParameterGroup{Name: "Proximates"}
	if err := svc.CreateGroup(context.Background(), g); err != nil {
		t.Fatalf("create group: %v", err)
	}
	return g
}

func makeParameter(t *testing.T, svc *Service, name string) *Parameter {
	t.Helper()
	g := makeGroup(t, svc)
	p := &Parameter{GroupID: g.ID, Name: name, Unit: "%"}
	if err := svc.CreateParameter(context.Background(), p); err != nil {
		t.Fatalf("create parameter: %v", err)
	}
	return p
}

// -- Tests --

func TestCreateGroup_Success(t *testing.T) {
	svc := newTestService()
	g := &ParameterGroup{Name: "Minerals", IsExtension: true}
	if err := svc.CreateGroup(context.Background(), g); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
}

func TestCreateGroup_MissingName(t *testing.T) {
	svc := newTestService()
	if err := svc.CreateGroup(context.Background(), &ParameterGroup{}); err == nil {
		t.Fatal("expected error for missing name")
	}
}

func TestCreateParameter_Success(t *testing.T) {
	svc := newTestService()
	p := makeParameter(t, svc, "Crude Protein")
	if p.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
}

func TestCreateParameter_UnknownGroup(t *testing.T) {
	svc := newTestService()
	p := &Parameter{GroupID: uuid.New(), Name: "Crude Protein", Unit: "%"}
	if err := svc.CreateParameter(context.Background(), p); err == nil {
		t.Fatal("expected error for unknown group")
	}
}

func TestCreateParameter_MissingUnit(t *testing.T) {
	svc := newTestService()
	g := makeGroup(t, svc)
	p := &Parameter{GroupID: g.ID, Name: "Crude Protein"}
	if err := svc.CreateParameter(context.Background(), p); err == nil {
		t.Fatal("expected error for missing unit")
	}
}

func TestGetParameterByName(t *testing.T) {
	svc := newTestService()
	makeParameter(t, svc, "Carbohydrate")
	p, err := svc.GetParameterByName(context.Background(), "Carbohydrate")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Carbohydrate" {
		t.Errorf("name = %q, want Carbohydrate", p.Name)
	}
}

func TestCreateControlSpec_Success(t *testing.T) {
	svc := newTestService()
	p := makeParameter(t, svc, "Crude Protein")
	cs := &ControlSpec{
		ParameterID:   p.ID,
		MinAcceptable: ptrFloat(16.0),
		MaxAcceptable: ptrFloat(20.0),
		Unit:          "%",
	}
	if err := svc.CreateControlSpec(context.Background(), cs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateControlSpec_MinAboveMax(t *testing.T) {
	svc := newTestService()
	p := makeParameter(t, svc, "Crude Protein")
	cs := &ControlSpec{
		ParameterID:   p.ID,
		MinAcceptable: ptrFloat(25.0),
		MaxAcceptable: ptrFloat(20.0),
		Unit:          "%",
	}
	if err := svc.CreateControlSpec(context.Background(), cs); err == nil {
		t.Fatal("expected error when min exceeds max")
	}
}

func TestCreateControlSpec_NegativeTolerance(t *testing.T) {
	svc := newTestService()
	p := makeParameter(t, svc, "Crude Protein")
	cs := &ControlSpec{
		ParameterID:      p.ID,
		ExpectedValue:    ptrFloat(18.0),
		DefaultTolerance: ptrFloat(-5.0),
		Unit:             "%",
	}
	if err := svc.CreateControlSpec(context.Background(), cs); err == nil {
		t.Fatal("expected error for negative tolerance")
	}
}

func TestCreateControlSpec_UnknownParameter(t *testing.T) {
	svc := newTestService()
	cs := &ControlSpec{ParameterID: uuid.New(), Unit: "%"}
	if err := svc.CreateControlSpec(context.Background(), cs); err == nil {
		t.Fatal("expected error for unknown parameter")
	}
}

func TestGetControlSpecByParameter(t *testing.T) {
	svc := newTestService()
	p := makeParameter(t, svc, "Crude Fat")
	cs := &ControlSpec{
		ParameterID:   p.ID,
		ExpectedValue: ptrFloat(4.5),
		Unit:          "%",
	}
	svc.CreateControlSpec(context.Background(), cs)

	got, err := svc.GetControlSpecByParameter(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ExpectedValue == nil || *got.ExpectedValue != 4.5 {
		t.Errorf("expected_value = %v, want 4.5", got.ExpectedValue)
	}
}

func TestGetControlSpecByParameter_None(t *testing.T) {
	svc := newTestService()
	p := makeParameter(t, svc, "Moisture")
	if _, err := svc.GetControlSpecByParameter(context.Background(), p.ID); err == nil {
		t.Fatal("expected error when parameter has no control spec")
	}
}

func TestListParametersByGroup(t *testing.T) {
	svc := newTestService()
	g := makeGroup(t, svc)
	svc.CreateParameter(context.Background(), &Parameter{GroupID: g.ID, Name: "Protein", Unit: "%"})
	svc.CreateParameter(context.Background(), &Parameter{GroupID: g.ID, Name: "Fat", Unit: "%"})

	items, total, err := svc.ListParametersByGroup(context.Background(), g.ID, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("expected 2 parameters, got total=%d len=%d", total, len(items))
	}
}
