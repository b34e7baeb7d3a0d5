package qc

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/lims/lims/internal/domain/assignment"
	"github.com/lims/lims/internal/domain/catalog"
	"github.com/lims/lims/internal/platform/notification"
)

type mockMetricsRepo struct {
	byAssignment map[uuid.UUID]*QCMetrics
}

func newMockMetricsRepo() *mockMetricsRepo {
	return &mockMetricsRepo{byAssignment: make(map[uuid.UUID]*QCMetrics)}
}

func (m *mockMetricsRepo) Upsert(_ context.Context, q *QCMetrics) error {
	if existing, ok := m.byAssignment[q.AssignmentID]; ok {
		q.ID = existing.ID
	} else if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	m.byAssignment[q.AssignmentID] = q
	return nil
}

func (m *mockMetricsRepo) GetByAssignment(_ context.Context, id uuid.UUID) (*QCMetrics, error) {
	q, ok := m.byAssignment[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return q, nil
}

func (m *mockMetricsRepo) ListByStatus(_ context.Context, status string, limit, offset int) ([]*QCMetrics, int, error) {
	var r []*QCMetrics
	for _, q := range m.byAssignment {
		if q.Status == status {
			r = append(r, q)
		}
	}
	return r, len(r), nil
}

type mockCatalog struct {
	parameters map[uuid.UUID]*catalog.Parameter
	specs      map[uuid.UUID]*catalog.ControlSpec
}

func (m *mockCatalog) GetParameter(_ context.Context, id uuid.UUID) (*catalog.Parameter, error) {
	p, ok := m.parameters[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}

func (m *mockCatalog) GetControlSpecByParameter(_ context.Context, pid uuid.UUID) (*catalog.ControlSpec, error) {
	cs, ok := m.specs[pid]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return cs, nil
}

type mockAssignments struct {
	store map[uuid.UUID]*assignment.TestAssignment
}

func (m *mockAssignments) GetAssignment(_ context.Context, id uuid.UUID) (*assignment.TestAssignment, error) {
	a, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return a, nil
}

func (m *mockAssignments) MarkCompleted(_ context.Context, id uuid.UUID) error {
	a, ok := m.store[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	if a.Status != assignment.StatusCompleted && a.Status != assignment.StatusVerified {
		a.Status = assignment.StatusCompleted
	}
	return nil
}

type mockNotifier struct {
	sent []string
}

func (m *mockNotifier) SendFromTemplate(_ context.Context, templateID string, _ map[string]string, _ string) (*notification.Notification, error) {
	m.sent = append(m.sent, templateID)
	return &notification.Notification{}, nil
}

type testEnv struct {
	svc          *Service
	assignments  *mockAssignments
	notifier     *mockNotifier
	assignmentID uuid.UUID
	parameterID  uuid.UUID
	cat          *mockCatalog
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	parameterID := uuid.New()
	assignmentID := uuid.New()
	cat := &mockCatalog{
		parameters: map[uuid.UUID]*catalog.Parameter{
			parameterID: {ID: parameterID, Name: "Crude Protein", Unit: "%"},
		},
		specs: map[uuid.UUID]*catalog.ControlSpec{},
	}
	assignments := &mockAssignments{store: map[uuid.UUID]*assignment.TestAssignment{
		assignmentID: {
			ID:          assignmentID,
			SampleID:    uuid.New(),
			ParameterID: parameterID,
			Status:      assignment.StatusInProgress,
			IsControl:   true,
		},
	}}
	notifier := &mockNotifier{}
	svc := NewService(newMockMetricsRepo(), cat, assignments)
	svc.SetNotifier(notifier, "manager@lab.example")
	return &testEnv{svc: svc, assignments: assignments, notifier: notifier, assignmentID: assignmentID, parameterID: parameterID, cat: cat}
}

func TestRecord_PassMarksCompleted(t *testing.T) {
	env := newTestEnv(t)
	m, err := env.svc.Record(context.Background(), &RecordRequest{
		AssignmentID:  env.assignmentID,
		MeasuredValue: fp(20.0),
		ExpectedValue: fp(20.0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Status != StatusPass {
		t.Errorf("status = %q, want pass", m.Status)
	}
	if m.RecoveryPercent == nil || *m.RecoveryPercent != 100 {
		t.Errorf("recovery = %v, want 100", m.RecoveryPercent)
	}
	if env.assignments.store[env.assignmentID].Status != assignment.StatusCompleted {
		t.Error("expected assignment to be marked completed")
	}
	if len(env.notifier.sent) != 0 {
		t.Errorf("no notification expected on pass, got %v", env.notifier.sent)
	}
}

func TestRecord_FailureNotifiesManager(t *testing.T) {
	env := newTestEnv(t)
	m, err := env.svc.Record(context.Background(), &RecordRequest{
		AssignmentID:  env.assignmentID,
		MeasuredValue: fp(30.0),
		ExpectedValue: fp(20.0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Status != StatusFail {
		t.Errorf("status = %q, want fail", m.Status)
	}
	if len(env.notifier.sent) != 1 || env.notifier.sent[0] != "qc-failed" {
		t.Errorf("expected qc-failed notification, got %v", env.notifier.sent)
	}
	// the assignment still completes: a failing check is a recorded outcome
	if env.assignments.store[env.assignmentID].Status != assignment.StatusCompleted {
		t.Error("expected assignment to be marked completed")
	}
}

func TestRecord_PopulatesFromControlSpec(t *testing.T) {
	env := newTestEnv(t)
	env.cat.specs[env.parameterID] = &catalog.ControlSpec{
		ParameterID:      env.parameterID,
		ExpectedValue:    fp(18.0),
		DefaultTolerance: fp(5.0),
		Unit:             "%",
	}
	m, err := env.svc.Record(context.Background(), &RecordRequest{
		AssignmentID:  env.assignmentID,
		MeasuredValue: fp(18.5),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ExpectedValue == nil || *m.ExpectedValue != 18.0 {
		t.Errorf("expected_value = %v, want 18.0 from control spec", m.ExpectedValue)
	}
	if m.Status != StatusPass {
		t.Errorf("status = %q, want pass (recovery ~102.78 within 5%%)", m.Status)
	}
}

func TestRecord_NoSpecFailsClosed(t *testing.T) {
	env := newTestEnv(t)
	m, err := env.svc.Record(context.Background(), &RecordRequest{
		AssignmentID:  env.assignmentID,
		MeasuredValue: fp(18.5),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Status != StatusFail {
		t.Errorf("status = %q, want fail when no criteria exist", m.Status)
	}
	if m.RecoveryPercent != nil {
		t.Errorf("recovery = %v, want nil", *m.RecoveryPercent)
	}
}

func TestRecord_NonControlAssignment(t *testing.T) {
	env := newTestEnv(t)
	env.assignments.store[env.assignmentID].IsControl = false
	_, err := env.svc.Record(context.Background(), &RecordRequest{
		AssignmentID:  env.assignmentID,
		MeasuredValue: fp(18.5),
	})
	if err == nil {
		t.Fatal("expected error for non-control assignment")
	}
}

func TestRecord_SecondSubmissionUpdatesInPlace(t *testing.T) {
	env := newTestEnv(t)
	first, err := env.svc.Record(context.Background(), &RecordRequest{
		AssignmentID:  env.assignmentID,
		MeasuredValue: fp(30.0),
		ExpectedValue: fp(20.0),
	})
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	second, err := env.svc.Record(context.Background(), &RecordRequest{
		AssignmentID:  env.assignmentID,
		MeasuredValue: fp(20.0),
		ExpectedValue: fp(20.0),
	})
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if second.ID != first.ID {
		t.Error("second submission must update the same row")
	}
	if second.Status != StatusPass {
		t.Errorf("status = %q, want pass after corrected measurement", second.Status)
	}
	if env.assignments.store[env.assignmentID].Status != assignment.StatusCompleted {
		t.Error("assignment must stay completed")
	}
}
