package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lims/lims/internal/domain/sample"
	"github.com/lims/lims/internal/platform/notification"
)

// SampleTransitions is the slice of the sample service assignments drive:
// moving a sample forward when work is assigned or started.
type SampleTransitions interface {
	GetSample(ctx context.Context, id uuid.UUID) (*sample.Sample, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to, changedBy string, reason *string) error
}

type Notifier interface {
	SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*notification.Notification, error)
}

type Service struct {
	assignments AssignmentRepository
	results     ResultRepository
	samples     SampleTransitions
	notifier    Notifier
}

func NewService(assignments AssignmentRepository, results ResultRepository, samples SampleTransitions) *Service {
	return &Service{assignments: assignments, results: results, samples: samples}
}

func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// BatchAssignRequest assigns a set of parameters on one sample, optionally to
// an analyst.
type BatchAssignRequest struct {
	SampleID       uuid.UUID   `json:"sample_id"`
	ParameterIDs   []uuid.UUID `json:"parameter_ids"`
	AnalystID      *string     `json:"analyst_id,omitempty"`
	AnalystEmail   string      `json:"analyst_email,omitempty"`
	EquipmentID    *uuid.UUID  `json:"equipment_id,omitempty"`
	IsControl      bool        `json:"is_control"`
	IsReference    bool        `json:"is_reference"`
	ManagerComment *string     `json:"manager_comment,omitempty"`
	DueDate        string      `json:"due_date,omitempty"`
}

// BatchAssign creates one assignment per parameter and moves a freshly
// received sample to assigned.
func (s *Service) BatchAssign(ctx context.Context, req *BatchAssignRequest, assignedBy string) ([]*TestAssignment, error) {
	if req.SampleID == uuid.Nil {
		return nil, fmt.Errorf("sample_id is required")
	}
	if len(req.ParameterIDs) == 0 {
		return nil, fmt.Errorf("at least one parameter is required")
	}
	sm, err := s.samples.GetSample(ctx, req.SampleID)
	if err != nil {
		return nil, fmt.Errorf("unknown sample: %s", req.SampleID)
	}

	status := StatusPending
	if req.AnalystID != nil && *req.AnalystID != "" {
		status = StatusAssigned
	}

	now := time.Now().UTC()
	created := make([]*TestAssignment, 0, len(req.ParameterIDs))
	for _, pid := range req.ParameterIDs {
		a := &TestAssignment{
			SampleID:       req.SampleID,
			ParameterID:    pid,
			AnalystID:      req.AnalystID,
			EquipmentID:    req.EquipmentID,
			Status:         status,
			IsControl:      req.IsControl,
			IsReference:    req.IsReference,
			ManagerComment: req.ManagerComment,
			AssignedAt:     now,
		}
		if err := s.assignments.Create(ctx, a); err != nil {
			return nil, err
		}
		created = append(created, a)
	}

	if sm.Status == sample.StatusReceived {
		if err := s.samples.UpdateStatus(ctx, sm.ID, sample.StatusAssigned, assignedBy, nil); err != nil {
			return nil, err
		}
	}

	if s.notifier != nil && req.AnalystEmail != "" {
		name := ""
		if req.AnalystID != nil {
			name = *req.AnalystID
		}
		data := map[string]string{
			"analyst_name":    name,
			"parameter_count": fmt.Sprintf("%d", len(created)),
			"sample_code":     sm.SampleCode,
			"due_date":        req.DueDate,
		}
		if _, err := s.notifier.SendFromTemplate(ctx, "tests-assigned", data, req.AnalystEmail); err != nil {
			log.Warn().Err(err).Str("sample_code", sm.SampleCode).Msg("analyst assignment notification failed")
		}
	}

	return created, nil
}

// StartWork moves an assignment to in_progress, records the start time on its
// result row and pulls the sample into in_progress on the first start.
func (s *Service) StartWork(ctx context.Context, assignmentID uuid.UUID, analystID string) (*TestAssignment, error) {
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	switch a.Status {
	case StatusPending, StatusAssigned:
	case StatusInProgress:
		return a, nil
	default:
		return nil, fmt.Errorf("cannot start work on a %s assignment", a.Status)
	}

	if err := s.assignments.UpdateStatus(ctx, a.ID, StatusInProgress); err != nil {
		return nil, err
	}
	a.Status = StatusInProgress

	now := time.Now().UTC()
	if err := s.results.Upsert(ctx, &TestResult{
		AssignmentID: a.ID,
		RecordedBy:   &analystID,
		RecordedAt:   now,
		StartedAt:    &now,
		Source:       SourceManual,
	}); err != nil {
		return nil, err
	}

	sm, err := s.samples.GetSample(ctx, a.SampleID)
	if err != nil {
		return nil, err
	}
	if sm.Status == sample.StatusAssigned {
		if err := s.samples.UpdateStatus(ctx, sm.ID, sample.StatusInProgress, analystID, nil); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// MarkCompleted records that a result exists for the assignment. Recording a
// second result for the same assignment leaves the status unchanged.
func (s *Service) MarkCompleted(ctx context.Context, assignmentID uuid.UUID) error {
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return err
	}
	if a.Status == StatusCompleted || a.Status == StatusVerified {
		return nil
	}
	return s.assignments.UpdateStatus(ctx, assignmentID, StatusCompleted)
}

// Verify is the manager sign-off on a completed assignment.
func (s *Service) Verify(ctx context.Context, assignmentID uuid.UUID, comment *string) error {
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return err
	}
	if a.Status != StatusCompleted {
		return fmt.Errorf("only completed assignments can be verified, current status is %s", a.Status)
	}
	a.Status = StatusVerified
	a.ManagerComment = comment
	return s.assignments.Update(ctx, a)
}

// RejectAssignment sends an assignment back with a mandatory comment.
func (s *Service) RejectAssignment(ctx context.Context, assignmentID uuid.UUID, comment string) error {
	if comment == "" {
		return fmt.Errorf("manager comment is required to reject an assignment")
	}
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return err
	}
	a.Status = StatusRejected
	a.ManagerComment = &comment
	return s.assignments.Update(ctx, a)
}

func (s *Service) GetAssignment(ctx context.Context, id uuid.UUID) (*TestAssignment, error) {
	return s.assignments.GetByID(ctx, id)
}

func (s *Service) ListBySample(ctx context.Context, sampleID uuid.UUID) ([]*TestAssignment, error) {
	return s.assignments.ListBySample(ctx, sampleID)
}

func (s *Service) ListByAnalyst(ctx context.Context, analystID string, limit, offset int) ([]*TestAssignment, int, error) {
	return s.assignments.ListByAnalyst(ctx, analystID, limit, offset)
}

func (s *Service) ListByParameter(ctx context.Context, parameterID uuid.UUID, limit, offset int) ([]*TestAssignment, int, error) {
	return s.assignments.ListByParameter(ctx, parameterID, limit, offset)
}

func (s *Service) GetBySampleAndParameter(ctx context.Context, sampleID, parameterID uuid.UUID) (*TestAssignment, error) {
	return s.assignments.GetBySampleAndParameter(ctx, sampleID, parameterID)
}

// UpsertResult writes a result row directly; completion tracking is the
// caller's concern.
func (s *Service) UpsertResult(ctx context.Context, r *TestResult) error {
	return s.results.Upsert(ctx, r)
}

func (s *Service) GetResult(ctx context.Context, assignmentID uuid.UUID) (*TestResult, error) {
	return s.results.GetByAssignment(ctx, assignmentID)
}

func (s *Service) ListResultsBySample(ctx context.Context, sampleID uuid.UUID) ([]*SampleResult, error) {
	return s.results.ListBySample(ctx, sampleID)
}
