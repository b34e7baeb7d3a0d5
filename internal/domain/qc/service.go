package qc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lims/lims/internal/domain/assignment"
	"github.com/lims/lims/internal/domain/catalog"
	"github.com/lims/lims/internal/platform/metrics"
	"github.com/lims/lims/internal/platform/notification"
)

// Catalog resolves parameters and their control specs.
type Catalog interface {
	GetParameter(ctx context.Context, id uuid.UUID) (*catalog.Parameter, error)
	GetControlSpecByParameter(ctx context.Context, parameterID uuid.UUID) (*catalog.ControlSpec, error)
}

// Assignments is the slice of the assignment service QC recording drives.
type Assignments interface {
	GetAssignment(ctx context.Context, id uuid.UUID) (*assignment.TestAssignment, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) error
}

type Notifier interface {
	SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*notification.Notification, error)
}

type Service struct {
	metrics     MetricsRepository
	catalog     Catalog
	assignments Assignments

	notifier     Notifier
	managerEmail string
	counters     *metrics.Metrics
}

func NewService(repo MetricsRepository, cat Catalog, assignments Assignments) *Service {
	return &Service{metrics: repo, catalog: cat, assignments: assignments}
}

func (s *Service) SetNotifier(n Notifier, managerEmail string) {
	s.notifier = n
	s.managerEmail = managerEmail
}

func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.counters = m
}

// RecordRequest carries a QC measurement. Acceptance bounds left nil are
// filled in from the parameter's control spec.
type RecordRequest struct {
	AssignmentID  uuid.UUID `json:"assignment_id"`
	MeasuredValue *float64  `json:"measured_value,omitempty"`
	ExpectedValue *float64  `json:"expected_value,omitempty"`
	Tolerance     *float64  `json:"tolerance,omitempty"`
	MinAcceptable *float64  `json:"min_acceptable,omitempty"`
	MaxAcceptable *float64  `json:"max_acceptable,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
}

// Record evaluates a control measurement, stores the metrics and marks the
// assignment completed. A failing evaluation is a stored domain state, not an
// error.
func (s *Service) Record(ctx context.Context, req *RecordRequest) (*QCMetrics, error) {
	a, err := s.assignments.GetAssignment(ctx, req.AssignmentID)
	if err != nil {
		return nil, fmt.Errorf("unknown assignment: %s", req.AssignmentID)
	}
	if !a.IsControl {
		return nil, fmt.Errorf("assignment %s is not a control assignment", a.ID)
	}

	parameterName := a.ParameterID.String()
	if p, err := s.catalog.GetParameter(ctx, a.ParameterID); err == nil {
		parameterName = p.Name
	}

	m := &QCMetrics{
		AssignmentID:  a.ID,
		ExpectedValue: req.ExpectedValue,
		Tolerance:     req.Tolerance,
		MinAcceptable: req.MinAcceptable,
		MaxAcceptable: req.MaxAcceptable,
		MeasuredValue: req.MeasuredValue,
		Notes:         req.Notes,
	}
	s.populateFromSpec(ctx, a.ParameterID, m)

	m.Status, m.RecoveryPercent = Evaluate(m.MeasuredValue, m.ExpectedValue, m.Tolerance, m.MinAcceptable, m.MaxAcceptable)

	if err := s.metrics.Upsert(ctx, m); err != nil {
		return nil, err
	}
	if err := s.assignments.MarkCompleted(ctx, a.ID); err != nil {
		return nil, err
	}

	if m.Status == StatusFail {
		if s.counters != nil {
			s.counters.QCFailures.WithLabelValues(parameterName).Inc()
		}
		s.notifyFailure(ctx, m, parameterName)
	}
	return m, nil
}

// populateFromSpec copies acceptance bounds from the catalog control spec for
// any field the caller left unset. Missing specs are fine: evaluation fails
// closed on insufficient data.
func (s *Service) populateFromSpec(ctx context.Context, parameterID uuid.UUID, m *QCMetrics) {
	if m.ExpectedValue != nil || (m.MinAcceptable != nil && m.MaxAcceptable != nil) {
		return
	}
	spec, err := s.catalog.GetControlSpecByParameter(ctx, parameterID)
	if err != nil {
		return
	}
	if m.ExpectedValue == nil {
		m.ExpectedValue = spec.ExpectedValue
	}
	if m.Tolerance == nil {
		m.Tolerance = spec.DefaultTolerance
	}
	if m.MinAcceptable == nil {
		m.MinAcceptable = spec.MinAcceptable
	}
	if m.MaxAcceptable == nil {
		m.MaxAcceptable = spec.MaxAcceptable
	}
}

func (s *Service) notifyFailure(ctx context.Context, m *QCMetrics, parameterName string) {
	if s.notifier == nil || s.managerEmail == "" {
		return
	}
	reason := "measured value outside acceptance criteria"
	if m.MeasuredValue == nil {
		reason = "no measured value recorded"
	} else if m.ExpectedValue == nil && (m.MinAcceptable == nil || m.MaxAcceptable == nil) {
		reason = "no acceptance criteria configured"
	} else if m.RecoveryPercent != nil {
		reason = fmt.Sprintf("recovery %.2f%% outside tolerance", *m.RecoveryPercent)
	}
	data := map[string]string{
		"parameter_name": parameterName,
		"reason":         reason,
	}
	if _, err := s.notifier.SendFromTemplate(ctx, "qc-failed", data, s.managerEmail); err != nil {
		log.Warn().Err(err).Str("parameter", parameterName).Msg("qc failure notification failed")
	}
}

func (s *Service) GetByAssignment(ctx context.Context, assignmentID uuid.UUID) (*QCMetrics, error) {
	return s.metrics.GetByAssignment(ctx, assignmentID)
}

func (s *Service) ListFailures(ctx context.Context, limit, offset int) ([]*QCMetrics, int, error) {
	return s.metrics.ListByStatus(ctx, StatusFail, limit, offset)
}
