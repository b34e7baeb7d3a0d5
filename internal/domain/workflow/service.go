package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/lims/lims/internal/domain/assignment"
	"github.com/lims/lims/internal/domain/catalog"
	"github.com/lims/lims/internal/domain/qc"
	"github.com/lims/lims/internal/domain/sample"
	"github.com/lims/lims/internal/platform/db"
	"github.com/lims/lims/internal/platform/metrics"
	"github.com/lims/lims/internal/platform/notification"
)

// Promotion scopes.
const (
	ScopeSample          = "sample"
	ScopeClientParameter = "client_parameter"
)

const promotionBatchLimit = 500

// TxRunner executes fn inside one transaction; the submission pipeline relies
// on it to make the completion check and the promotion write atomic.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// PgxTxRunner runs fn in a serializable transaction with retry.
func PgxTxRunner(pool *pgxpool.Pool) TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithSerializableTx(ctx, pool, fn)
	}
}

// PassthroughTx runs fn directly. For wiring without a database.
func PassthroughTx() TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		return fn(ctx)
	}
}

type Samples interface {
	GetSample(ctx context.Context, id uuid.UUID) (*sample.Sample, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to, changedBy string, reason *string) error
	ListSamplesByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*sample.Sample, int, error)
	ListSamplesByStatus(ctx context.Context, status string, limit, offset int) ([]*sample.Sample, int, error)
}

type Assignments interface {
	GetAssignment(ctx context.Context, id uuid.UUID) (*assignment.TestAssignment, error)
	GetBySampleAndParameter(ctx context.Context, sampleID, parameterID uuid.UUID) (*assignment.TestAssignment, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	ListBySample(ctx context.Context, sampleID uuid.UUID) ([]*assignment.TestAssignment, error)
	UpsertResult(ctx context.Context, r *assignment.TestResult) error
	ListResultsBySample(ctx context.Context, sampleID uuid.UUID) ([]*assignment.SampleResult, error)
}

type QCRecorder interface {
	Record(ctx context.Context, req *qc.RecordRequest) (*qc.QCMetrics, error)
}

type Catalog interface {
	GetParameter(ctx context.Context, id uuid.UUID) (*catalog.Parameter, error)
	GetParameterByName(ctx context.Context, name string) (*catalog.Parameter, error)
}

type Notifier interface {
	SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*notification.Notification, error)
}

// Service is the result-submission pipeline: persist the result, mark the
// assignment complete, derive carbohydrate and energy, and promote samples
// whose assignment set is fully completed.
type Service struct {
	runTx       TxRunner
	samples     Samples
	assignments Assignments
	qc          QCRecorder
	catalog     Catalog
	calc        Calculator
	scope       string

	notifier     Notifier
	managerEmail string
	counters     *metrics.Metrics
}

func NewService(runTx TxRunner, samples Samples, assignments Assignments, qcRecorder QCRecorder, cat Catalog, calc Calculator, scope string) *Service {
	if scope == "" {
		scope = ScopeSample
	}
	return &Service{
		runTx:       runTx,
		samples:     samples,
		assignments: assignments,
		qc:          qcRecorder,
		catalog:     cat,
		calc:        calc,
		scope:       scope,
	}
}

func (s *Service) SetNotifier(n Notifier, managerEmail string) {
	s.notifier = n
	s.managerEmail = managerEmail
}

func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.counters = m
}

// SubmitRequest is one result submission. For control assignments the value
// is the QC measured value and the optional acceptance fields apply.
type SubmitRequest struct {
	AssignmentID  uuid.UUID `json:"assignment_id"`
	Value         *float64  `json:"value,omitempty"`
	ExpectedValue *float64  `json:"expected_value,omitempty"`
	Tolerance     *float64  `json:"tolerance,omitempty"`
	MinAcceptable *float64  `json:"min_acceptable,omitempty"`
	MaxAcceptable *float64  `json:"max_acceptable,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
}

// SubmitOutcome reports everything one submission caused.
type SubmitOutcome struct {
	Assignment          *assignment.TestAssignment `json:"assignment"`
	Result              *assignment.TestResult     `json:"result,omitempty"`
	QC                  *qc.QCMetrics              `json:"qc,omitempty"`
	Carbohydrate        *float64                   `json:"carbohydrate,omitempty"`
	MetabolizableEnergy *float64                   `json:"metabolizable_energy,omitempty"`
	PromotedSampleIDs   []uuid.UUID                `json:"promoted_sample_ids,omitempty"`
}

// SubmitResult runs the full pipeline in one serializable transaction: result
// write, completion mark, derived-value injection, then promotion. The
// manager notification goes out only after the transaction commits.
func (s *Service) SubmitResult(ctx context.Context, req *SubmitRequest, recordedBy string) (*SubmitOutcome, error) {
	if req.AssignmentID == uuid.Nil {
		return nil, fmt.Errorf("assignment_id is required")
	}

	out := &SubmitOutcome{}
	var injected []string
	err := s.runTx(ctx, func(ctx context.Context) error {
		a, err := s.assignments.GetAssignment(ctx, req.AssignmentID)
		if err != nil {
			return fmt.Errorf("unknown assignment: %s", req.AssignmentID)
		}
		out.Assignment = a

		if a.IsControl {
			m, err := s.qc.Record(ctx, &qc.RecordRequest{
				AssignmentID:  a.ID,
				MeasuredValue: req.Value,
				ExpectedValue: req.ExpectedValue,
				Tolerance:     req.Tolerance,
				MinAcceptable: req.MinAcceptable,
				MaxAcceptable: req.MaxAcceptable,
				Notes:         req.Notes,
			})
			if err != nil {
				return err
			}
			out.QC = m
		} else {
			if req.Value == nil {
				return fmt.Errorf("value is required")
			}
			v := qc.Round2(*req.Value)
			r := &assignment.TestResult{
				AssignmentID:    a.ID,
				Value:           &v,
				RecordedBy:      &recordedBy,
				RecordedAt:      time.Now().UTC(),
				Source:          assignment.SourceManual,
				CalculationNote: req.Notes,
			}
			if err := s.assignments.UpsertResult(ctx, r); err != nil {
				return err
			}
			if err := s.assignments.MarkCompleted(ctx, a.ID); err != nil {
				return err
			}
			out.Result = r
		}

		cho, me, names, err := s.runDerived(ctx, a.SampleID)
		if err != nil {
			return err
		}
		out.Carbohydrate = cho
		out.MetabolizableEnergy = me
		injected = names

		promoted, err := s.promoteScope(ctx, a)
		if err != nil {
			return err
		}
		out.PromotedSampleIDs = promoted
		return nil
	})
	if err != nil {
		return nil, err
	}

	// counters move only after the commit so a retried serializable
	// transaction cannot double-count
	if s.counters != nil {
		s.counters.ResultsSubmitted.WithLabelValues(assignment.SourceManual).Inc()
		for _, name := range injected {
			s.counters.DerivedInjected.WithLabelValues(name).Inc()
		}
		s.counters.SamplesPromoted.Add(float64(len(out.PromotedSampleIDs)))
	}
	s.notifySubmitted(ctx, out)
	return out, nil
}

// runDerived recomputes the derived values for a sample and injects any it
// can place. A missing proximate or target assignment is not an error. The
// returned names are the parameters that actually received a value.
func (s *Service) runDerived(ctx context.Context, sampleID uuid.UUID) (*float64, *float64, []string, error) {
	results, err := s.assignments.ListResultsBySample(ctx, sampleID)
	if err != nil {
		return nil, nil, nil, err
	}
	values := make(map[string]float64, len(results))
	for _, r := range results {
		if r.Value != nil {
			values[r.ParameterName] = *r.Value
		}
	}

	cho, me := s.calc.Calculate(values)
	if cho == nil {
		return nil, nil, nil, nil
	}

	var injected []string
	choNote := "derived: 100 - (Protein + Fat + Ash + Moisture + Fiber)"
	ok, err := s.inject(ctx, sampleID, s.calc.CHOParameter, *cho, choNote)
	if err != nil {
		return nil, nil, nil, err
	}
	if ok {
		injected = append(injected, s.calc.CHOParameter)
	}
	meNote := fmt.Sprintf("derived: metabolizable energy (%s)", s.calc.MEStrategy)
	ok, err = s.inject(ctx, sampleID, s.calc.MEParameter, *me, meNote)
	if err != nil {
		return nil, nil, nil, err
	}
	if ok {
		injected = append(injected, s.calc.MEParameter)
	}
	return cho, me, injected, nil
}

// inject writes one derived value against the sample's assignment for the
// named parameter, marking it completed. No assignment, no write.
func (s *Service) inject(ctx context.Context, sampleID uuid.UUID, paramName string, value float64, note string) (bool, error) {
	p, err := s.catalog.GetParameterByName(ctx, paramName)
	if err != nil {
		log.Debug().Str("parameter", paramName).Msg("derived value dropped: parameter not in catalog")
		return false, nil
	}
	a, err := s.assignments.GetBySampleAndParameter(ctx, sampleID, p.ID)
	if err != nil {
		log.Debug().Str("parameter", paramName).Str("sample_id", sampleID.String()).
			Msg("derived value dropped: no assignment on sample")
		return false, nil
	}
	r := &assignment.TestResult{
		AssignmentID:    a.ID,
		Value:           &value,
		RecordedAt:      time.Now().UTC(),
		Source:          assignment.SourceSystem,
		CalculationNote: &note,
	}
	if err := s.assignments.UpsertResult(ctx, r); err != nil {
		return false, err
	}
	if err := s.assignments.MarkCompleted(ctx, a.ID); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) promoteScope(ctx context.Context, a *assignment.TestAssignment) ([]uuid.UUID, error) {
	sm, err := s.samples.GetSample(ctx, a.SampleID)
	if err != nil {
		return nil, err
	}

	if s.scope == ScopeClientParameter {
		return s.promoteClientParameter(ctx, sm.ClientID, a.ParameterID)
	}

	ok, err := s.promote(ctx, sm)
	if err != nil {
		return nil, err
	}
	if ok {
		return []uuid.UUID{sm.ID}, nil
	}
	return nil, nil
}

// promoteClientParameter moves a client's samples to review by parameter
// batch: once every assignment for the submitted parameter across the client
// is completed, each sample holding that parameter promotes, even with other
// parameters still pending on it.
func (s *Service) promoteClientParameter(ctx context.Context, clientID, parameterID uuid.UUID) ([]uuid.UUID, error) {
	candidates, _, err := s.samples.ListSamplesByClient(ctx, clientID, promotionBatchLimit, 0)
	if err != nil {
		return nil, err
	}
	var holders []*sample.Sample
	for _, sm := range candidates {
		a, err := s.assignments.GetBySampleAndParameter(ctx, sm.ID, parameterID)
		if err != nil {
			continue
		}
		if a.Status != assignment.StatusCompleted && a.Status != assignment.StatusVerified {
			return nil, nil
		}
		holders = append(holders, sm)
	}
	var promoted []uuid.UUID
	for _, sm := range holders {
		ok, err := s.advance(ctx, sm)
		if err != nil {
			return nil, err
		}
		if ok {
			promoted = append(promoted, sm.ID)
		}
	}
	return promoted, nil
}

// promote applies the sample-wide promotion rule: every assignment completed,
// at least one assignment exists. A sample with zero assignments is never
// promoted.
func (s *Service) promote(ctx context.Context, sm *sample.Sample) (bool, error) {
	if sample.StatusRank(sm.Status) >= sample.StatusRank(sample.StatusUnderReview) {
		return false, nil
	}
	as, err := s.assignments.ListBySample(ctx, sm.ID)
	if err != nil {
		return false, err
	}
	if len(as) == 0 {
		return false, nil
	}
	for _, a := range as {
		if a.Status != assignment.StatusCompleted && a.Status != assignment.StatusVerified {
			return false, nil
		}
	}
	return s.advance(ctx, sm)
}

// advance walks the sample through any skipped intermediate states so every
// hop is a legal transition. A sample at or past under_review is never
// regressed.
func (s *Service) advance(ctx context.Context, sm *sample.Sample) (bool, error) {
	if sample.StatusRank(sm.Status) >= sample.StatusRank(sample.StatusUnderReview) {
		return false, nil
	}
	for _, step := range []string{sample.StatusAssigned, sample.StatusInProgress, sample.StatusUnderReview} {
		if sample.StatusRank(sm.Status) < sample.StatusRank(step) {
			if err := s.samples.UpdateStatus(ctx, sm.ID, step, "system", nil); err != nil {
				return false, err
			}
			sm.Status = step
		}
	}
	return true, nil
}

// PromoteReadySamples re-evaluates the promotion rule over every sample still
// in flight. Operational catch-up for submissions processed out of band.
func (s *Service) PromoteReadySamples(ctx context.Context) (int, error) {
	promoted := 0
	for _, status := range []string{sample.StatusAssigned, sample.StatusInProgress} {
		candidates, _, err := s.samples.ListSamplesByStatus(ctx, status, promotionBatchLimit, 0)
		if err != nil {
			return promoted, err
		}
		for _, sm := range candidates {
			var ok bool
			err := s.runTx(ctx, func(ctx context.Context) error {
				var err error
				ok, err = s.promote(ctx, sm)
				return err
			})
			if err != nil {
				return promoted, err
			}
			if ok {
				promoted++
				if s.counters != nil {
					s.counters.SamplesPromoted.Inc()
				}
			}
		}
	}
	return promoted, nil
}

func (s *Service) notifySubmitted(ctx context.Context, out *SubmitOutcome) {
	if s.notifier == nil || s.managerEmail == "" {
		return
	}
	value := ""
	if out.Result != nil && out.Result.Value != nil {
		value = fmt.Sprintf("%.2f", *out.Result.Value)
	} else if out.QC != nil && out.QC.MeasuredValue != nil {
		value = fmt.Sprintf("%.2f", *out.QC.MeasuredValue)
	}
	qcStatus := "n/a"
	if out.QC != nil {
		qcStatus = out.QC.Status
	}
	parameterName := out.Assignment.ParameterID.String()
	unit := ""
	if p, err := s.catalog.GetParameter(ctx, out.Assignment.ParameterID); err == nil {
		parameterName = p.Name
		unit = p.Unit
	}
	data := map[string]string{
		"value":          value,
		"unit":           unit,
		"parameter_name": parameterName,
		"qc_status":      qcStatus,
	}
	if _, err := s.notifier.SendFromTemplate(ctx, "result-submitted", data, s.managerEmail); err != nil {
		log.Warn().Err(err).Str("parameter", parameterName).Msg("result submission notification failed")
	}
}
