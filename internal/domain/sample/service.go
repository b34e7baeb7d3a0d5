package sample

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lims/lims/internal/platform/metrics"
	"github.com/lims/lims/internal/platform/notification"
)

// ClientInfo is the slice of client data intake needs.
type ClientInfo struct {
	Code  string
	Name  string
	Email string
	Token string
}

// ClientDirectory resolves a client id to its intake-relevant fields.
type ClientDirectory interface {
	Lookup(ctx context.Context, id uuid.UUID) (*ClientInfo, error)
}

// Notifier is satisfied by notification.NotificationManager.
type Notifier interface {
	SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*notification.Notification, error)
}

type Service struct {
	samples SampleRepository
	history StatusHistoryRepository
	clients ClientDirectory

	notifier     Notifier
	managerEmail string
	metrics      *metrics.Metrics
}

func NewService(samples SampleRepository, history StatusHistoryRepository, clients ClientDirectory) *Service {
	return &Service{samples: samples, history: history, clients: clients}
}

func (s *Service) SetNotifier(n Notifier, managerEmail string) {
	s.notifier = n
	s.managerEmail = managerEmail
}

func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// IntakeItem is one physical sample in an intake batch.
type IntakeItem struct {
	SampleType  string   `json:"sample_type"`
	Weight      float64  `json:"weight"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
}

// IntakeRequest registers a batch of samples for one client.
type IntakeRequest struct {
	ClientID uuid.UUID    `json:"client_id"`
	Items    []IntakeItem `json:"items"`
}

// Intake creates the samples with generated codes, records the initial status
// and notifies the client (and lab manager) that the batch arrived.
func (s *Service) Intake(ctx context.Context, req *IntakeRequest, receivedBy string) ([]*Sample, error) {
	if req.ClientID == uuid.Nil {
		return nil, fmt.Errorf("client_id is required")
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("at least one sample is required")
	}
	for i, item := range req.Items {
		if item.SampleType == "" {
			return nil, fmt.Errorf("item %d: sample_type is required", i)
		}
		if item.Weight <= 0 {
			return nil, fmt.Errorf("item %d: weight must be positive", i)
		}
	}

	cl, err := s.clients.Lookup(ctx, req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("unknown client: %s", req.ClientID)
	}

	now := time.Now().UTC()
	created := make([]*Sample, 0, len(req.Items))
	for _, item := range req.Items {
		seq, err := s.samples.NextSequence(ctx, req.ClientID)
		if err != nil {
			return nil, fmt.Errorf("allocate sample code: %w", err)
		}
		sm := &Sample{
			ClientID:    req.ClientID,
			SampleCode:  fmt.Sprintf("%s-%02d", cl.Code, seq),
			SampleType:  item.SampleType,
			Weight:      item.Weight,
			Temperature: item.Temperature,
			Humidity:    item.Humidity,
			Status:      StatusReceived,
			ReceivedAt:  now,
		}
		if err := s.samples.Create(ctx, sm); err != nil {
			return nil, err
		}
		if err := s.history.Create(ctx, &StatusHistory{
			SampleID:  sm.ID,
			ToStatus:  StatusReceived,
			ChangedBy: receivedBy,
		}); err != nil {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.SamplesReceived.Inc()
		}
		created = append(created, sm)
	}

	s.notifyReceived(ctx, cl, created)
	return created, nil
}

func (s *Service) notifyReceived(ctx context.Context, cl *ClientInfo, created []*Sample) {
	if s.notifier == nil {
		return
	}
	for _, sm := range created {
		data := map[string]string{
			"client_name":   cl.Name,
			"sample_code":   sm.SampleCode,
			"sample_type":   sm.SampleType,
			"received_date": sm.ReceivedAt.Format("2006-01-02"),
			"token":         cl.Token,
		}
		if _, err := s.notifier.SendFromTemplate(ctx, "sample-received", data, cl.Email); err != nil {
			log.Warn().Err(err).Str("sample_code", sm.SampleCode).Msg("client intake notification failed")
		}
		if s.managerEmail != "" {
			if _, err := s.notifier.SendFromTemplate(ctx, "sample-received", data, s.managerEmail); err != nil {
				log.Warn().Err(err).Str("sample_code", sm.SampleCode).Msg("manager intake notification failed")
			}
		}
	}
}

func (s *Service) GetSample(ctx context.Context, id uuid.UUID) (*Sample, error) {
	return s.samples.GetByID(ctx, id)
}

func (s *Service) GetSampleByCode(ctx context.Context, code string) (*Sample, error) {
	return s.samples.GetByCode(ctx, code)
}

func (s *Service) ListSamples(ctx context.Context, limit, offset int) ([]*Sample, int, error) {
	return s.samples.List(ctx, limit, offset)
}

func (s *Service) ListSamplesByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*Sample, int, error) {
	return s.samples.ListByClient(ctx, clientID, limit, offset)
}

func (s *Service) ListSamplesByStatus(ctx context.Context, status string, limit, offset int) ([]*Sample, int, error) {
	return s.samples.ListByStatus(ctx, status, limit, offset)
}

func (s *Service) SearchSamples(ctx context.Context, params map[string]string, limit, offset int) ([]*Sample, int, error) {
	return s.samples.Search(ctx, params, limit, offset)
}

func (s *Service) UpdateSample(ctx context.Context, sm *Sample) error {
	if sm.SampleType == "" {
		return fmt.Errorf("sample_type is required")
	}
	if sm.Weight <= 0 {
		return fmt.Errorf("weight must be positive")
	}
	return s.samples.Update(ctx, sm)
}

// UpdateStatus moves a sample along the state machine, validating the
// transition and recording history.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to, changedBy string, reason *string) error {
	sm, err := s.samples.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sm.Status == to {
		return nil
	}
	if err := ValidateTransition(sm.Status, to); err != nil {
		return err
	}
	// capture before the repo write: a repository may mutate the fetched
	// sample in place
	from := sm.Status
	if err := s.samples.UpdateStatus(ctx, id, to); err != nil {
		return err
	}
	return s.history.Create(ctx, &StatusHistory{
		SampleID:   id,
		FromStatus: from,
		ToStatus:   to,
		ChangedBy:  changedBy,
		Reason:     reason,
	})
}

// Approve is the manual manager action out of under_review.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, changedBy string) error {
	sm, err := s.samples.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sm.Status != StatusUnderReview {
		return fmt.Errorf("only samples under review can be approved, current status is %s", sm.Status)
	}
	return s.UpdateStatus(ctx, id, StatusApproved, changedBy, nil)
}

// Reject is the only backward-facing manual action and requires a reason.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, changedBy, reason string) error {
	if reason == "" {
		return fmt.Errorf("rejection reason is required")
	}
	sm, err := s.samples.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sm.Status != StatusUnderReview {
		return fmt.Errorf("only samples under review can be rejected, current status is %s", sm.Status)
	}
	return s.UpdateStatus(ctx, id, StatusRejected, changedBy, &reason)
}

func (s *Service) History(ctx context.Context, sampleID uuid.UUID, limit, offset int) ([]*StatusHistory, int, error) {
	return s.history.ListBySample(ctx, sampleID, limit, offset)
}
