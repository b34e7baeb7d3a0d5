package inventory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lims/lims/internal/platform/notification"
)

// Notifier sends templated notifications. Satisfied by
// *notification.NotificationManager.
type Notifier interface {
	SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*notification.Notification, error)
}

type Service struct {
	reagents ReagentRepository
	usage    UsageRepository
	requests RequestRepository
	issues   IssueRepository
	audits   AuditRepository

	notifier     Notifier
	managerEmail string
}

func NewService(reagents ReagentRepository, usage UsageRepository, requests RequestRepository, issues IssueRepository, audits AuditRepository) *Service {
	return &Service{
		reagents: reagents,
		usage:    usage,
		requests: requests,
		issues:   issues,
		audits:   audits,
	}
}

// SetNotifier enables low-stock alerts to the lab manager.
func (s *Service) SetNotifier(n Notifier, managerEmail string) {
	s.notifier = n
	s.managerEmail = managerEmail
}

func (s *Service) CreateReagent(ctx context.Context, r *Reagent) error {
	if r.Name == "" {
		return fmt.Errorf("reagent name is required")
	}
	if r.BatchNumber == "" {
		return fmt.Errorf("batch number is required")
	}
	if r.NumberOfContainers < 0 {
		return fmt.Errorf("number of containers cannot be negative")
	}
	if r.QuantityPerContainer <= 0 {
		return fmt.Errorf("quantity per container must be positive")
	}
	if r.Unit == "" {
		return fmt.Errorf("unit is required")
	}
	if r.DateReceived.IsZero() {
		r.DateReceived = time.Now().UTC()
	}
	return s.reagents.Create(ctx, r)
}

func (s *Service) GetReagent(ctx context.Context, id uuid.UUID) (*Reagent, error) {
	return s.reagents.GetByID(ctx, id)
}

func (s *Service) UpdateReagent(ctx context.Context, r *Reagent) error {
	if _, err := s.reagents.GetByID(ctx, r.ID); err != nil {
		return fmt.Errorf("reagent not found: %w", err)
	}
	return s.reagents.Update(ctx, r)
}

func (s *Service) DeleteReagent(ctx context.Context, id uuid.UUID) error {
	return s.reagents.Delete(ctx, id)
}

func (s *Service) ListReagents(ctx context.Context, limit, offset int) ([]*Reagent, int, error) {
	return s.reagents.List(ctx, limit, offset)
}

func (s *Service) SearchReagents(ctx context.Context, params map[string]string, limit, offset int) ([]*Reagent, int, error) {
	return s.reagents.Search(ctx, params, limit, offset)
}

// RecordUsage deducts whole containers from stock and alerts the manager
// when the remaining count reaches the reagent's threshold.
func (s *Service) RecordUsage(ctx context.Context, u *ReagentUsage) (*Reagent, error) {
	if u.ContainersUsed <= 0 {
		return nil, fmt.Errorf("containers used must be positive")
	}
	if u.Purpose == "" {
		return nil, fmt.Errorf("purpose is required")
	}
	r, err := s.reagents.GetByID(ctx, u.ReagentID)
	if err != nil {
		return nil, fmt.Errorf("reagent not found: %w", err)
	}
	if u.ContainersUsed > r.NumberOfContainers {
		return nil, fmt.Errorf("insufficient stock: %d containers available, %d requested", r.NumberOfContainers, u.ContainersUsed)
	}

	u.QuantityUsed = float64(u.ContainersUsed) * r.QuantityPerContainer
	if u.UsedAt.IsZero() {
		u.UsedAt = time.Now().UTC()
	}
	if err := s.usage.Create(ctx, u); err != nil {
		return nil, err
	}

	r.NumberOfContainers -= u.ContainersUsed
	if err := s.reagents.Update(ctx, r); err != nil {
		return nil, err
	}

	if r.NumberOfContainers <= r.LowStockThreshold {
		s.notifyLowStock(ctx, r)
	}
	return r, nil
}

func (s *Service) notifyLowStock(ctx context.Context, r *Reagent) {
	if s.notifier == nil || s.managerEmail == "" {
		return
	}
	data := map[string]string{
		"reagent_name":  r.Name,
		"quantity":      strconv.Itoa(r.NumberOfContainers),
		"reorder_level": strconv.Itoa(r.LowStockThreshold),
	}
	if _, err := s.notifier.SendFromTemplate(ctx, "low-stock", data, s.managerEmail); err != nil {
		log.Warn().Err(err).Str("reagent_id", r.ID.String()).Msg("failed to send low stock notification")
	}
}

func (s *Service) ListUsage(ctx context.Context, reagentID uuid.UUID, limit, offset int) ([]*ReagentUsage, int, error) {
	return s.usage.ListByReagent(ctx, reagentID, limit, offset)
}

// CreateRequest computes line amounts and the request total before storing.
func (s *Service) CreateRequest(ctx context.Context, req *ReagentRequest) error {
	if req.RequestedBy == "" {
		return fmt.Errorf("requested_by is required")
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("at least one item is required")
	}
	var total float64
	for _, item := range req.Items {
		if item.ReagentName == "" {
			return fmt.Errorf("item reagent name is required")
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("item quantity must be positive")
		}
		item.Amount = item.Quantity * item.UnitPrice
		total += item.Amount
	}
	req.TotalAmount = total
	return s.requests.Create(ctx, req)
}

func (s *Service) GetRequest(ctx context.Context, id uuid.UUID) (*ReagentRequest, error) {
	return s.requests.GetByID(ctx, id)
}

func (s *Service) ListRequests(ctx context.Context, limit, offset int) ([]*ReagentRequest, int, error) {
	return s.requests.List(ctx, limit, offset)
}

// ReportIssue records a problem with a stocked reagent.
func (s *Service) ReportIssue(ctx context.Context, i *ReagentIssue) error {
	switch i.IssueType {
	case IssueContamination, IssueExpired, IssueLeak, IssueOther:
	default:
		return fmt.Errorf("invalid issue type %q", i.IssueType)
	}
	if i.Description == "" {
		return fmt.Errorf("description is required")
	}
	if _, err := s.reagents.GetByID(ctx, i.ReagentID); err != nil {
		return fmt.Errorf("reagent not found: %w", err)
	}
	return s.issues.Create(ctx, i)
}

func (s *Service) ListIssues(ctx context.Context, reagentID uuid.UUID, limit, offset int) ([]*ReagentIssue, int, error) {
	return s.issues.ListByReagent(ctx, reagentID, limit, offset)
}

// RecordAudit stores a physical count. The book count is captured at audit
// time so later usage does not rewrite history.
func (s *Service) RecordAudit(ctx context.Context, a *InventoryAudit) error {
	if a.AuditedBy == "" {
		return fmt.Errorf("audited_by is required")
	}
	if a.ActualContainers < 0 {
		return fmt.Errorf("actual containers cannot be negative")
	}
	r, err := s.reagents.GetByID(ctx, a.ReagentID)
	if err != nil {
		return fmt.Errorf("reagent not found: %w", err)
	}
	a.ExpectedContainers = r.NumberOfContainers
	return s.audits.Create(ctx, a)
}

func (s *Service) ListAudits(ctx context.Context, reagentID uuid.UUID, limit, offset int) ([]*InventoryAudit, int, error) {
	return s.audits.ListByReagent(ctx, reagentID, limit, offset)
}
