package inventory

import (
	"context"

	"github.com/google/uuid"
)

type ReagentRepository interface {
	Create(ctx context.Context, r *Reagent) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reagent, error)
	Update(ctx context.Context, r *Reagent) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Reagent, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Reagent, int, error)
}

type UsageRepository interface {
	Create(ctx context.Context, u *ReagentUsage) error
	ListByReagent(ctx context.Context, reagentID uuid.UUID, limit, offset int) ([]*ReagentUsage, int, error)
}

type RequestRepository interface {
	// Create stores the request and its items.
	Create(ctx context.Context, r *ReagentRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*ReagentRequest, error)
	List(ctx context.Context, limit, offset int) ([]*ReagentRequest, int, error)
}

type IssueRepository interface {
	Create(ctx context.Context, i *ReagentIssue) error
	ListByReagent(ctx context.Context, reagentID uuid.UUID, limit, offset int) ([]*ReagentIssue, int, error)
}

type AuditRepository interface {
	Create(ctx context.Context, a *InventoryAudit) error
	ListByReagent(ctx context.Context, reagentID uuid.UUID, limit, offset int) ([]*InventoryAudit, int, error)
}
