package inventory

import (
	"time"

	"github.com/google/uuid"
)

// Stock statuses derived from container count and expiry.
const (
	StockExpired   = "Expired"
	StockLow       = "Low Stock"
	StockAvailable = "Available"
)

// Issue types.
const (
	IssueContamination = "contamination"
	IssueExpired       = "expired"
	IssueLeak          = "leak"
	IssueOther         = "other"
)

// Reagent maps to the reagent table. Stock is tracked in whole containers.
type Reagent struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	Name                 string     `db:"name" json:"name"`
	BatchNumber          string     `db:"batch_number" json:"batch_number"`
	Manufacturer         string     `db:"manufacturer" json:"manufacturer"`
	Supplier             string     `db:"supplier" json:"supplier"`
	SupplierContact      *string    `db:"supplier_contact" json:"supplier_contact,omitempty"`
	DateReceived         time.Time  `db:"date_received" json:"date_received"`
	ExpiryDate           *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	NumberOfContainers   int        `db:"number_of_containers" json:"number_of_containers"`
	QuantityPerContainer float64    `db:"quantity_per_container" json:"quantity_per_container"`
	Unit                 string     `db:"unit" json:"unit"`
	StorageCondition     string     `db:"storage_condition" json:"storage_condition"`
	SDSURL               *string    `db:"sds_url" json:"sds_url,omitempty"`
	CoAURL               *string    `db:"coa_url" json:"coa_url,omitempty"`
	LowStockThreshold    int        `db:"low_stock_threshold" json:"low_stock_threshold"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// TotalQuantity is the remaining stock in the reagent's unit.
func (r *Reagent) TotalQuantity() float64 {
	return float64(r.NumberOfContainers) * r.QuantityPerContainer
}

// StockStatus derives the display status. Expiry wins over stock level.
func (r *Reagent) StockStatus(now time.Time) string {
	if r.ExpiryDate != nil && r.ExpiryDate.Before(now) {
		return StockExpired
	}
	if r.NumberOfContainers <= r.LowStockThreshold {
		return StockLow
	}
	return StockAvailable
}

// ReagentUsage records consumption of whole containers.
type ReagentUsage struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ReagentID      uuid.UUID `db:"reagent_id" json:"reagent_id"`
	AnalystID      *string   `db:"analyst_id" json:"analyst_id,omitempty"`
	ContainersUsed int       `db:"containers_used" json:"containers_used"`
	QuantityUsed   float64   `db:"quantity_used" json:"quantity_used"`
	Purpose        string    `db:"purpose" json:"purpose"`
	UsedAt         time.Time `db:"used_at" json:"used_at"`
}

// ReagentRequest is a purchase request with line items.
type ReagentRequest struct {
	ID          uuid.UUID             `db:"id" json:"id"`
	RequestedBy string                `db:"requested_by" json:"requested_by"`
	Email       string                `db:"email" json:"email"`
	Reason      string                `db:"reason" json:"reason"`
	TotalAmount float64               `db:"total_amount" json:"total_amount"`
	CreatedAt   time.Time             `db:"created_at" json:"created_at"`
	Items       []*ReagentRequestItem `db:"-" json:"items,omitempty"`
}

type ReagentRequestItem struct {
	ID          uuid.UUID `db:"id" json:"id"`
	RequestID   uuid.UUID `db:"request_id" json:"request_id"`
	ReagentName string    `db:"reagent_name" json:"reagent_name"`
	Quantity    float64   `db:"quantity" json:"quantity"`
	Unit        string    `db:"unit" json:"unit"`
	UnitPrice   float64   `db:"unit_price" json:"unit_price"`
	Amount      float64   `db:"amount" json:"amount"`
}

// ReagentIssue is a reported problem with a stocked reagent.
type ReagentIssue struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ReagentID   uuid.UUID `db:"reagent_id" json:"reagent_id"`
	IssueType   string    `db:"issue_type" json:"issue_type"`
	Description string    `db:"description" json:"description"`
	ReportedBy  string    `db:"reported_by" json:"reported_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// InventoryAudit records a physical count against the book count.
type InventoryAudit struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	ReagentID          uuid.UUID `db:"reagent_id" json:"reagent_id"`
	ExpectedContainers int       `db:"expected_containers" json:"expected_containers"`
	ActualContainers   int       `db:"actual_containers" json:"actual_containers"`
	Notes              *string   `db:"notes" json:"notes,omitempty"`
	AuditedBy          string    `db:"audited_by" json:"audited_by"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}
