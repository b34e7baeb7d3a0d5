package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lims/lims/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// -- Reagent --

type reagentRepoPG struct{ pool *pgxpool.Pool }

func NewReagentRepoPG(pool *pgxpool.Pool) ReagentRepository {
	return &reagentRepoPG{pool: pool}
}

const reagentCols = `id, name, batch_number, manufacturer, supplier, supplier_contact,
	date_received, expiry_date, number_of_containers, quantity_per_container, unit,
	storage_condition, sds_url, coa_url, low_stock_threshold, created_at, updated_at`

func scanReagent(row pgx.Row) (*Reagent, error) {
	var r Reagent
	err := row.Scan(&r.ID, &r.Name, &r.BatchNumber, &r.Manufacturer, &r.Supplier, &r.SupplierContact,
		&r.DateReceived, &r.ExpiryDate, &r.NumberOfContainers, &r.QuantityPerContainer, &r.Unit,
		&r.StorageCondition, &r.SDSURL, &r.CoAURL, &r.LowStockThreshold, &r.CreatedAt, &r.UpdatedAt)
	return &r, err
}

func (r *reagentRepoPG) Create(ctx context.Context, re *Reagent) error {
	re.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO reagent (id, name, batch_number, manufacturer, supplier, supplier_contact,
			date_received, expiry_date, number_of_containers, quantity_per_container, unit,
			storage_condition, sds_url, coa_url, low_stock_threshold)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		re.ID, re.Name, re.BatchNumber, re.Manufacturer, re.Supplier, re.SupplierContact,
		re.DateReceived, re.ExpiryDate, re.NumberOfContainers, re.QuantityPerContainer, re.Unit,
		re.StorageCondition, re.SDSURL, re.CoAURL, re.LowStockThreshold)
	return err
}

func (r *reagentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Reagent, error) {
	return scanReagent(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+reagentCols+` FROM reagent WHERE id = $1`, id))
}

func (r *reagentRepoPG) Update(ctx context.Context, re *Reagent) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE reagent SET name=$2, batch_number=$3, manufacturer=$4, supplier=$5, supplier_contact=$6,
			date_received=$7, expiry_date=$8, number_of_containers=$9, quantity_per_container=$10,
			unit=$11, storage_condition=$12, sds_url=$13, coa_url=$14, low_stock_threshold=$15,
			updated_at=NOW()
		WHERE id = $1`,
		re.ID, re.Name, re.BatchNumber, re.Manufacturer, re.Supplier, re.SupplierContact,
		re.DateReceived, re.ExpiryDate, re.NumberOfContainers, re.QuantityPerContainer, re.Unit,
		re.StorageCondition, re.SDSURL, re.CoAURL, re.LowStockThreshold)
	return err
}

func (r *reagentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM reagent WHERE id = $1`, id)
	return err
}

func (r *reagentRepoPG) List(ctx context.Context, limit, offset int) ([]*Reagent, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM reagent`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+reagentCols+` FROM reagent ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Reagent
	for rows.Next() {
		re, err := scanReagent(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, re)
	}
	return items, total, nil
}

func (r *reagentRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Reagent, int, error) {
	query := `SELECT ` + reagentCols + ` FROM reagent WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM reagent WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["name"]; ok {
		query += fmt.Sprintf(` AND name ILIKE '%%' || $%d || '%%'`, idx)
		countQuery += fmt.Sprintf(` AND name ILIKE '%%' || $%d || '%%'`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["batch_number"]; ok {
		query += fmt.Sprintf(` AND batch_number = $%d`, idx)
		countQuery += fmt.Sprintf(` AND batch_number = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["supplier"]; ok {
		query += fmt.Sprintf(` AND supplier ILIKE '%%' || $%d || '%%'`, idx)
		countQuery += fmt.Sprintf(` AND supplier ILIKE '%%' || $%d || '%%'`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Reagent
	for rows.Next() {
		re, err := scanReagent(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, re)
	}
	return items, total, nil
}

// -- ReagentUsage --

type usageRepoPG struct{ pool *pgxpool.Pool }

func NewUsageRepoPG(pool *pgxpool.Pool) UsageRepository {
	return &usageRepoPG{pool: pool}
}

func (r *usageRepoPG) Create(ctx context.Context, u *ReagentUsage) error {
	u.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO reagent_usage (id, reagent_id, analyst_id, containers_used, quantity_used, purpose, used_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.ReagentID, u.AnalystID, u.ContainersUsed, u.QuantityUsed, u.Purpose, u.UsedAt)
	return err
}

func (r *usageRepoPG) ListByReagent(ctx context.Context, reagentID uuid.UUID, limit, offset int) ([]*ReagentUsage, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM reagent_usage WHERE reagent_id = $1`, reagentID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, reagent_id, analyst_id, containers_used, quantity_used, purpose, used_at
		FROM reagent_usage WHERE reagent_id = $1 ORDER BY used_at DESC LIMIT $2 OFFSET $3`,
		reagentID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ReagentUsage
	for rows.Next() {
		var u ReagentUsage
		if err := rows.Scan(&u.ID, &u.ReagentID, &u.AnalystID, &u.ContainersUsed, &u.QuantityUsed, &u.Purpose, &u.UsedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &u)
	}
	return items, total, nil
}

// -- ReagentRequest --

type requestRepoPG struct{ pool *pgxpool.Pool }

func NewRequestRepoPG(pool *pgxpool.Pool) RequestRepository {
	return &requestRepoPG{pool: pool}
}

func (r *requestRepoPG) Create(ctx context.Context, req *ReagentRequest) error {
	req.ID = uuid.New()
	q := conn(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO reagent_request (id, requested_by, email, reason, total_amount)
		VALUES ($1,$2,$3,$4,$5)`,
		req.ID, req.RequestedBy, req.Email, req.Reason, req.TotalAmount)
	if err != nil {
		return err
	}
	for _, item := range req.Items {
		item.ID = uuid.New()
		item.RequestID = req.ID
		_, err := q.Exec(ctx, `
			INSERT INTO reagent_request_item (id, request_id, reagent_name, quantity, unit, unit_price, amount)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			item.ID, item.RequestID, item.ReagentName, item.Quantity, item.Unit, item.UnitPrice, item.Amount)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *requestRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ReagentRequest, error) {
	var req ReagentRequest
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, requested_by, email, reason, total_amount, created_at
		FROM reagent_request WHERE id = $1`, id).
		Scan(&req.ID, &req.RequestedBy, &req.Email, &req.Reason, &req.TotalAmount, &req.CreatedAt)
	if err != nil {
		return nil, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, request_id, reagent_name, quantity, unit, unit_price, amount
		FROM reagent_request_item WHERE request_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item ReagentRequestItem
		if err := rows.Scan(&item.ID, &item.RequestID, &item.ReagentName, &item.Quantity, &item.Unit, &item.UnitPrice, &item.Amount); err != nil {
			return nil, err
		}
		req.Items = append(req.Items, &item)
	}
	return &req, nil
}

func (r *requestRepoPG) List(ctx context.Context, limit, offset int) ([]*ReagentRequest, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM reagent_request`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, requested_by, email, reason, total_amount, created_at
		FROM reagent_request ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ReagentRequest
	for rows.Next() {
		var req ReagentRequest
		if err := rows.Scan(&req.ID, &req.RequestedBy, &req.Email, &req.Reason, &req.TotalAmount, &req.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &req)
	}
	return items, total, nil
}

// -- ReagentIssue --

type issueRepoPG struct{ pool *pgxpool.Pool }

func NewIssueRepoPG(pool *pgxpool.Pool) IssueRepository {
	return &issueRepoPG{pool: pool}
}

func (r *issueRepoPG) Create(ctx context.Context, i *ReagentIssue) error {
	i.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO reagent_issue (id, reagent_id, issue_type, description, reported_by)
		VALUES ($1,$2,$3,$4,$5)`,
		i.ID, i.ReagentID, i.IssueType, i.Description, i.ReportedBy)
	return err
}

func (r *issueRepoPG) ListByReagent(ctx context.Context, reagentID uuid.UUID, limit, offset int) ([]*ReagentIssue, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM reagent_issue WHERE reagent_id = $1`, reagentID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, reagent_id, issue_type, description, reported_by, created_at
		FROM reagent_issue WHERE reagent_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		reagentID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ReagentIssue
	for rows.Next() {
		var i ReagentIssue
		if err := rows.Scan(&i.ID, &i.ReagentID, &i.IssueType, &i.Description, &i.ReportedBy, &i.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &i)
	}
	return items, total, nil
}

// -- InventoryAudit --

type auditRepoPG struct{ pool *pgxpool.Pool }

func NewAuditRepoPG(pool *pgxpool.Pool) AuditRepository {
	return &auditRepoPG{pool: pool}
}

func (r *auditRepoPG) Create(ctx context.Context, a *InventoryAudit) error {
	a.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO inventory_audit (id, reagent_id, expected_containers, actual_containers, notes, audited_by)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.ReagentID, a.ExpectedContainers, a.ActualContainers, a.Notes, a.AuditedBy)
	return err
}

func (r *auditRepoPG) ListByReagent(ctx context.Context, reagentID uuid.UUID, limit, offset int) ([]*InventoryAudit, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM inventory_audit WHERE reagent_id = $1`, reagentID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, reagent_id, expected_containers, actual_containers, notes, audited_by, created_at
		FROM inventory_audit WHERE reagent_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		reagentID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*InventoryAudit
	for rows.Next() {
		var a InventoryAudit
		if err := rows.Scan(&a.ID, &a.ReagentID, &a.ExpectedContainers, &a.ActualContainers, &a.Notes, &a.AuditedBy, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &a)
	}
	return items, total, nil
}
