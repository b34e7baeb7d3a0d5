package sample

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

// -- Sample --

type sampleRepoPG struct{ pool *pgxpool.Pool }

func NewSampleRepoPG(pool *pgxpool.Pool) SampleRepository {
	return &sampleRepoPG{pool: pool}
}

const sampleCols = `id, client_id, sample_code, sample_type, weight, temperature,
	humidity, status, received_at, created_at, updated_at`

func scanSample(row pgx.Row) (*Sample, error) {
	var s Sample
	err := row.Scan(&s.ID, &s.ClientID, &s.SampleCode, &s.SampleType, &s.Weight,
		&s.Temperature, &s.Humidity, &s.Status, &s.ReceivedAt, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *sampleRepoPG) Create(ctx context.Context, s *Sample) error {
	s.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO sample (id, client_id, sample_code, sample_type, weight, temperature, humidity, status, received_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		s.ID, s.ClientID, s.SampleCode, s.SampleType, s.Weight, s.Temperature, s.Humidity, s.Status, s.ReceivedAt)
	return err
}

func (r *sampleRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Sample, error) {
	return scanSample(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+sampleCols+` FROM sample WHERE id = $1`, id))
}

func (r *sampleRepoPG) GetByCode(ctx context.Context, code string) (*Sample, error) {
	return scanSample(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+sampleCols+` FROM sample WHERE sample_code = $1`, code))
}

func (r *sampleRepoPG) Update(ctx context.Context, s *Sample) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE sample SET sample_type=$2, weight=$3, temperature=$4, humidity=$5, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.SampleType, s.Weight, s.Temperature, s.Humidity)
	return err
}

func (r *sampleRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE sample SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	return err
}

func (r *sampleRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM sample WHERE id = $1`, id)
	return err
}

func (r *sampleRepoPG) List(ctx context.Context, limit, offset int) ([]*Sample, int, error) {
	return r.listWhere(ctx, ``, nil, limit, offset)
}

func (r *sampleRepoPG) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*Sample, int, error) {
	return r.listWhere(ctx, ` WHERE client_id = $1`, []interface{}{clientID}, limit, offset)
}

func (r *sampleRepoPG) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Sample, int, error) {
	return r.listWhere(ctx, ` WHERE status = $1`, []interface{}{status}, limit, offset)
}

func (r *sampleRepoPG) listWhere(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Sample, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM sample`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf(`SELECT `+sampleCols+` FROM sample`+where+` ORDER BY received_at DESC LIMIT $%d OFFSET $%d`,
		len(args)+1, len(args)+2)
	rows, err := conn(ctx, r.pool).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Sample
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, nil
}

func (r *sampleRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Sample, int, error) {
	query := `SELECT ` + sampleCols + ` FROM sample WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM sample WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["sample_code"]; ok {
		query += fmt.Sprintf(` AND sample_code ILIKE '%%' || $%d || '%%'`, idx)
		countQuery += fmt.Sprintf(` AND sample_code ILIKE '%%' || $%d || '%%'`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["status"]; ok {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		countQuery += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["sample_type"]; ok {
		query += fmt.Sprintf(` AND sample_type ILIKE '%%' || $%d || '%%'`, idx)
		countQuery += fmt.Sprintf(` AND sample_type ILIKE '%%' || $%d || '%%'`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["client_id"]; ok {
		query += fmt.Sprintf(` AND client_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND client_id = $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY received_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Sample
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, nil
}

// NextSequence returns the next numeric suffix for a client's sample codes.
func (r *sampleRepoPG) NextSequence(ctx context.Context, clientID uuid.UUID) (int, error) {
	var max *int
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT MAX(SUBSTRING(sample_code FROM '[0-9]+$')::int) FROM sample WHERE client_id = $1`,
		clientID,
	).Scan(&max)
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 1, nil
	}
	return *max + 1, nil
}

// -- StatusHistory --

type statusHistoryRepoPG struct{ pool *pgxpool.Pool }

func NewStatusHistoryRepoPG(pool *pgxpool.Pool) StatusHistoryRepository {
	return &statusHistoryRepoPG{pool: pool}
}

const historyCols = `id, sample_id, from_status, to_status, changed_by, reason, created_at`

func (r *statusHistoryRepoPG) Create(ctx context.Context, h *StatusHistory) error {
	h.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO sample_status_history (id, sample_id, from_status, to_status, changed_by, reason)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		h.ID, h.SampleID, h.FromStatus, h.ToStatus, h.ChangedBy, h.Reason)
	return err
}

func (r *statusHistoryRepoPG) ListBySample(ctx context.Context, sampleID uuid.UUID, limit, offset int) ([]*StatusHistory, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM sample_status_history WHERE sample_id = $1`, sampleID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+historyCols+` FROM sample_status_history WHERE sample_id = $1 ORDER BY created_at LIMIT $2 OFFSET $3`,
		sampleID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*StatusHistory
	for rows.Next() {
		var h StatusHistory
		if err := rows.Scan(&h.ID, &h.SampleID, &h.FromStatus, &h.ToStatus, &h.ChangedBy, &h.Reason, &h.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &h)
	}
	return items, total, nil
}
