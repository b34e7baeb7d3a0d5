package qc

import (
	"context"

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

type metricsRepoPG struct{ pool *pgxpool.Pool }

func NewMetricsRepoPG(pool *pgxpool.Pool) MetricsRepository {
	return &metricsRepoPG{pool: pool}
}

func (r *metricsRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const metricsCols = `id, assignment_id, expected_value, tolerance, min_acceptable,
	max_acceptable, measured_value, recovery_percent, status, notes, created_at`

func scanMetrics(row pgx.Row) (*QCMetrics, error) {
	var m QCMetrics
	err := row.Scan(&m.ID, &m.AssignmentID, &m.ExpectedValue, &m.Tolerance, &m.MinAcceptable,
		&m.MaxAcceptable, &m.MeasuredValue, &m.RecoveryPercent, &m.Status, &m.Notes, &m.CreatedAt)
	return &m, err
}

func (r *metricsRepoPG) Upsert(ctx context.Context, m *QCMetrics) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO qc_metrics (id, assignment_id, expected_value, tolerance, min_acceptable,
			max_acceptable, measured_value, recovery_percent, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (assignment_id) DO UPDATE SET
			expected_value = EXCLUDED.expected_value,
			tolerance = EXCLUDED.tolerance,
			min_acceptable = EXCLUDED.min_acceptable,
			max_acceptable = EXCLUDED.max_acceptable,
			measured_value = EXCLUDED.measured_value,
			recovery_percent = EXCLUDED.recovery_percent,
			status = EXCLUDED.status,
			notes = EXCLUDED.notes`,
		m.ID, m.AssignmentID, m.ExpectedValue, m.Tolerance, m.MinAcceptable,
		m.MaxAcceptable, m.MeasuredValue, m.RecoveryPercent, m.Status, m.Notes)
	return err
}

func (r *metricsRepoPG) GetByAssignment(ctx context.Context, assignmentID uuid.UUID) (*QCMetrics, error) {
	return scanMetrics(r.conn(ctx).QueryRow(ctx,
		`SELECT `+metricsCols+` FROM qc_metrics WHERE assignment_id = $1`, assignmentID))
}

func (r *metricsRepoPG) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*QCMetrics, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM qc_metrics WHERE status = $1`, status).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+metricsCols+` FROM qc_metrics WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*QCMetrics
	for rows.Next() {
		m, err := scanMetrics(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, nil
}
