package assignment

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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// -- TestAssignment --

type assignmentRepoPG struct{ pool *pgxpool.Pool }

func NewAssignmentRepoPG(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepoPG{pool: pool}
}

const assignmentCols = `id, sample_id, parameter_id, analyst_id, equipment_id, status,
	is_control, is_reference, manager_comment, assigned_at, created_at, updated_at`

func scanAssignment(row pgx.Row) (*TestAssignment, error) {
	var a TestAssignment
	err := row.Scan(&a.ID, &a.SampleID, &a.ParameterID, &a.AnalystID, &a.EquipmentID,
		&a.Status, &a.IsControl, &a.IsReference, &a.ManagerComment, &a.AssignedAt,
		&a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *assignmentRepoPG) Create(ctx context.Context, a *TestAssignment) error {
	a.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO test_assignment (id, sample_id, parameter_id, analyst_id, equipment_id,
			status, is_control, is_reference, manager_comment, assigned_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.SampleID, a.ParameterID, a.AnalystID, a.EquipmentID,
		a.Status, a.IsControl, a.IsReference, a.ManagerComment, a.AssignedAt)
	return err
}

func (r *assignmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TestAssignment, error) {
	return scanAssignment(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+assignmentCols+` FROM test_assignment WHERE id = $1`, id))
}

func (r *assignmentRepoPG) GetBySampleAndParameter(ctx context.Context, sampleID, parameterID uuid.UUID) (*TestAssignment, error) {
	return scanAssignment(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+assignmentCols+` FROM test_assignment WHERE sample_id = $1 AND parameter_id = $2`,
		sampleID, parameterID))
}

func (r *assignmentRepoPG) Update(ctx context.Context, a *TestAssignment) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE test_assignment SET analyst_id=$2, equipment_id=$3, status=$4,
			manager_comment=$5, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.AnalystID, a.EquipmentID, a.Status, a.ManagerComment)
	return err
}

func (r *assignmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE test_assignment SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	return err
}

func (r *assignmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM test_assignment WHERE id = $1`, id)
	return err
}

func (r *assignmentRepoPG) ListBySample(ctx context.Context, sampleID uuid.UUID) ([]*TestAssignment, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+assignmentCols+` FROM test_assignment WHERE sample_id = $1 ORDER BY assigned_at`, sampleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*TestAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, nil
}

func (r *assignmentRepoPG) ListByAnalyst(ctx context.Context, analystID string, limit, offset int) ([]*TestAssignment, int, error) {
	return r.listWhere(ctx, ` WHERE analyst_id = $1`, []interface{}{analystID}, limit, offset)
}

func (r *assignmentRepoPG) ListByParameter(ctx context.Context, parameterID uuid.UUID, limit, offset int) ([]*TestAssignment, int, error) {
	return r.listWhere(ctx, ` WHERE parameter_id = $1`, []interface{}{parameterID}, limit, offset)
}

func (r *assignmentRepoPG) listWhere(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*TestAssignment, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM test_assignment`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+assignmentCols+` FROM test_assignment`+where+` ORDER BY assigned_at DESC LIMIT $2 OFFSET $3`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*TestAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

// -- TestResult --

type resultRepoPG struct{ pool *pgxpool.Pool }

func NewResultRepoPG(pool *pgxpool.Pool) ResultRepository {
	return &resultRepoPG{pool: pool}
}

const resultCols = `id, assignment_id, value, recorded_by, recorded_at, started_at, source, calculation_note`

func scanResult(row pgx.Row) (*TestResult, error) {
	var t TestResult
	err := row.Scan(&t.ID, &t.AssignmentID, &t.Value, &t.RecordedBy, &t.RecordedAt,
		&t.StartedAt, &t.Source, &t.CalculationNote)
	return &t, err
}

func (r *resultRepoPG) Upsert(ctx context.Context, t *TestResult) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	// assignment_id is unique; a second submission updates in place and
	// keeps the original started_at.
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO test_result (id, assignment_id, value, recorded_by, recorded_at, started_at, source, calculation_note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (assignment_id) DO UPDATE SET
			value = EXCLUDED.value,
			recorded_by = EXCLUDED.recorded_by,
			recorded_at = EXCLUDED.recorded_at,
			started_at = COALESCE(test_result.started_at, EXCLUDED.started_at),
			source = EXCLUDED.source,
			calculation_note = EXCLUDED.calculation_note`,
		t.ID, t.AssignmentID, t.Value, t.RecordedBy, t.RecordedAt, t.StartedAt, t.Source, t.CalculationNote)
	return err
}

func (r *resultRepoPG) GetByAssignment(ctx context.Context, assignmentID uuid.UUID) (*TestResult, error) {
	return scanResult(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+resultCols+` FROM test_result WHERE assignment_id = $1`, assignmentID))
}

func (r *resultRepoPG) ListBySample(ctx context.Context, sampleID uuid.UUID) ([]*SampleResult, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT a.id, p.id, p.name, p.unit, p.method, p.ref_limit, t.value, t.source
		FROM test_result t
		JOIN test_assignment a ON a.id = t.assignment_id
		JOIN parameter p ON p.id = a.parameter_id
		WHERE a.sample_id = $1
		ORDER BY p.name`, sampleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*SampleResult
	for rows.Next() {
		var sr SampleResult
		if err := rows.Scan(&sr.AssignmentID, &sr.ParameterID, &sr.ParameterName, &sr.Unit,
			&sr.Method, &sr.RefLimit, &sr.Value, &sr.Source); err != nil {
			return nil, err
		}
		items = append(items, &sr)
	}
	return items, nil
}
