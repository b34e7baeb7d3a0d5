package coa

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

type certificateRepoPG struct{ pool *pgxpool.Pool }

func NewCertificateRepoPG(pool *pgxpool.Pool) CertificateRepository {
	return &certificateRepoPG{pool: pool}
}

const certificateCols = `id, certificate_number, client_id, interpretation_id, status, released_at, created_at`

func scanCertificate(row pgx.Row) (*Certificate, error) {
	var c Certificate
	err := row.Scan(&c.ID, &c.CertificateNumber, &c.ClientID, &c.InterpretationID, &c.Status, &c.ReleasedAt, &c.CreatedAt)
	return &c, err
}

func (r *certificateRepoPG) Create(ctx context.Context, c *Certificate) error {
	c.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO certificate (id, certificate_number, client_id, interpretation_id, status, released_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		c.ID, c.CertificateNumber, c.ClientID, c.InterpretationID, c.Status, c.ReleasedAt)
	return err
}

func (r *certificateRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Certificate, error) {
	return scanCertificate(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+certificateCols+` FROM certificate WHERE id = $1`, id))
}

func (r *certificateRepoPG) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*Certificate, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM certificate WHERE client_id = $1`, clientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+certificateCols+` FROM certificate WHERE client_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		clientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, nil
}

func (r *certificateRepoPG) NextSequence(ctx context.Context, clientID uuid.UUID) (int, error) {
	var count int
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM certificate WHERE client_id = $1`, clientID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count + 1, nil
}

type interpretationRepoPG struct{ pool *pgxpool.Pool }

func NewInterpretationRepoPG(pool *pgxpool.Pool) InterpretationRepository {
	return &interpretationRepoPG{pool: pool}
}

const interpretationCols = `id, client_id, summary_text, created_at, updated_at`

func scanInterpretation(row pgx.Row) (*COAInterpretation, error) {
	var i COAInterpretation
	err := row.Scan(&i.ID, &i.ClientID, &i.SummaryText, &i.CreatedAt, &i.UpdatedAt)
	return &i, err
}

func (r *interpretationRepoPG) Create(ctx context.Context, i *COAInterpretation) error {
	i.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO coa_interpretation (id, client_id, summary_text)
		VALUES ($1,$2,$3)`,
		i.ID, i.ClientID, i.SummaryText)
	return err
}

func (r *interpretationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*COAInterpretation, error) {
	return scanInterpretation(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+interpretationCols+` FROM coa_interpretation WHERE id = $1`, id))
}

func (r *interpretationRepoPG) Update(ctx context.Context, i *COAInterpretation) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE coa_interpretation SET summary_text = $2, updated_at = NOW() WHERE id = $1`,
		i.ID, i.SummaryText)
	return err
}

func (r *interpretationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM coa_interpretation WHERE id = $1`, id)
	return err
}

func (r *interpretationRepoPG) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*COAInterpretation, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM coa_interpretation WHERE client_id = $1`, clientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+interpretationCols+` FROM coa_interpretation WHERE client_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		clientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*COAInterpretation
	for rows.Next() {
		i, err := scanInterpretation(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, i)
	}
	return items, total, nil
}
