package client

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

type clientRepoPG struct{ pool *pgxpool.Pool }

func NewClientRepoPG(pool *pgxpool.Pool) ClientRepository {
	return &clientRepoPG{pool: pool}
}

func (r *clientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const clientCols = `id, client_id, name, organization, email, phone, address, token,
	created_at, updated_at`

func (r *clientRepoPG) scanClient(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.ClientID, &c.Name, &c.Organization, &c.Email,
		&c.Phone, &c.Address, &c.Token, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *clientRepoPG) Create(ctx context.Context, c *Client) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO client (id, client_id, name, organization, email, phone, address, token)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.ClientID, c.Name, c.Organization, c.Email, c.Phone, c.Address, c.Token)
	return err
}

func (r *clientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Client, error) {
	return r.scanClient(r.conn(ctx).QueryRow(ctx, `SELECT `+clientCols+` FROM client WHERE id = $1`, id))
}

func (r *clientRepoPG) GetByToken(ctx context.Context, token string) (*Client, error) {
	return r.scanClient(r.conn(ctx).QueryRow(ctx, `SELECT `+clientCols+` FROM client WHERE token = $1`, token))
}

func (r *clientRepoPG) Update(ctx context.Context, c *Client) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE client SET name=$2, organization=$3, email=$4, phone=$5, address=$6, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.Name, c.Organization, c.Email, c.Phone, c.Address)
	return err
}

func (r *clientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM client WHERE id = $1`, id)
	return err
}

func (r *clientRepoPG) List(ctx context.Context, limit, offset int) ([]*Client, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM client`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+clientCols+` FROM client ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Client
	for rows.Next() {
		c, err := r.scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, nil
}

func (r *clientRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Client, int, error) {
	query := `SELECT ` + clientCols + ` FROM client WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM client WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["name"]; ok {
		query += fmt.Sprintf(` AND name ILIKE '%%' || $%d || '%%'`, idx)
		countQuery += fmt.Sprintf(` AND name ILIKE '%%' || $%d || '%%'`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["email"]; ok {
		query += fmt.Sprintf(` AND email = $%d`, idx)
		countQuery += fmt.Sprintf(` AND email = $%d`, idx)
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
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Client
	for rows.Next() {
		c, err := r.scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, nil
}

// NextSequence returns the next numeric suffix for the JGLSP client code.
func (r *clientRepoPG) NextSequence(ctx context.Context) (int, error) {
	var max *int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT MAX(SUBSTRING(client_id FROM 6)::int) FROM client WHERE client_id ~ '^JGLSP[0-9]+$'`,
	).Scan(&max)
	if err != nil {
		return 0, err
	}
	if max == nil {
		return firstClientSeq, nil
	}
	return *max + 1, nil
}
