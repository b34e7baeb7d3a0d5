package catalog

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

// -- ParameterGroup --

type groupRepoPG struct{ pool *pgxpool.Pool }

func NewGroupRepoPG(pool *pgxpool.Pool) GroupRepository {
	return &groupRepoPG{pool: pool}
}

const groupCols = `id, name, is_extension, created_at`

func scanGroup(row pgx.Row) (*ParameterGroup, error) {
	var g ParameterGroup
	err := row.Scan(&g.ID, &g.Name, &g.IsExtension, &g.CreatedAt)
	return &g, err
}

func (r *groupRepoPG) Create(ctx context.Context, g *ParameterGroup) error {
	g.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO parameter_group (id, name, is_extension) VALUES ($1,$2,$3)`,
		g.ID, g.Name, g.IsExtension)
	return err
}

func (r *groupRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ParameterGroup, error) {
	return scanGroup(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+groupCols+` FROM parameter_group WHERE id = $1`, id))
}

func (r *groupRepoPG) Update(ctx context.Context, g *ParameterGroup) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE parameter_group SET name=$2, is_extension=$3 WHERE id = $1`,
		g.ID, g.Name, g.IsExtension)
	return err
}

func (r *groupRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM parameter_group WHERE id = $1`, id)
	return err
}

func (r *groupRepoPG) List(ctx context.Context, limit, offset int) ([]*ParameterGroup, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM parameter_group`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+groupCols+` FROM parameter_group ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ParameterGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, g)
	}
	return items, total, nil
}

// -- Parameter --

type parameterRepoPG struct{ pool *pgxpool.Pool }

func NewParameterRepoPG(pool *pgxpool.Pool) ParameterRepository {
	return &parameterRepoPG{pool: pool}
}

const parameterCols = `id, group_id, name, unit, method, ref_limit, default_price,
	default_equipment_id, created_at, updated_at`

func scanParameter(row pgx.Row) (*Parameter, error) {
	var p Parameter
	err := row.Scan(&p.ID, &p.GroupID, &p.Name, &p.Unit, &p.Method, &p.RefLimit,
		&p.DefaultPrice, &p.DefaultEquipmentID, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *parameterRepoPG) Create(ctx context.Context, p *Parameter) error {
	p.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO parameter (id, group_id, name, unit, method, ref_limit, default_price, default_equipment_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.GroupID, p.Name, p.Unit, p.Method, p.RefLimit, p.DefaultPrice, p.DefaultEquipmentID)
	return err
}

func (r *parameterRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Parameter, error) {
	return scanParameter(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+parameterCols+` FROM parameter WHERE id = $1`, id))
}

func (r *parameterRepoPG) GetByName(ctx context.Context, name string) (*Parameter, error) {
	return scanParameter(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+parameterCols+` FROM parameter WHERE name = $1`, name))
}

func (r *parameterRepoPG) Update(ctx context.Context, p *Parameter) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE parameter SET group_id=$2, name=$3, unit=$4, method=$5, ref_limit=$6,
			default_price=$7, default_equipment_id=$8, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.GroupID, p.Name, p.Unit, p.Method, p.RefLimit, p.DefaultPrice, p.DefaultEquipmentID)
	return err
}

func (r *parameterRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM parameter WHERE id = $1`, id)
	return err
}

func (r *parameterRepoPG) List(ctx context.Context, limit, offset int) ([]*Parameter, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM parameter`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+parameterCols+` FROM parameter ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Parameter
	for rows.Next() {
		p, err := scanParameter(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

func (r *parameterRepoPG) ListByGroup(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*Parameter, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM parameter WHERE group_id = $1`, groupID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+parameterCols+` FROM parameter WHERE group_id = $1 ORDER BY name LIMIT $2 OFFSET $3`, groupID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Parameter
	for rows.Next() {
		p, err := scanParameter(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

// -- ControlSpec --

type controlSpecRepoPG struct{ pool *pgxpool.Pool }

func NewControlSpecRepoPG(pool *pgxpool.Pool) ControlSpecRepository {
	return &controlSpecRepoPG{pool: pool}
}

const controlSpecCols = `id, parameter_id, min_acceptable, max_acceptable,
	expected_value, default_tolerance, unit, created_at, updated_at`

func scanControlSpec(row pgx.Row) (*ControlSpec, error) {
	var cs ControlSpec
	err := row.Scan(&cs.ID, &cs.ParameterID, &cs.MinAcceptable, &cs.MaxAcceptable,
		&cs.ExpectedValue, &cs.DefaultTolerance, &cs.Unit, &cs.CreatedAt, &cs.UpdatedAt)
	return &cs, err
}

func (r *controlSpecRepoPG) Create(ctx context.Context, cs *ControlSpec) error {
	cs.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO control_spec (id, parameter_id, min_acceptable, max_acceptable, expected_value, default_tolerance, unit)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		cs.ID, cs.ParameterID, cs.MinAcceptable, cs.MaxAcceptable, cs.ExpectedValue, cs.DefaultTolerance, cs.Unit)
	return err
}

func (r *controlSpecRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ControlSpec, error) {
	return scanControlSpec(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+controlSpecCols+` FROM control_spec WHERE id = $1`, id))
}

func (r *controlSpecRepoPG) GetByParameter(ctx context.Context, parameterID uuid.UUID) (*ControlSpec, error) {
	return scanControlSpec(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+controlSpecCols+` FROM control_spec WHERE parameter_id = $1`, parameterID))
}

func (r *controlSpecRepoPG) Update(ctx context.Context, cs *ControlSpec) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE control_spec SET min_acceptable=$2, max_acceptable=$3, expected_value=$4,
			default_tolerance=$5, unit=$6, updated_at=NOW()
		WHERE id = $1`,
		cs.ID, cs.MinAcceptable, cs.MaxAcceptable, cs.ExpectedValue, cs.DefaultTolerance, cs.Unit)
	return err
}

func (r *controlSpecRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM control_spec WHERE id = $1`, id)
	return err
}
