package equipment

import (
	"context"
	"time"

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

// -- Equipment --

type equipmentRepoPG struct{ pool *pgxpool.Pool }

func NewEquipmentRepoPG(pool *pgxpool.Pool) EquipmentRepository {
	return &equipmentRepoPG{pool: pool}
}

const equipmentCols = `id, name, serial_number, is_active, location, created_at, updated_at`

func scanEquipment(row pgx.Row) (*Equipment, error) {
	var e Equipment
	err := row.Scan(&e.ID, &e.Name, &e.SerialNumber, &e.IsActive, &e.Location,
		&e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *equipmentRepoPG) Create(ctx context.Context, e *Equipment) error {
	e.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO equipment (id, name, serial_number, is_active, location)
		VALUES ($1,$2,$3,$4,$5)`,
		e.ID, e.Name, e.SerialNumber, e.IsActive, e.Location)
	return err
}

func (r *equipmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Equipment, error) {
	return scanEquipment(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+equipmentCols+` FROM equipment WHERE id = $1`, id))
}

func (r *equipmentRepoPG) Update(ctx context.Context, e *Equipment) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE equipment SET name=$2, serial_number=$3, is_active=$4, location=$5, updated_at=NOW()
		WHERE id = $1`,
		e.ID, e.Name, e.SerialNumber, e.IsActive, e.Location)
	return err
}

func (r *equipmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM equipment WHERE id = $1`, id)
	return err
}

func (r *equipmentRepoPG) List(ctx context.Context, limit, offset int) ([]*Equipment, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM equipment`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+equipmentCols+` FROM equipment ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, nil
}

// -- CalibrationRecord --

type calibrationRepoPG struct{ pool *pgxpool.Pool }

func NewCalibrationRepoPG(pool *pgxpool.Pool) CalibrationRepository {
	return &calibrationRepoPG{pool: pool}
}

const calibrationCols = `id, equipment_id, calibrated_at, due_at, performed_by, notes, created_at`

func scanCalibration(row pgx.Row) (*CalibrationRecord, error) {
	var c CalibrationRecord
	err := row.Scan(&c.ID, &c.EquipmentID, &c.CalibratedAt, &c.DueAt,
		&c.PerformedBy, &c.Notes, &c.CreatedAt)
	return &c, err
}

func (r *calibrationRepoPG) Create(ctx context.Context, c *CalibrationRecord) error {
	c.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO calibration_record (id, equipment_id, calibrated_at, due_at, performed_by, notes)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		c.ID, c.EquipmentID, c.CalibratedAt, c.DueAt, c.PerformedBy, c.Notes)
	return err
}

func (r *calibrationRepoPG) ListByEquipment(ctx context.Context, equipmentID uuid.UUID, limit, offset int) ([]*CalibrationRecord, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM calibration_record WHERE equipment_id = $1`, equipmentID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+calibrationCols+` FROM calibration_record WHERE equipment_id = $1 ORDER BY calibrated_at DESC LIMIT $2 OFFSET $3`, equipmentID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*CalibrationRecord
	for rows.Next() {
		c, err := scanCalibration(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, nil
}

func (r *calibrationRepoPG) ListDue(ctx context.Context, before time.Time, limit, offset int) ([]*CalibrationRecord, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM calibration_record WHERE due_at <= $1`, before).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+calibrationCols+` FROM calibration_record WHERE due_at <= $1 ORDER BY due_at LIMIT $2 OFFSET $3`, before, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*CalibrationRecord
	for rows.Next() {
		c, err := scanCalibration(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, nil
}
