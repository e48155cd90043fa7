package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bloodbank/bloodbank/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const unitCols = `id, blood_type, component, volume_ml, added_at, expires_at,
	source, history_id, donor_id, donor_name, note, request_id, created_at, updated_at`

func (r *repoPG) scanUnit(row pgx.Row) (*BloodUnit, error) {
	var u BloodUnit
	err := row.Scan(&u.ID, &u.BloodType, &u.Component, &u.VolumeML, &u.AddedAt, &u.ExpiresAt,
		&u.Source, &u.HistoryID, &u.DonorID, &u.DonorName, &u.Note, &u.RequestID,
		&u.CreatedAt, &u.UpdatedAt)
	return &u, err
}

func (r *repoPG) CreateBatch(ctx context.Context, units []*BloodUnit) error {
	for _, u := range units {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO blood_units (id, blood_type, component, volume_ml, added_at, expires_at,
				source, history_id, donor_id, donor_name, note)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			u.ID, u.BloodType, u.Component, u.VolumeML, u.AddedAt, u.ExpiresAt,
			u.Source, u.HistoryID, u.DonorID, u.DonorName, u.Note)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*BloodUnit, error) {
	return r.scanUnit(r.conn(ctx).QueryRow(ctx, `SELECT `+unitCols+` FROM blood_units WHERE id = $1`, id))
}

func (r *repoPG) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*BloodUnit, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+unitCols+` FROM blood_units WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*BloodUnit
	for rows.Next() {
		u, err := r.scanUnit(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, nil
}

func (r *repoPG) Update(ctx context.Context, u *BloodUnit) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE blood_units SET blood_type=$2, component=$3, volume_ml=$4, expires_at=$5,
			donor_name=$6, note=$7, updated_at=NOW()
		WHERE id = $1`,
		u.ID, u.BloodType, u.Component, u.VolumeML, u.ExpiresAt, u.DonorName, u.Note)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM blood_units WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*BloodUnit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM blood_units`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+unitCols+` FROM blood_units ORDER BY expires_at ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*BloodUnit
	for rows.Next() {
		u, err := r.scanUnit(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, nil
}

func (r *repoPG) ListByType(ctx context.Context, bloodType string, limit, offset int) ([]*BloodUnit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM blood_units WHERE blood_type = $1`, bloodType).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+unitCols+` FROM blood_units WHERE blood_type = $1 ORDER BY expires_at ASC LIMIT $2 OFFSET $3`, bloodType, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*BloodUnit
	for rows.Next() {
		u, err := r.scanUnit(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, nil
}

func (r *repoPG) ListAvailable(ctx context.Context, component string, bloodTypes []string, now time.Time) ([]*BloodUnit, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+unitCols+` FROM blood_units
		WHERE component = $1 AND blood_type = ANY($2)
		  AND request_id IS NULL AND expires_at > $3
		ORDER BY expires_at ASC`, component, bloodTypes, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*BloodUnit
	for rows.Next() {
		u, err := r.scanUnit(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, nil
}

func (r *repoPG) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*BloodUnit, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+unitCols+` FROM blood_units WHERE request_id = $1`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*BloodUnit
	for rows.Next() {
		u, err := r.scanUnit(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, nil
}

// ClaimForRequest is the atomic check-and-set behind all-or-nothing
// assignment. The request_id IS NULL predicate makes concurrent claims on
// the same unit mutually exclusive; the loser sees a short row count.
func (r *repoPG) ClaimForRequest(ctx context.Context, requestID uuid.UUID, ids []uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE blood_units SET request_id=$1, updated_at=NOW()
		WHERE id = ANY($2) AND request_id IS NULL`, requestID, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) ReleaseByRequest(ctx context.Context, requestID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE blood_units SET request_id=NULL, updated_at=NOW()
		WHERE request_id = $1`, requestID)
	return err
}

func (r *repoPG) DeleteByRequest(ctx context.Context, requestID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM blood_units WHERE request_id = $1`, requestID)
	return err
}
