package member

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

const memberCols = `id, full_name, email, phone, blood_type, dob,
	latitude, longitude, created_at, updated_at`

func (r *repoPG) scanMember(row pgx.Row) (*Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.FullName, &m.Email, &m.Phone, &m.BloodType, &m.DOB,
		&m.Latitude, &m.Longitude, &m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

func (r *repoPG) Create(ctx context.Context, m *Member) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO members (id, full_name, email, phone, blood_type, dob, latitude, longitude)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		m.ID, m.FullName, m.Email, m.Phone, m.BloodType, m.DOB, m.Latitude, m.Longitude)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Member, error) {
	return r.scanMember(r.conn(ctx).QueryRow(ctx, `SELECT `+memberCols+` FROM members WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, m *Member) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE members SET full_name=$2, email=$3, phone=$4, blood_type=$5, dob=$6,
			latitude=$7, longitude=$8, updated_at=NOW()
		WHERE id = $1`,
		m.ID, m.FullName, m.Email, m.Phone, m.BloodType, m.DOB, m.Latitude, m.Longitude)
	return err
}

func (r *repoPG) UpdateBloodGroup(ctx context.Context, id uuid.UUID, bloodType string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE members SET blood_type=$2, updated_at=NOW() WHERE id = $1`, id, bloodType)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Member, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM members`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+memberCols+` FROM members ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Member
	for rows.Next() {
		m, err := r.scanMember(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, nil
}

func (r *repoPG) ListEligibleDonors(ctx context.Context, bloodTypes []string, now time.Time) ([]*Member, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+memberCols+`
		FROM members m
		WHERE m.blood_type = ANY($1)
		  AND m.latitude IS NOT NULL AND m.longitude IS NOT NULL
		  AND NOT EXISTS (
			SELECT 1 FROM donation_histories h
			WHERE h.donor_id = m.id
			  AND h.next_eligible_at IS NOT NULL
			  AND h.next_eligible_at > $2
			  AND h.donated_at = (
				SELECT MAX(h2.donated_at) FROM donation_histories h2 WHERE h2.donor_id = m.id
			  )
		  )`, bloodTypes, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Member
	for rows.Next() {
		m, err := r.scanMember(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, nil
}
