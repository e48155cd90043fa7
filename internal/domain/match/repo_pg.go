package match

import (
	"context"

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

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const matchCols = `id, request_id, donor_id, invited_by, status, message, created_at, updated_at`

func (r *repoPG) scanMatch(row pgx.Row) (*DonationMatch, error) {
	var m DonationMatch
	err := row.Scan(&m.ID, &m.RequestID, &m.DonorID, &m.InvitedBy, &m.Status,
		&m.Message, &m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

func (r *repoPG) Create(ctx context.Context, m *DonationMatch) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO donation_matches (id, request_id, donor_id, invited_by, status, message)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		m.ID, m.RequestID, m.DonorID, m.InvitedBy, m.Status, m.Message)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*DonationMatch, error) {
	return r.scanMatch(r.conn(ctx).QueryRow(ctx, `SELECT `+matchCols+` FROM donation_matches WHERE id = $1`, id))
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE donation_matches SET status=$3, updated_at=NOW()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) ListByRequest(ctx context.Context, requestID uuid.UUID, limit, offset int) ([]*DonationMatch, int, error) {
	return r.list(ctx, `request_id = $1`, requestID, limit, offset)
}

func (r *repoPG) ListByDonor(ctx context.Context, donorID uuid.UUID, limit, offset int) ([]*DonationMatch, int, error) {
	return r.list(ctx, `donor_id = $1`, donorID, limit, offset)
}

func (r *repoPG) list(ctx context.Context, where string, arg uuid.UUID, limit, offset int) ([]*DonationMatch, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM donation_matches WHERE `+where, arg).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+matchCols+` FROM donation_matches WHERE `+where+
		` ORDER BY created_at DESC LIMIT $2 OFFSET $3`, arg, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*DonationMatch
	for rows.Next() {
		m, err := r.scanMatch(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, nil
}
