package donation

import (
	"context"
	"errors"
	"strconv"

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

// =========== Registration Repository ===========

type registrationRepoPG struct{ pool *pgxpool.Pool }

func NewRegistrationRepoPG(pool *pgxpool.Pool) RegistrationRepository {
	return &registrationRepoPG{pool: pool}
}

func (r *registrationRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const regCols = `id, donor_id, blood_type, component, ready_date, status,
	rejection_reason, screening_answers, confirmed, completed_by, completed_at,
	history_id, created_at, updated_at`

func (r *registrationRepoPG) scanReg(row pgx.Row) (*Registration, error) {
	var reg Registration
	err := row.Scan(&reg.ID, &reg.DonorID, &reg.BloodType, &reg.Component, &reg.ReadyDate,
		&reg.Status, &reg.RejectionReason, &reg.ScreeningAnswers, &reg.Confirmed,
		&reg.CompletedBy, &reg.CompletedAt, &reg.HistoryID, &reg.CreatedAt, &reg.UpdatedAt)
	return &reg, err
}

func (r *registrationRepoPG) Create(ctx context.Context, reg *Registration) error {
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO donation_registrations (id, donor_id, blood_type, component,
			ready_date, status, screening_answers, confirmed)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		reg.ID, reg.DonorID, reg.BloodType, reg.Component,
		reg.ReadyDate, reg.Status, reg.ScreeningAnswers, reg.Confirmed)
	return err
}

func (r *registrationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Registration, error) {
	return r.scanReg(r.conn(ctx).QueryRow(ctx, `SELECT `+regCols+` FROM donation_registrations WHERE id = $1`, id))
}

func (r *registrationRepoPG) Update(ctx context.Context, reg *Registration) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE donation_registrations SET component=$2, ready_date=$3, updated_at=NOW()
		WHERE id = $1`,
		reg.ID, reg.Component, reg.ReadyDate)
	return err
}

func (r *registrationRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, reason *string) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE donation_registrations SET status=$3, rejection_reason=$4, updated_at=NOW()
		WHERE id = $1 AND status = $2`, id, from, to, reason)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *registrationRepoPG) MarkCompleted(ctx context.Context, reg *Registration, from string) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE donation_registrations
		SET status=$3, blood_type=$4, component=$5, completed_by=$6, completed_at=$7,
			history_id=$8, updated_at=NOW()
		WHERE id = $1 AND status = $2`,
		reg.ID, from, reg.Status, reg.BloodType, reg.Component,
		reg.CompletedBy, reg.CompletedAt, reg.HistoryID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *registrationRepoPG) MarkFailed(ctx context.Context, id uuid.UUID, from string, reason *string, historyID uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE donation_registrations
		SET status=$3, rejection_reason=$4, history_id=$5, updated_at=NOW()
		WHERE id = $1 AND status = $2`,
		id, from, StatusFailed, reason, historyID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *registrationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM donation_registrations WHERE id = $1`, id)
	return err
}

func (r *registrationRepoPG) ListByDonor(ctx context.Context, donorID uuid.UUID, status string, limit, offset int) ([]*Registration, int, error) {
	return r.list(ctx, `donor_id = $1`, []interface{}{donorID}, status, limit, offset)
}

func (r *registrationRepoPG) List(ctx context.Context, status string, limit, offset int) ([]*Registration, int, error) {
	return r.list(ctx, `1=1`, nil, status, limit, offset)
}

func (r *registrationRepoPG) list(ctx context.Context, where string, args []interface{}, status string, limit, offset int) ([]*Registration, int, error) {
	if status != "" {
		args = append(args, status)
		where += ` AND status = $` + strconv.Itoa(len(args))
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM donation_registrations WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	query := `SELECT ` + regCols + ` FROM donation_registrations WHERE ` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Registration
	for rows.Next() {
		reg, err := r.scanReg(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, reg)
	}
	return items, total, nil
}

// =========== History Repository ===========

type historyRepoPG struct{ pool *pgxpool.Pool }

func NewHistoryRepoPG(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepoPG{pool: pool}
}

func (r *historyRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const histCols = `id, donor_id, donated_at, blood_type, component, status,
	quantity, volume_ml, measurements, next_eligible_at, created_at`

func (r *historyRepoPG) scanHistory(row pgx.Row) (*History, error) {
	var h History
	err := row.Scan(&h.ID, &h.DonorID, &h.DonatedAt, &h.BloodType, &h.Component, &h.Status,
		&h.Quantity, &h.VolumeML, &h.Measurements, &h.NextEligibleAt, &h.CreatedAt)
	return &h, err
}

func (r *historyRepoPG) Create(ctx context.Context, h *History) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO donation_histories (id, donor_id, donated_at, blood_type, component,
			status, quantity, volume_ml, measurements, next_eligible_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		h.ID, h.DonorID, h.DonatedAt, h.BloodType, h.Component,
		h.Status, h.Quantity, h.VolumeML, h.Measurements, h.NextEligibleAt)
	return err
}

func (r *historyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*History, error) {
	return r.scanHistory(r.conn(ctx).QueryRow(ctx, `SELECT `+histCols+` FROM donation_histories WHERE id = $1`, id))
}

func (r *historyRepoPG) ListByDonor(ctx context.Context, donorID uuid.UUID, limit, offset int) ([]*History, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM donation_histories WHERE donor_id = $1`, donorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+histCols+` FROM donation_histories WHERE donor_id = $1 ORDER BY donated_at DESC LIMIT $2 OFFSET $3`, donorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*History
	for rows.Next() {
		h, err := r.scanHistory(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, h)
	}
	return items, total, nil
}

func (r *historyRepoPG) LatestByDonor(ctx context.Context, donorID uuid.UUID) (*History, error) {
	h, err := r.scanHistory(r.conn(ctx).QueryRow(ctx, `
		SELECT `+histCols+` FROM donation_histories
		WHERE donor_id = $1 ORDER BY donated_at DESC LIMIT 1`, donorID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return h, err
}
