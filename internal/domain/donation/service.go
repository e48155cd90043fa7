package donation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/bloodbank/bloodbank/internal/domain/inventory"
	"github.com/bloodbank/bloodbank/internal/domain/member"
	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/internal/platform/db"
	"github.com/bloodbank/bloodbank/pkg/blood"
)

// MemberDirectory is the slice of the member repository the donation
// lifecycle needs: profile reads for gating and group correction on
// completion.
type MemberDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*member.Member, error)
	UpdateBloodGroup(ctx context.Context, id uuid.UUID, bloodType string) error
}

// UnitWriter inserts the inventory fan-out of a completed donation.
type UnitWriter interface {
	CreateBatch(ctx context.Context, units []*inventory.BloodUnit) error
}

// Notifier dispatches a templated notification asynchronously.
type Notifier interface {
	Dispatch(templateID string, data map[string]string, recipient string, timeout time.Duration, onDone func(error))
}

type Service struct {
	regs          RegistrationRepository
	histories     HistoryRepository
	members       MemberDirectory
	units         UnitWriter
	notifier      Notifier
	notifyTimeout time.Duration
	logger        zerolog.Logger
	tx            func(ctx context.Context, fn func(ctx context.Context) error) error
}

// NewService wires the donation lifecycle. pool may be nil in tests, in
// which case transactional sections run directly on the given context.
func NewService(pool *pgxpool.Pool, regs RegistrationRepository, histories HistoryRepository,
	members MemberDirectory, units UnitWriter, notifier Notifier,
	notifyTimeout time.Duration, logger zerolog.Logger) *Service {
	s := &Service{
		regs:          regs,
		histories:     histories,
		members:       members,
		units:         units,
		notifier:      notifier,
		notifyTimeout: notifyTimeout,
		logger:        logger,
	}
	if pool != nil {
		s.tx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.WithTx(ctx, pool, fn)
		}
	} else {
		s.tx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		}
	}
	return s
}

// CreateInput is the donor-supplied registration request.
type CreateInput struct {
	BloodType        string            `json:"blood_type"`
	Component        string            `json:"component"`
	ReadyDate        time.Time         `json:"ready_date"`
	ScreeningAnswers []ScreeningAnswer `json:"screening_answers"`
	Confirmed        bool              `json:"confirmed"`
}

// Create runs every registration gate and inserts a Pending registration.
// Each gate fails with its own Validation message so donors know what to fix.
func (s *Service) Create(ctx context.Context, donorID uuid.UUID, in CreateInput) (*Registration, error) {
	donor, err := s.members.GetByID(ctx, donorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("member %s not found", donorID)
		}
		return nil, err
	}
	if !donor.ProfileComplete() {
		return nil, apperr.Validation("profile incomplete: name, email, phone, date of birth and blood group are required before registering")
	}

	now := time.Now().UTC()
	if !blood.IsEligibleAge(*donor.DOB, now) {
		return nil, apperr.Validation("donor age must be between %d and %d", blood.MinDonorAge, blood.MaxDonorAge)
	}

	bt, err := blood.ParseBloodType(in.BloodType)
	if err != nil {
		return nil, apperr.Validation("invalid blood type: %s", in.BloodType)
	}
	if string(bt) != *donor.BloodType {
		return nil, apperr.Validation("declared blood group %s does not match profile group %s", bt, *donor.BloodType)
	}

	ct, err := blood.ParseComponentType(in.Component)
	if err != nil {
		return nil, apperr.Validation("invalid component: %s", in.Component)
	}

	if blood.TruncateToDay(in.ReadyDate).Before(blood.TruncateToDay(now)) {
		return nil, apperr.Validation("ready date must not be in the past")
	}

	if len(in.ScreeningAnswers) == 0 {
		return nil, apperr.Validation("at least one screening answer is required")
	}
	for i, a := range in.ScreeningAnswers {
		if a.Question == "" {
			return nil, apperr.Validation("screening answer %d has an empty question", i+1)
		}
	}

	if !in.Confirmed {
		return nil, apperr.Validation("confirmation is required")
	}

	latest, err := s.histories.LatestByDonor(ctx, donorID)
	if err != nil {
		return nil, err
	}
	if latest != nil && latest.NextEligibleAt != nil &&
		blood.TruncateToDay(*latest.NextEligibleAt).After(blood.TruncateToDay(now)) {
		return nil, apperr.Validation("not eligible to donate until %s", latest.NextEligibleAt.Format("2006-01-02"))
	}

	reg := &Registration{
		ID:               uuid.New(),
		DonorID:          donorID,
		BloodType:        string(bt),
		Component:        string(ct),
		ReadyDate:        blood.TruncateToDay(in.ReadyDate),
		Status:           StatusPending,
		ScreeningAnswers: in.ScreeningAnswers,
		Confirmed:        true,
	}
	if err := s.regs.Create(ctx, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Registration, error) {
	reg, err := s.regs.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("registration %s not found", id)
	}
	return reg, err
}

// UpdateStatus approves or rejects a pending registration and notifies the
// donor best-effort.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string, reason string) (*Registration, error) {
	if status != StatusApproved && status != StatusRejected {
		return nil, apperr.Validation("status must be %s or %s", StatusApproved, StatusRejected)
	}
	var reasonPtr *string
	if status == StatusRejected {
		if reason == "" {
			return nil, apperr.Validation("rejection reason is required")
		}
		reasonPtr = &reason
	}

	reg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.Status != StatusPending {
		return nil, apperr.StateConflict("registration is %s, not pending", reg.Status)
	}

	n, err := s.regs.UpdateStatus(ctx, id, StatusPending, status, reasonPtr)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, apperr.StateConflict("registration is no longer pending")
	}
	reg.Status = status
	reg.RejectionReason = reasonPtr

	s.notifyStatus(ctx, reg, reason)
	return reg, nil
}

func (s *Service) notifyStatus(ctx context.Context, reg *Registration, reason string) {
	if s.notifier == nil {
		return
	}
	donor, err := s.members.GetByID(ctx, reg.DonorID)
	if err != nil {
		s.logger.Warn().Err(err).Str("donor_id", reg.DonorID.String()).Msg("skipping status notification")
		return
	}
	data := map[string]string{
		"donor_name": donor.FullName,
		"component":  reg.Component,
		"date":       reg.ReadyDate.Format("2006-01-02"),
	}
	template := "registration-approved"
	if reg.Status == StatusRejected {
		template = "registration-rejected"
		data["reason"] = reason
	}
	logger := s.logger
	s.notifier.Dispatch(template, data, donor.Email, s.notifyTimeout, func(err error) {
		if err != nil {
			logger.Warn().Err(err).Str("template", template).Msg("status notification failed")
		}
	})
}

// UpdateInput carries the fields a donor may edit while pending.
type UpdateInput struct {
	Component *string    `json:"component,omitempty"`
	ReadyDate *time.Time `json:"ready_date,omitempty"`
}

// Update edits a registration. Members may edit only their own pending
// registrations; staff bypass both restrictions.
func (s *Service) Update(ctx context.Context, id uuid.UUID, callerID uuid.UUID, isStaff bool, in UpdateInput) (*Registration, error) {
	reg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isStaff {
		if reg.DonorID != callerID {
			return nil, apperr.Forbidden("not your registration")
		}
		if reg.Status != StatusPending {
			return nil, apperr.StateConflict("only pending registrations can be edited")
		}
	}
	if in.Component != nil {
		ct, err := blood.ParseComponentType(*in.Component)
		if err != nil {
			return nil, apperr.Validation("invalid component: %s", *in.Component)
		}
		reg.Component = string(ct)
	}
	if in.ReadyDate != nil {
		if blood.TruncateToDay(*in.ReadyDate).Before(blood.TruncateToDay(time.Now().UTC())) {
			return nil, apperr.Validation("ready date must not be in the past")
		}
		reg.ReadyDate = blood.TruncateToDay(*in.ReadyDate)
	}
	if err := s.regs.Update(ctx, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// CompleteInput is the staff-entered outcome of a successful donation visit.
type CompleteInput struct {
	HealthCheckResult string            `json:"health_check_result"`
	Quantity          int               `json:"quantity"`
	VolumeML          int               `json:"volume_ml"`
	BloodType         string            `json:"blood_type"`
	Component         string            `json:"component"`
	Measurements      map[string]string `json:"measurements,omitempty"`
}

// Complete records a successful donation: it reconciles the lab-confirmed
// group and component, writes the immutable history row, flips the
// registration, and fans units out into inventory, all in one transaction.
// The donor's next-eligible notification goes out after commit.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, actor string, in CompleteInput) (*Registration, error) {
	if in.HealthCheckResult != "completed" {
		return nil, apperr.Validation("health_check_result must be \"completed\"")
	}
	if in.Quantity <= 0 {
		return nil, apperr.Validation("quantity must be positive")
	}
	if in.VolumeML <= 0 {
		return nil, apperr.Validation("volume_ml must be positive")
	}
	bt, err := blood.ParseBloodType(in.BloodType)
	if err != nil {
		return nil, apperr.Validation("invalid blood type: %s", in.BloodType)
	}
	ct, err := blood.ParseComponentType(in.Component)
	if err != nil {
		return nil, apperr.Validation("invalid component: %s", in.Component)
	}

	reg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.Status != StatusApproved {
		return nil, apperr.StateConflict("registration is %s, not approved", reg.Status)
	}

	now := time.Now().UTC()
	hist := &History{
		ID:           uuid.New(),
		DonorID:      reg.DonorID,
		DonatedAt:    now,
		BloodType:    string(bt),
		Component:    string(ct),
		Status:       HistoryCompleted,
		Quantity:     in.Quantity,
		VolumeML:     in.VolumeML,
		Measurements: in.Measurements,
	}
	next := blood.NextEligibleDate(ct, now)
	hist.NextEligibleAt = &next

	expiresAt, err := blood.ExpiryDate(ct, now)
	if err != nil {
		return nil, apperr.Validation("invalid component: %s", in.Component)
	}

	err = s.tx(ctx, func(ctx context.Context) error {
		donor, err := s.members.GetByID(ctx, reg.DonorID)
		if err != nil {
			return err
		}
		if donor.BloodType == nil || *donor.BloodType != string(bt) {
			if err := s.members.UpdateBloodGroup(ctx, reg.DonorID, string(bt)); err != nil {
				return err
			}
		}

		if err := s.histories.Create(ctx, hist); err != nil {
			return err
		}

		reg.Status = StatusCompleted
		reg.BloodType = string(bt)
		reg.Component = string(ct)
		reg.CompletedBy = &actor
		reg.CompletedAt = &now
		reg.HistoryID = &hist.ID
		n, err := s.regs.MarkCompleted(ctx, reg, StatusApproved)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.StateConflict("registration is no longer approved")
		}

		units := make([]*inventory.BloodUnit, 0, in.Quantity)
		donorID := reg.DonorID
		donorName := donor.FullName
		for i := 0; i < in.Quantity; i++ {
			units = append(units, &inventory.BloodUnit{
				ID:        uuid.New(),
				BloodType: string(bt),
				Component: string(ct),
				VolumeML:  in.VolumeML,
				AddedAt:   now,
				ExpiresAt: expiresAt,
				Source:    inventory.SourceDonation,
				HistoryID: &hist.ID,
				DonorID:   &donorID,
				DonorName: &donorName,
			})
		}
		return s.units.CreateBatch(ctx, units)
	})
	if err != nil {
		return nil, err
	}

	s.notifyNextEligible(ctx, reg, next)
	return reg, nil
}

func (s *Service) notifyNextEligible(ctx context.Context, reg *Registration, next time.Time) {
	if s.notifier == nil {
		return
	}
	donor, err := s.members.GetByID(ctx, reg.DonorID)
	if err != nil {
		s.logger.Warn().Err(err).Str("donor_id", reg.DonorID.String()).Msg("skipping next-eligible notification")
		return
	}
	logger := s.logger
	s.notifier.Dispatch("donation-next-eligible", map[string]string{
		"donor_name":         donor.FullName,
		"next_eligible_date": next.Format("2006-01-02"),
	}, donor.Email, s.notifyTimeout, func(err error) {
		if err != nil {
			logger.Warn().Err(err).Msg("next-eligible notification failed")
		}
	})
}

// FailInput is the staff-entered outcome of a failed health check.
type FailInput struct {
	HealthCheckResult string            `json:"health_check_result"`
	Reason            string            `json:"reason"`
	Measurements      map[string]string `json:"measurements,omitempty"`
}

// FailHealthCheck records a failed screening at the center: a Failed history
// row with no eligibility impact and no inventory, and the registration
// flips to Failed, in one transaction.
func (s *Service) FailHealthCheck(ctx context.Context, id uuid.UUID, in FailInput) (*Registration, error) {
	if in.HealthCheckResult != "rejected" {
		return nil, apperr.Validation("health_check_result must be \"rejected\"")
	}
	if in.Reason == "" {
		return nil, apperr.Validation("reason is required")
	}

	reg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.Status != StatusApproved {
		return nil, apperr.StateConflict("registration is %s, not approved", reg.Status)
	}

	now := time.Now().UTC()
	hist := &History{
		ID:           uuid.New(),
		DonorID:      reg.DonorID,
		DonatedAt:    now,
		BloodType:    reg.BloodType,
		Component:    reg.Component,
		Status:       HistoryFailed,
		Measurements: in.Measurements,
	}

	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.histories.Create(ctx, hist); err != nil {
			return err
		}
		n, err := s.regs.MarkFailed(ctx, id, StatusApproved, &in.Reason, hist.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.StateConflict("registration is no longer approved")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	reg.Status = StatusFailed
	reg.RejectionReason = &in.Reason
	reg.HistoryID = &hist.ID
	return reg, nil
}

// Delete removes a registration. Members may delete only their own pending
// registrations; staff delete regardless.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, callerID uuid.UUID, isStaff bool) error {
	reg, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !isStaff {
		if reg.DonorID != callerID {
			return apperr.Forbidden("not your registration")
		}
		if reg.Status != StatusPending {
			return apperr.StateConflict("only pending registrations can be deleted")
		}
	}
	return s.regs.Delete(ctx, id)
}

func (s *Service) ListByDonor(ctx context.Context, donorID uuid.UUID, status string, limit, offset int) ([]*Registration, int, error) {
	return s.regs.ListByDonor(ctx, donorID, status, limit, offset)
}

func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]*Registration, int, error) {
	return s.regs.List(ctx, status, limit, offset)
}

func (s *Service) GetHistory(ctx context.Context, id uuid.UUID) (*History, error) {
	h, err := s.histories.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("donation history %s not found", id)
	}
	return h, err
}

func (s *Service) ListHistoriesByDonor(ctx context.Context, donorID uuid.UUID, limit, offset int) ([]*History, int, error) {
	return s.histories.ListByDonor(ctx, donorID, limit, offset)
}
