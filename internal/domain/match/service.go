package match

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/bloodbank/bloodbank/internal/domain/member"
	"github.com/bloodbank/bloodbank/internal/domain/request"
	"github.com/bloodbank/bloodbank/internal/platform/apperr"
)

// RequestReader resolves the need request a match is invited for.
type RequestReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*request.NeedRequest, error)
}

// MemberDirectory resolves invited donors for notification.
type MemberDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*member.Member, error)
}

// Notifier dispatches a templated notification asynchronously.
type Notifier interface {
	Dispatch(templateID string, data map[string]string, recipient string, timeout time.Duration, onDone func(error))
}

type Service struct {
	repo          Repository
	requests      RequestReader
	members       MemberDirectory
	notifier      Notifier
	notifyTimeout time.Duration
	logger        zerolog.Logger
}

func NewService(repo Repository, requests RequestReader, members MemberDirectory,
	notifier Notifier, notifyTimeout time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		repo:          repo,
		requests:      requests,
		members:       members,
		notifier:      notifier,
		notifyTimeout: notifyTimeout,
		logger:        logger,
	}
}

// CreateInput names the request and the donor staff want to invite.
type CreateInput struct {
	RequestID uuid.UUID `json:"request_id"`
	DonorID   uuid.UUID `json:"donor_id"`
	Message   *string   `json:"message,omitempty"`
}

// Create invites a donor to cover a need request and notifies them by SMS
// best-effort.
func (s *Service) Create(ctx context.Context, invitedBy string, in CreateInput) (*DonationMatch, error) {
	req, err := s.requests.GetByID(ctx, in.RequestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("request %s not found", in.RequestID)
		}
		return nil, err
	}
	donor, err := s.members.GetByID(ctx, in.DonorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("member %s not found", in.DonorID)
		}
		return nil, err
	}

	m := &DonationMatch{
		ID:        uuid.New(),
		RequestID: req.ID,
		DonorID:   donor.ID,
		InvitedBy: invitedBy,
		Status:    StatusPending,
		Message:   in.Message,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}

	s.notifyDonor(m, donor, req)
	return m, nil
}

func (s *Service) notifyDonor(m *DonationMatch, donor *member.Member, req *request.NeedRequest) {
	if s.notifier == nil || donor.Phone == "" {
		return
	}
	logger := s.logger
	s.notifier.Dispatch("match-invitation", map[string]string{
		"donor_name": donor.FullName,
		"blood_type": req.BloodType,
		"component":  req.Component,
	}, donor.Phone, s.notifyTimeout, func(err error) {
		if err != nil {
			logger.Warn().Err(err).Str("match_id", m.ID.String()).Msg("match invitation failed")
		}
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*DonationMatch, error) {
	m, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("match %s not found", id)
	}
	return m, err
}

// Respond records the invited donor's answer to a pending invitation.
func (s *Service) Respond(ctx context.Context, id uuid.UUID, donorID uuid.UUID, status string) (*DonationMatch, error) {
	if status != StatusMatched && status != StatusRejected {
		return nil, apperr.Validation("status must be %s or %s", StatusMatched, StatusRejected)
	}
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.DonorID != donorID {
		return nil, apperr.Forbidden("not your invitation")
	}
	if m.Status != StatusPending {
		return nil, apperr.StateConflict("invitation is %s, not pending", m.Status)
	}
	n, err := s.repo.UpdateStatus(ctx, id, StatusPending, status)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, apperr.StateConflict("invitation is no longer pending")
	}
	m.Status = status
	return m, nil
}

func (s *Service) ListByRequest(ctx context.Context, requestID uuid.UUID, limit, offset int) ([]*DonationMatch, int, error) {
	return s.repo.ListByRequest(ctx, requestID, limit, offset)
}

func (s *Service) ListByDonor(ctx context.Context, donorID uuid.UUID, limit, offset int) ([]*DonationMatch, int, error) {
	return s.repo.ListByDonor(ctx, donorID, limit, offset)
}
