package request

import (
	"context"
	"errors"
	"strconv"
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

// UnitStore is the slice of the inventory repository that allocation needs.
type UnitStore interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*inventory.BloodUnit, error)
	ClaimForRequest(ctx context.Context, requestID uuid.UUID, ids []uuid.UUID) (int64, error)
	ReleaseByRequest(ctx context.Context, requestID uuid.UUID) error
	DeleteByRequest(ctx context.Context, requestID uuid.UUID) error
}

// MemberDirectory resolves requesters for notification.
type MemberDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*member.Member, error)
}

// Notifier dispatches a templated notification asynchronously.
type Notifier interface {
	Dispatch(templateID string, data map[string]string, recipient string, timeout time.Duration, onDone func(error))
}

type Service struct {
	repo          Repository
	units         UnitStore
	members       MemberDirectory
	notifier      Notifier
	notifyTimeout time.Duration
	logger        zerolog.Logger
	tx            func(ctx context.Context, fn func(ctx context.Context) error) error
}

// NewService wires the request lifecycle. pool may be nil in tests, in which
// case transactional sections run directly on the given context.
func NewService(pool *pgxpool.Pool, repo Repository, units UnitStore,
	members MemberDirectory, notifier Notifier,
	notifyTimeout time.Duration, logger zerolog.Logger) *Service {
	s := &Service{
		repo:          repo,
		units:         units,
		members:       members,
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

// CreateInput is the member-supplied need request.
type CreateInput struct {
	BloodType     string  `json:"blood_type"`
	Component     string  `json:"component"`
	UnitsRequired int     `json:"units_required"`
	Reason        string  `json:"reason"`
	AttachmentID  *string `json:"attachment_id,omitempty"`
}

func (s *Service) Create(ctx context.Context, requesterID uuid.UUID, in CreateInput) (*NeedRequest, error) {
	bt, err := blood.ParseBloodType(in.BloodType)
	if err != nil {
		return nil, apperr.Validation("invalid blood type: %s", in.BloodType)
	}
	ct, err := blood.ParseComponentType(in.Component)
	if err != nil {
		return nil, apperr.Validation("invalid component: %s", in.Component)
	}
	if in.UnitsRequired < 1 {
		return nil, apperr.Validation("units_required must be at least 1")
	}
	if in.Reason == "" {
		return nil, apperr.Validation("reason is required")
	}

	req := &NeedRequest{
		ID:            uuid.New(),
		RequesterID:   requesterID,
		BloodType:     string(bt),
		Component:     string(ct),
		UnitsRequired: in.UnitsRequired,
		Reason:        in.Reason,
		Status:        StatusPending,
		AttachmentID:  in.AttachmentID,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*NeedRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("request %s not found", id)
	}
	return req, err
}

// AssignInput names the candidate units and the pickup appointment.
type AssignInput struct {
	UnitIDs         []uuid.UUID `json:"unit_ids"`
	AppointmentDate time.Time   `json:"appointment_date"`
}

// Assign reserves the candidate units for a pending request. The check is
// all-or-nothing: a shortfall is a Capacity error, the first unusable unit
// aborts with its id and reason, and a concurrent claim on any candidate
// fails the whole call.
func (s *Service) Assign(ctx context.Context, id uuid.UUID, assignedBy string, in AssignInput) (*NeedRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, apperr.StateConflict("request is %s, not pending", req.Status)
	}
	seen := make(map[uuid.UUID]struct{}, len(in.UnitIDs))
	for _, unitID := range in.UnitIDs {
		if _, dup := seen[unitID]; dup {
			return nil, apperr.Validation("unit %s is listed more than once", unitID)
		}
		seen[unitID] = struct{}{}
	}
	if len(in.UnitIDs) < req.UnitsRequired {
		return nil, apperr.Capacity("request needs %d units, only %d provided", req.UnitsRequired, len(in.UnitIDs))
	}
	if in.AppointmentDate.IsZero() {
		return nil, apperr.Validation("appointment_date is required")
	}

	units, err := s.units.GetByIDs(ctx, in.UnitIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*inventory.BloodUnit, len(units))
	for _, u := range units {
		byID[u.ID] = u
	}
	now := time.Now().UTC()
	for _, unitID := range in.UnitIDs {
		u, ok := byID[unitID]
		if !ok {
			return nil, apperr.Validation("unit %s does not exist", unitID)
		}
		if u.Assigned() {
			return nil, apperr.Validation("unit %s is already assigned", unitID)
		}
		if u.Component != req.Component {
			return nil, apperr.Validation("unit %s is %s, request needs %s", unitID, u.Component, req.Component)
		}
		if !blood.CanDonate(blood.BloodType(u.BloodType), blood.BloodType(req.BloodType)) {
			return nil, apperr.Validation("unit %s (%s) is incompatible with recipient group %s", unitID, u.BloodType, req.BloodType)
		}
		if u.Expired(now) {
			return nil, apperr.Validation("unit %s expired on %s", unitID, u.ExpiresAt.Format("2006-01-02"))
		}
	}

	err = s.tx(ctx, func(ctx context.Context) error {
		n, err := s.units.ClaimForRequest(ctx, req.ID, in.UnitIDs)
		if err != nil {
			return err
		}
		if n < int64(len(in.UnitIDs)) {
			return apperr.Conflict("unit no longer available")
		}
		flipped, err := s.repo.MarkAssigned(ctx, req.ID, assignedBy, in.AppointmentDate)
		if err != nil {
			return err
		}
		if flipped == 0 {
			return apperr.StateConflict("request is no longer pending")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	req.Status = StatusAssigned
	req.AssignedBy = &assignedBy
	req.AppointmentDate = &in.AppointmentDate

	s.notifyRequester(ctx, req, "request-assigned", map[string]string{
		"date": in.AppointmentDate.Format("2006-01-02"),
	})
	return req, nil
}

// Fulfill hands the reserved units over: the request flips to fulfilled and
// the units leave inventory for good, in one transaction.
func (s *Service) Fulfill(ctx context.Context, id uuid.UUID) (*NeedRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusAssigned {
		return nil, apperr.StateConflict("request is %s, not assigned", req.Status)
	}

	now := time.Now().UTC()
	err = s.tx(ctx, func(ctx context.Context) error {
		n, err := s.repo.MarkFulfilled(ctx, req.ID, now)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.StateConflict("request is no longer assigned")
		}
		return s.units.DeleteByRequest(ctx, req.ID)
	})
	if err != nil {
		return nil, err
	}

	req.Status = StatusFulfilled
	req.FulfilledAt = &now

	s.notifyRequester(ctx, req, "request-fulfilled", nil)
	return req, nil
}

// Reject declines a pending or assigned request. Any reserved units go back
// to the available pool in the same transaction.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason string) (*NeedRequest, error) {
	if reason == "" {
		return nil, apperr.Validation("rejection reason is required")
	}
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending && req.Status != StatusAssigned {
		return nil, apperr.StateConflict("request is %s, not pending or assigned", req.Status)
	}

	err = s.tx(ctx, func(ctx context.Context) error {
		n, err := s.repo.MarkRejected(ctx, req.ID, []string{StatusPending, StatusAssigned}, reason)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.StateConflict("request can no longer be rejected")
		}
		return s.units.ReleaseByRequest(ctx, req.ID)
	})
	if err != nil {
		return nil, err
	}

	req.Status = StatusRejected
	req.RejectionReason = &reason
	return req, nil
}

// Confirm is the requester acknowledging receipt of a fulfilled request.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, callerID uuid.UUID) (*NeedRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.RequesterID != callerID {
		return nil, apperr.Forbidden("only the requester can confirm")
	}
	if req.Status != StatusFulfilled {
		return nil, apperr.StateConflict("request is %s, not fulfilled", req.Status)
	}

	now := time.Now().UTC()
	n, err := s.repo.MarkCompleted(ctx, req.ID, now)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, apperr.StateConflict("request is no longer fulfilled")
	}
	req.Status = StatusCompleted
	req.CompletedAt = &now
	return req, nil
}

// UpdateInput carries the fields a requester may edit while pending.
type UpdateInput struct {
	BloodType     *string `json:"blood_type,omitempty"`
	Component     *string `json:"component,omitempty"`
	UnitsRequired *int    `json:"units_required,omitempty"`
	Reason        *string `json:"reason,omitempty"`
}

// Update edits a request. Members may edit only their own pending requests;
// staff bypass both restrictions.
func (s *Service) Update(ctx context.Context, id uuid.UUID, callerID uuid.UUID, isStaff bool, in UpdateInput) (*NeedRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isStaff {
		if req.RequesterID != callerID {
			return nil, apperr.Forbidden("not your request")
		}
		if req.Status != StatusPending {
			return nil, apperr.StateConflict("only pending requests can be edited")
		}
	}
	if in.BloodType != nil {
		bt, err := blood.ParseBloodType(*in.BloodType)
		if err != nil {
			return nil, apperr.Validation("invalid blood type: %s", *in.BloodType)
		}
		req.BloodType = string(bt)
	}
	if in.Component != nil {
		ct, err := blood.ParseComponentType(*in.Component)
		if err != nil {
			return nil, apperr.Validation("invalid component: %s", *in.Component)
		}
		req.Component = string(ct)
	}
	if in.UnitsRequired != nil {
		if *in.UnitsRequired < 1 {
			return nil, apperr.Validation("units_required must be at least 1")
		}
		req.UnitsRequired = *in.UnitsRequired
	}
	if in.Reason != nil {
		if *in.Reason == "" {
			return nil, apperr.Validation("reason must not be empty")
		}
		req.Reason = *in.Reason
	}
	if err := s.repo.Update(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Delete removes a request. Members may delete their own pending or
// completed requests; staff delete regardless.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, callerID uuid.UUID, isStaff bool) error {
	req, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !isStaff {
		if req.RequesterID != callerID {
			return apperr.Forbidden("not your request")
		}
		if req.Status != StatusPending && req.Status != StatusCompleted {
			return apperr.StateConflict("only pending or completed requests can be deleted")
		}
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListMine(ctx context.Context, requesterID uuid.UUID, status string, limit, offset int) ([]*NeedRequest, int, error) {
	return s.repo.ListByRequester(ctx, requesterID, status, limit, offset)
}

func (s *Service) ListAll(ctx context.Context, status string, limit, offset int) ([]*NeedRequest, int, error) {
	return s.repo.List(ctx, status, limit, offset)
}

func (s *Service) notifyRequester(ctx context.Context, req *NeedRequest, template string, extra map[string]string) {
	if s.notifier == nil {
		return
	}
	requester, err := s.members.GetByID(ctx, req.RequesterID)
	if err != nil {
		s.logger.Warn().Err(err).Str("requester_id", req.RequesterID.String()).Msg("skipping request notification")
		return
	}
	data := map[string]string{
		"requester_name": requester.FullName,
		"component":      req.Component,
		"blood_type":     req.BloodType,
		"quantity":       strconv.Itoa(req.UnitsRequired),
	}
	for k, v := range extra {
		data[k] = v
	}
	logger := s.logger
	s.notifier.Dispatch(template, data, requester.Email, s.notifyTimeout, func(err error) {
		if err != nil {
			logger.Warn().Err(err).Str("template", template).Msg("request notification failed")
		}
	})
}
