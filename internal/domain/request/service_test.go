package request

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/bloodbank/bloodbank/internal/domain/inventory"
	"github.com/bloodbank/bloodbank/internal/domain/member"
	"github.com/bloodbank/bloodbank/internal/platform/apperr"
)

// -- Mocks --

type mockRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*NeedRequest
}

func newMockRepo() *mockRepo {
	return &mockRepo{requests: make(map[uuid.UUID]*NeedRequest)}
}

func (m *mockRepo) Create(_ context.Context, r *NeedRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.CreatedAt = time.Now()
	r.UpdatedAt = time.Now()
	m.requests[r.ID] = r
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*NeedRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, r *NeedRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.requests[r.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.BloodType = r.BloodType
	stored.Component = r.Component
	stored.UnitsRequired = r.UnitsRequired
	stored.Reason = r.Reason
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.requests, id)
	return nil
}

func (m *mockRepo) ListByRequester(_ context.Context, requesterID uuid.UUID, status string, limit, offset int) ([]*NeedRequest, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*NeedRequest
	for _, r := range m.requests {
		if r.RequesterID == requesterID && (status == "" || r.Status == status) {
			out = append(out, r)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) List(_ context.Context, status string, limit, offset int) ([]*NeedRequest, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*NeedRequest
	for _, r := range m.requests {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) MarkAssigned(_ context.Context, id uuid.UUID, assignedBy string, appointment time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.Status != StatusPending {
		return 0, nil
	}
	r.Status = StatusAssigned
	r.AssignedBy = &assignedBy
	r.AppointmentDate = &appointment
	return 1, nil
}

func (m *mockRepo) MarkFulfilled(_ context.Context, id uuid.UUID, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.Status != StatusAssigned {
		return 0, nil
	}
	r.Status = StatusFulfilled
	r.FulfilledAt = &at
	return 1, nil
}

func (m *mockRepo) MarkRejected(_ context.Context, id uuid.UUID, fromStatuses []string, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return 0, nil
	}
	for _, from := range fromStatuses {
		if r.Status == from {
			r.Status = StatusRejected
			r.RejectionReason = &reason
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockRepo) MarkCompleted(_ context.Context, id uuid.UUID, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.Status != StatusFulfilled {
		return 0, nil
	}
	r.Status = StatusCompleted
	r.CompletedAt = &at
	return 1, nil
}

func (m *mockRepo) SweepFulfilled(_ context.Context, olderThan time.Time, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.requests {
		if r.Status == StatusFulfilled && r.FulfilledAt != nil && r.FulfilledAt.Before(olderThan) {
			r.Status = StatusCompleted
			at := now
			r.CompletedAt = &at
			n++
		}
	}
	return n, nil
}

type mockUnitStore struct {
	mu    sync.Mutex
	units map[uuid.UUID]*inventory.BloodUnit
}

func newMockUnitStore() *mockUnitStore {
	return &mockUnitStore{units: make(map[uuid.UUID]*inventory.BloodUnit)}
}

func (m *mockUnitStore) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*inventory.BloodUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*inventory.BloodUnit
	for _, id := range ids {
		if u, ok := m.units[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockUnitStore) ClaimForRequest(_ context.Context, requestID uuid.UUID, ids []uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		u, ok := m.units[id]
		if !ok || u.RequestID != nil {
			continue
		}
		rid := requestID
		u.RequestID = &rid
		n++
	}
	return n, nil
}

func (m *mockUnitStore) ReleaseByRequest(_ context.Context, requestID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.units {
		if u.RequestID != nil && *u.RequestID == requestID {
			u.RequestID = nil
		}
	}
	return nil
}

func (m *mockUnitStore) DeleteByRequest(_ context.Context, requestID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.units {
		if u.RequestID != nil && *u.RequestID == requestID {
			delete(m.units, id)
		}
	}
	return nil
}

type mockMembers struct {
	members map[uuid.UUID]*member.Member
}

func (m *mockMembers) GetByID(_ context.Context, id uuid.UUID) (*member.Member, error) {
	mem, ok := m.members[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return mem, nil
}

type mockNotifier struct {
	mu         sync.Mutex
	dispatched []string
}

func (m *mockNotifier) Dispatch(templateID string, data map[string]string, recipient string, timeout time.Duration, onDone func(error)) {
	m.mu.Lock()
	m.dispatched = append(m.dispatched, templateID)
	m.mu.Unlock()
	if onDone != nil {
		onDone(nil)
	}
}

func (m *mockNotifier) last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.dispatched) == 0 {
		return ""
	}
	return m.dispatched[len(m.dispatched)-1]
}

// -- Fixture --

type fixture struct {
	svc      *Service
	repo     *mockRepo
	units    *mockUnitStore
	members  *mockMembers
	notifier *mockNotifier
}

func newFixture() *fixture {
	f := &fixture{
		repo:     newMockRepo(),
		units:    newMockUnitStore(),
		members:  &mockMembers{members: make(map[uuid.UUID]*member.Member)},
		notifier: &mockNotifier{},
	}
	f.svc = NewService(nil, f.repo, f.units, f.members, f.notifier, time.Second, zerolog.Nop())
	return f
}

func (f *fixture) seedRequester() uuid.UUID {
	id := uuid.New()
	f.members.members[id] = &member.Member{
		ID:       id,
		FullName: "Test Requester",
		Email:    "requester@example.com",
	}
	return id
}

func (f *fixture) seedRequest(requesterID uuid.UUID, status string, unitsRequired int) *NeedRequest {
	req := &NeedRequest{
		ID:            uuid.New(),
		RequesterID:   requesterID,
		BloodType:     "A+",
		Component:     "plasma",
		UnitsRequired: unitsRequired,
		Reason:        "surgery",
		Status:        status,
	}
	f.repo.requests[req.ID] = req
	return req
}

func (f *fixture) seedUnit(bloodType, component string) *inventory.BloodUnit {
	u := &inventory.BloodUnit{
		ID:        uuid.New(),
		BloodType: bloodType,
		Component: component,
		VolumeML:  450,
		AddedAt:   time.Now().UTC(),
		ExpiresAt: time.Now().UTC().AddDate(0, 0, 30),
		Source:    inventory.SourceImport,
	}
	f.units.units[u.ID] = u
	return u
}

// -- Create --

func TestCreate_Succeeds(t *testing.T) {
	f := newFixture()
	requester := f.seedRequester()

	req, err := f.svc.Create(context.Background(), requester, CreateInput{
		BloodType:     "a+",
		Component:     "plasma",
		UnitsRequired: 2,
		Reason:        "scheduled surgery",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Status != StatusPending {
		t.Errorf("expected pending, got %s", req.Status)
	}
	if req.BloodType != "A+" {
		t.Errorf("expected normalized A+, got %s", req.BloodType)
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture()
	requester := f.seedRequester()

	tests := []struct {
		name string
		in   CreateInput
	}{
		{"bad blood type", CreateInput{BloodType: "Q+", Component: "plasma", UnitsRequired: 1, Reason: "x"}},
		{"bad component", CreateInput{BloodType: "A+", Component: "marrow", UnitsRequired: 1, Reason: "x"}},
		{"zero units", CreateInput{BloodType: "A+", Component: "plasma", UnitsRequired: 0, Reason: "x"}},
		{"missing reason", CreateInput{BloodType: "A+", Component: "plasma", UnitsRequired: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Create(context.Background(), requester, tt.in); !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

// -- Assign --

func validAssign(ids ...uuid.UUID) AssignInput {
	return AssignInput{
		UnitIDs:         ids,
		AppointmentDate: time.Now().UTC().Add(48 * time.Hour),
	}
}

func TestAssign_Succeeds(t *testing.T) {
	f := newFixture()
	requester := f.seedRequester()
	req := f.seedRequest(requester, StatusPending, 2)
	u1 := f.seedUnit("A+", "plasma")
	u2 := f.seedUnit("A-", "plasma")

	out, err := f.svc.Assign(context.Background(), req.ID, "staff-1", validAssign(u1.ID, u2.ID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != StatusAssigned {
		t.Errorf("expected assigned, got %s", out.Status)
	}
	if f.units.units[u1.ID].RequestID == nil || f.units.units[u2.ID].RequestID == nil {
		t.Error("expected both units reserved")
	}
	if f.notifier.last() != "request-assigned" {
		t.Errorf("expected request-assigned notification, got %v", f.notifier.dispatched)
	}
}

func TestAssign_OverAllocationAccepted(t *testing.T) {
	f := newFixture()
	requester := f.seedRequester()
	req := f.seedRequest(requester, StatusPending, 1)
	u1 := f.seedUnit("A+", "plasma")
	u2 := f.seedUnit("O-", "plasma")

	if _, err := f.svc.Assign(context.Background(), req.ID, "staff-1", validAssign(u1.ID, u2.ID)); err != nil {
		t.Fatalf("over-allocation should be accepted, got %v", err)
	}
}

func TestAssign_DuplicateUnitIDsRejected(t *testing.T) {
	f := newFixture()
	requester := f.seedRequester()
	req := f.seedRequest(requester, StatusPending, 2)
	u1 := f.seedUnit("A+", "plasma")

	// The same unit twice must not pass for two candidates.
	_, err := f.svc.Assign(context.Background(), req.ID, "staff-1", validAssign(u1.ID, u1.ID))
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if f.units.units[u1.ID].RequestID != nil {
		t.Error("unit must stay unreserved after a rejected assign")
	}
	if got, _ := f.repo.GetByID(context.Background(), req.ID); got.Status != StatusPending {
		t.Errorf("request status = %s, want pending", got.Status)
	}
}

func TestAssign_ShortfallIsCapacity(t *testing.T) {
	f := newFixture()
	requester := f.seedRequester()
	req := f.seedRequest(requester, StatusPending, 3)
	u1 := f.seedUnit("A+", "plasma")

	_, err := f.svc.Assign(context.Background(), req.ID, "staff-1", validAssign(u1.ID))
	if !errors.Is(err, apperr.ErrCapacity) {
		t.Errorf("expected capacity error, got %v", err)
	}
}

func TestAssign_UnitChecks(t *testing.T) {
	f := newFixture()
	requester := f.seedRequester()

	t.Run("missing unit", func(t *testing.T) {
		req := f.seedRequest(requester, StatusPending, 1)
		_, err := f.svc.Assign(context.Background(), req.ID, "staff-1", validAssign(uuid.New()))
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("already assigned", func(t *testing.T) {
		req := f.seedRequest(requester, StatusPending, 1)
		u := f.seedUnit("A+", "plasma")
		other := uuid.New()
		u.RequestID = &other
		f.units.units[u.ID].RequestID = &other
		_, err := f.svc.Assign(context.Background(), req.ID, "staff-1", validAssign(u.ID))
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("wrong component", func(t *testing.T) {
		req := f.seedRequest(requester, StatusPending, 1)
		u := f.seedUnit("A+", "platelets")
		_, err := f.svc.Assign(context.Background(), req.ID, "staff-1", validAssign(u.ID))
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("incompatible type", func(t *testing.T) {
		req := f.seedRequest(requester, StatusPending, 1)
		u := f.seedUnit("AB+", "plasma") // AB+ cannot donate to A+
		_, err := f.svc.Assign(context.Background(), req.ID, "staff-1", validAssign(u.ID))
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("expired unit", func(t *testing.T) {
		req := f.seedRequest(requester, StatusPending, 1)
		u := f.seedUnit("A+", "plasma")
		u.ExpiresAt = time.Now().UTC().AddDate(0, 0, -1)
		f.units.units[u.ID].ExpiresAt = u.ExpiresAt
		_, err := f.svc.Assign(context.Background(), req.ID, "staff-1", validAssign(u.ID))
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestAssign_NotPending(t *testing.T) {
	f := newFixture()
	requester := f.seedRequester()
	req := f.seedRequest(requester, StatusAssigned, 1)
	u := f.seedUnit("A+", "plasma")

	_, err := f.svc.Assign(context.Background(), req.ID, "staff-1", validAssign(u.ID))
	if !errors.Is(err, apperr.ErrStateConflict) {
		t.Errorf("expected state conflict, got %v", err)
	}
}

func TestAssign_ConcurrentClaimOneWinner(t *testing.T) {
	f := newFixture()
	requester := f.seedRequester()
	reqA := f.seedRequest(requester, StatusPending, 1)
	reqB := f.seedRequest(requester, StatusPending, 1)
	u := f.seedUnit("A+", "plasma")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []uuid.UUID{reqA.ID, reqB.ID} {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = f.svc.Assign(context.Background(), id, "staff-1", validAssign(u.ID))
		}(i, id)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, apperr.ErrConflict) || errors.Is(err, apperr.ErrValidation):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Errorf("expected exactly one winner, got %d wins and %d conflicts", wins, conflicts)
	}
}

// -- Fulfill --

func TestFulfill_DeletesUnits(t *testing.T) {
	f := newFixture()
	requester := f.seedRequester()
	req := f.seedRequest(requester, StatusPending, 1)
	u := f.seedUnit("A+", "plasma")

	if _, err := f.svc.Assign(context.Background(), req.ID, "staff-1", validAssign(u.ID)); err != nil {
		t.Fatalf("assign: %v", err)
	}
	out, err := f.svc.Fulfill(context.Background(), req.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != StatusFulfilled || out.FulfilledAt == nil {
		t.Errorf("expected fulfilled with timestamp, got %+v", out)
	}
	if _, ok := f.units.units[u.ID]; ok {
		t.Error("expected handed-over unit removed from inventory")
	}
	if f.notifier.last() != "request-fulfilled" {
		t.Errorf("expected request-fulfilled notification, got %v", f.notifier.dispatched)
	}
}

func TestFulfill_NotAssigned(t *testing.T) {
	f := newFixture()
	requester := f.seedRequester()
	req := f.seedRequest(requester, StatusPending, 1)

	_, err := f.svc.Fulfill(context.Background(), req.ID)
	if !errors.Is(err, apperr.ErrStateConflict) {
		t.Errorf("expected state conflict, got %v", err)
	}
}

// -- Reject --

func TestReject_ReleasesUnits(t *testing.T) {
	f := newFixture()
	requester := f.seedRequester()
	req := f.seedRequest(requester, StatusPending, 1)
	u := f.seedUnit("A+", "plasma")

	if _, err := f.svc.Assign(context.Background(), req.ID, "staff-1", validAssign(u.ID)); err != nil {
		t.Fatalf("assign: %v", err)
	}
	out, err := f.svc.Reject(context.Background(), req.ID, "duplicate request")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != StatusRejected {
		t.Errorf("expected rejected, got %s", out.Status)
	}
	if f.units.units[u.ID].RequestID != nil {
		t.Error("expected reserved unit released back to the pool")
	}
}

func TestReject_Validation(t *testing.T) {
	f := newFixture()
	requester := f.seedRequester()
	req := f.seedRequest(requester, StatusPending, 1)

	if _, err := f.svc.Reject(context.Background(), req.ID, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for missing reason, got %v", err)
	}

	done := f.seedRequest(requester, StatusCompleted, 1)
	if _, err := f.svc.Reject(context.Background(), done.ID, "x"); !errors.Is(err, apperr.ErrStateConflict) {
		t.Errorf("expected state conflict, got %v", err)
	}
}

// -- Confirm --

func TestConfirm(t *testing.T) {
	f := newFixture()
	requester := f.seedRequester()
	req := f.seedRequest(requester, StatusFulfilled, 1)
	at := time.Now().UTC()
	f.repo.requests[req.ID].FulfilledAt = &at

	out, err := f.svc.Confirm(context.Background(), req.ID, requester)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != StatusCompleted || out.CompletedAt == nil {
		t.Errorf("expected completed with timestamp, got %+v", out)
	}
}

func TestConfirm_Guards(t *testing.T) {
	f := newFixture()
	requester := f.seedRequester()
	req := f.seedRequest(requester, StatusFulfilled, 1)

	if _, err := f.svc.Confirm(context.Background(), req.ID, uuid.New()); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected forbidden for non-requester, got %v", err)
	}

	pending := f.seedRequest(requester, StatusPending, 1)
	if _, err := f.svc.Confirm(context.Background(), pending.ID, requester); !errors.Is(err, apperr.ErrStateConflict) {
		t.Errorf("expected state conflict, got %v", err)
	}
}

// -- Update / Delete ownership --

func TestUpdate_OwnershipRules(t *testing.T) {
	f := newFixture()
	requester := f.seedRequester()
	req := f.seedRequest(requester, StatusPending, 1)

	units := 4
	out, err := f.svc.Update(context.Background(), req.ID, requester, false, UpdateInput{UnitsRequired: &units})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.UnitsRequired != 4 {
		t.Errorf("expected 4 units required, got %d", out.UnitsRequired)
	}

	if _, err := f.svc.Update(context.Background(), req.ID, uuid.New(), false, UpdateInput{UnitsRequired: &units}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}

	f.repo.requests[req.ID].Status = StatusAssigned
	if _, err := f.svc.Update(context.Background(), req.ID, requester, false, UpdateInput{UnitsRequired: &units}); !errors.Is(err, apperr.ErrStateConflict) {
		t.Errorf("expected state conflict, got %v", err)
	}
	if _, err := f.svc.Update(context.Background(), req.ID, uuid.New(), true, UpdateInput{UnitsRequired: &units}); err != nil {
		t.Errorf("staff should bypass restrictions, got %v", err)
	}
}

func TestDelete_OwnershipRules(t *testing.T) {
	f := newFixture()
	requester := f.seedRequester()

	req := f.seedRequest(requester, StatusPending, 1)
	if err := f.svc.Delete(context.Background(), req.ID, requester, false); err != nil {
		t.Errorf("owner should delete pending, got %v", err)
	}

	req = f.seedRequest(requester, StatusCompleted, 1)
	if err := f.svc.Delete(context.Background(), req.ID, requester, false); err != nil {
		t.Errorf("owner should delete completed, got %v", err)
	}

	req = f.seedRequest(requester, StatusAssigned, 1)
	if err := f.svc.Delete(context.Background(), req.ID, requester, false); !errors.Is(err, apperr.ErrStateConflict) {
		t.Errorf("expected state conflict, got %v", err)
	}
	if err := f.svc.Delete(context.Background(), req.ID, uuid.New(), false); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
	if err := f.svc.Delete(context.Background(), req.ID, uuid.New(), true); err != nil {
		t.Errorf("staff should delete regardless, got %v", err)
	}
}

// -- Sweeper --

func TestSweepOnce(t *testing.T) {
	f := newFixture()
	requester := f.seedRequester()

	overdue := f.seedRequest(requester, StatusFulfilled, 1)
	old := time.Now().UTC().Add(-96 * time.Hour)
	f.repo.requests[overdue.ID].FulfilledAt = &old

	fresh := f.seedRequest(requester, StatusFulfilled, 1)
	recent := time.Now().UTC().Add(-1 * time.Hour)
	f.repo.requests[fresh.ID].FulfilledAt = &recent

	sw := NewSweeper(f.repo, time.Hour, 72*time.Hour, zerolog.Nop())
	n, err := sw.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 request swept, got %d", n)
	}
	if f.repo.requests[overdue.ID].Status != StatusCompleted {
		t.Error("expected overdue request completed")
	}
	if f.repo.requests[fresh.ID].Status != StatusFulfilled {
		t.Error("expected fresh request untouched")
	}

	// Second sweep is a no-op.
	n, err = sw.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected idempotent sweep, got %d", n)
	}
}
