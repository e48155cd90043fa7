package donation

import (
	"context"

	"github.com/google/uuid"
)

type RegistrationRepository interface {
	Create(ctx context.Context, r *Registration) error
	GetByID(ctx context.Context, id uuid.UUID) (*Registration, error)
	Update(ctx context.Context, r *Registration) error
	// UpdateStatus flips status only when the row is still in from,
	// returning the number of rows touched. A zero count means a concurrent
	// actor got there first.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, reason *string) (int64, error)
	// MarkCompleted is the completion flip: guarded on from-status, it
	// records the confirmed group/component, actor, time, and history link.
	MarkCompleted(ctx context.Context, r *Registration, from string) (int64, error)
	// MarkFailed flips an approved registration to failed, recording the
	// reason and the failed history row's id. Guarded like UpdateStatus.
	MarkFailed(ctx context.Context, id uuid.UUID, from string, reason *string, historyID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByDonor(ctx context.Context, donorID uuid.UUID, status string, limit, offset int) ([]*Registration, int, error)
	List(ctx context.Context, status string, limit, offset int) ([]*Registration, int, error)
}

type HistoryRepository interface {
	Create(ctx context.Context, h *History) error
	GetByID(ctx context.Context, id uuid.UUID) (*History, error)
	ListByDonor(ctx context.Context, donorID uuid.UUID, limit, offset int) ([]*History, int, error)
	// LatestByDonor returns the most recent history row, or nil when the
	// donor has never donated.
	LatestByDonor(ctx context.Context, donorID uuid.UUID) (*History, error)
}
