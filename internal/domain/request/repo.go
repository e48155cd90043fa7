package request

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *NeedRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*NeedRequest, error)
	Update(ctx context.Context, r *NeedRequest) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByRequester(ctx context.Context, requesterID uuid.UUID, status string, limit, offset int) ([]*NeedRequest, int, error)
	List(ctx context.Context, status string, limit, offset int) ([]*NeedRequest, int, error)

	// The Mark* flips are guarded on the current status and return the
	// number of rows touched. Zero means a concurrent actor won the race.
	MarkAssigned(ctx context.Context, id uuid.UUID, assignedBy string, appointment time.Time) (int64, error)
	MarkFulfilled(ctx context.Context, id uuid.UUID, at time.Time) (int64, error)
	MarkRejected(ctx context.Context, id uuid.UUID, fromStatuses []string, reason string) (int64, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) (int64, error)

	// SweepFulfilled auto-completes every fulfilled request whose
	// fulfilled_at is older than the cutoff, returning the number moved.
	SweepFulfilled(ctx context.Context, olderThan time.Time, now time.Time) (int64, error)
}
