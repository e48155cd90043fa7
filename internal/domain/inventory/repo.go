package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	CreateBatch(ctx context.Context, units []*BloodUnit) error
	GetByID(ctx context.Context, id uuid.UUID) (*BloodUnit, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*BloodUnit, error)
	Update(ctx context.Context, u *BloodUnit) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*BloodUnit, int, error)
	ListByType(ctx context.Context, bloodType string, limit, offset int) ([]*BloodUnit, int, error)

	// ListAvailable returns unassigned, unexpired units of the component
	// whose blood type is one of the given donor groups.
	ListAvailable(ctx context.Context, component string, bloodTypes []string, now time.Time) ([]*BloodUnit, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*BloodUnit, error)

	// ClaimForRequest atomically reserves the given units for a request,
	// touching only rows that are still unassigned. It returns the number
	// of rows claimed; callers abort when it is short of len(ids).
	ClaimForRequest(ctx context.Context, requestID uuid.UUID, ids []uuid.UUID) (int64, error)
	ReleaseByRequest(ctx context.Context, requestID uuid.UUID) error
	DeleteByRequest(ctx context.Context, requestID uuid.UUID) error
}
