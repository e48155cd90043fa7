package member

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, m *Member) error
	GetByID(ctx context.Context, id uuid.UUID) (*Member, error)
	Update(ctx context.Context, m *Member) error
	UpdateBloodGroup(ctx context.Context, id uuid.UUID, bloodType string) error
	List(ctx context.Context, limit, offset int) ([]*Member, int, error)

	// ListEligibleDonors returns members whose blood group is one of the
	// given types, who have stored coordinates, and whose latest donation
	// history carries no next-eligible date in the future of now.
	ListEligibleDonors(ctx context.Context, bloodTypes []string, now time.Time) ([]*Member, error)
}
