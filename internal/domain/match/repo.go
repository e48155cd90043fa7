package match

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, m *DonationMatch) error
	GetByID(ctx context.Context, id uuid.UUID) (*DonationMatch, error)
	// UpdateStatus flips status only while the row is still in from,
	// returning the number of rows touched.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (int64, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID, limit, offset int) ([]*DonationMatch, int, error)
	ListByDonor(ctx context.Context, donorID uuid.UUID, limit, offset int) ([]*DonationMatch, int, error)
}
