package match

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending  = "pending"
	StatusMatched  = "matched"
	StatusRejected = "rejected"
)

// DonationMatch is a staff invitation asking a specific donor to cover a
// need request. It is independent of the registration lifecycle; a willing
// donor still registers through the normal flow.
type DonationMatch struct {
	ID        uuid.UUID `db:"id" json:"id"`
	RequestID uuid.UUID `db:"request_id" json:"request_id"`
	DonorID   uuid.UUID `db:"donor_id" json:"donor_id"`
	InvitedBy string    `db:"invited_by" json:"invited_by"`
	Status    string    `db:"status" json:"status"`
	Message   *string   `db:"message" json:"message,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
