package inventory

import (
	"time"

	"github.com/google/uuid"
)

// Unit sources.
const (
	SourceDonation = "donation"
	SourceImport   = "import"
)

// BloodUnit maps to the blood_units table. A unit is one bag of a single
// component. request_id is the assignment reference: a non-null value means
// the unit is reserved for a need request and must never be selected again.
type BloodUnit struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	BloodType string     `db:"blood_type" json:"blood_type"`
	Component string     `db:"component" json:"component"`
	VolumeML  int        `db:"volume_ml" json:"volume_ml"`
	AddedAt   time.Time  `db:"added_at" json:"added_at"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	Source    string     `db:"source" json:"source"`
	HistoryID *uuid.UUID `db:"history_id" json:"history_id,omitempty"`
	DonorID   *uuid.UUID `db:"donor_id" json:"donor_id,omitempty"`
	DonorName *string    `db:"donor_name" json:"donor_name,omitempty"`
	Note      *string    `db:"note" json:"note,omitempty"`
	RequestID *uuid.UUID `db:"request_id" json:"request_id,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Assigned reports whether the unit is reserved for a need request.
func (u *BloodUnit) Assigned() bool { return u.RequestID != nil }

// Expired reports whether the unit has passed its expiry at now.
func (u *BloodUnit) Expired(now time.Time) bool { return !u.ExpiresAt.After(now) }
