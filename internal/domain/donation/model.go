package donation

import (
	"time"

	"github.com/google/uuid"
)

// Registration statuses.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// History statuses.
const (
	HistoryCompleted = "completed"
	HistoryFailed    = "failed"
)

// ScreeningAnswer is one item of the donor's self-screening questionnaire,
// stored as jsonb on the registration.
type ScreeningAnswer struct {
	Question string `json:"question"`
	Answer   bool   `json:"answer"`
}

// Registration maps to the donation_registrations table. It tracks a donor's
// appointment to donate from intake through completion or failure.
type Registration struct {
	ID               uuid.UUID         `db:"id" json:"id"`
	DonorID          uuid.UUID         `db:"donor_id" json:"donor_id"`
	BloodType        string            `db:"blood_type" json:"blood_type"`
	Component        string            `db:"component" json:"component"`
	ReadyDate        time.Time         `db:"ready_date" json:"ready_date"`
	Status           string            `db:"status" json:"status"`
	RejectionReason  *string           `db:"rejection_reason" json:"rejection_reason,omitempty"`
	ScreeningAnswers []ScreeningAnswer `db:"screening_answers" json:"screening_answers"`
	Confirmed        bool              `db:"confirmed" json:"confirmed"`
	CompletedBy      *string           `db:"completed_by" json:"completed_by,omitempty"`
	CompletedAt      *time.Time        `db:"completed_at" json:"completed_at,omitempty"`
	HistoryID        *uuid.UUID        `db:"history_id" json:"history_id,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}

// History maps to the donation_histories table. Rows are immutable: one per
// completed or failed donation attempt.
type History struct {
	ID             uuid.UUID         `db:"id" json:"id"`
	DonorID        uuid.UUID         `db:"donor_id" json:"donor_id"`
	DonatedAt      time.Time         `db:"donated_at" json:"donated_at"`
	BloodType      string            `db:"blood_type" json:"blood_type"`
	Component      string            `db:"component" json:"component"`
	Status         string            `db:"status" json:"status"`
	Quantity       int               `db:"quantity" json:"quantity"`
	VolumeML       int               `db:"volume_ml" json:"volume_ml"`
	Measurements   map[string]string `db:"measurements" json:"measurements,omitempty"`
	NextEligibleAt *time.Time        `db:"next_eligible_at" json:"next_eligible_at,omitempty"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
}
