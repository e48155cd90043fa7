package request

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending   = "pending"
	StatusAssigned  = "assigned"
	StatusFulfilled = "fulfilled"
	StatusCompleted = "completed"
	StatusRejected  = "rejected"
	StatusExpired   = "expired"
)

// NeedRequest is a member's ask for blood units. It moves
// pending -> assigned -> fulfilled -> completed, with rejected reachable
// from pending or assigned.
type NeedRequest struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	RequesterID     uuid.UUID  `db:"requester_id" json:"requester_id"`
	BloodType       string     `db:"blood_type" json:"blood_type"`
	Component       string     `db:"component" json:"component"`
	UnitsRequired   int        `db:"units_required" json:"units_required"`
	Reason          string     `db:"reason" json:"reason"`
	Status          string     `db:"status" json:"status"`
	AttachmentID    *string    `db:"attachment_id" json:"attachment_id,omitempty"`
	AssignedBy      *string    `db:"assigned_by" json:"assigned_by,omitempty"`
	AppointmentDate *time.Time `db:"appointment_date" json:"appointment_date,omitempty"`
	FulfilledAt     *time.Time `db:"fulfilled_at" json:"fulfilled_at,omitempty"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	RejectionReason *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}
