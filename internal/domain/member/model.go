package member

import (
	"time"

	"github.com/google/uuid"
)

// Member maps to the members table. It holds the blood-profile subset of a
// user account: identity fields come from the auth provider, everything here
// is what the donation center needs to gate and route donations.
type Member struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	FullName  string     `db:"full_name" json:"full_name"`
	Email     string     `db:"email" json:"email"`
	Phone     string     `db:"phone" json:"phone"`
	BloodType *string    `db:"blood_type" json:"blood_type,omitempty"`
	DOB       *time.Time `db:"dob" json:"dob,omitempty"`
	Latitude  *float64   `db:"latitude" json:"latitude,omitempty"`
	Longitude *float64   `db:"longitude" json:"longitude,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// ProfileComplete reports whether the member has filled in everything a
// donation registration requires.
func (m *Member) ProfileComplete() bool {
	return m.FullName != "" && m.Email != "" && m.Phone != "" &&
		m.BloodType != nil && *m.BloodType != "" && m.DOB != nil
}

// HasLocation reports whether the member has stored coordinates.
func (m *Member) HasLocation() bool {
	return m.Latitude != nil && m.Longitude != nil
}

// DonorDistance is a nearby-donor listing entry: a member plus their
// great-circle distance from the search origin in kilometers.
type DonorDistance struct {
	Member     *Member `json:"member"`
	DistanceKm float64 `json:"distance_km"`
}
