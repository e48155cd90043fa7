package member

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/internal/platform/geo"
	"github.com/bloodbank/bloodbank/pkg/blood"
)

type Service struct {
	repo     Repository
	resolver geo.LocationResolver
}

// NewService builds a member service. resolver may be nil, in which case
// nearby-donor searches require explicit coordinates.
func NewService(repo Repository, resolver geo.LocationResolver) *Service {
	return &Service{repo: repo, resolver: resolver}
}

// GetOrCreate returns the member profile, creating a skeleton row on first
// access so profiles exist as soon as an authenticated user shows up.
func (s *Service) GetOrCreate(ctx context.Context, id uuid.UUID) (*Member, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	m = &Member{ID: id}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Member, error) {
	m, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("member %s not found", id)
	}
	return m, err
}

// UpdateProfileInput carries the member-editable profile fields. Nil means
// leave unchanged.
type UpdateProfileInput struct {
	FullName  *string    `json:"full_name,omitempty"`
	Email     *string    `json:"email,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	BloodType *string    `json:"blood_type,omitempty"`
	DOB       *time.Time `json:"dob,omitempty"`
	Latitude  *float64   `json:"latitude,omitempty"`
	Longitude *float64   `json:"longitude,omitempty"`
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, in UpdateProfileInput) (*Member, error) {
	m, err := s.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.FullName != nil {
		m.FullName = *in.FullName
	}
	if in.Email != nil {
		m.Email = *in.Email
	}
	if in.Phone != nil {
		m.Phone = *in.Phone
	}
	if in.BloodType != nil {
		bt, err := blood.ParseBloodType(*in.BloodType)
		if err != nil {
			return nil, apperr.Validation("invalid blood type: %s", *in.BloodType)
		}
		v := string(bt)
		m.BloodType = &v
	}
	if in.DOB != nil {
		m.DOB = in.DOB
	}
	if in.Latitude != nil {
		m.Latitude = in.Latitude
	}
	if in.Longitude != nil {
		m.Longitude = in.Longitude
	}
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// CorrectBloodGroup overwrites a member's stored blood group. Staff use it
// directly; donation completion calls it when the lab-confirmed group differs
// from the declared one.
func (s *Service) CorrectBloodGroup(ctx context.Context, id uuid.UUID, bloodType string) error {
	bt, err := blood.ParseBloodType(bloodType)
	if err != nil {
		return apperr.Validation("invalid blood type: %s", bloodType)
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.UpdateBloodGroup(ctx, id, string(bt))
}

// NearbyDonorsInput locates the search origin. When Latitude/Longitude are
// nil the caller IP is resolved through GeoIP.
type NearbyDonorsInput struct {
	BloodType string
	Latitude  *float64
	Longitude *float64
	CallerIP  string
	Limit     int
}

// NearbyDonors lists donors whose blood is transfusable to a recipient of
// the given group, sorted by distance from the origin. Donors inside a
// donation cooldown are excluded.
func (s *Service) NearbyDonors(ctx context.Context, in NearbyDonorsInput) ([]*DonorDistance, error) {
	compatible := blood.CompatibleDonors(in.BloodType)
	if len(compatible) == 0 {
		return nil, apperr.Validation("unsupported blood type: %s", in.BloodType)
	}

	lat, lon, err := s.origin(in)
	if err != nil {
		return nil, err
	}

	types := make([]string, len(compatible))
	for i, bt := range compatible {
		types[i] = string(bt)
	}
	donors, err := s.repo.ListEligibleDonors(ctx, types, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	out := make([]*DonorDistance, 0, len(donors))
	for _, d := range donors {
		if !d.HasLocation() {
			continue
		}
		out = append(out, &DonorDistance{
			Member:     d,
			DistanceKm: geo.DistanceKm(lat, lon, *d.Latitude, *d.Longitude),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })

	if in.Limit > 0 && len(out) > in.Limit {
		out = out[:in.Limit]
	}
	return out, nil
}

func (s *Service) origin(in NearbyDonorsInput) (float64, float64, error) {
	if in.Latitude != nil && in.Longitude != nil {
		return *in.Latitude, *in.Longitude, nil
	}
	if s.resolver == nil || in.CallerIP == "" {
		return 0, 0, apperr.Validation("search origin required: provide latitude and longitude")
	}
	loc, err := s.resolver.Locate(in.CallerIP)
	if err != nil || loc == nil {
		return 0, 0, apperr.Validation("could not resolve caller location; provide latitude and longitude")
	}
	return loc.Latitude, loc.Longitude, nil
}
