package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/pkg/blood"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// AddUnitsInput describes a bulk intake of identical units. AddedAt defaults
// to now; expiry is always derived from the component shelf life.
type AddUnitsInput struct {
	BloodType string     `json:"blood_type"`
	Component string     `json:"component"`
	Count     int        `json:"count"`
	VolumeML  int        `json:"volume_ml"`
	AddedAt   *time.Time `json:"added_at,omitempty"`
	Source    string     `json:"source,omitempty"`
	DonorName *string    `json:"donor_name,omitempty"`
	Note      *string    `json:"note,omitempty"`
}

func (s *Service) AddUnits(ctx context.Context, in AddUnitsInput) ([]*BloodUnit, error) {
	bt, err := blood.ParseBloodType(in.BloodType)
	if err != nil {
		return nil, apperr.Validation("invalid blood type: %s", in.BloodType)
	}
	ct, err := blood.ParseComponentType(in.Component)
	if err != nil {
		return nil, apperr.Validation("invalid component: %s", in.Component)
	}
	if in.Count < 1 {
		return nil, apperr.Validation("count must be at least 1")
	}
	if in.VolumeML <= 0 {
		return nil, apperr.Validation("volume_ml must be positive")
	}
	addedAt := time.Now().UTC()
	if in.AddedAt != nil {
		addedAt = in.AddedAt.UTC()
	}
	expiresAt, err := blood.ExpiryDate(ct, addedAt)
	if err != nil {
		return nil, apperr.Validation("invalid component: %s", in.Component)
	}
	source := in.Source
	if source == "" {
		source = SourceImport
	}
	if source != SourceDonation && source != SourceImport {
		return nil, apperr.Validation("invalid source: %s", source)
	}

	units := make([]*BloodUnit, 0, in.Count)
	for i := 0; i < in.Count; i++ {
		units = append(units, &BloodUnit{
			ID:        uuid.New(),
			BloodType: string(bt),
			Component: string(ct),
			VolumeML:  in.VolumeML,
			AddedAt:   addedAt,
			ExpiresAt: expiresAt,
			Source:    source,
			DonorName: in.DonorName,
			Note:      in.Note,
		})
	}
	if err := s.repo.CreateBatch(ctx, units); err != nil {
		return nil, err
	}
	return units, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*BloodUnit, error) {
	u, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("blood unit %s not found", id)
	}
	return u, err
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*BloodUnit, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListByType(ctx context.Context, bloodType string, limit, offset int) ([]*BloodUnit, int, error) {
	bt, err := blood.ParseBloodType(bloodType)
	if err != nil {
		return nil, 0, apperr.Validation("invalid blood type: %s", bloodType)
	}
	return s.repo.ListByType(ctx, string(bt), limit, offset)
}

// ListCompatible returns unassigned, unexpired units of the component that a
// recipient of the given group can receive. An unsupported recipient type is
// a Validation error, distinct from an empty result.
func (s *Service) ListCompatible(ctx context.Context, component, recipientType string) ([]*BloodUnit, error) {
	ct, err := blood.ParseComponentType(component)
	if err != nil {
		return nil, apperr.Validation("invalid component: %s", component)
	}
	compatible := blood.CompatibleDonors(recipientType)
	if len(compatible) == 0 {
		return nil, apperr.Validation("unsupported blood type: %s", recipientType)
	}
	types := make([]string, len(compatible))
	for i, bt := range compatible {
		types[i] = string(bt)
	}
	return s.repo.ListAvailable(ctx, string(ct), types, time.Now().UTC())
}

// UpdateUnitInput carries corrective edits to a stored unit. Assignment
// state is never editable through this path.
type UpdateUnitInput struct {
	BloodType *string `json:"blood_type,omitempty"`
	Component *string `json:"component,omitempty"`
	VolumeML  *int    `json:"volume_ml,omitempty"`
	DonorName *string `json:"donor_name,omitempty"`
	Note      *string `json:"note,omitempty"`
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateUnitInput) (*BloodUnit, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.BloodType != nil {
		bt, err := blood.ParseBloodType(*in.BloodType)
		if err != nil {
			return nil, apperr.Validation("invalid blood type: %s", *in.BloodType)
		}
		u.BloodType = string(bt)
	}
	if in.Component != nil {
		ct, err := blood.ParseComponentType(*in.Component)
		if err != nil {
			return nil, apperr.Validation("invalid component: %s", *in.Component)
		}
		u.Component = string(ct)
		// Component change moves the expiry with it.
		expiresAt, err := blood.ExpiryDate(ct, u.AddedAt)
		if err != nil {
			return nil, apperr.Validation("invalid component: %s", *in.Component)
		}
		u.ExpiresAt = expiresAt
	}
	if in.VolumeML != nil {
		if *in.VolumeML <= 0 {
			return nil, apperr.Validation("volume_ml must be positive")
		}
		u.VolumeML = *in.VolumeML
	}
	if in.DonorName != nil {
		u.DonorName = in.DonorName
	}
	if in.Note != nil {
		u.Note = in.Note
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if u.Assigned() {
		return apperr.StateConflict("unit %s is assigned to a request", id)
	}
	return s.repo.Delete(ctx, id)
}
