// Package donor serves donor-facing stats and admin views.
package donor

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"lifedrop/internal/domain"
	id "lifedrop/pkg/domain"
	dErrors "lifedrop/pkg/domain-errors"
	"lifedrop/pkg/platform/sentinel"
	"lifedrop/pkg/requestcontext"
)

type Store interface {
	FindByID(ctx context.Context, donorID id.DonorID) (domain.Donor, error)
	List(ctx context.Context) ([]domain.Donor, error)
	UpdateIfVersion(ctx context.Context, donor domain.Donor) error
}

// Stats summarizes one donor's standing. Resting means the cooldown still
// runs; DaysUntilEligible is zero for anyone who could donate today.
type Stats struct {
	DonorID           id.DonorID `json:"donor_id"`
	FullName          string     `json:"full_name"`
	DonationCount     int        `json:"donation_count"`
	IsAvailable       bool       `json:"is_available"`
	Resting           bool       `json:"resting"`
	DaysUntilEligible int        `json:"days_until_eligible"`
	LastDonationAt    *time.Time `json:"last_donation_at,omitempty"`
}

// Detail is the admin listing row. Status is computed from the eligibility
// gate at read time, never stored.
type Detail struct {
	Donor  domain.Donor `json:"donor"`
	Status string       `json:"status"`
}

type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs a Service.
func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the donor's donation history and cooldown position.
func (s *Service) Stats(ctx context.Context, donorID id.DonorID) (Stats, error) {
	donor, err := s.load(ctx, donorID)
	if err != nil {
		return Stats{}, err
	}

	now := requestcontext.Now(ctx)
	remaining := donor.CooldownRemaining(now)
	return Stats{
		DonorID:           donor.ID,
		FullName:          donor.FullName,
		DonationCount:     donor.DonationCount,
		IsAvailable:       donor.IsAvailable,
		Resting:           remaining > 0,
		DaysUntilEligible: int(math.Ceil(remaining.Hours() / 24)),
		LastDonationAt:    donor.LastDonationAt,
	}, nil
}

// ToggleAvailability flips the donor's manual availability switch. The
// switch is independent of the cooldown: an available donor can still be
// resting.
func (s *Service) ToggleAvailability(ctx context.Context, donorID id.DonorID, available bool) (domain.Donor, error) {
	donor, err := s.load(ctx, donorID)
	if err != nil {
		return domain.Donor{}, err
	}
	if donor.IsAvailable == available {
		return donor, nil
	}

	donor.IsAvailable = available
	err = s.store.UpdateIfVersion(ctx, donor)
	if errors.Is(err, sentinel.ErrConflict) {
		return domain.Donor{}, dErrors.New(dErrors.CodeConflict, "donor changed concurrently")
	}
	if err != nil {
		return domain.Donor{}, dErrors.Wrap(err, dErrors.CodeInternal, "update donor")
	}
	donor.Version++

	s.logger.InfoContext(ctx, "donor availability changed",
		"donor_id", donorID.String(), "available", available)
	return donor, nil
}

// ListDetailed returns every donor with a fresh Active/Inactive label.
func (s *Service) ListDetailed(ctx context.Context) ([]Detail, error) {
	donors, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list donors")
	}

	now := requestcontext.Now(ctx)
	details := make([]Detail, 0, len(donors))
	for _, donor := range donors {
		status := "Inactive"
		if donor.Eligible(now) {
			status = "Active"
		}
		details = append(details, Detail{Donor: donor, Status: status})
	}
	return details, nil
}

func (s *Service) load(ctx context.Context, donorID id.DonorID) (domain.Donor, error) {
	donor, err := s.store.FindByID(ctx, donorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return domain.Donor{}, dErrors.New(dErrors.CodeNotFound, "donor not found")
		}
		return domain.Donor{}, dErrors.Wrap(err, dErrors.CodeInternal, "load donor")
	}
	return donor, nil
}
