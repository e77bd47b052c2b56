// Package matching ranks eligible donors for a blood request by
// compatibility, proximity, and health.
package matching

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"time"

	"lifedrop/internal/domain"
	"lifedrop/internal/platform/metrics"
	"lifedrop/pkg/geo"

	id "lifedrop/pkg/domain"
	dErrors "lifedrop/pkg/domain-errors"
	"lifedrop/pkg/platform/sentinel"
	"lifedrop/pkg/requestcontext"
)

// Score weights. Proximity dominates because a close donor can reach the
// hospital inside the viability window of an urgent request.
const (
	proximityWeight = 0.6
	healthWeight    = 0.4
	exactMatchBonus = 5
)

// Match is one ranked donor candidate. The donor's phone is masked; the
// full number is only revealed to a requester after the donor accepts.
type Match struct {
	DonorID     id.DonorID    `json:"donor_id"`
	FullName    string        `json:"full_name"`
	MaskedPhone string        `json:"masked_phone"`
	BloodGroup  id.BloodGroup `json:"blood_group"`
	DistanceKm  float64       `json:"distance_km"`
	Proximity   float64       `json:"proximity_score"`
	HealthScore int           `json:"health_score"`
	ExactMatch  bool          `json:"exact_match"`
	Score       int           `json:"score"`
}

type RequestStore interface {
	FindByID(ctx context.Context, requestID id.RequestID) (domain.Request, error)
}

type DonorStore interface {
	List(ctx context.Context) ([]domain.Donor, error)
}

// RankCache holds a short-lived snapshot of a ranking so repeated polls of
// the same request do not rescan the donor pool.
type RankCache interface {
	Get(ctx context.Context, requestID id.RequestID) ([]Match, bool, error)
	Set(ctx context.Context, requestID id.RequestID, matches []Match) error
}

type Service struct {
	requests RequestStore
	donors   DonorStore
	cache    RankCache
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithCache(cache RankCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// New constructs a Service.
func New(requests RequestStore, donors DonorStore, opts ...Option) *Service {
	s := &Service{
		requests: requests,
		donors:   donors,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RankDonors returns compatible, eligible donors for the request, best
// match first. An empty result is not an error; only an unknown request is.
func (s *Service) RankDonors(ctx context.Context, requestID id.RequestID) ([]Match, error) {
	start := time.Now()

	if s.cache != nil {
		if cached, ok, err := s.cache.Get(ctx, requestID); err != nil {
			s.logger.WarnContext(ctx, "rank cache read failed", "error", err)
		} else if ok {
			return cached, nil
		}
	}

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load request")
	}

	donors, err := s.donors.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load donors")
	}

	now := requestcontext.Now(ctx)
	matches := make([]Match, 0)
	for _, donor := range donors {
		if !request.BloodGroup.CanReceiveFrom(donor.BloodGroup) {
			continue
		}
		if !donor.Eligible(now) {
			continue
		}
		matches = append(matches, scoreDonor(request, donor))
	}

	// Stable keeps store order as the tie-break.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if s.cache != nil {
		if err := s.cache.Set(ctx, requestID, matches); err != nil {
			s.logger.WarnContext(ctx, "rank cache write failed", "error", err)
		}
	}

	s.metrics.ObserveRankingDuration(time.Since(start).Seconds())
	s.logger.InfoContext(ctx, "donors ranked",
		"request_id", requestID.String(),
		"candidates", len(donors),
		"matches", len(matches),
	)
	return matches, nil
}

func scoreDonor(request domain.Request, donor domain.Donor) Match {
	distance := geo.DistanceKm(request.Lat, request.Lng, donor.Lat, donor.Lng)
	proximity := geo.ProximityScore(distance)
	exact := donor.BloodGroup == request.BloodGroup

	score := int(math.Round(proximityWeight*proximity + healthWeight*float64(donor.HealthScore)))
	if exact {
		score += exactMatchBonus
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return Match{
		DonorID:     donor.ID,
		FullName:    donor.FullName,
		MaskedPhone: domain.MaskPhone(donor.Phone),
		BloodGroup:  donor.BloodGroup,
		DistanceKm:  distance,
		Proximity:   proximity,
		HealthScore: donor.HealthScore,
		ExactMatch:  exact,
		Score:       score,
	}
}
