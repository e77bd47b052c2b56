package matching_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"lifedrop/internal/domain"
	"lifedrop/internal/matching"
	"lifedrop/internal/storage/memory"
	id "lifedrop/pkg/domain"
	dErrors "lifedrop/pkg/domain-errors"
	"lifedrop/pkg/requestcontext"
	"lifedrop/pkg/testutil"
)

// Chennai city centre; donor coordinates below are offsets from here.
const (
	hospitalLat = 13.0827
	hospitalLng = 80.2707
)

type fixture struct {
	donors   *memory.DonorStore
	requests *memory.RequestStore
	svc      *matching.Service
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		donors:   memory.NewDonorStore(),
		requests: memory.NewRequestStore(),
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = matching.New(f.requests, f.donors)
	return f
}

func (f *fixture) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), f.now)
}

func (f *fixture) addRequest(t *testing.T, group id.BloodGroup) domain.Request {
	t.Helper()
	request := domain.Request{
		ID:          id.NewRequestID(),
		RequesterID: "req-1",
		PatientName: "Patient",
		BloodGroup:  group,
		Units:       1,
		Lat:         hospitalLat,
		Lng:         hospitalLng,
		Status:      domain.RequestPending,
		CreatedAt:   f.now,
	}
	require.NoError(t, f.requests.Save(context.Background(), request))
	return request
}

func (f *fixture) addDonor(t *testing.T, donor domain.Donor) {
	t.Helper()
	require.NoError(t, f.donors.Save(context.Background(), donor))
}

func TestRankDonorsUnknownRequest(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RankDonors(f.ctx(), id.NewRequestID())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestRankDonorsScoring(t *testing.T) {
	f := newFixture(t)
	request := f.addRequest(t, id.BloodGroupAPos)

	testutil.Given(t, "a universal donor with health 90 about 10km away")
	// ~10km east along the same latitude.
	f.addDonor(t, domain.Donor{
		ID: "1001", FullName: "Asha", Phone: "9876543221",
		BloodGroup: id.BloodGroupONeg, HealthScore: 90,
		Lat: hospitalLat, Lng: hospitalLng + 10.0/(111.32*0.97437),
		IsAvailable: true,
	})

	testutil.When(t, "donors are ranked for an A+ request")
	matches, err := f.svc.RankDonors(f.ctx(), request.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	testutil.Then(t, "proximity and health combine without the exact-group bonus")
	m := matches[0]
	assert.InDelta(t, 10.0, m.DistanceKm, 0.2)
	assert.InDelta(t, 80.0, m.Proximity, 0.5)
	assert.False(t, m.ExactMatch)
	assert.Equal(t, 84, m.Score)
	assert.Equal(t, "98******21", m.MaskedPhone)
}

func TestRankDonorsExactMatchBonus(t *testing.T) {
	f := newFixture(t)
	request := f.addRequest(t, id.BloodGroupAPos)

	same := domain.Donor{
		ID: "2001", FullName: "Same Group", Phone: "9000000001",
		BloodGroup: id.BloodGroupAPos, HealthScore: 70,
		Lat: hospitalLat, Lng: hospitalLng, IsAvailable: true,
	}
	universal := same
	universal.ID = "2002"
	universal.FullName = "Universal"
	universal.Phone = "9000000002"
	universal.BloodGroup = id.BloodGroupONeg
	f.addDonor(t, same)
	f.addDonor(t, universal)

	matches, err := f.svc.RankDonors(f.ctx(), request.ID)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// Identical position and health, so the bonus decides the order.
	assert.Equal(t, id.DonorID("2001"), matches[0].DonorID)
	assert.Equal(t, matches[1].Score+5, matches[0].Score)
}

func TestRankDonorsFilters(t *testing.T) {
	f := newFixture(t)
	request := f.addRequest(t, id.BloodGroupAPos)

	base := domain.Donor{
		Phone: "9000000000", HealthScore: 80,
		Lat: hospitalLat, Lng: hospitalLng, IsAvailable: true,
	}

	incompatible := base
	incompatible.ID = "3001"
	incompatible.BloodGroup = id.BloodGroupBPos

	unavailable := base
	unavailable.ID = "3002"
	unavailable.BloodGroup = id.BloodGroupAPos
	unavailable.IsAvailable = false

	resting := base
	resting.ID = "3003"
	resting.BloodGroup = id.BloodGroupAPos
	recent := f.now.Add(-30 * 24 * time.Hour)
	resting.LastDonationAt = &recent

	eligible := base
	eligible.ID = "3004"
	eligible.BloodGroup = id.BloodGroupAPos
	old := f.now.Add(-120 * 24 * time.Hour)
	eligible.LastDonationAt = &old

	for _, d := range []domain.Donor{incompatible, unavailable, resting, eligible} {
		f.addDonor(t, d)
	}

	matches, err := f.svc.RankDonors(f.ctx(), request.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, id.DonorID("3004"), matches[0].DonorID)
}

func TestRankDonorsEmptyPoolIsNotAnError(t *testing.T) {
	f := newFixture(t)
	request := f.addRequest(t, id.BloodGroupABNeg)

	matches, err := f.svc.RankDonors(f.ctx(), request.ID)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRankDonorsScoreBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		request := f.addRequest(t, id.BloodGroupABPos)

		donor := domain.Donor{
			ID:          "4001",
			FullName:    "Prop Donor",
			Phone:       "9111111111",
			BloodGroup:  id.AllBloodGroups[rapid.IntRange(0, 7).Draw(rt, "group")],
			HealthScore: rapid.IntRange(0, 100).Draw(rt, "health"),
			Lat:         rapid.Float64Range(-90, 90).Draw(rt, "lat"),
			Lng:         rapid.Float64Range(-180, 180).Draw(rt, "lng"),
			IsAvailable: true,
		}
		require.NoError(rt, f.donors.Save(context.Background(), donor))

		matches, err := f.svc.RankDonors(f.ctx(), request.ID)
		require.NoError(rt, err)
		require.Len(rt, matches, 1, "AB+ accepts every group")

		m := matches[0]
		assert.GreaterOrEqual(rt, m.Score, 0)
		assert.LessOrEqual(rt, m.Score, 100)
		assert.GreaterOrEqual(rt, m.Proximity, 0.0)
		assert.NotEqual(rt, donor.Phone, m.MaskedPhone)
	})
}

type stubCache struct {
	snapshot []matching.Match
	hits     int
	sets     int
}

func (c *stubCache) Get(_ context.Context, _ id.RequestID) ([]matching.Match, bool, error) {
	if c.snapshot != nil {
		c.hits++
		return c.snapshot, true, nil
	}
	return nil, false, nil
}

func (c *stubCache) Set(_ context.Context, _ id.RequestID, matches []matching.Match) error {
	c.sets++
	c.snapshot = matches
	return nil
}

func TestRankDonorsUsesCacheSnapshot(t *testing.T) {
	f := newFixture(t)
	cache := &stubCache{}
	svc := matching.New(f.requests, f.donors, matching.WithCache(cache))
	request := f.addRequest(t, id.BloodGroupAPos)

	f.addDonor(t, domain.Donor{
		ID: "5001", FullName: "Cached", Phone: "9222222222",
		BloodGroup: id.BloodGroupAPos, HealthScore: 80,
		Lat: hospitalLat, Lng: hospitalLng, IsAvailable: true,
	})

	first, err := svc.RankDonors(f.ctx(), request.ID)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.RankDonors(f.ctx(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, 1, cache.sets, "a cache hit must not rewrite the snapshot")
}
