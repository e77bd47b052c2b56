//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"lifedrop/internal/matching"
	"lifedrop/internal/matching/cache"
	id "lifedrop/pkg/domain"
	"lifedrop/pkg/testutil/containers"
)

type RankCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestRankCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RankCacheSuite))
}

func (s *RankCacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *RankCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RankCacheSuite) TestRoundTrip() {
	ctx := context.Background()
	c := cache.NewRedisRankCache(s.redis.Client, time.Minute)
	requestID := id.NewRequestID()

	_, ok, err := c.Get(ctx, requestID)
	s.Require().NoError(err)
	s.False(ok)

	matches := []matching.Match{{
		DonorID:     "1001",
		FullName:    "Asha",
		MaskedPhone: "98******21",
		BloodGroup:  id.BloodGroupONeg,
		DistanceKm:  9.99,
		Proximity:   80.02,
		HealthScore: 90,
		Score:       84,
	}}
	s.Require().NoError(c.Set(ctx, requestID, matches))

	got, ok, err := c.Get(ctx, requestID)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(matches, got)
}

func (s *RankCacheSuite) TestEmptySnapshotIsAHit() {
	ctx := context.Background()
	c := cache.NewRedisRankCache(s.redis.Client, time.Minute)
	requestID := id.NewRequestID()

	s.Require().NoError(c.Set(ctx, requestID, []matching.Match{}))

	got, ok, err := c.Get(ctx, requestID)
	s.Require().NoError(err)
	s.True(ok, "a cached empty ranking must not look like a miss")
	s.Empty(got)
}

func (s *RankCacheSuite) TestExpiry() {
	ctx := context.Background()
	c := cache.NewRedisRankCache(s.redis.Client, 100*time.Millisecond)
	requestID := id.NewRequestID()

	s.Require().NoError(c.Set(ctx, requestID, []matching.Match{{DonorID: "1001"}}))
	time.Sleep(200 * time.Millisecond)

	_, ok, err := c.Get(ctx, requestID)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RankCacheSuite) TestInvalidate() {
	ctx := context.Background()
	c := cache.NewRedisRankCache(s.redis.Client, time.Minute)
	requestID := id.NewRequestID()

	s.Require().NoError(c.Set(ctx, requestID, []matching.Match{{DonorID: "1001"}}))
	s.Require().NoError(c.Invalidate(ctx, requestID))

	_, ok, err := c.Get(ctx, requestID)
	s.Require().NoError(err)
	s.False(ok)
}
