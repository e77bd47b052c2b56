package donor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifedrop/internal/domain"
	"lifedrop/internal/donor"
	"lifedrop/internal/storage/memory"
	id "lifedrop/pkg/domain"
	dErrors "lifedrop/pkg/domain-errors"
	"lifedrop/pkg/requestcontext"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, store *memory.DonorStore, d domain.Donor) {
	t.Helper()
	require.NoError(t, store.Save(context.Background(), d))
}

func ctx() context.Context {
	return requestcontext.WithTime(context.Background(), now)
}

func TestStats(t *testing.T) {
	store := memory.NewDonorStore()
	svc := donor.New(store)

	t.Run("unknown donor", func(t *testing.T) {
		_, err := svc.Stats(ctx(), "ghost")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("donor mid-cooldown reports days remaining", func(t *testing.T) {
		last := now.Add(-80 * 24 * time.Hour)
		seed(t, store, domain.Donor{
			ID: "1001", FullName: "Asha", Phone: "9876543210",
			BloodGroup: id.BloodGroupOPos, IsAvailable: true,
			DonationCount: 4, LastDonationAt: &last,
		})

		stats, err := svc.Stats(ctx(), "1001")
		require.NoError(t, err)
		assert.Equal(t, 4, stats.DonationCount)
		assert.True(t, stats.Resting)
		assert.Equal(t, 10, stats.DaysUntilEligible)
	})

	t.Run("rested donor reports zero days", func(t *testing.T) {
		last := now.Add(-120 * 24 * time.Hour)
		seed(t, store, domain.Donor{
			ID: "1002", FullName: "Ravi", Phone: "9876543211",
			BloodGroup: id.BloodGroupBNeg, IsAvailable: true,
			DonationCount: 1, LastDonationAt: &last,
		})

		stats, err := svc.Stats(ctx(), "1002")
		require.NoError(t, err)
		assert.False(t, stats.Resting)
		assert.Zero(t, stats.DaysUntilEligible)
	})

	t.Run("fractional days round up", func(t *testing.T) {
		last := now.Add(-89*24*time.Hour - 12*time.Hour)
		seed(t, store, domain.Donor{
			ID: "1003", FullName: "Meena", Phone: "9876543212",
			BloodGroup: id.BloodGroupABPos, IsAvailable: true,
			LastDonationAt: &last,
		})

		stats, err := svc.Stats(ctx(), "1003")
		require.NoError(t, err)
		assert.True(t, stats.Resting)
		assert.Equal(t, 1, stats.DaysUntilEligible, "half a day left still blocks today")
	})
}

func TestToggleAvailability(t *testing.T) {
	store := memory.NewDonorStore()
	svc := donor.New(store)
	seed(t, store, domain.Donor{
		ID: "1001", FullName: "Asha", Phone: "9876543210",
		BloodGroup: id.BloodGroupOPos, IsAvailable: true,
	})

	t.Run("turning off sticks", func(t *testing.T) {
		updated, err := svc.ToggleAvailability(ctx(), "1001", false)
		require.NoError(t, err)
		assert.False(t, updated.IsAvailable)

		fresh, err := store.FindByID(context.Background(), "1001")
		require.NoError(t, err)
		assert.False(t, fresh.IsAvailable)
	})

	t.Run("setting the same value is a no-op", func(t *testing.T) {
		before, err := store.FindByID(context.Background(), "1001")
		require.NoError(t, err)

		updated, err := svc.ToggleAvailability(ctx(), "1001", false)
		require.NoError(t, err)
		assert.Equal(t, before.Version, updated.Version, "no write when nothing changes")
	})
}

func TestListDetailed(t *testing.T) {
	store := memory.NewDonorStore()
	svc := donor.New(store)

	recent := now.Add(-10 * 24 * time.Hour)
	seed(t, store, domain.Donor{
		ID: "1001", FullName: "Active", Phone: "9000000001",
		BloodGroup: id.BloodGroupOPos, IsAvailable: true,
	})
	seed(t, store, domain.Donor{
		ID: "1002", FullName: "Resting", Phone: "9000000002",
		BloodGroup: id.BloodGroupAPos, IsAvailable: true, LastDonationAt: &recent,
	})
	seed(t, store, domain.Donor{
		ID: "1003", FullName: "Switched Off", Phone: "9000000003",
		BloodGroup: id.BloodGroupBPos, IsAvailable: false,
	})

	details, err := svc.ListDetailed(ctx())
	require.NoError(t, err)
	require.Len(t, details, 3)

	byID := map[id.DonorID]string{}
	for _, d := range details {
		byID[d.Donor.ID] = d.Status
	}
	assert.Equal(t, "Active", byID["1001"])
	assert.Equal(t, "Inactive", byID["1002"])
	assert.Equal(t, "Inactive", byID["1003"])
}
