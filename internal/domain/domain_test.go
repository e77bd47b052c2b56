package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "lifedrop/pkg/domain"
)

func TestDonorEligibility(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("available donor with no history is eligible", func(t *testing.T) {
		d := Donor{IsAvailable: true}
		assert.True(t, d.Eligible(now))
	})

	t.Run("manual toggle excludes even past cooldown", func(t *testing.T) {
		last := now.Add(-120 * 24 * time.Hour)
		d := Donor{IsAvailable: false, LastDonationAt: &last}
		assert.False(t, d.Eligible(now))
	})

	t.Run("donation 89 days ago is still resting", func(t *testing.T) {
		last := now.Add(-89 * 24 * time.Hour)
		d := Donor{IsAvailable: true, LastDonationAt: &last}
		assert.False(t, d.Eligible(now))
		assert.Equal(t, 24*time.Hour, d.CooldownRemaining(now))
	})

	t.Run("donation exactly 90 days ago is eligible", func(t *testing.T) {
		last := now.Add(-CooldownPeriod)
		d := Donor{IsAvailable: true, LastDonationAt: &last}
		assert.True(t, d.Eligible(now))
		assert.Zero(t, d.CooldownRemaining(now))
	})
}

func TestRecordDonation(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d := Donor{IsAvailable: true, DonationCount: 3, CooldownNoticeSent: true}

	d.RecordDonation(now)

	assert.Equal(t, 4, d.DonationCount)
	require.NotNil(t, d.LastDonationAt)
	assert.Equal(t, now, *d.LastDonationAt)
	assert.False(t, d.CooldownNoticeSent)
	assert.False(t, d.Eligible(now.Add(24*time.Hour)))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "98******21", MaskPhone("9876543221"))
	assert.Equal(t, "+9******10", MaskPhone("+919876510"))
	assert.Equal(t, "1234", MaskPhone("1234"))
	assert.Equal(t, "99", MaskPhone("99"))
	assert.Equal(t, "", MaskPhone(""))
}

func TestNotificationTransitions(t *testing.T) {
	t.Run("pending may accept, decline, donate, complete", func(t *testing.T) {
		for _, next := range []NotificationStatus{
			NotificationAccepted, NotificationDeclined, NotificationDonated, NotificationCompleted,
		} {
			assert.True(t, NotificationPending.CanTransitionTo(next), string(next))
		}
	})

	t.Run("declined and completed are terminal", func(t *testing.T) {
		for _, terminal := range []NotificationStatus{NotificationDeclined, NotificationCompleted} {
			assert.True(t, terminal.Terminal())
			for _, next := range []NotificationStatus{
				NotificationPending, NotificationAccepted, NotificationDeclined,
				NotificationDonated, NotificationCompleted,
			} {
				assert.False(t, terminal.CanTransitionTo(next),
					"%s -> %s must be rejected", terminal, next)
			}
		}
	})

	t.Run("accepted cannot revert to pending or declined", func(t *testing.T) {
		assert.False(t, NotificationAccepted.CanTransitionTo(NotificationPending))
		assert.False(t, NotificationAccepted.CanTransitionTo(NotificationDeclined))
		assert.True(t, NotificationAccepted.CanTransitionTo(NotificationDonated))
	})
}

func TestRequestTransitions(t *testing.T) {
	t.Run("responses flip the request both ways", func(t *testing.T) {
		assert.True(t, RequestAccepted.CanTransitionTo(RequestRejected))
		assert.True(t, RequestRejected.CanTransitionTo(RequestAccepted))
	})

	t.Run("completed is terminal", func(t *testing.T) {
		assert.True(t, RequestCompleted.Terminal())
		assert.False(t, RequestCompleted.CanTransitionTo(RequestPending))
		assert.False(t, RequestCompleted.CanTransitionTo(RequestOnTheWay))
	})

	t.Run("on the way only completes", func(t *testing.T) {
		assert.True(t, RequestOnTheWay.CanTransitionTo(RequestCompleted))
		assert.False(t, RequestOnTheWay.CanTransitionTo(RequestAccepted))
	})
}

func TestDecision(t *testing.T) {
	d, ok := ParseDecision("Accepted")
	require.True(t, ok)
	assert.Equal(t, NotificationAccepted, d.NotificationStatus())
	assert.Equal(t, RequestAccepted, d.RequestStatus())

	d, ok = ParseDecision("Declined")
	require.True(t, ok)
	assert.Equal(t, NotificationDeclined, d.NotificationStatus())
	assert.Equal(t, RequestRejected, d.RequestStatus())

	_, ok = ParseDecision("Maybe")
	assert.False(t, ok)
}

func TestBlockHash(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 123456789, time.UTC)
	data, _ := json.Marshal(map[string]string{"bag_id": "BAG-42"})

	block := LedgerBlock{
		Index:        7,
		RequestID:    id.NewRequestID(),
		Event:        EventBagDispatched,
		Data:         data,
		PreviousHash: "abc123",
		Timestamp:    ts,
	}
	block.CurrentHash = ComputeBlockHash(block.Index, block.PreviousHash, block.Timestamp, block.Data)

	t.Run("verifies when untouched", func(t *testing.T) {
		assert.True(t, block.Verify())
	})

	t.Run("hash is deterministic", func(t *testing.T) {
		assert.Equal(t, block.CurrentHash, ComputeBlockHash(7, "abc123", ts, data))
	})

	t.Run("tampered payload fails", func(t *testing.T) {
		tampered := block
		tampered.Data, _ = json.Marshal(map[string]string{"bag_id": "BAG-43"})
		assert.False(t, tampered.Verify())
	})

	t.Run("tampered previous hash fails", func(t *testing.T) {
		tampered := block
		tampered.PreviousHash = "def456"
		assert.False(t, tampered.Verify())
	})

	t.Run("timezone does not change the hash", func(t *testing.T) {
		ist := ts.In(time.FixedZone("IST", 5*3600+1800))
		assert.Equal(t, block.CurrentHash, ComputeBlockHash(7, "abc123", ist, data))
	})
}
