package domain

import (
	"time"

	id "lifedrop/pkg/domain"
)

// CooldownPeriod is the minimum interval between a donor's consecutive
// donations.
const CooldownPeriod = 90 * 24 * time.Hour

// Donor is a registered blood donor. Identity, contact data, and location
// come from the registration collaborator; the core owns the donation
// lifecycle fields (LastDonationAt, DonationCount, CooldownNoticeSent).
type Donor struct {
	ID                 id.DonorID
	FullName           string
	Phone              string
	Email              string
	BloodGroup         id.BloodGroup
	Lat                float64
	Lng                float64
	HealthScore        int // 0-100, captured at registration
	LastDonationAt     *time.Time
	DonationCount      int
	IsAvailable        bool
	CooldownNoticeSent bool
	Version            int
}

// Eligible reports whether the donor is a matching candidate at the given
// reference time: available by their own toggle, and either never donated
// or past the cooldown period. Evaluated fresh on every query; never cached
// as derived state.
func (d Donor) Eligible(now time.Time) bool {
	if !d.IsAvailable {
		return false
	}
	return d.CooldownElapsed(now)
}

// CooldownElapsed reports whether the donor is past the mandatory rest
// period, ignoring the manual availability toggle.
func (d Donor) CooldownElapsed(now time.Time) bool {
	if d.LastDonationAt == nil {
		return true
	}
	return now.Sub(*d.LastDonationAt) >= CooldownPeriod
}

// CooldownRemaining returns how much of the rest period is left, or zero
// when the donor has none pending.
func (d Donor) CooldownRemaining(now time.Time) time.Duration {
	if d.LastDonationAt == nil {
		return 0
	}
	remaining := CooldownPeriod - now.Sub(*d.LastDonationAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecordDonation applies the state changes of a confirmed donation: the
// cooldown clock restarts, the lifetime counter moves up by exactly one,
// and the cooldown-complete notice becomes due again.
func (d *Donor) RecordDonation(now time.Time) {
	t := now
	d.LastDonationAt = &t
	d.DonationCount++
	d.CooldownNoticeSent = false
}

// MaskPhone redacts the interior of a phone number for unauthenticated
// matching views, keeping the first two and last two characters. Values of
// four characters or fewer are returned as-is.
func MaskPhone(raw string) string {
	if len(raw) <= 4 {
		return raw
	}
	return raw[:2] + "******" + raw[len(raw)-2:]
}
