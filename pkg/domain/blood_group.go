package domain

import dErrors "lifedrop/pkg/domain-errors"

// BloodGroup is a domain value for one of the eight ABO/Rh groups.
// Invariant: the value must be one of the supported groups.
//
// Usage: construct via ParseBloodGroup at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type BloodGroup string

// Supported blood groups.
const (
	BloodGroupAPos  BloodGroup = "A+"
	BloodGroupANeg  BloodGroup = "A-"
	BloodGroupBPos  BloodGroup = "B+"
	BloodGroupBNeg  BloodGroup = "B-"
	BloodGroupABPos BloodGroup = "AB+"
	BloodGroupABNeg BloodGroup = "AB-"
	BloodGroupOPos  BloodGroup = "O+"
	BloodGroupONeg  BloodGroup = "O-"
)

// AllBloodGroups lists every supported group in display order.
var AllBloodGroups = []BloodGroup{
	BloodGroupAPos, BloodGroupANeg,
	BloodGroupBPos, BloodGroupBNeg,
	BloodGroupABPos, BloodGroupABNeg,
	BloodGroupOPos, BloodGroupONeg,
}

// validBloodGroups is the single source of truth for valid groups.
var validBloodGroups = map[BloodGroup]bool{
	BloodGroupAPos: true, BloodGroupANeg: true,
	BloodGroupBPos: true, BloodGroupBNeg: true,
	BloodGroupABPos: true, BloodGroupABNeg: true,
	BloodGroupOPos: true, BloodGroupONeg: true,
}

// compatibleDonors maps a recipient group to the donor groups that are
// immunologically safe to transfuse. The table is fixed medical fact; AB+
// is the universal recipient and O- the universal donor.
var compatibleDonors = map[BloodGroup][]BloodGroup{
	BloodGroupAPos:  {BloodGroupAPos, BloodGroupANeg, BloodGroupOPos, BloodGroupONeg},
	BloodGroupANeg:  {BloodGroupANeg, BloodGroupONeg},
	BloodGroupBPos:  {BloodGroupBPos, BloodGroupBNeg, BloodGroupOPos, BloodGroupONeg},
	BloodGroupBNeg:  {BloodGroupBNeg, BloodGroupONeg},
	BloodGroupABPos: {BloodGroupAPos, BloodGroupANeg, BloodGroupBPos, BloodGroupBNeg, BloodGroupOPos, BloodGroupONeg, BloodGroupABPos, BloodGroupABNeg},
	BloodGroupABNeg: {BloodGroupANeg, BloodGroupBNeg, BloodGroupONeg, BloodGroupABNeg},
	BloodGroupOPos:  {BloodGroupOPos, BloodGroupONeg},
	BloodGroupONeg:  {BloodGroupONeg},
}

// ParseBloodGroup constructs a BloodGroup from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseBloodGroup(s string) (BloodGroup, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "blood group cannot be empty")
	}
	g := BloodGroup(s)
	if !g.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid blood group")
	}
	return g, nil
}

// IsValid checks if the group is one of the supported enum values.
func (g BloodGroup) IsValid() bool {
	return validBloodGroups[g]
}

// String returns the string representation of the group.
func (g BloodGroup) String() string {
	return string(g)
}

// CompatibleDonors returns the donor groups a recipient with this group may
// safely receive from. The returned slice is a copy.
func (g BloodGroup) CompatibleDonors() []BloodGroup {
	donors := compatibleDonors[g]
	out := make([]BloodGroup, len(donors))
	copy(out, donors)
	return out
}

// CanReceiveFrom reports whether a recipient with this group may receive
// blood from the given donor group.
func (g BloodGroup) CanReceiveFrom(donor BloodGroup) bool {
	for _, d := range compatibleDonors[g] {
		if d == donor {
			return true
		}
	}
	return false
}
