package domain

import (
	"github.com/google/uuid"

	dErrors "lifedrop/pkg/domain-errors"
)

// Typed IDs keep donor, request, and notification identifiers from being
// swapped at call sites. Requests and notifications are uuid-backed; donors
// keep the opaque short code they registered with.

// DonorID is the donor's opaque short code (assigned at registration,
// unique, never reused).
type DonorID string

// ParseDonorID validates external donor identifiers.
func ParseDonorID(s string) (DonorID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "donor id cannot be empty")
	}
	return DonorID(s), nil
}

func (d DonorID) String() string { return string(d) }

// RequesterID identifies the account that opened a request. Accounts are an
// external collaborator; the core only carries the reference.
type RequesterID string

func (r RequesterID) String() string { return string(r) }

// RequestID identifies a blood request.
type RequestID uuid.UUID

// NewRequestID returns a fresh random request ID.
func NewRequestID() RequestID { return RequestID(uuid.New()) }

// ParseRequestID constructs a RequestID from external input, rejecting
// empty, malformed, and nil UUIDs.
func ParseRequestID(s string) (RequestID, error) {
	u, err := parseUUID(s, "request id")
	return RequestID(u), err
}

func (r RequestID) String() string { return uuid.UUID(r).String() }

// IsZero reports whether the ID is the nil UUID.
func (r RequestID) IsZero() bool { return uuid.UUID(r) == uuid.Nil }

// MarshalText renders the ID in canonical UUID form for JSON and friends.
func (r RequestID) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses the ID with the same validation as ParseRequestID.
func (r *RequestID) UnmarshalText(b []byte) error {
	parsed, err := ParseRequestID(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// NotificationID identifies a donor/request offer.
type NotificationID uuid.UUID

// NewNotificationID returns a fresh random notification ID.
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }

// ParseNotificationID constructs a NotificationID from external input.
func ParseNotificationID(s string) (NotificationID, error) {
	u, err := parseUUID(s, "notification id")
	return NotificationID(u), err
}

func (n NotificationID) String() string { return uuid.UUID(n).String() }

// IsZero reports whether the ID is the nil UUID.
func (n NotificationID) IsZero() bool { return uuid.UUID(n) == uuid.Nil }

// MarshalText renders the ID in canonical UUID form for JSON and friends.
func (n NotificationID) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText parses the ID with the same validation as
// ParseNotificationID.
func (n *NotificationID) UnmarshalText(b []byte) error {
	parsed, err := ParseNotificationID(string(b))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be nil")
	}
	return u, nil
}
