// Package notify carries outbound donor-facing messages. Dispatch is
// fire-and-forget from the caller's point of view: lifecycle writes never
// fail because a channel downstream is unavailable.
package notify

import (
	"context"

	id "lifedrop/pkg/domain"
)

// DonorAlert tells a donor that a nearby request matches their blood group.
type DonorAlert struct {
	NotificationID id.NotificationID `json:"notification_id"`
	DonorID        id.DonorID        `json:"donor_id"`
	RequestID      id.RequestID      `json:"request_id"`
	PatientName    string            `json:"patient_name"`
	Hospital       string            `json:"hospital"`
	BloodGroup     id.BloodGroup     `json:"blood_group"`
	Urgency        string            `json:"urgency"`
}

// CooldownComplete tells a donor their rest period is over.
type CooldownComplete struct {
	DonorID  id.DonorID `json:"donor_id"`
	FullName string     `json:"full_name"`
	Phone    string     `json:"phone"`
}

// Dispatcher delivers donor-facing messages to whatever channel is wired
// in (Kafka in production, a recorder in tests).
type Dispatcher interface {
	DonorAlert(ctx context.Context, alert DonorAlert) error
	CooldownComplete(ctx context.Context, done CooldownComplete) error
}

// Discard drops every message. Useful for tools and tests that do not
// care about outbound traffic.
type Discard struct{}

func (Discard) DonorAlert(context.Context, DonorAlert) error           { return nil }
func (Discard) CooldownComplete(context.Context, CooldownComplete) error { return nil }
