package domain

import (
	"time"

	id "lifedrop/pkg/domain"
)

// NotificationStatus enumerates the offer state machine for a single
// donor/request pair.
type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "Pending"
	NotificationAccepted  NotificationStatus = "Accepted"
	NotificationDeclined  NotificationStatus = "Declined"
	NotificationDonated   NotificationStatus = "Donated"
	NotificationCompleted NotificationStatus = "Completed"
)

// notificationTransitions is the allowed-edge table. A donation may be
// confirmed from any non-terminal state, not just Accepted: operators
// register the bag before some donors tap Accept, and the original
// workflow depends on that. Completion is bulk-applied when the owning
// request completes, so every non-terminal state has an edge to Completed.
var notificationTransitions = map[NotificationStatus][]NotificationStatus{
	NotificationPending:  {NotificationAccepted, NotificationDeclined, NotificationDonated, NotificationCompleted},
	NotificationAccepted: {NotificationDonated, NotificationCompleted},
	NotificationDonated:  {NotificationCompleted},
}

// Terminal reports whether no transition leaves this status.
func (s NotificationStatus) Terminal() bool {
	return s == NotificationDeclined || s == NotificationCompleted
}

// CanTransitionTo reports whether the edge from s to next is allowed.
func (s NotificationStatus) CanTransitionTo(next NotificationStatus) bool {
	for _, allowed := range notificationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Decision is a donor's answer to an offer.
type Decision string

const (
	DecisionAccepted Decision = "Accepted"
	DecisionDeclined Decision = "Declined"
)

// ParseDecision validates a donor response value.
func ParseDecision(s string) (Decision, bool) {
	switch Decision(s) {
	case DecisionAccepted, DecisionDeclined:
		return Decision(s), true
	}
	return "", false
}

// NotificationStatusFor maps a decision onto the notification status it
// produces.
func (d Decision) NotificationStatus() NotificationStatus {
	if d == DecisionAccepted {
		return NotificationAccepted
	}
	return NotificationDeclined
}

// RequestStatus maps a decision onto the mirrored request-level status.
func (d Decision) RequestStatus() RequestStatus {
	if d == DecisionAccepted {
		return RequestAccepted
	}
	return RequestRejected
}

// Notification links one donor to one request. At most one exists per
// donor/request pair; creation is idempotent.
type Notification struct {
	ID         id.NotificationID
	DonorID    id.DonorID
	RequestID  id.RequestID
	Status     NotificationStatus
	BloodBagID string // set only when the donation is confirmed
	CreatedAt  time.Time
	Version    int
}
