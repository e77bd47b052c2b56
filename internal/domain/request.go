package domain

import (
	"time"

	id "lifedrop/pkg/domain"
)

// RequestStatus enumerates the request state machine. Transitions are
// validated by CanTransitionTo; free-form status writes are not allowed.
type RequestStatus string

const (
	RequestPending   RequestStatus = "Pending"
	RequestAccepted  RequestStatus = "Accepted"
	RequestRejected  RequestStatus = "Rejected"
	RequestOnTheWay  RequestStatus = "On the way"
	RequestCompleted RequestStatus = "Completed"
)

// requestTransitions is the allowed-edge table. Pending flips between
// Accepted and Rejected as donors respond (the last responder wins; a known
// product ambiguity, preserved deliberately), a confirmed donation moves
// the request to On the way, and an explicit completion finishes it.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:  {RequestAccepted, RequestRejected, RequestOnTheWay, RequestCompleted},
	RequestAccepted: {RequestRejected, RequestAccepted, RequestOnTheWay, RequestCompleted},
	RequestRejected: {RequestAccepted, RequestRejected, RequestOnTheWay, RequestCompleted},
	RequestOnTheWay: {RequestCompleted},
}

// Terminal reports whether no transition leaves this status.
func (s RequestStatus) Terminal() bool {
	return s == RequestCompleted
}

// CanTransitionTo reports whether the edge from s to next is allowed.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Request is an open demand for blood at a hospital.
type Request struct {
	ID            id.RequestID
	RequesterID   id.RequesterID
	PatientName   string
	ContactNumber string
	BloodGroup    id.BloodGroup
	Units         int
	Urgency       string
	Hospital      string
	Lat           float64
	Lng           float64
	Status        RequestStatus
	CreatedAt     time.Time
	Version       int
}
