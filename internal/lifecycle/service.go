// Package lifecycle drives notifications and requests through their state
// machines and records every transition on the ledger.
package lifecycle

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"lifedrop/internal/domain"
	"lifedrop/internal/notify"
	"lifedrop/internal/platform/metrics"
	id "lifedrop/pkg/domain"
	dErrors "lifedrop/pkg/domain-errors"
	"lifedrop/pkg/platform/sentinel"
	"lifedrop/pkg/requestcontext"
)

// mirrorAttempts bounds how often a request-status mirror write reloads
// after losing a version race to a sibling notification.
const mirrorAttempts = 3

type DonorStore interface {
	FindByID(ctx context.Context, donorID id.DonorID) (domain.Donor, error)
	List(ctx context.Context) ([]domain.Donor, error)
	UpdateIfVersion(ctx context.Context, donor domain.Donor) error
}

type RequestStore interface {
	FindByID(ctx context.Context, requestID id.RequestID) (domain.Request, error)
	UpdateIfVersion(ctx context.Context, request domain.Request) error
}

type NotificationStore interface {
	FindByID(ctx context.Context, notificationID id.NotificationID) (domain.Notification, error)
	FindByDonorAndRequest(ctx context.Context, donorID id.DonorID, requestID id.RequestID) (domain.Notification, error)
	ListByRequest(ctx context.Context, requestID id.RequestID) ([]domain.Notification, error)
	CreateIfAbsent(ctx context.Context, notification domain.Notification) error
	UpdateIfVersion(ctx context.Context, notification domain.Notification) error
}

type Ledger interface {
	Append(ctx context.Context, requestID id.RequestID, event string, payload any) (domain.LedgerBlock, error)
}

type Dispatcher interface {
	DonorAlert(ctx context.Context, alert notify.DonorAlert) error
	CooldownComplete(ctx context.Context, done notify.CooldownComplete) error
}

// RankInvalidator drops a cached ranking once a lifecycle write makes it
// stale.
type RankInvalidator interface {
	Invalidate(ctx context.Context, requestID id.RequestID) error
}

type Service struct {
	donors        DonorStore
	requests      RequestStore
	notifications NotificationStore
	ledger        Ledger
	dispatcher    Dispatcher
	invalidator   RankInvalidator
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithRankInvalidator(inv RankInvalidator) Option {
	return func(s *Service) {
		s.invalidator = inv
	}
}

// New constructs a Service.
func New(donors DonorStore, requests RequestStore, notifications NotificationStore, ledger Ledger, dispatcher Dispatcher, opts ...Option) *Service {
	s := &Service{
		donors:        donors,
		requests:      requests,
		notifications: notifications,
		ledger:        ledger,
		dispatcher:    dispatcher,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateNotification asks one donor about one request. Repeating the call
// for the same pair returns the existing notification instead of alerting
// the donor twice. Creation is not a ledger event; only the donor's
// response is.
func (s *Service) CreateNotification(ctx context.Context, donorID id.DonorID, requestID id.RequestID) (domain.Notification, error) {
	donor, err := s.donors.FindByID(ctx, donorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return domain.Notification{}, dErrors.New(dErrors.CodeNotFound, "donor not found")
		}
		return domain.Notification{}, dErrors.Wrap(err, dErrors.CodeInternal, "load donor")
	}
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return domain.Notification{}, dErrors.New(dErrors.CodeNotFound, "request not found")
		}
		return domain.Notification{}, dErrors.Wrap(err, dErrors.CodeInternal, "load request")
	}
	if request.Status.Terminal() {
		return domain.Notification{}, dErrors.New(dErrors.CodeInvalidTransition, "request is already completed")
	}

	notification := domain.Notification{
		ID:        id.NewNotificationID(),
		DonorID:   donorID,
		RequestID: requestID,
		Status:    domain.NotificationPending,
		CreatedAt: requestcontext.Now(ctx).UTC(),
	}
	err = s.notifications.CreateIfAbsent(ctx, notification)
	if errors.Is(err, sentinel.ErrConflict) {
		existing, ferr := s.notifications.FindByDonorAndRequest(ctx, donorID, requestID)
		if ferr != nil {
			return domain.Notification{}, dErrors.Wrap(ferr, dErrors.CodeInternal, "load existing notification")
		}
		return existing, nil
	}
	if err != nil {
		return domain.Notification{}, dErrors.Wrap(err, dErrors.CodeInternal, "create notification")
	}

	if derr := s.dispatcher.DonorAlert(ctx, notify.DonorAlert{
		NotificationID: notification.ID,
		DonorID:        donor.ID,
		RequestID:      request.ID,
		PatientName:    request.PatientName,
		Hospital:       request.Hospital,
		BloodGroup:     request.BloodGroup,
		Urgency:        request.Urgency,
	}); derr != nil {
		s.logger.WarnContext(ctx, "donor alert dispatch failed", "error", derr)
	}

	s.metrics.IncNotificationsSent()
	s.logger.InfoContext(ctx, "notification created",
		"notification_id", notification.ID.String(),
		"donor_id", donorID.String(),
		"request_id", requestID.String(),
	)
	return notification, nil
}

// Respond records a donor's accept or decline. Only a pending notification
// may be answered, and the version check makes concurrent answers resolve
// to exactly one winner and one ledger block.
func (s *Service) Respond(ctx context.Context, notificationID id.NotificationID, decision domain.Decision) (domain.Notification, error) {
	notification, err := s.notifications.FindByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return domain.Notification{}, dErrors.New(dErrors.CodeNotFound, "notification not found")
		}
		return domain.Notification{}, dErrors.Wrap(err, dErrors.CodeInternal, "load notification")
	}
	if notification.Status != domain.NotificationPending {
		return domain.Notification{}, dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("notification is %s, only a pending notification can be answered", notification.Status))
	}

	notification.Status = decision.NotificationStatus()
	err = s.notifications.UpdateIfVersion(ctx, notification)
	if errors.Is(err, sentinel.ErrConflict) {
		return domain.Notification{}, dErrors.New(dErrors.CodeConflict, "notification was answered concurrently")
	}
	if err != nil {
		return domain.Notification{}, dErrors.Wrap(err, dErrors.CodeInternal, "update notification")
	}
	notification.Version++

	// Sibling notifications race last-writer-wins on the request status, so
	// a lost mirror here is logged rather than failing the answer.
	if merr := s.mirrorRequestStatus(ctx, notification.RequestID, decision.RequestStatus()); merr != nil {
		s.logger.WarnContext(ctx, "request status mirror failed",
			"request_id", notification.RequestID.String(), "error", merr)
	}
	s.invalidateRanking(ctx, notification.RequestID)

	// One block per answered notification, accepts and declines alike.
	_, err = s.ledger.Append(ctx, notification.RequestID, domain.EventDonorResponded, map[string]any{
		"donor_id": notification.DonorID.String(),
		"decision": string(decision),
		"time":     requestcontext.Now(ctx).UTC(),
	})
	if err != nil {
		return domain.Notification{}, err
	}

	s.metrics.IncDonorResponse(string(decision))
	s.logger.InfoContext(ctx, "donor responded",
		"notification_id", notificationID.String(),
		"decision", string(decision),
	)
	return notification, nil
}

// ConfirmDonation marks the donation as made. Any non-terminal notification
// can be confirmed; acceptance first is the normal path, not a requirement,
// because blood banks record walk-in donations after the fact.
func (s *Service) ConfirmDonation(ctx context.Context, notificationID id.NotificationID, bagID string) (domain.Notification, error) {
	notification, err := s.notifications.FindByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return domain.Notification{}, dErrors.New(dErrors.CodeNotFound, "notification not found")
		}
		return domain.Notification{}, dErrors.Wrap(err, dErrors.CodeInternal, "load notification")
	}
	if !notification.Status.CanTransitionTo(domain.NotificationDonated) {
		return domain.Notification{}, dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("notification is %s and cannot record a donation", notification.Status))
	}

	if bagID == "" {
		bagID = "BAG-" + strings.ToUpper(uuid.NewString()[:8])
	}
	notification.Status = domain.NotificationDonated
	notification.BloodBagID = bagID
	err = s.notifications.UpdateIfVersion(ctx, notification)
	if errors.Is(err, sentinel.ErrConflict) {
		return domain.Notification{}, dErrors.New(dErrors.CodeConflict, "notification changed concurrently")
	}
	if err != nil {
		return domain.Notification{}, dErrors.Wrap(err, dErrors.CodeInternal, "update notification")
	}
	notification.Version++

	donorName, err := s.recordDonorDonation(ctx, notification.DonorID)
	if err != nil {
		return domain.Notification{}, err
	}

	// A dispatched bag must be visible on the request before the ledger says
	// so; unlike a response mirror this failure is surfaced to the caller.
	if merr := s.mirrorRequestStatus(ctx, notification.RequestID, domain.RequestOnTheWay); merr != nil {
		return domain.Notification{}, merr
	}
	s.invalidateRanking(ctx, notification.RequestID)

	_, err = s.ledger.Append(ctx, notification.RequestID, domain.EventBagDispatched, map[string]string{
		"bag_id":     bagID,
		"donor_name": donorName,
	})
	if err != nil {
		return domain.Notification{}, err
	}

	s.metrics.IncDonationsRecorded()
	s.logger.InfoContext(ctx, "donation confirmed",
		"notification_id", notificationID.String(),
		"bag_id", bagID,
	)
	return notification, nil
}

// CompleteRequest closes out a request: the blood arrived. Every
// notification for the request is force-set to Completed with it, declines
// included, so no offer stays answerable after the fact.
func (s *Service) CompleteRequest(ctx context.Context, requestID id.RequestID) (domain.Request, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return domain.Request{}, dErrors.New(dErrors.CodeNotFound, "request not found")
		}
		return domain.Request{}, dErrors.Wrap(err, dErrors.CodeInternal, "load request")
	}
	if !request.Status.CanTransitionTo(domain.RequestCompleted) {
		return domain.Request{}, dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("request is %s and cannot be completed", request.Status))
	}

	request.Status = domain.RequestCompleted
	err = s.requests.UpdateIfVersion(ctx, request)
	if errors.Is(err, sentinel.ErrConflict) {
		return domain.Request{}, dErrors.New(dErrors.CodeConflict, "request changed concurrently")
	}
	if err != nil {
		return domain.Request{}, dErrors.Wrap(err, dErrors.CodeInternal, "update request")
	}
	request.Version++

	notifications, err := s.notifications.ListByRequest(ctx, requestID)
	if err != nil {
		return domain.Request{}, dErrors.Wrap(err, dErrors.CodeInternal, "list notifications")
	}
	for _, notification := range notifications {
		if notification.Status == domain.NotificationCompleted {
			continue
		}
		// Completion overrides the per-notification transition table.
		notification.Status = domain.NotificationCompleted
		if uerr := s.notifications.UpdateIfVersion(ctx, notification); uerr != nil {
			s.logger.WarnContext(ctx, "notification close-out failed",
				"notification_id", notification.ID.String(), "error", uerr)
		}
	}
	s.invalidateRanking(ctx, requestID)

	_, err = s.ledger.Append(ctx, requestID, domain.EventProcessCompleted, map[string]string{
		"status": "Life Saved",
	})
	if err != nil {
		return domain.Request{}, err
	}

	s.metrics.IncRequestsCompleted()
	s.logger.InfoContext(ctx, "request completed", "request_id", requestID.String())
	return request, nil
}

// SweepCooldowns finds donors whose rest period just finished and tells
// them once. Reruns are harmless: the notice flag keeps a donor from being
// pinged twice for the same donation.
func (s *Service) SweepCooldowns(ctx context.Context) (int, error) {
	donors, err := s.donors.List(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "list donors")
	}

	now := requestcontext.Now(ctx)
	reactivated := 0
	for _, donor := range donors {
		if donor.LastDonationAt == nil || donor.CooldownNoticeSent || !donor.CooldownElapsed(now) {
			continue
		}
		donor.CooldownNoticeSent = true
		if uerr := s.donors.UpdateIfVersion(ctx, donor); uerr != nil {
			s.logger.WarnContext(ctx, "cooldown flag write failed",
				"donor_id", donor.ID.String(), "error", uerr)
			continue
		}
		if derr := s.dispatcher.CooldownComplete(ctx, notify.CooldownComplete{
			DonorID:  donor.ID,
			FullName: donor.FullName,
			Phone:    donor.Phone,
		}); derr != nil {
			s.logger.WarnContext(ctx, "cooldown dispatch failed",
				"donor_id", donor.ID.String(), "error", derr)
		}
		reactivated++
	}

	s.metrics.AddDonorsReactivated(reactivated)
	if reactivated > 0 {
		s.logger.InfoContext(ctx, "cooldown sweep finished", "reactivated", reactivated)
	}
	return reactivated, nil
}

// mirrorRequestStatus applies a notification-driven status to the request.
// Siblings race last-writer-wins here; a request already past the target
// state is left alone.
func (s *Service) mirrorRequestStatus(ctx context.Context, requestID id.RequestID, target domain.RequestStatus) error {
	for attempt := 0; attempt < mirrorAttempts; attempt++ {
		request, err := s.requests.FindByID(ctx, requestID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load request for status mirror")
		}
		if request.Status == target || !request.Status.CanTransitionTo(target) {
			return nil
		}
		request.Status = target
		err = s.requests.UpdateIfVersion(ctx, request)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "mirror request status")
		}
	}
	return dErrors.New(dErrors.CodeConflict, "request status kept changing concurrently")
}

func (s *Service) recordDonorDonation(ctx context.Context, donorID id.DonorID) (string, error) {
	for attempt := 0; attempt < mirrorAttempts; attempt++ {
		donor, err := s.donors.FindByID(ctx, donorID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return "", dErrors.New(dErrors.CodeNotFound, "donor not found")
			}
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "load donor")
		}
		donor.RecordDonation(requestcontext.Now(ctx).UTC())
		err = s.donors.UpdateIfVersion(ctx, donor)
		if err == nil {
			return donor.FullName, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "update donor")
		}
	}
	return "", dErrors.New(dErrors.CodeConflict, "donor record kept changing concurrently")
}

func (s *Service) invalidateRanking(ctx context.Context, requestID id.RequestID) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, requestID); err != nil {
		s.logger.WarnContext(ctx, "rank cache invalidation failed",
			"request_id", requestID.String(), "error", err)
	}
}
