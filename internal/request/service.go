// Package request handles intake and read views of blood requests.
package request

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"lifedrop/internal/domain"
	"lifedrop/internal/platform/metrics"
	id "lifedrop/pkg/domain"
	dErrors "lifedrop/pkg/domain-errors"
	"lifedrop/pkg/platform/sentinel"
	"lifedrop/pkg/requestcontext"
)

type Store interface {
	FindByID(ctx context.Context, requestID id.RequestID) (domain.Request, error)
	Save(ctx context.Context, request domain.Request) error
	ListByStatus(ctx context.Context, statuses ...domain.RequestStatus) ([]domain.Request, error)
	ListActive(ctx context.Context) ([]domain.Request, error)
}

type NotificationStore interface {
	ListByRequest(ctx context.Context, requestID id.RequestID) ([]domain.Notification, error)
}

type DonorStore interface {
	FindByID(ctx context.Context, donorID id.DonorID) (domain.Donor, error)
}

type Ledger interface {
	Append(ctx context.Context, requestID id.RequestID, event string, payload any) (domain.LedgerBlock, error)
}

// Intake is everything a requester submits when asking for blood.
type Intake struct {
	RequesterID   string
	PatientName   string
	ContactNumber string
	BloodGroup    string
	Units         int
	Urgency       string
	Hospital      string
	Lat           float64
	Lng           float64
}

// Overview is a request plus the donor who took it, when one has.
type Overview struct {
	Request    domain.Request `json:"request"`
	DonorName  string         `json:"donor_name,omitempty"`
	BloodBagID string         `json:"blood_bag_id,omitempty"`
}

type Service struct {
	store         Store
	notifications NotificationStore
	donors        DonorStore
	ledger        Ledger
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

// New constructs a Service.
func New(store Store, notifications NotificationStore, donors DonorStore, ledger Ledger, opts ...Option) *Service {
	s := &Service{
		store:         store,
		notifications: notifications,
		donors:        donors,
		ledger:        ledger,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the intake, stores the request as pending, and writes
// the chain's first block for it.
func (s *Service) Create(ctx context.Context, intake Intake) (domain.Request, error) {
	group, err := id.ParseBloodGroup(intake.BloodGroup)
	if err != nil {
		return domain.Request{}, err
	}
	if strings.TrimSpace(intake.PatientName) == "" {
		return domain.Request{}, dErrors.New(dErrors.CodeInvalidInput, "patient name is required")
	}
	if strings.TrimSpace(intake.ContactNumber) == "" {
		return domain.Request{}, dErrors.New(dErrors.CodeInvalidInput, "contact number is required")
	}
	if intake.Units < 1 {
		return domain.Request{}, dErrors.New(dErrors.CodeInvalidInput, "at least one unit is required")
	}
	if intake.Lat < -90 || intake.Lat > 90 || intake.Lng < -180 || intake.Lng > 180 {
		return domain.Request{}, dErrors.New(dErrors.CodeInvalidInput, "location is out of range")
	}

	request := domain.Request{
		ID:            id.NewRequestID(),
		RequesterID:   id.RequesterID(intake.RequesterID),
		PatientName:   strings.TrimSpace(intake.PatientName),
		ContactNumber: strings.TrimSpace(intake.ContactNumber),
		BloodGroup:    group,
		Units:         intake.Units,
		Urgency:       intake.Urgency,
		Hospital:      intake.Hospital,
		Lat:           intake.Lat,
		Lng:           intake.Lng,
		Status:        domain.RequestPending,
		CreatedAt:     requestcontext.Now(ctx).UTC(),
	}
	if err := s.store.Save(ctx, request); err != nil {
		return domain.Request{}, dErrors.Wrap(err, dErrors.CodeInternal, "save request")
	}

	_, err = s.ledger.Append(ctx, request.ID, domain.EventRequestInitialized, map[string]any{
		"patient":     request.PatientName,
		"blood_group": request.BloodGroup.String(),
		"units":       request.Units,
		"hospital":    request.Hospital,
	})
	if err != nil {
		return domain.Request{}, err
	}

	s.metrics.IncRequestsCreated()
	s.logger.InfoContext(ctx, "request created",
		"request_id", request.ID.String(),
		"blood_group", request.BloodGroup.String(),
		"units", request.Units,
	)
	return request, nil
}

// Get returns one request.
func (s *Service) Get(ctx context.Context, requestID id.RequestID) (domain.Request, error) {
	request, err := s.store.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return domain.Request{}, dErrors.New(dErrors.CodeNotFound, "request not found")
		}
		return domain.Request{}, dErrors.Wrap(err, dErrors.CodeInternal, "load request")
	}
	return request, nil
}

// ListActive returns open requests with the donor who took each one, when
// a donor has.
func (s *Service) ListActive(ctx context.Context) ([]Overview, error) {
	requests, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list active requests")
	}
	return s.resolve(ctx, requests)
}

// ListCompleted returns finished requests with their donor.
func (s *Service) ListCompleted(ctx context.Context) ([]Overview, error) {
	requests, err := s.store.ListByStatus(ctx, domain.RequestCompleted)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list completed requests")
	}
	return s.resolve(ctx, requests)
}

func (s *Service) resolve(ctx context.Context, requests []domain.Request) ([]Overview, error) {
	overviews := make([]Overview, 0, len(requests))
	for _, request := range requests {
		overview := Overview{Request: request}
		notifications, err := s.notifications.ListByRequest(ctx, request.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list notifications")
		}
		for _, notification := range notifications {
			if !tookRequest(notification) {
				continue
			}
			overview.BloodBagID = notification.BloodBagID
			donor, derr := s.donors.FindByID(ctx, notification.DonorID)
			if derr == nil {
				overview.DonorName = donor.FullName
			}
			break
		}
		overviews = append(overviews, overview)
	}
	return overviews, nil
}

// tookRequest picks the donor who actually carried the request. A
// notification completed in bulk without a bag never held the blood.
func tookRequest(notification domain.Notification) bool {
	switch notification.Status {
	case domain.NotificationAccepted, domain.NotificationDonated:
		return true
	case domain.NotificationCompleted:
		return notification.BloodBagID != ""
	}
	return false
}
