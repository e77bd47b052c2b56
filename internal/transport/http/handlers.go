// Package httptransport is the thin HTTP layer. Handlers decode, delegate
// to domain services, and encode; business rules live below.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lifedrop/internal/domain"
	"lifedrop/internal/donor"
	"lifedrop/internal/matching"
	"lifedrop/internal/request"
	id "lifedrop/pkg/domain"
	dErrors "lifedrop/pkg/domain-errors"
	"lifedrop/pkg/platform/httputil"
)

type IntakeService interface {
	Create(ctx context.Context, intake request.Intake) (domain.Request, error)
	Get(ctx context.Context, requestID id.RequestID) (domain.Request, error)
	ListActive(ctx context.Context) ([]request.Overview, error)
	ListCompleted(ctx context.Context) ([]request.Overview, error)
}

type MatchingService interface {
	RankDonors(ctx context.Context, requestID id.RequestID) ([]matching.Match, error)
}

type LifecycleService interface {
	CreateNotification(ctx context.Context, donorID id.DonorID, requestID id.RequestID) (domain.Notification, error)
	Respond(ctx context.Context, notificationID id.NotificationID, decision domain.Decision) (domain.Notification, error)
	ConfirmDonation(ctx context.Context, notificationID id.NotificationID, bagID string) (domain.Notification, error)
	CompleteRequest(ctx context.Context, requestID id.RequestID) (domain.Request, error)
	SweepCooldowns(ctx context.Context) (int, error)
}

type LedgerService interface {
	ReadChain(ctx context.Context) ([]domain.LedgerBlock, error)
	ReadRequestTrail(ctx context.Context, requestID id.RequestID) ([]domain.LedgerBlock, error)
	Verify(ctx context.Context) (int, error)
}

type DonorService interface {
	Stats(ctx context.Context, donorID id.DonorID) (donor.Stats, error)
	ToggleAvailability(ctx context.Context, donorID id.DonorID, available bool) (domain.Donor, error)
	ListDetailed(ctx context.Context) ([]donor.Detail, error)
}

type Handler struct {
	intake    IntakeService
	matching  MatchingService
	lifecycle LifecycleService
	ledger    LedgerService
	donors    DonorService
	logger    *slog.Logger
}

// NewHandler wires the HTTP surface to the domain services.
func NewHandler(intake IntakeService, matchingSvc MatchingService, lifecycle LifecycleService, ledgerSvc LedgerService, donors DonorService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		intake:    intake,
		matching:  matchingSvc,
		lifecycle: lifecycle,
		ledger:    ledgerSvc,
		donors:    donors,
		logger:    logger,
	}
}

type createRequestBody struct {
	RequesterID   string  `json:"requester_id"`
	PatientName   string  `json:"patient_name"`
	ContactNumber string  `json:"contact_number"`
	BloodGroup    string  `json:"blood_group"`
	Units         int     `json:"units"`
	Urgency       string  `json:"urgency"`
	Hospital      string  `json:"hospital"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	body, ok := httputil.Decode[createRequestBody](w, r)
	if !ok {
		return
	}
	created, err := h.intake.Create(r.Context(), request.Intake{
		RequesterID:   body.RequesterID,
		PatientName:   body.PatientName,
		ContactNumber: body.ContactNumber,
		BloodGroup:    body.BloodGroup,
		Units:         body.Units,
		Urgency:       body.Urgency,
		Hospital:      body.Hospital,
		Lat:           body.Lat,
		Lng:           body.Lng,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toRequestView(created))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	got, err := h.intake.Get(r.Context(), requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRequestView(got))
}

func (h *Handler) handleMatches(w http.ResponseWriter, r *http.Request) {
	requestID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	matches, err := h.matching.RankDonors(r.Context(), requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

type createNotificationBody struct {
	DonorID   string `json:"donor_id"`
	RequestID string `json:"request_id"`
}

func (h *Handler) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	body, ok := httputil.Decode[createNotificationBody](w, r)
	if !ok {
		return
	}
	donorID, err := id.ParseDonorID(body.DonorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	requestID, err := id.ParseRequestID(body.RequestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	notification, err := h.lifecycle.CreateNotification(r.Context(), donorID, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toNotificationView(notification))
}

type respondBody struct {
	Decision string `json:"decision"`
}

func (h *Handler) handleRespond(w http.ResponseWriter, r *http.Request) {
	notificationID, ok := h.notificationID(w, r)
	if !ok {
		return
	}
	body, ok := httputil.Decode[respondBody](w, r)
	if !ok {
		return
	}
	decision, ok2 := domain.ParseDecision(body.Decision)
	if !ok2 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "decision must be Accepted or Declined"))
		return
	}
	notification, err := h.lifecycle.Respond(r.Context(), notificationID, decision)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toNotificationView(notification))
}

type donateBody struct {
	BloodBagID string `json:"blood_bag_id"`
}

func (h *Handler) handleDonate(w http.ResponseWriter, r *http.Request) {
	notificationID, ok := h.notificationID(w, r)
	if !ok {
		return
	}
	body, ok := httputil.Decode[donateBody](w, r)
	if !ok {
		return
	}
	notification, err := h.lifecycle.ConfirmDonation(r.Context(), notificationID, body.BloodBagID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toNotificationView(notification))
}

func (h *Handler) handleCompleteRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	completed, err := h.lifecycle.CompleteRequest(r.Context(), requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRequestView(completed))
}

func (h *Handler) handleSweepCooldowns(w http.ResponseWriter, r *http.Request) {
	reactivated, err := h.lifecycle.SweepCooldowns(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"reactivated": reactivated})
}

func (h *Handler) handleRequestLedger(w http.ResponseWriter, r *http.Request) {
	requestID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	blocks, err := h.ledger.ReadRequestTrail(r.Context(), requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"blocks": blocks})
}

func (h *Handler) handleVerifyLedger(w http.ResponseWriter, r *http.Request) {
	length, err := h.ledger.Verify(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"valid": true, "length": length})
}

func (h *Handler) handleDonorStats(w http.ResponseWriter, r *http.Request) {
	donorID, ok := h.donorID(w, r)
	if !ok {
		return
	}
	stats, err := h.donors.Stats(r.Context(), donorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

type availabilityBody struct {
	Available bool `json:"available"`
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	donorID, ok := h.donorID(w, r)
	if !ok {
		return
	}
	body, ok := httputil.Decode[availabilityBody](w, r)
	if !ok {
		return
	}
	updated, err := h.donors.ToggleAvailability(r.Context(), donorID, body.Available)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDonorView(updated))
}

func (h *Handler) handleListDonors(w http.ResponseWriter, r *http.Request) {
	details, err := h.donors.ListDetailed(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	views := make([]donorDetailView, 0, len(details))
	for _, d := range details {
		views = append(views, donorDetailView{
			donorView: toDonorView(d.Donor),
			Status:    d.Status,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"donors": views})
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	var (
		overviews []request.Overview
		err       error
	)
	switch state := r.URL.Query().Get("state"); state {
	case "", "active":
		overviews, err = h.intake.ListActive(r.Context())
	case "completed":
		overviews, err = h.intake.ListCompleted(r.Context())
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "state must be active or completed"))
		return
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"requests": toOverviewViews(overviews)})
}

func (h *Handler) requestID(w http.ResponseWriter, r *http.Request) (id.RequestID, bool) {
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.RequestID{}, false
	}
	return requestID, true
}

func (h *Handler) notificationID(w http.ResponseWriter, r *http.Request) (id.NotificationID, bool) {
	notificationID, err := id.ParseNotificationID(chi.URLParam(r, "notificationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.NotificationID{}, false
	}
	return notificationID, true
}

func (h *Handler) donorID(w http.ResponseWriter, r *http.Request) (id.DonorID, bool) {
	donorID, err := id.ParseDonorID(chi.URLParam(r, "donorID"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return donorID, true
}
