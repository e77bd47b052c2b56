package httptransport

import (
	"time"

	"lifedrop/internal/domain"
	"lifedrop/internal/request"
)

// Wire shapes. Domain structs stay tag-free; the transport decides what a
// client sees, which is how the donor's raw phone number stays inside.

type requestView struct {
	ID            string    `json:"id"`
	RequesterID   string    `json:"requester_id"`
	PatientName   string    `json:"patient_name"`
	ContactNumber string    `json:"contact_number"`
	BloodGroup    string    `json:"blood_group"`
	Units         int       `json:"units"`
	Urgency       string    `json:"urgency,omitempty"`
	Hospital      string    `json:"hospital,omitempty"`
	Lat           float64   `json:"lat"`
	Lng           float64   `json:"lng"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

func toRequestView(r domain.Request) requestView {
	return requestView{
		ID:            r.ID.String(),
		RequesterID:   r.RequesterID.String(),
		PatientName:   r.PatientName,
		ContactNumber: r.ContactNumber,
		BloodGroup:    r.BloodGroup.String(),
		Units:         r.Units,
		Urgency:       r.Urgency,
		Hospital:      r.Hospital,
		Lat:           r.Lat,
		Lng:           r.Lng,
		Status:        string(r.Status),
		CreatedAt:     r.CreatedAt,
	}
}

type notificationView struct {
	ID         string    `json:"id"`
	DonorID    string    `json:"donor_id"`
	RequestID  string    `json:"request_id"`
	Status     string    `json:"status"`
	BloodBagID string    `json:"blood_bag_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toNotificationView(n domain.Notification) notificationView {
	return notificationView{
		ID:         n.ID.String(),
		DonorID:    n.DonorID.String(),
		RequestID:  n.RequestID.String(),
		Status:     string(n.Status),
		BloodBagID: n.BloodBagID,
		CreatedAt:  n.CreatedAt,
	}
}

type donorView struct {
	ID             string     `json:"id"`
	FullName       string     `json:"full_name"`
	MaskedPhone    string     `json:"masked_phone"`
	BloodGroup     string     `json:"blood_group"`
	DonationCount  int        `json:"donation_count"`
	IsAvailable    bool       `json:"is_available"`
	LastDonationAt *time.Time `json:"last_donation_at,omitempty"`
}

func toDonorView(d domain.Donor) donorView {
	return donorView{
		ID:             d.ID.String(),
		FullName:       d.FullName,
		MaskedPhone:    domain.MaskPhone(d.Phone),
		BloodGroup:     d.BloodGroup.String(),
		DonationCount:  d.DonationCount,
		IsAvailable:    d.IsAvailable,
		LastDonationAt: d.LastDonationAt,
	}
}

type donorDetailView struct {
	donorView
	Status string `json:"status"`
}

type overviewView struct {
	Request    requestView `json:"request"`
	DonorName  string      `json:"donor_name,omitempty"`
	BloodBagID string      `json:"blood_bag_id,omitempty"`
}

func toOverviewViews(overviews []request.Overview) []overviewView {
	out := make([]overviewView, 0, len(overviews))
	for _, o := range overviews {
		out = append(out, overviewView{
			Request:    toRequestView(o.Request),
			DonorName:  o.DonorName,
			BloodBagID: o.BloodBagID,
		})
	}
	return out
}
