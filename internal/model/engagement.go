package model

import "time"

// SurveyResponse is one attendee's feedback on an event.
type SurveyResponse struct {
	ID             uint64    `json:"id"`
	EventID        uint64    `json:"event_id"`
	UserID         uint64    `json:"user_id"`
	Rating         uint8     `json:"rating"`
	WouldRecommend bool      `json:"would_recommend"`
	Comment        string    `json:"comment"`
	CreatedAt      time.Time `json:"created_at"`
}

// SurveySummary aggregates the responses of one event.
type SurveySummary struct {
	EventID          uint64  `json:"event_id"`
	Responses        int     `json:"responses"`
	AverageRating    float64 `json:"average_rating"`
	RecommendPercent float64 `json:"recommend_percent"`
}

// Notification types.
const (
	NotifyBookingRequested = "booking_requested"
	NotifyBookingUpdated   = "booking_updated"
	NotifyTicketReserved   = "ticket_reserved"
	NotifyEventReminder    = "event_reminder"
	NotifyPartnerReviewed  = "partner_reviewed"
	NotifyPartnerSubmitted = "partner_submitted"
)

// Notification is an inbox entry for a user.
type Notification struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Link      string    `json:"link"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Partner application statuses.
const (
	PartnerDraft     = "DRAFT"
	PartnerSubmitted = "SUBMITTED"
	PartnerApproved  = "APPROVED"
	PartnerRejected  = "REJECTED"
)

// Partner is a business applying to be listed on the platform.
type Partner struct {
	ID           uint64     `json:"id"`
	UserID       uint64     `json:"user_id"`
	BusinessName string     `json:"business_name"`
	BusinessType string     `json:"business_type"`
	ServiceType  string     `json:"service_type"`
	Description  string     `json:"description"`
	ContactName  string     `json:"contact_name"`
	ContactEmail string     `json:"contact_email"`
	ContactPhone string     `json:"contact_phone"`
	Website      string     `json:"website"`
	Status       string     `json:"status"`
	ReviewNote   string     `json:"review_note,omitempty"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Documents []*PartnerDocument `json:"documents,omitempty"`
}

// BusinessStepDone reports whether step 1 was saved.
func (p *Partner) BusinessStepDone() bool {
	return p.BusinessName != "" && p.BusinessType != "" && p.ServiceType != "" && p.Description != ""
}

// ContactStepDone reports whether step 2 was saved.
func (p *Partner) ContactStepDone() bool {
	return p.ContactName != "" && p.ContactEmail != "" && p.ContactPhone != ""
}

// RoleForBusinessType maps an approved business type to the user role it grants.
func RoleForBusinessType(t string) string {
	switch t {
	case "venue":
		return RoleVenueOwner
	case "supplier":
		return RoleSupplier
	case "planner":
		return RolePlanner
	}
	return ""
}

// PartnerDocument is a file uploaded during onboarding.  Documents are
// private; they are streamed through the API, never linked publicly.
type PartnerDocument struct {
	ID          uint64    `json:"id"`
	PartnerID   uint64    `json:"partner_id"`
	Kind        string    `json:"kind"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
