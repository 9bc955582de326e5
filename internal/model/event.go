package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event statuses.  Only PUBLISHED events sell tickets.
const (
	EventDraft     = "DRAFT"
	EventPublished = "PUBLISHED"
	EventCancelled = "CANCELLED"
)

// Event is organised by a planner, optionally at a venue.
type Event struct {
	ID             uint64          `json:"id"`
	PlannerID      uint64          `json:"planner_id"`
	VenueID        *uint64         `json:"venue_id,omitempty"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	StartsAt       time.Time       `json:"starts_at"`
	EndsAt         time.Time       `json:"ends_at"`
	Capacity       uint32          `json:"capacity"`
	TicketPrice    decimal.Decimal `json:"ticket_price"`
	Status         string          `json:"status"`
	ReminderSentAt *time.Time      `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Ticket statuses.
const (
	TicketReserved  = "RESERVED"
	TicketCancelled = "CANCELLED"
)

// Ticket holds Quantity admissions for one user.  Code is the value
// printed on the ticket.
type Ticket struct {
	ID         uint64          `json:"id"`
	EventID    uint64          `json:"event_id"`
	UserID     uint64          `json:"user_id"`
	Quantity   uint32          `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Code       string          `json:"code"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	Event *Event `json:"event,omitempty"`
}
