package model

import "time"

// ResourceKind tells venues and suppliers apart wherever both can be booked,
// blocked on a calendar or carry a gallery.
type ResourceKind string

const (
	KindVenue    ResourceKind = "venue"
	KindSupplier ResourceKind = "supplier"
)

// ParseResourceKind accepts singular and plural spellings ("venues").
func ParseResourceKind(s string) (ResourceKind, bool) {
	switch s {
	case "venue", "venues":
		return KindVenue, true
	case "supplier", "suppliers":
		return KindSupplier, true
	}
	return "", false
}

// Booking statuses.
const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingDeclined  = "DECLINED"
	BookingCancelled = "CANCELLED"
)

// Booking is a row of `bookings` (venues) or `supplier_bookings`
// (suppliers); Kind says which.  The time range is half-open [StartsAt, EndsAt).
type Booking struct {
	ID         uint64       `json:"id"`
	Kind       ResourceKind `json:"kind"`
	ResourceID uint64       `json:"resource_id"`
	UserID     uint64       `json:"user_id"`
	EventID    *uint64      `json:"event_id,omitempty"`
	StartsAt   time.Time    `json:"starts_at"`
	EndsAt     time.Time    `json:"ends_at"`
	Status     string       `json:"status"`
	Notes      string       `json:"notes"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Overlaps reports whether b intersects [start, end).  Touching ranges do
// not overlap.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartsAt.Before(end) && start.Before(b.EndsAt)
}

// AvailabilityBlock marks a venue or supplier unavailable.  RRule, when
// set, repeats the block (RFC 5545 RRULE without the "RRULE:" prefix).
type AvailabilityBlock struct {
	ID        uint64       `json:"id"`
	OwnerKind ResourceKind `json:"owner_kind"`
	OwnerID   uint64       `json:"owner_id"`
	StartsAt  time.Time    `json:"starts_at"`
	EndsAt    time.Time    `json:"ends_at"`
	Note      string       `json:"note"`
	RRule     string       `json:"rrule,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}
