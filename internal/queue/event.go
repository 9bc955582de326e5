// Package queue defines message payloads exchanged over the message
// broker together with the publisher and consumer that move them.
package queue

import "time"

// Queue names.  Routing uses the default exchange, so the routing key
// is the queue name.
const (
	NotificationsChanged = "notifications.changed"
	BookingChanged       = "booking.changed"
	MailOutbox           = "auth.mail"
)

// Notification change actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionReadAll = "read_all"
)

// NotificationChangedEvent is emitted on every insert, update or delete of
// a notification row.  NotificationID is 0 for bulk changes.
type NotificationChangedEvent struct {
	Type           string `json:"type"`
	UserID         uint64 `json:"user_id"`
	NotificationID uint64 `json:"notification_id"`
	Action         string `json:"action"`
	UnreadCount    int    `json:"unread_count"`
	IsRead         *bool  `json:"is_read,omitempty"`
	Title          string `json:"title,omitempty"`
}

// BookingChangedEvent is published when a booking is created or changes
// status.  It carries enough to audit the change without a DB read.
type BookingChangedEvent struct {
	BookingID  uint64    `json:"booking_id"`
	Kind       string    `json:"kind"`
	ResourceID uint64    `json:"resource_id"`
	UserID     uint64    `json:"user_id"`
	OwnerID    uint64    `json:"owner_id"`
	Status     string    `json:"status"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	ChangedAt  time.Time `json:"changed_at"`
}

// MailMessage is an outgoing email.  Template names the message kind,
// e.g. "auth.password_reset".
type MailMessage struct {
	Template string            `json:"template"`
	To       string            `json:"to"`
	Data     map[string]string `json:"data"`
	QueuedAt time.Time         `json:"queued_at"`
}
