package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/iliyamo/event-platform/internal/metrics"
	"github.com/iliyamo/event-platform/internal/model"
	"github.com/iliyamo/event-platform/internal/queue"
)

// NotificationStore is the persistence used by NotificationService.
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	Get(ctx context.Context, id uint64) (*model.Notification, error)
	List(ctx context.Context, userID uint64, unreadOnly bool, limit int) ([]*model.Notification, error)
	UnreadCount(ctx context.Context, userID uint64) (int, error)
	SetRead(ctx context.Context, id, userID uint64, isRead bool) error
	MarkAllRead(ctx context.Context, userID uint64) (int64, error)
	Delete(ctx context.Context, id, userID uint64) error
}

// Notifier is what other services use to drop a message in an inbox.
type Notifier interface {
	Notify(ctx context.Context, userID uint64, typ, title, body, link string) (*model.Notification, error)
}

// NotificationService manages inboxes and emits a change event for every
// write so connected clients can refresh their badge.
type NotificationService struct {
	store NotificationStore
	pub   queue.Publisher
	log   zerolog.Logger
}

func NewNotificationService(store NotificationStore, pub queue.Publisher, log zerolog.Logger) *NotificationService {
	return &NotificationService{store: store, pub: pub, log: log.With().Str("service", "notifications").Logger()}
}

const maxInbox = 200

// Notify stores a new unread notification.
func (s *NotificationService) Notify(ctx context.Context, userID uint64, typ, title, body, link string) (*model.Notification, error) {
	n := &model.Notification{UserID: userID, Type: typ, Title: title, Body: body, Link: link}
	if err := s.store.Create(ctx, n); err != nil {
		return nil, fail(s.log, err, "create notification")
	}
	metrics.NotificationsSent.WithLabelValues(typ).Inc()
	s.emit(ctx, userID, n.ID, queue.ActionCreated, nil, n.Title)
	return n, nil
}

// List returns a user's inbox, newest first.
func (s *NotificationService) List(ctx context.Context, userID uint64, unreadOnly bool) ([]*model.Notification, error) {
	list, err := s.store.List(ctx, userID, unreadOnly, maxInbox)
	if err != nil {
		return nil, fail(s.log, err, "list notifications")
	}
	return list, nil
}

// UnreadCount returns the badge number.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint64) (int, error) {
	n, err := s.store.UnreadCount(ctx, userID)
	if err != nil {
		return 0, fail(s.log, err, "count unread")
	}
	return n, nil
}

// SetRead marks one notification read or unread.
func (s *NotificationService) SetRead(ctx context.Context, userID, id uint64, isRead bool) (*model.Notification, error) {
	if err := s.store.SetRead(ctx, id, userID, isRead); err != nil {
		return nil, fail(s.log, err, "set read")
	}
	n, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fail(s.log, err, "reload notification")
	}
	s.emit(ctx, userID, id, queue.ActionUpdated, &isRead, "")
	return n, nil
}

// MarkAllRead clears the badge.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	n, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fail(s.log, err, "mark all read")
	}
	s.emit(ctx, userID, 0, queue.ActionReadAll, nil, "")
	return n, nil
}

// Delete removes a notification.
func (s *NotificationService) Delete(ctx context.Context, userID, id uint64) error {
	if err := s.store.Delete(ctx, id, userID); err != nil {
		return fail(s.log, err, "delete notification")
	}
	s.emit(ctx, userID, id, queue.ActionDeleted, nil, "")
	return nil
}

// emit publishes notification.changed.  Delivery is best effort: the row
// is already committed and clients refetch on reconnect.
func (s *NotificationService) emit(ctx context.Context, userID, id uint64, action string, isRead *bool, title string) {
	unread, err := s.store.UnreadCount(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Uint64("user_id", userID).Msg("unread count for event")
		unread = -1
	}
	ev := queue.NotificationChangedEvent{
		Type:           "notification.changed",
		UserID:         userID,
		NotificationID: id,
		Action:         action,
		UnreadCount:    unread,
		IsRead:         isRead,
		Title:          title,
	}
	if err := s.pub.Publish(ctx, queue.NotificationsChanged, ev); err != nil {
		s.log.Warn().Err(err).Uint64("user_id", userID).Str("action", action).Msg("publish notification change")
	}
}
