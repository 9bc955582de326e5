package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-platform/internal/model"
)

const notificationCols = "id, user_id, type, title, COALESCE(body, ''), link, is_read, created_at"

// NotificationRepo stores the per-user inbox.
type NotificationRepo struct{ db *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

func scanNotification(row rowScanner) (*model.Notification, error) {
	var n model.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Link, &n.IsRead, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// Create inserts n as unread and reloads it.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO notifications (user_id, type, title, body, link) VALUES (?, ?, ?, ?, ?)",
		n.UserID, n.Type, n.Title, n.Body, n.Link)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.Get(ctx, uint64(id))
	if err != nil {
		return err
	}
	*n = *got
	return nil
}

// Get returns one notification or ErrNotFound.
func (r *NotificationRepo) Get(ctx context.Context, id uint64) (*model.Notification, error) {
	return scanNotification(r.db.QueryRowContext(ctx, "SELECT "+notificationCols+" FROM notifications WHERE id = ?", id))
}

// List returns a user's notifications, newest first.
func (r *NotificationRepo) List(ctx context.Context, userID uint64, unreadOnly bool, limit int) ([]*model.Notification, error) {
	q := "SELECT " + notificationCols + " FROM notifications WHERE user_id = ?"
	if unreadOnly {
		q += " AND is_read = 0"
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ?"
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// UnreadCount counts a user's unread notifications.
func (r *NotificationRepo) UnreadCount(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0", userID).Scan(&n)
	return n, err
}

// SetRead sets is_read on a notification owned by userID.
func (r *NotificationRepo) SetRead(ctx context.Context, id, userID uint64, isRead bool) error {
	if err := r.checkOwner(ctx, id, userID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = ? WHERE id = ? AND user_id = ?", isRead, id, userID)
	return err
}

// MarkAllRead marks every notification of userID read and returns how
// many changed.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes a notification owned by userID.
func (r *NotificationRepo) Delete(ctx context.Context, id, userID uint64) error {
	if err := r.checkOwner(ctx, id, userID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = ? AND user_id = ?", id, userID)
	return err
}

func (r *NotificationRepo) checkOwner(ctx context.Context, id, userID uint64) error {
	var owner uint64
	err := r.db.QueryRowContext(ctx, "SELECT user_id FROM notifications WHERE id = ?", id).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if owner != userID {
		return ErrForbidden
	}
	return nil
}
