package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/event-platform/internal/model"
)

const eventCols = `id, planner_id, venue_id, title, COALESCE(description, ''), starts_at, ends_at,
	capacity, ticket_price, status, reminder_sent_at, created_at, updated_at`

// EventRepo manages planner events.
type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the handle for multi-repo transactions.
func (r *EventRepo) DB() *sql.DB { return r.db }

func scanEvent(row rowScanner) (*model.Event, error) {
	var (
		e        model.Event
		venueID  sql.NullInt64
		reminded sql.NullTime
	)
	err := row.Scan(&e.ID, &e.PlannerID, &venueID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt,
		&e.Capacity, &e.TicketPrice, &e.Status, &reminded, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if venueID.Valid {
		id := uint64(venueID.Int64)
		e.VenueID = &id
	}
	if reminded.Valid {
		t := reminded.Time
		e.ReminderSentAt = &t
	}
	return &e, nil
}

func scanEvents(rows *sql.Rows) ([]*model.Event, error) {
	defer rows.Close()
	out := []*model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullableID(id *uint64) any {
	if id == nil {
		return nil
	}
	return *id
}

// Create inserts e and reloads it.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	const q = `INSERT INTO events (planner_id, venue_id, title, description, starts_at, ends_at, capacity, ticket_price, status)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, e.PlannerID, nullableID(e.VenueID), e.Title, e.Description,
		e.StartsAt, e.EndsAt, e.Capacity, e.TicketPrice, e.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*e = *got
	return nil
}

// GetByID returns an event or ErrNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	return scanEvent(r.db.QueryRowContext(ctx, "SELECT "+eventCols+" FROM events WHERE id = ?", id))
}

// LockTx reads an event with a row lock held until tx ends.
func (r *EventRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Event, error) {
	return scanEvent(tx.QueryRowContext(ctx, "SELECT "+eventCols+" FROM events WHERE id = ? FOR UPDATE", id))
}

// Update overwrites an event owned by e.PlannerID.
func (r *EventRepo) Update(ctx context.Context, e *model.Event) error {
	cur, err := r.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	if cur.PlannerID != e.PlannerID {
		return ErrForbidden
	}
	const q = `UPDATE events SET venue_id = ?, title = ?, description = ?, starts_at = ?, ends_at = ?,
               capacity = ?, ticket_price = ?, status = ? WHERE id = ? AND planner_id = ?`
	if _, err := r.db.ExecContext(ctx, q, nullableID(e.VenueID), e.Title, e.Description, e.StartsAt, e.EndsAt,
		e.Capacity, e.TicketPrice, e.Status, e.ID, e.PlannerID); err != nil {
		return err
	}
	got, err := r.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	*e = *got
	return nil
}

// Delete removes an event owned by plannerID.
func (r *EventRepo) Delete(ctx context.Context, id, plannerID uint64) error {
	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if cur.PlannerID != plannerID {
		return ErrForbidden
	}
	_, err = r.db.ExecContext(ctx, "DELETE FROM events WHERE id = ? AND planner_id = ?", id, plannerID)
	return err
}

// ListPublished returns upcoming published events matching a title
// substring, soonest first.
func (r *EventRepo) ListPublished(ctx context.Context, q DirectoryQuery, now time.Time) ([]*model.Event, int64, error) {
	where := []string{"status = ?", "ends_at >= ?"}
	args := []any{model.EventPublished, now}
	if q.Query != "" {
		where = append(where, "LOWER(title) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Query)+"%")
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+eventCols+" FROM events WHERE "+cond+" ORDER BY starts_at ASC LIMIT ? OFFSET ?",
		append(args, q.limit(), q.offset())...)
	if err != nil {
		return nil, 0, err
	}
	list, err := scanEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ListByPlanner returns all events of one planner.
func (r *EventRepo) ListByPlanner(ctx context.Context, plannerID uint64) ([]*model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+eventCols+" FROM events WHERE planner_id = ? ORDER BY starts_at DESC", plannerID)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// DueForReminder returns published events starting in (now, until] that
// have not been reminded yet.
func (r *EventRepo) DueForReminder(ctx context.Context, now, until time.Time) ([]*model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+eventCols+` FROM events
		 WHERE status = ? AND reminder_sent_at IS NULL AND starts_at > ? AND starts_at <= ?
		 ORDER BY starts_at ASC`, model.EventPublished, now, until)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// MarkReminded stamps reminder_sent_at so the event is skipped next run.
func (r *EventRepo) MarkReminded(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE events SET reminder_sent_at = ? WHERE id = ? AND reminder_sent_at IS NULL", at, id)
	return err
}
