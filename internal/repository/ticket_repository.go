package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-platform/internal/model"
)

const ticketCols = "id, event_id, user_id, quantity, total_price, code, status, created_at, updated_at"

// TicketRepo stores ticket reservations.
type TicketRepo struct{ db *sql.DB }

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

func scanTicket(row rowScanner) (*model.Ticket, error) {
	var t model.Ticket
	err := row.Scan(&t.ID, &t.EventID, &t.UserID, &t.Quantity, &t.TotalPrice, &t.Code, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// SoldTx sums the quantities of non-cancelled tickets of an event.  Call
// it after locking the event row so the figure cannot move under you.
func (r *TicketRepo) SoldTx(ctx context.Context, tx *sql.Tx, eventID uint64) (uint32, error) {
	var sold uint32
	err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(quantity), 0) FROM tickets WHERE event_id = ? AND status <> ?",
		eventID, model.TicketCancelled).Scan(&sold)
	return sold, err
}

// CreateTx inserts t as RESERVED and reloads it within tx.
func (r *TicketRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Ticket) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO tickets (event_id, user_id, quantity, total_price, code, status) VALUES (?, ?, ?, ?, ?, ?)",
		t.EventID, t.UserID, t.Quantity, t.TotalPrice, t.Code, model.TicketReserved)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := scanTicket(tx.QueryRowContext(ctx, "SELECT "+ticketCols+" FROM tickets WHERE id = ?", id))
	if err != nil {
		return err
	}
	*t = *got
	return nil
}

// GetByID returns one ticket or ErrNotFound.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	return scanTicket(r.db.QueryRowContext(ctx, "SELECT "+ticketCols+" FROM tickets WHERE id = ?", id))
}

// ListByUser returns a user's tickets with their event embedded.
func (r *TicketRepo) ListByUser(ctx context.Context, userID uint64) ([]*model.Ticket, error) {
	const q = `SELECT t.id, t.event_id, t.user_id, t.quantity, t.total_price, t.code, t.status, t.created_at, t.updated_at,
			e.id, e.planner_id, e.venue_id, e.title, COALESCE(e.description, ''), e.starts_at, e.ends_at,
			e.capacity, e.ticket_price, e.status, e.reminder_sent_at, e.created_at, e.updated_at
		FROM tickets t
		JOIN events e ON e.id = t.event_id
		WHERE t.user_id = ?
		ORDER BY e.starts_at DESC, t.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Ticket{}
	for rows.Next() {
		var (
			t        model.Ticket
			e        model.Event
			venueID  sql.NullInt64
			reminded sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.EventID, &t.UserID, &t.Quantity, &t.TotalPrice, &t.Code, &t.Status, &t.CreatedAt, &t.UpdatedAt,
			&e.ID, &e.PlannerID, &venueID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt,
			&e.Capacity, &e.TicketPrice, &e.Status, &reminded, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if venueID.Valid {
			id := uint64(venueID.Int64)
			e.VenueID = &id
		}
		t.Event = &e
		out = append(out, &t)
	}
	return out, rows.Err()
}

// ListByEvent returns every ticket of an event.
func (r *TicketRepo) ListByEvent(ctx context.Context, eventID uint64) ([]*model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+ticketCols+" FROM tickets WHERE event_id = ? ORDER BY id ASC", eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// HolderIDs returns the distinct users holding live tickets for an event.
func (r *TicketRepo) HolderIDs(ctx context.Context, eventID uint64) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT user_id FROM tickets WHERE event_id = ? AND status <> ? ORDER BY user_id",
		eventID, model.TicketCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Cancel cancels a ticket owned by userID.
func (r *TicketRepo) Cancel(ctx context.Context, id, userID uint64) error {
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if t.UserID != userID {
		return ErrForbidden
	}
	if t.Status == model.TicketCancelled {
		return ErrNoChange
	}
	_, err = r.db.ExecContext(ctx, "UPDATE tickets SET status = ? WHERE id = ? AND user_id = ?",
		model.TicketCancelled, id, userID)
	return err
}
