package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/event-platform/internal/model"
)

// BookingRepo persists venue bookings (`bookings`) and supplier bookings
// (`supplier_bookings`).  Both tables share a shape; the kind argument
// picks the table and the resource table it references.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the handle so services can open transactions spanning repos.
func (r *BookingRepo) DB() *sql.DB { return r.db }

type bookingTable struct {
	name     string // booking table
	fk       string // column referencing the resource
	resource string // resource table
}

func tableFor(kind model.ResourceKind) (bookingTable, error) {
	switch kind {
	case model.KindVenue:
		return bookingTable{name: "bookings", fk: "venue_id", resource: "venues"}, nil
	case model.KindSupplier:
		return bookingTable{name: "supplier_bookings", fk: "supplier_id", resource: "suppliers"}, nil
	}
	return bookingTable{}, fmt.Errorf("unknown resource kind %q", kind)
}

func (t bookingTable) cols() string {
	return "id, " + t.fk + ", user_id, event_id, starts_at, ends_at, status, COALESCE(notes, ''), created_at, updated_at"
}

func scanBooking(row rowScanner, kind model.ResourceKind) (*model.Booking, error) {
	var (
		b       model.Booking
		eventID sql.NullInt64
	)
	err := row.Scan(&b.ID, &b.ResourceID, &b.UserID, &eventID, &b.StartsAt, &b.EndsAt, &b.Status, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if eventID.Valid {
		id := uint64(eventID.Int64)
		b.EventID = &id
	}
	b.Kind = kind
	return &b, nil
}

func scanBookings(rows *sql.Rows, kind model.ResourceKind) ([]*model.Booking, error) {
	defer rows.Close()
	out := []*model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// LockResourceTx locks the venue or supplier row for the rest of tx and
// returns its owner.  Concurrent bookings of the same resource serialize
// on this lock.
func (r *BookingRepo) LockResourceTx(ctx context.Context, tx *sql.Tx, kind model.ResourceKind, id uint64) (uint64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var owner uint64
	err = tx.QueryRowContext(ctx, "SELECT owner_id FROM "+t.resource+" WHERE id = ? FOR UPDATE", id).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return owner, nil
}

// ResourceOwner returns the owner of a venue or supplier.
func (r *BookingRepo) ResourceOwner(ctx context.Context, kind model.ResourceKind, id uint64) (uint64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var owner uint64
	err = r.db.QueryRowContext(ctx, "SELECT owner_id FROM "+t.resource+" WHERE id = ?", id).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return owner, nil
}

// FindOverlappingTx returns live bookings of a resource intersecting
// [start, end).  Cancelled and declined bookings do not hold the slot.
func (r *BookingRepo) FindOverlappingTx(ctx context.Context, tx *sql.Tx, kind model.ResourceKind, resourceID uint64, start, end time.Time) ([]*model.Booking, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	q := "SELECT " + t.cols() + " FROM " + t.name + ` WHERE ` + t.fk + ` = ?
		AND status NOT IN ('CANCELLED', 'DECLINED')
		AND NOT (ends_at <= ? OR starts_at >= ?)
		ORDER BY starts_at ASC`
	rows, err := tx.QueryContext(ctx, q, resourceID, start, end)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows, kind)
}

// CreateTx inserts b as PENDING and reloads it within tx.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	t, err := tableFor(b.Kind)
	if err != nil {
		return err
	}
	var eventID any
	if b.EventID != nil {
		eventID = *b.EventID
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO "+t.name+" ("+t.fk+", user_id, event_id, starts_at, ends_at, status, notes) VALUES (?, ?, ?, ?, ?, ?, ?)",
		b.ResourceID, b.UserID, eventID, b.StartsAt, b.EndsAt, model.BookingPending, b.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := scanBooking(tx.QueryRowContext(ctx, "SELECT "+t.cols()+" FROM "+t.name+" WHERE id = ?", id), b.Kind)
	if err != nil {
		return err
	}
	*b = *got
	return nil
}

// GetByID returns one booking or ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, kind model.ResourceKind, id uint64) (*model.Booking, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	return scanBooking(r.db.QueryRowContext(ctx, "SELECT "+t.cols()+" FROM "+t.name+" WHERE id = ?", id), kind)
}

// ListByUser returns the bookings a user requested, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, kind model.ResourceKind, userID uint64) ([]*model.Booking, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+t.cols()+" FROM "+t.name+" WHERE user_id = ? ORDER BY starts_at DESC", userID)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows, kind)
}

// ListByResource returns every booking of a venue or supplier.
func (r *BookingRepo) ListByResource(ctx context.Context, kind model.ResourceKind, resourceID uint64) ([]*model.Booking, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+t.cols()+" FROM "+t.name+" WHERE "+t.fk+" = ? ORDER BY starts_at ASC", resourceID)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows, kind)
}

// ListInRange returns live bookings of a resource intersecting [from, to).
func (r *BookingRepo) ListInRange(ctx context.Context, kind model.ResourceKind, resourceID uint64, from, to time.Time) ([]*model.Booking, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	q := "SELECT " + t.cols() + " FROM " + t.name + ` WHERE ` + t.fk + ` = ?
		AND status NOT IN ('CANCELLED', 'DECLINED')
		AND NOT (ends_at <= ? OR starts_at >= ?)
		ORDER BY starts_at ASC`
	rows, err := r.db.QueryContext(ctx, q, resourceID, from, to)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows, kind)
}

// UpdateStatus moves a booking from one status to another.  If the row
// is no longer in status from, ErrConflict is returned.
func (r *BookingRepo) UpdateStatus(ctx context.Context, kind model.ResourceKind, id uint64, from, to string) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE "+t.name+" SET status = ? WHERE id = ? AND status = ?", to, id, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}
