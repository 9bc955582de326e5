package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/event-platform/internal/model"
)

const venueCols = `id, owner_id, name, city, address, capacity, price_per_hour,
	COALESCE(description, ''), image_url, created_at, updated_at`

// VenueRepo manages the `venues` table.
type VenueRepo struct{ db *sql.DB }

func NewVenueRepo(db *sql.DB) *VenueRepo { return &VenueRepo{db: db} }

func scanVenue(row rowScanner) (*model.Venue, error) {
	var v model.Venue
	err := row.Scan(&v.ID, &v.OwnerID, &v.Name, &v.City, &v.Address, &v.Capacity, &v.PricePerHour,
		&v.Description, &v.ImageURL, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// Create inserts v and reloads it.
func (r *VenueRepo) Create(ctx context.Context, v *model.Venue) error {
	const q = `INSERT INTO venues (owner_id, name, city, address, capacity, price_per_hour, description, image_url)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, v.OwnerID, v.Name, v.City, v.Address, v.Capacity, v.PricePerHour, v.Description, v.ImageURL)
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
	*v = *got
	return nil
}

// GetByID returns a venue or ErrNotFound.
func (r *VenueRepo) GetByID(ctx context.Context, id uint64) (*model.Venue, error) {
	return scanVenue(r.db.QueryRowContext(ctx, "SELECT "+venueCols+" FROM venues WHERE id = ?", id))
}

// List applies the directory filters: Query on name/description, exact
// city (case-insensitive) and a minimum capacity.
func (r *VenueRepo) List(ctx context.Context, q DirectoryQuery) ([]*model.Venue, int64, error) {
	where := []string{}
	args := []any{}
	if q.Query != "" {
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)")
		like := "%" + strings.ToLower(q.Query) + "%"
		args = append(args, like, like)
	}
	if q.City != "" {
		where = append(where, "LOWER(city) = ?")
		args = append(args, strings.ToLower(q.City))
	}
	if q.MinCapacity > 0 {
		where = append(where, "capacity >= ?")
		args = append(args, q.MinCapacity)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM venues WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+venueCols+" FROM venues WHERE "+cond+" ORDER BY name ASC, id ASC LIMIT ? OFFSET ?",
		append(args, q.limit(), q.offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []*model.Venue{}
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListByOwner returns the venues a user manages.
func (r *VenueRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]*model.Venue, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+venueCols+" FROM venues WHERE owner_id = ? ORDER BY id ASC", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Venue{}
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Update overwrites the editable columns of a venue owned by v.OwnerID.
func (r *VenueRepo) Update(ctx context.Context, v *model.Venue) error {
	if err := r.checkOwner(ctx, v.ID, v.OwnerID); err != nil {
		return err
	}
	const q = `UPDATE venues SET name = ?, city = ?, address = ?, capacity = ?, price_per_hour = ?, description = ?, image_url = ?
               WHERE id = ? AND owner_id = ?`
	if _, err := r.db.ExecContext(ctx, q, v.Name, v.City, v.Address, v.Capacity, v.PricePerHour, v.Description, v.ImageURL, v.ID, v.OwnerID); err != nil {
		return err
	}
	got, err := r.GetByID(ctx, v.ID)
	if err != nil {
		return err
	}
	*v = *got
	return nil
}

// Delete removes a venue owned by ownerID.
func (r *VenueRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	if err := r.checkOwner(ctx, id, ownerID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, "DELETE FROM venues WHERE id = ? AND owner_id = ?", id, ownerID)
	return err
}

func (r *VenueRepo) checkOwner(ctx context.Context, id, ownerID uint64) error {
	var owner uint64
	err := r.db.QueryRowContext(ctx, "SELECT owner_id FROM venues WHERE id = ?", id).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if owner != ownerID {
		return ErrForbidden
	}
	return nil
}
