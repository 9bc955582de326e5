package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/event-platform/internal/model"
)

const blockCols = "id, owner_kind, owner_id, starts_at, ends_at, note, rrule, created_at"

// AvailabilityRepo stores blocked-out periods of venues and suppliers.
type AvailabilityRepo struct{ db *sql.DB }

func NewAvailabilityRepo(db *sql.DB) *AvailabilityRepo { return &AvailabilityRepo{db: db} }

func scanBlocks(rows *sql.Rows) ([]*model.AvailabilityBlock, error) {
	defer rows.Close()
	out := []*model.AvailabilityBlock{}
	for rows.Next() {
		var b model.AvailabilityBlock
		if err := rows.Scan(&b.ID, &b.OwnerKind, &b.OwnerID, &b.StartsAt, &b.EndsAt, &b.Note, &b.RRule, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

// Create inserts b and fills its ID.
func (r *AvailabilityRepo) Create(ctx context.Context, b *model.AvailabilityBlock) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO availability_blocks (owner_kind, owner_id, starts_at, ends_at, note, rrule) VALUES (?, ?, ?, ?, ?, ?)",
		b.OwnerKind, b.OwnerID, b.StartsAt, b.EndsAt, b.Note, b.RRule)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// Get returns one block or ErrNotFound.
func (r *AvailabilityRepo) Get(ctx context.Context, id uint64) (*model.AvailabilityBlock, error) {
	var b model.AvailabilityBlock
	err := r.db.QueryRowContext(ctx, "SELECT "+blockCols+" FROM availability_blocks WHERE id = ?", id).
		Scan(&b.ID, &b.OwnerKind, &b.OwnerID, &b.StartsAt, &b.EndsAt, &b.Note, &b.RRule, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// ListCandidates returns the blocks that may intersect [from, to): every
// recurring block plus one-off blocks overlapping the range.  Recurring
// blocks are expanded by the caller.
func (r *AvailabilityRepo) ListCandidates(ctx context.Context, kind model.ResourceKind, ownerID uint64, from, to time.Time) ([]*model.AvailabilityBlock, error) {
	rows, err := r.db.QueryContext(ctx, candidateSQL, kind, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	return scanBlocks(rows)
}

// ListCandidatesTx is ListCandidates inside the caller's transaction.
func (r *AvailabilityRepo) ListCandidatesTx(ctx context.Context, tx *sql.Tx, kind model.ResourceKind, ownerID uint64, from, to time.Time) ([]*model.AvailabilityBlock, error) {
	rows, err := tx.QueryContext(ctx, candidateSQL, kind, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	return scanBlocks(rows)
}

const candidateSQL = "SELECT " + blockCols + ` FROM availability_blocks
	WHERE owner_kind = ? AND owner_id = ?
	AND (rrule <> '' OR NOT (ends_at <= ? OR starts_at >= ?))
	ORDER BY starts_at ASC`

// ListByOwner returns all blocks of a resource.
func (r *AvailabilityRepo) ListByOwner(ctx context.Context, kind model.ResourceKind, ownerID uint64) ([]*model.AvailabilityBlock, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+blockCols+" FROM availability_blocks WHERE owner_kind = ? AND owner_id = ? ORDER BY starts_at ASC",
		kind, ownerID)
	if err != nil {
		return nil, err
	}
	return scanBlocks(rows)
}

// Delete removes a block.
func (r *AvailabilityRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM availability_blocks WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
