package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/event-platform/internal/model"
)

const supplierCols = `id, owner_id, company_name, category, COALESCE(description, ''), city,
	price_from, image_url, created_at, updated_at`

// SupplierRepo manages the `suppliers` directory table.
type SupplierRepo struct{ db *sql.DB }

func NewSupplierRepo(db *sql.DB) *SupplierRepo { return &SupplierRepo{db: db} }

func scanSupplier(row rowScanner) (*model.Supplier, error) {
	var s model.Supplier
	err := row.Scan(&s.ID, &s.OwnerID, &s.CompanyName, &s.Category, &s.Description, &s.City,
		&s.PriceFrom, &s.ImageURL, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Create inserts s and reloads it to pick up DB defaults.
func (r *SupplierRepo) Create(ctx context.Context, s *model.Supplier) error {
	const q = `INSERT INTO suppliers (owner_id, company_name, category, description, city, price_from, image_url)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.OwnerID, s.CompanyName, s.Category, s.Description, s.City, s.PriceFrom, s.ImageURL)
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
	*s = *got
	return nil
}

// GetByID returns one supplier or ErrNotFound.
func (r *SupplierRepo) GetByID(ctx context.Context, id uint64) (*model.Supplier, error) {
	return scanSupplier(r.db.QueryRowContext(ctx, "SELECT "+supplierCols+" FROM suppliers WHERE id = ?", id))
}

// List applies the directory filters.  Category matches exactly, Query
// is a case-insensitive substring of name or description.
func (r *SupplierRepo) List(ctx context.Context, q DirectoryQuery) ([]*model.Supplier, int64, error) {
	where := []string{}
	args := []any{}
	if q.Query != "" {
		where = append(where, "(LOWER(company_name) LIKE ? OR LOWER(description) LIKE ?)")
		like := "%" + strings.ToLower(q.Query) + "%"
		args = append(args, like, like)
	}
	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}
	if q.City != "" {
		where = append(where, "LOWER(city) = ?")
		args = append(args, strings.ToLower(q.City))
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM suppliers WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+supplierCols+" FROM suppliers WHERE "+cond+" ORDER BY company_name ASC, id ASC LIMIT ? OFFSET ?",
		append(args, q.limit(), q.offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []*model.Supplier{}
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListByOwner returns the suppliers a user manages.
func (r *SupplierRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]*model.Supplier, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+supplierCols+" FROM suppliers WHERE owner_id = ? ORDER BY id ASC", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Supplier{}
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update overwrites the editable columns of a supplier owned by s.OwnerID.
func (r *SupplierRepo) Update(ctx context.Context, s *model.Supplier) error {
	if err := r.checkOwner(ctx, s.ID, s.OwnerID); err != nil {
		return err
	}
	const q = `UPDATE suppliers SET company_name = ?, category = ?, description = ?, city = ?, price_from = ?, image_url = ?
               WHERE id = ? AND owner_id = ?`
	if _, err := r.db.ExecContext(ctx, q, s.CompanyName, s.Category, s.Description, s.City, s.PriceFrom, s.ImageURL, s.ID, s.OwnerID); err != nil {
		return err
	}
	got, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = *got
	return nil
}

// Delete removes a supplier owned by ownerID.
func (r *SupplierRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	if err := r.checkOwner(ctx, id, ownerID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, "DELETE FROM suppliers WHERE id = ? AND owner_id = ?", id, ownerID)
	return err
}

func (r *SupplierRepo) checkOwner(ctx context.Context, id, ownerID uint64) error {
	var owner uint64
	err := r.db.QueryRowContext(ctx, "SELECT owner_id FROM suppliers WHERE id = ?", id).Scan(&owner)
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
