package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/event-platform/internal/model"
)

const partnerCols = `id, user_id, business_name, business_type, service_type, COALESCE(description, ''),
	contact_name, contact_email, contact_phone, website, status, review_note,
	submitted_at, reviewed_at, created_at, updated_at`

// PartnerRepo stores partner applications and their documents.  A user
// has at most one application.
type PartnerRepo struct {
	db *sql.DB
}

func NewPartnerRepo(db *sql.DB) *PartnerRepo { return &PartnerRepo{db: db} }

// DB exposes the handle for the approval transaction.
func (r *PartnerRepo) DB() *sql.DB { return r.db }

func scanPartner(row rowScanner) (*model.Partner, error) {
	var (
		p         model.Partner
		submitted sql.NullTime
		reviewed  sql.NullTime
	)
	err := row.Scan(&p.ID, &p.UserID, &p.BusinessName, &p.BusinessType, &p.ServiceType, &p.Description,
		&p.ContactName, &p.ContactEmail, &p.ContactPhone, &p.Website, &p.Status, &p.ReviewNote,
		&submitted, &reviewed, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if submitted.Valid {
		t := submitted.Time
		p.SubmittedAt = &t
	}
	if reviewed.Valid {
		t := reviewed.Time
		p.ReviewedAt = &t
	}
	return &p, nil
}

// GetByUser returns the application of a user or ErrNotFound.
func (r *PartnerRepo) GetByUser(ctx context.Context, userID uint64) (*model.Partner, error) {
	return scanPartner(r.db.QueryRowContext(ctx, "SELECT "+partnerCols+" FROM partners WHERE user_id = ?", userID))
}

// GetByID returns an application or ErrNotFound.
func (r *PartnerRepo) GetByID(ctx context.Context, id uint64) (*model.Partner, error) {
	return scanPartner(r.db.QueryRowContext(ctx, "SELECT "+partnerCols+" FROM partners WHERE id = ?", id))
}

// SaveBusiness creates the application if needed and stores step 1.
// Only DRAFT applications can be edited.
func (r *PartnerRepo) SaveBusiness(ctx context.Context, p *model.Partner) error {
	const q = `INSERT INTO partners (user_id, business_name, business_type, service_type, description)
               VALUES (?, ?, ?, ?, ?)
               ON DUPLICATE KEY UPDATE
                 business_name = IF(status = 'DRAFT', VALUES(business_name), business_name),
                 business_type = IF(status = 'DRAFT', VALUES(business_type), business_type),
                 service_type  = IF(status = 'DRAFT', VALUES(service_type), service_type),
                 description   = IF(status = 'DRAFT', VALUES(description), description)`
	cur, err := r.GetByUser(ctx, p.UserID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if cur != nil && cur.Status != model.PartnerDraft {
		return ErrConflict
	}
	if _, err := r.db.ExecContext(ctx, q, p.UserID, p.BusinessName, p.BusinessType, p.ServiceType, p.Description); err != nil {
		return err
	}
	got, err := r.GetByUser(ctx, p.UserID)
	if err != nil {
		return err
	}
	*p = *got
	return nil
}

// SaveContact stores step 2 on an existing DRAFT application.
func (r *PartnerRepo) SaveContact(ctx context.Context, p *model.Partner) error {
	cur, err := r.GetByUser(ctx, p.UserID)
	if err != nil {
		return err
	}
	if cur.Status != model.PartnerDraft {
		return ErrConflict
	}
	const q = `UPDATE partners SET contact_name = ?, contact_email = ?, contact_phone = ?, website = ?
               WHERE id = ? AND status = 'DRAFT'`
	if _, err := r.db.ExecContext(ctx, q, p.ContactName, p.ContactEmail, p.ContactPhone, p.Website, cur.ID); err != nil {
		return err
	}
	got, err := r.GetByID(ctx, cur.ID)
	if err != nil {
		return err
	}
	*p = *got
	return nil
}

// Submit moves a DRAFT application to SUBMITTED.
func (r *PartnerRepo) Submit(ctx context.Context, id uint64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE partners SET status = ?, submitted_at = ? WHERE id = ? AND status = ?",
		model.PartnerSubmitted, at, id, model.PartnerDraft)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}

// ReviewTx records an admin decision on a SUBMITTED application.
func (r *PartnerRepo) ReviewTx(ctx context.Context, tx *sql.Tx, id uint64, status, note string, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE partners SET status = ?, review_note = ?, reviewed_at = ? WHERE id = ? AND status = ?",
		status, note, at, id, model.PartnerSubmitted)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}

// ListByStatus returns applications in a status, oldest submission first.
func (r *PartnerRepo) ListByStatus(ctx context.Context, status string) ([]*model.Partner, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+partnerCols+" FROM partners WHERE status = ? ORDER BY submitted_at ASC, id ASC", status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Partner{}
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AddDocument inserts d and fills its ID.
func (r *PartnerRepo) AddDocument(ctx context.Context, d *model.PartnerDocument) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO partner_documents (partner_id, kind, file_name, content_type, path) VALUES (?, ?, ?, ?, ?)",
		d.PartnerID, d.Kind, d.FileName, d.ContentType, d.Path)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return nil
}

// ListDocuments returns documents of an application.
func (r *PartnerRepo) ListDocuments(ctx context.Context, partnerID uint64) ([]*model.PartnerDocument, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, partner_id, kind, file_name, content_type, path, created_at
         FROM partner_documents WHERE partner_id = ? ORDER BY id ASC`, partnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.PartnerDocument{}
	for rows.Next() {
		var d model.PartnerDocument
		if err := rows.Scan(&d.ID, &d.PartnerID, &d.Kind, &d.FileName, &d.ContentType, &d.Path, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// GetDocument returns one document or ErrNotFound.
func (r *PartnerRepo) GetDocument(ctx context.Context, id uint64) (*model.PartnerDocument, error) {
	var d model.PartnerDocument
	err := r.db.QueryRowContext(ctx,
		"SELECT id, partner_id, kind, file_name, content_type, path, created_at FROM partner_documents WHERE id = ?", id).
		Scan(&d.ID, &d.PartnerID, &d.Kind, &d.FileName, &d.ContentType, &d.Path, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// DeleteDocument removes a document row.
func (r *PartnerRepo) DeleteDocument(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM partner_documents WHERE id = ?", id)
	return err
}
