package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-platform/internal/model"
)

// GalleryRepo stores image references for venues and suppliers.  The
// bytes live in the object store; rows keep bucket and path so images
// can be removed.
type GalleryRepo struct{ db *sql.DB }

func NewGalleryRepo(db *sql.DB) *GalleryRepo { return &GalleryRepo{db: db} }

// Add inserts img and fills its ID.
func (r *GalleryRepo) Add(ctx context.Context, img *model.GalleryImage) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO gallery_images (owner_kind, owner_id, bucket, path, url) VALUES (?, ?, ?, ?, ?)",
		img.OwnerKind, img.OwnerID, img.Bucket, img.Path, img.URL)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	img.ID = uint64(id)
	return nil
}

// List returns images of one resource, oldest first.
func (r *GalleryRepo) List(ctx context.Context, kind model.ResourceKind, ownerID uint64) ([]*model.GalleryImage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_kind, owner_id, bucket, path, url, created_at FROM gallery_images
         WHERE owner_kind = ? AND owner_id = ? ORDER BY id ASC`, kind, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.GalleryImage{}
	for rows.Next() {
		var g model.GalleryImage
		if err := rows.Scan(&g.ID, &g.OwnerKind, &g.OwnerID, &g.Bucket, &g.Path, &g.URL, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}

// Get returns one image or ErrNotFound.
func (r *GalleryRepo) Get(ctx context.Context, id uint64) (*model.GalleryImage, error) {
	var g model.GalleryImage
	err := r.db.QueryRowContext(ctx,
		"SELECT id, owner_kind, owner_id, bucket, path, url, created_at FROM gallery_images WHERE id = ?", id).
		Scan(&g.ID, &g.OwnerKind, &g.OwnerID, &g.Bucket, &g.Path, &g.URL, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// Delete removes the row only.
func (r *GalleryRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM gallery_images WHERE id = ?", id)
	return err
}
