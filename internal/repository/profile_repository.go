package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/event-platform/internal/model"
)

const profileCols = `user_id, full_name, phone, company_name, COALESCE(bio, ''), website,
	avatar_url, avatar_path, created_at, updated_at`

// ProfileRepo manages the one-to-one `profiles` rows keyed by user id.
type ProfileRepo struct{ db *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{db: db} }

// Get returns the profile of a user or ErrNotFound.
func (r *ProfileRepo) Get(ctx context.Context, userID uint64) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+profileCols+" FROM profiles WHERE user_id = ?", userID)
	var p model.Profile
	err := row.Scan(&p.UserID, &p.FullName, &p.Phone, &p.CompanyName, &p.Bio, &p.Website,
		&p.AvatarURL, &p.AvatarPath, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

const upsertProfileQ = `INSERT INTO profiles (user_id, full_name, phone, company_name, bio, website)
               VALUES (?, ?, ?, ?, ?, ?)
               ON DUPLICATE KEY UPDATE full_name = VALUES(full_name), phone = VALUES(phone),
               company_name = VALUES(company_name), bio = VALUES(bio), website = VALUES(website)`

// Upsert writes the editable fields of p.  Avatar columns are left alone.
func (r *ProfileRepo) Upsert(ctx context.Context, p *model.Profile) error {
	return upsertProfile(ctx, r.db, p)
}

// UpsertTx is Upsert inside tx.
func (r *ProfileRepo) UpsertTx(ctx context.Context, tx *sql.Tx, p *model.Profile) error {
	return upsertProfile(ctx, tx, p)
}

func upsertProfile(ctx context.Context, db execer, p *model.Profile) error {
	_, err := db.ExecContext(ctx, upsertProfileQ, p.UserID, p.FullName, p.Phone, p.CompanyName, p.Bio, p.Website)
	return err
}

// UpdateAvatar stores the public URL and object path of a new avatar.
func (r *ProfileRepo) UpdateAvatar(ctx context.Context, userID uint64, url, path string) error {
	const q = `INSERT INTO profiles (user_id, avatar_url, avatar_path) VALUES (?, ?, ?)
               ON DUPLICATE KEY UPDATE avatar_url = VALUES(avatar_url), avatar_path = VALUES(avatar_path)`
	_, err := r.db.ExecContext(ctx, q, userID, url, path)
	return err
}

// ListPlanners returns users holding the PLANNER role joined with their
// profiles, filtered by a name/company substring.
func (r *ProfileRepo) ListPlanners(ctx context.Context, q DirectoryQuery) ([]model.Planner, int64, error) {
	where := []string{"u.role = ?", "u.is_active = 1"}
	args := []any{model.RolePlanner}
	if q.Query != "" {
		where = append(where, "(LOWER(p.full_name) LIKE ? OR LOWER(p.company_name) LIKE ?)")
		like := "%" + strings.ToLower(q.Query) + "%"
		args = append(args, like, like)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	countSQL := `SELECT COUNT(*) FROM users u LEFT JOIN profiles p ON p.user_id = u.id WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := `SELECT u.id, COALESCE(p.full_name, ''), COALESCE(p.company_name, ''),
			COALESCE(p.bio, ''), COALESCE(p.website, ''), COALESCE(p.avatar_url, '')
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
		WHERE ` + cond + `
		ORDER BY u.id ASC
		LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, dataSQL, append(args, q.limit(), q.offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.Planner, 0, q.limit())
	for rows.Next() {
		var p model.Planner
		if err := rows.Scan(&p.UserID, &p.FullName, &p.CompanyName, &p.Bio, &p.Website, &p.AvatarURL); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
