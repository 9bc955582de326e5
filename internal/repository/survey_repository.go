package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/event-platform/internal/model"
)

// SurveyRepo stores post-event feedback.  (event_id, user_id) is unique.
type SurveyRepo struct{ db *sql.DB }

func NewSurveyRepo(db *sql.DB) *SurveyRepo { return &SurveyRepo{db: db} }

// Create inserts a response.  A second response by the same user for
// the same event yields ErrConflict.
func (r *SurveyRepo) Create(ctx context.Context, s *model.SurveyResponse) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO survey_responses (event_id, user_id, rating, would_recommend, comment) VALUES (?, ?, ?, ?, ?)",
		s.EventID, s.UserID, s.Rating, s.WouldRecommend, s.Comment)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return r.db.QueryRowContext(ctx, "SELECT created_at FROM survey_responses WHERE id = ?", s.ID).Scan(&s.CreatedAt)
}

// ListByEvent returns responses in insertion order.
func (r *SurveyRepo) ListByEvent(ctx context.Context, eventID uint64) ([]*model.SurveyResponse, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, user_id, rating, would_recommend, COALESCE(comment, ''), created_at
         FROM survey_responses WHERE event_id = ? ORDER BY id ASC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.SurveyResponse{}
	for rows.Next() {
		var s model.SurveyResponse
		if err := rows.Scan(&s.ID, &s.EventID, &s.UserID, &s.Rating, &s.WouldRecommend, &s.Comment, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// Summary aggregates the responses of an event in SQL.
func (r *SurveyRepo) Summary(ctx context.Context, eventID uint64) (*model.SurveySummary, error) {
	sum := &model.SurveySummary{EventID: eventID}
	var avg, rec sql.NullFloat64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(rating), AVG(would_recommend) * 100
         FROM survey_responses WHERE event_id = ?`, eventID).Scan(&sum.Responses, &avg, &rec)
	if err != nil {
		return nil, err
	}
	sum.AverageRating = avg.Float64
	sum.RecommendPercent = rec.Float64
	return sum, nil
}
