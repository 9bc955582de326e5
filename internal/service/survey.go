package service

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-platform/internal/model"
	"github.com/iliyamo/event-platform/internal/repository"
)

// SurveyStore is the survey_responses table.
type SurveyStore interface {
	Create(ctx context.Context, s *model.SurveyResponse) error
	ListByEvent(ctx context.Context, eventID uint64) ([]*model.SurveyResponse, error)
	Summary(ctx context.Context, eventID uint64) (*model.SurveySummary, error)
}

// EventGetter loads one event.
type EventGetter interface {
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
}

// SurveyService collects post-event feedback.
type SurveyService struct {
	surveys SurveyStore
	events  EventGetter
	log     zerolog.Logger
}

func NewSurveyService(surveys SurveyStore, events EventGetter, log zerolog.Logger) *SurveyService {
	return &SurveyService{surveys: surveys, events: events, log: log.With().Str("service", "surveys").Logger()}
}

// SurveyInput is one attendee's answers.
type SurveyInput struct {
	Rating         int    `json:"rating"`
	WouldRecommend bool   `json:"would_recommend"`
	Comment        string `json:"comment"`
}

func (in SurveyInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Rating, validation.Required, validation.Min(1), validation.Max(5)),
		validation.Field(&in.Comment, validation.Length(0, 2000)),
	)
}

// Submit stores a response; a second one from the same user is a
// conflict.
func (s *SurveyService) Submit(ctx context.Context, userID, eventID uint64, in SurveyInput) (*model.SurveyResponse, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, fail(s.log, err, "get event")
	}
	if e.Status != model.EventPublished {
		return nil, repository.ErrNotFound
	}
	r := &model.SurveyResponse{
		EventID:        eventID,
		UserID:         userID,
		Rating:         uint8(in.Rating),
		WouldRecommend: in.WouldRecommend,
		Comment:        strings.TrimSpace(in.Comment),
	}
	if err := s.surveys.Create(ctx, r); err != nil {
		return nil, fail(s.log, err, "create survey response")
	}
	return r, nil
}

// Responses lists the answers for an event to its planner.
func (s *SurveyService) Responses(ctx context.Context, plannerID, eventID uint64) ([]*model.SurveyResponse, error) {
	if err := s.checkPlanner(ctx, plannerID, eventID); err != nil {
		return nil, err
	}
	out, err := s.surveys.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fail(s.log, err, "list survey responses")
	}
	return out, nil
}

func (s *SurveyService) Summary(ctx context.Context, plannerID, eventID uint64) (*model.SurveySummary, error) {
	if err := s.checkPlanner(ctx, plannerID, eventID); err != nil {
		return nil, err
	}
	sum, err := s.surveys.Summary(ctx, eventID)
	if err != nil {
		return nil, fail(s.log, err, "survey summary")
	}
	return sum, nil
}

// ExportCSV writes the responses of an event as CSV to w.
func (s *SurveyService) ExportCSV(ctx context.Context, plannerID, eventID uint64, w io.Writer) error {
	rows, err := s.Responses(ctx, plannerID, eventID)
	if err != nil {
		return err
	}
	return WriteSurveyCSV(w, rows)
}

func (s *SurveyService) checkPlanner(ctx context.Context, plannerID, eventID uint64) error {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return fail(s.log, err, "get event")
	}
	if e.PlannerID != plannerID {
		return repository.ErrForbidden
	}
	return nil
}

// SurveyCSVHeader is the first line of every export.
const SurveyCSVHeader = "id,event_id,user_id,rating,would_recommend,comment,created_at"

// WriteSurveyCSV writes one line per response.  The comment column is
// always quoted with embedded quotes doubled, whether or not it needs it;
// encoding/csv only quotes on demand.
func WriteSurveyCSV(w io.Writer, rows []*model.SurveyResponse) error {
	var b strings.Builder
	b.WriteString(SurveyCSVHeader)
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString(strconv.FormatUint(r.ID, 10))
		b.WriteByte(',')
		b.WriteString(strconv.FormatUint(r.EventID, 10))
		b.WriteByte(',')
		b.WriteString(strconv.FormatUint(r.UserID, 10))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(int(r.Rating)))
		b.WriteByte(',')
		b.WriteString(strconv.FormatBool(r.WouldRecommend))
		b.WriteByte(',')
		b.WriteString(quoteCSV(r.Comment))
		b.WriteByte(',')
		b.WriteString(r.CreatedAt.UTC().Format(time.RFC3339))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func quoteCSV(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
