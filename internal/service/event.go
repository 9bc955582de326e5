package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-platform/internal/metrics"
	"github.com/iliyamo/event-platform/internal/model"
	"github.com/iliyamo/event-platform/internal/repository"
)

// MaxTicketsPerReservation bounds a single reservation.
const MaxTicketsPerReservation = 20

// EventStore is the events table.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
	LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Event, error)
	Update(ctx context.Context, e *model.Event) error
	Delete(ctx context.Context, id, plannerID uint64) error
	ListPublished(ctx context.Context, q repository.DirectoryQuery, now time.Time) ([]*model.Event, int64, error)
	ListByPlanner(ctx context.Context, plannerID uint64) ([]*model.Event, error)
	DueForReminder(ctx context.Context, now, until time.Time) ([]*model.Event, error)
	MarkReminded(ctx context.Context, id uint64, at time.Time) error
}

// TicketStore is the tickets table.
type TicketStore interface {
	SoldTx(ctx context.Context, tx *sql.Tx, eventID uint64) (uint32, error)
	CreateTx(ctx context.Context, tx *sql.Tx, t *model.Ticket) error
	GetByID(ctx context.Context, id uint64) (*model.Ticket, error)
	ListByUser(ctx context.Context, userID uint64) ([]*model.Ticket, error)
	ListByEvent(ctx context.Context, eventID uint64) ([]*model.Ticket, error)
	HolderIDs(ctx context.Context, eventID uint64) ([]uint64, error)
	Cancel(ctx context.Context, id, userID uint64) error
}

// EventService manages planner events and ticket reservations.
type EventService struct {
	db       TxBeginner
	events   EventStore
	tickets  TicketStore
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time
}

func NewEventService(db TxBeginner, events EventStore, tickets TicketStore, notifier Notifier, log zerolog.Logger) *EventService {
	return &EventService{
		db:       db,
		events:   events,
		tickets:  tickets,
		notifier: notifier,
		log:      log.With().Str("service", "events").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// EventInput is the planner-editable part of an event.
type EventInput struct {
	VenueID     *uint64         `json:"venue_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	StartsAt    time.Time       `json:"starts_at"`
	EndsAt      time.Time       `json:"ends_at"`
	Capacity    uint32          `json:"capacity"`
	TicketPrice decimal.Decimal `json:"ticket_price"`
	Status      string          `json:"status"`
}

func (in EventInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Description, validation.Length(0, 5000)),
		validation.Field(&in.StartsAt, validation.Required),
		validation.Field(&in.EndsAt, validation.Required),
		validation.Field(&in.Capacity, validation.Required),
		validation.Field(&in.TicketPrice, validation.By(nonNegative)),
		validation.Field(&in.Status, validation.In(model.EventDraft, model.EventPublished, model.EventCancelled)),
	)
}

func (in EventInput) event(plannerID uint64) (*model.Event, error) {
	in.Status = strings.ToUpper(strings.TrimSpace(in.Status))
	if in.Status == "" {
		in.Status = model.EventDraft
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if !in.EndsAt.After(in.StartsAt) {
		return nil, ErrInvalidRange
	}
	return &model.Event{
		PlannerID:   plannerID,
		VenueID:     in.VenueID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		StartsAt:    in.StartsAt.UTC(),
		EndsAt:      in.EndsAt.UTC(),
		Capacity:    in.Capacity,
		TicketPrice: in.TicketPrice,
		Status:      in.Status,
	}, nil
}

func (s *EventService) Create(ctx context.Context, plannerID uint64, in EventInput) (*model.Event, error) {
	e, err := in.event(plannerID)
	if err != nil {
		return nil, err
	}
	if err := s.events.Create(ctx, e); err != nil {
		return nil, fail(s.log, err, "create event")
	}
	return e, nil
}

func (s *EventService) Update(ctx context.Context, plannerID, id uint64, in EventInput) (*model.Event, error) {
	e, err := in.event(plannerID)
	if err != nil {
		return nil, err
	}
	e.ID = id
	if err := s.events.Update(ctx, e); err != nil {
		return nil, fail(s.log, err, "update event")
	}
	return e, nil
}

func (s *EventService) Delete(ctx context.Context, plannerID, id uint64) error {
	if err := s.events.Delete(ctx, id, plannerID); err != nil {
		return fail(s.log, err, "delete event")
	}
	return nil
}

// Get returns a published event, or any event to its planner.
func (s *EventService) Get(ctx context.Context, viewerID, id uint64) (*model.Event, error) {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, fail(s.log, err, "get event")
	}
	if e.Status != model.EventPublished && e.PlannerID != viewerID {
		return nil, repository.ErrNotFound
	}
	return e, nil
}

// Published lists upcoming published events.
func (s *EventService) Published(ctx context.Context, q repository.DirectoryQuery) (*Page[*model.Event], error) {
	q.Normalize()
	items, total, err := s.events.ListPublished(ctx, q, s.now())
	if err != nil {
		return nil, fail(s.log, err, "list events")
	}
	return &Page[*model.Event]{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
}

func (s *EventService) ByPlanner(ctx context.Context, plannerID uint64) ([]*model.Event, error) {
	out, err := s.events.ListByPlanner(ctx, plannerID)
	if err != nil {
		return nil, fail(s.log, err, "list planner events")
	}
	return out, nil
}

// Reserve books quantity tickets.  The event row is locked while the sold
// count is read and the ticket inserted, so concurrent reservations
// cannot oversell.
func (s *EventService) Reserve(ctx context.Context, userID, eventID uint64, quantity int) (*model.Ticket, error) {
	if quantity < 1 || quantity > MaxTicketsPerReservation {
		return nil, ErrInvalidQuantity
	}
	var t *model.Ticket
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		e, err := s.events.LockTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if e.Status != model.EventPublished {
			return ErrEventNotOnSale
		}
		sold, err := s.tickets.SoldTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		var remaining uint32
		if e.Capacity > sold {
			remaining = e.Capacity - sold
		}
		if uint32(quantity) > remaining {
			return &CapacityError{Remaining: remaining}
		}
		t = &model.Ticket{
			EventID:    eventID,
			UserID:     userID,
			Quantity:   uint32(quantity),
			TotalPrice: e.TicketPrice.Mul(decimal.NewFromInt(int64(quantity))),
			Code:       uuid.NewString(),
		}
		if err := s.tickets.CreateTx(ctx, tx, t); err != nil {
			return err
		}
		t.Event = e
		return nil
	})
	if err != nil {
		return nil, fail(s.log, err, "reserve tickets")
	}
	metrics.TicketsReserved.Add(float64(quantity))
	if _, err := s.notifier.Notify(ctx, userID, model.NotifyTicketReserved, "Tickets reserved",
		fmt.Sprintf("%d ticket(s) for %s, code %s", quantity, t.Event.Title, t.Code),
		fmt.Sprintf("/tickets/%d", t.ID)); err != nil {
		s.log.Warn().Err(err).Uint64("ticket_id", t.ID).Msg("ticket notification failed")
	}
	return t, nil
}

// MyTickets lists a user's tickets with their events.
func (s *EventService) MyTickets(ctx context.Context, userID uint64) ([]*model.Ticket, error) {
	out, err := s.tickets.ListByUser(ctx, userID)
	if err != nil {
		return nil, fail(s.log, err, "list my tickets")
	}
	return out, nil
}

func (s *EventService) CancelTicket(ctx context.Context, userID, id uint64) error {
	if err := s.tickets.Cancel(ctx, id, userID); err != nil {
		return fail(s.log, err, "cancel ticket")
	}
	return nil
}

// EventTickets lists the tickets of an event to its planner.
func (s *EventService) EventTickets(ctx context.Context, plannerID, eventID uint64) ([]*model.Ticket, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, fail(s.log, err, "get event")
	}
	if e.PlannerID != plannerID {
		return nil, repository.ErrForbidden
	}
	out, err := s.tickets.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fail(s.log, err, "list event tickets")
	}
	return out, nil
}

// SendReminders notifies ticket holders of published events starting
// within window, once per event.  It returns the number of events
// handled.
func (s *EventService) SendReminders(ctx context.Context, window time.Duration) (int, error) {
	now := s.now()
	due, err := s.events.DueForReminder(ctx, now, now.Add(window))
	if err != nil {
		return 0, fail(s.log, err, "due reminders")
	}
	done := 0
	for _, e := range due {
		holders, err := s.tickets.HolderIDs(ctx, e.ID)
		if err != nil {
			s.log.Error().Err(err).Uint64("event_id", e.ID).Msg("load ticket holders")
			continue
		}
		for _, uid := range holders {
			if _, err := s.notifier.Notify(ctx, uid, model.NotifyEventReminder, "Upcoming: "+e.Title,
				"Starts at "+e.StartsAt.Format(time.RFC1123), fmt.Sprintf("/events/%d", e.ID)); err != nil {
				s.log.Warn().Err(err).Uint64("event_id", e.ID).Uint64("user_id", uid).Msg("reminder failed")
			}
		}
		if err := s.events.MarkReminded(ctx, e.ID, now); err != nil {
			s.log.Error().Err(err).Uint64("event_id", e.ID).Msg("mark reminded")
			continue
		}
		done++
	}
	return done, nil
}
