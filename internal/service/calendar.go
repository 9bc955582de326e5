package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-platform/internal/calendar"
	"github.com/iliyamo/event-platform/internal/model"
	"github.com/iliyamo/event-platform/internal/repository"
)

const (
	defaultCalendarSpan = 30 * 24 * time.Hour
	maxCalendarSpan     = 366 * 24 * time.Hour
	// bookings and calendar windows end at most this far from now
	maxHorizon = 2 * 365 * 24 * time.Hour
)

// CalendarService builds resource calendars and manages availability
// blocks.
type CalendarService struct {
	bookings BookingStore
	blocks   BlockStore
	log      zerolog.Logger
	now      func() time.Time
}

func NewCalendarService(bookings BookingStore, blocks BlockStore, log zerolog.Logger) *CalendarService {
	return &CalendarService{
		bookings: bookings,
		blocks:   blocks,
		log:      log.With().Str("service", "calendar").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Range resolves an optional [from, to) window: missing bounds default to
// now and from+30 days.  Windows ending past the booking horizon are
// refused.
func (s *CalendarService) Range(from, to time.Time) (time.Time, time.Time, error) {
	now := s.now()
	if from.IsZero() {
		from = now
	}
	if to.IsZero() {
		to = from.Add(defaultCalendarSpan)
	}
	if !to.After(from) {
		return from, to, ErrInvalidRange
	}
	if to.Sub(from) > maxCalendarSpan {
		return from, to, ErrRangeTooLarge
	}
	if to.After(now.Add(maxHorizon)) {
		return from, to, ErrTooFarAhead
	}
	return from.UTC(), to.UTC(), nil
}

// Entries returns the live bookings and block instances of a resource in
// [from, to), ordered by start.
func (s *CalendarService) Entries(ctx context.Context, kind model.ResourceKind, id uint64, from, to time.Time) ([]calendar.Entry, error) {
	from, to, err := s.Range(from, to)
	if err != nil {
		return nil, err
	}
	if _, err := s.bookings.ResourceOwner(ctx, kind, id); err != nil {
		return nil, fail(s.log, err, "resource owner")
	}
	bookings, err := s.bookings.ListInRange(ctx, kind, id, from, to)
	if err != nil {
		return nil, fail(s.log, err, "list bookings in range")
	}
	blocks, err := s.blocks.ListCandidates(ctx, kind, id, from, to)
	if err != nil {
		return nil, fail(s.log, err, "list blocks")
	}
	var expanded []calendar.Entry
	for _, b := range blocks {
		entries, capped, err := calendar.ExpandBlock(ctx, b, from, to)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			// a stored rule that no longer parses should not hide the rest
			s.log.Warn().Err(err).Uint64("block_id", b.ID).Msg("skip block")
			continue
		}
		if capped {
			s.log.Debug().Uint64("block_id", b.ID).Msg("block expansion capped")
		}
		expanded = append(expanded, entries...)
	}
	return calendar.Merge(bookings, expanded), nil
}

// ICS renders the same entries as an iCalendar document.
func (s *CalendarService) ICS(ctx context.Context, kind model.ResourceKind, id uint64, from, to time.Time) (string, error) {
	entries, err := s.Entries(ctx, kind, id, from, to)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%d", kind, id)
	return calendar.BuildICS(name, entries, s.now()), nil
}

// BlockInput describes an availability block.
type BlockInput struct {
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	Note     string    `json:"note"`
	RRule    string    `json:"rrule"`
}

func (in BlockInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.StartsAt, validation.Required),
		validation.Field(&in.EndsAt, validation.Required),
		validation.Field(&in.Note, validation.Length(0, 255)),
		validation.Field(&in.RRule, validation.Length(0, 255), validation.By(func(v any) error {
			if r, _ := v.(string); r != "" {
				if _, err := calendar.ParseRule(r, in.StartsAt); err != nil {
					return err
				}
			}
			return nil
		})),
	)
}

// CreateBlock adds a block to a resource owned by ownerID.
func (s *CalendarService) CreateBlock(ctx context.Context, ownerID uint64, kind model.ResourceKind, id uint64, in BlockInput) (*model.AvailabilityBlock, error) {
	in.RRule = strings.TrimPrefix(strings.TrimSpace(in.RRule), "RRULE:")
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if !in.EndsAt.After(in.StartsAt) {
		return nil, ErrInvalidRange
	}
	if err := s.checkOwner(ctx, ownerID, kind, id); err != nil {
		return nil, err
	}
	b := &model.AvailabilityBlock{
		OwnerKind: kind,
		OwnerID:   id,
		StartsAt:  in.StartsAt.UTC(),
		EndsAt:    in.EndsAt.UTC(),
		Note:      strings.TrimSpace(in.Note),
		RRule:     in.RRule,
	}
	if err := s.blocks.Create(ctx, b); err != nil {
		return nil, fail(s.log, err, "create block")
	}
	return b, nil
}

// Blocks lists the stored (unexpanded) blocks of an owned resource.
func (s *CalendarService) Blocks(ctx context.Context, ownerID uint64, kind model.ResourceKind, id uint64) ([]*model.AvailabilityBlock, error) {
	if err := s.checkOwner(ctx, ownerID, kind, id); err != nil {
		return nil, err
	}
	out, err := s.blocks.ListByOwner(ctx, kind, id)
	if err != nil {
		return nil, fail(s.log, err, "list blocks")
	}
	return out, nil
}

// DeleteBlock removes a block of a resource owned by ownerID.
func (s *CalendarService) DeleteBlock(ctx context.Context, ownerID, blockID uint64) error {
	b, err := s.blocks.Get(ctx, blockID)
	if err != nil {
		return fail(s.log, err, "get block")
	}
	if err := s.checkOwner(ctx, ownerID, b.OwnerKind, b.OwnerID); err != nil {
		return err
	}
	if err := s.blocks.Delete(ctx, blockID); err != nil {
		return fail(s.log, err, "delete block")
	}
	return nil
}

func (s *CalendarService) checkOwner(ctx context.Context, userID uint64, kind model.ResourceKind, id uint64) error {
	owner, err := s.bookings.ResourceOwner(ctx, kind, id)
	if err != nil {
		return fail(s.log, err, "resource owner")
	}
	if owner != userID {
		return repository.ErrForbidden
	}
	return nil
}
