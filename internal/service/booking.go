package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-platform/internal/calendar"
	"github.com/iliyamo/event-platform/internal/metrics"
	"github.com/iliyamo/event-platform/internal/model"
	"github.com/iliyamo/event-platform/internal/queue"
	"github.com/iliyamo/event-platform/internal/repository"
)

// BookingStore is the bookings / supplier_bookings persistence.
type BookingStore interface {
	LockResourceTx(ctx context.Context, tx *sql.Tx, kind model.ResourceKind, id uint64) (uint64, error)
	ResourceOwner(ctx context.Context, kind model.ResourceKind, id uint64) (uint64, error)
	FindOverlappingTx(ctx context.Context, tx *sql.Tx, kind model.ResourceKind, resourceID uint64, start, end time.Time) ([]*model.Booking, error)
	CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error
	GetByID(ctx context.Context, kind model.ResourceKind, id uint64) (*model.Booking, error)
	ListByUser(ctx context.Context, kind model.ResourceKind, userID uint64) ([]*model.Booking, error)
	ListByResource(ctx context.Context, kind model.ResourceKind, resourceID uint64) ([]*model.Booking, error)
	ListInRange(ctx context.Context, kind model.ResourceKind, resourceID uint64, from, to time.Time) ([]*model.Booking, error)
	UpdateStatus(ctx context.Context, kind model.ResourceKind, id uint64, from, to string) error
}

// BlockStore is the availability_blocks persistence.
type BlockStore interface {
	Create(ctx context.Context, b *model.AvailabilityBlock) error
	Get(ctx context.Context, id uint64) (*model.AvailabilityBlock, error)
	ListCandidates(ctx context.Context, kind model.ResourceKind, ownerID uint64, from, to time.Time) ([]*model.AvailabilityBlock, error)
	ListCandidatesTx(ctx context.Context, tx *sql.Tx, kind model.ResourceKind, ownerID uint64, from, to time.Time) ([]*model.AvailabilityBlock, error)
	ListByOwner(ctx context.Context, kind model.ResourceKind, ownerID uint64) ([]*model.AvailabilityBlock, error)
	Delete(ctx context.Context, id uint64) error
}

// BookingService creates venue and supplier bookings and moves them
// through their statuses.
type BookingService struct {
	db       TxBeginner
	bookings BookingStore
	blocks   BlockStore
	notifier Notifier
	pub      queue.Publisher
	log      zerolog.Logger
	now      func() time.Time
}

func NewBookingService(db TxBeginner, bookings BookingStore, blocks BlockStore, notifier Notifier, pub queue.Publisher, log zerolog.Logger) *BookingService {
	return &BookingService{
		db:       db,
		bookings: bookings,
		blocks:   blocks,
		notifier: notifier,
		pub:      pub,
		log:      log.With().Str("service", "bookings").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// BookingInput is a booking request.
type BookingInput struct {
	Kind       model.ResourceKind
	ResourceID uint64    `json:"resource_id"`
	EventID    *uint64   `json:"event_id"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	Notes      string    `json:"notes"`
}

func (in BookingInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ResourceID, validation.Required),
		validation.Field(&in.StartsAt, validation.Required),
		validation.Field(&in.EndsAt, validation.Required),
		validation.Field(&in.Notes, validation.Length(0, 2000)),
	)
}

// Create books a resource for [StartsAt, EndsAt).  The range and the
// two-year horizon are checked before anything touches the database; the
// overlap check and insert run in one transaction holding the resource
// row lock.
func (s *BookingService) Create(ctx context.Context, userID uint64, in BookingInput) (*model.Booking, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if !in.EndsAt.After(in.StartsAt) {
		return nil, ErrInvalidRange
	}
	if in.EndsAt.After(s.now().Add(maxHorizon)) {
		return nil, ErrTooFarAhead
	}
	b := &model.Booking{
		Kind:       in.Kind,
		ResourceID: in.ResourceID,
		UserID:     userID,
		EventID:    in.EventID,
		StartsAt:   in.StartsAt.UTC(),
		EndsAt:     in.EndsAt.UTC(),
		Notes:      strings.TrimSpace(in.Notes),
	}
	var owner uint64
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		if owner, err = s.bookings.LockResourceTx(ctx, tx, b.Kind, b.ResourceID); err != nil {
			return err
		}
		clashing, err := s.bookings.FindOverlappingTx(ctx, tx, b.Kind, b.ResourceID, b.StartsAt, b.EndsAt)
		if err != nil {
			return err
		}
		blocks, err := s.blocks.ListCandidatesTx(ctx, tx, b.Kind, b.ResourceID, b.StartsAt, b.EndsAt)
		if err != nil {
			return err
		}
		blocked, err := calendar.BlocksOverlap(ctx, blocks, b.StartsAt, b.EndsAt)
		if err != nil {
			return err
		}
		if len(clashing) > 0 || len(blocked) > 0 {
			return &ConflictError{Conflicts: calendar.Merge(clashing, blocked)}
		}
		return s.bookings.CreateTx(ctx, tx, b)
	})
	if err != nil {
		var ce *ConflictError
		if errors.As(err, &ce) {
			metrics.BookingConflicts.WithLabelValues(string(b.Kind)).Inc()
			return nil, err
		}
		return nil, fail(s.log, err, "create booking")
	}
	metrics.BookingsCreated.WithLabelValues(string(b.Kind)).Inc()

	s.notify(ctx, owner, model.NotifyBookingRequested, "New booking request",
		fmt.Sprintf("%s #%d requested for %s", b.Kind, b.ResourceID, b.StartsAt.Format(time.RFC3339)), b)
	s.publish(ctx, b, owner)
	return b, nil
}

// Get returns a booking visible to the requester or the resource owner.
func (s *BookingService) Get(ctx context.Context, userID uint64, kind model.ResourceKind, id uint64) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, kind, id)
	if err != nil {
		return nil, fail(s.log, err, "get booking")
	}
	if b.UserID == userID {
		return b, nil
	}
	if _, err := s.ownedResource(ctx, userID, kind, b.ResourceID); err != nil {
		return nil, err
	}
	return b, nil
}

// Mine lists the bookings a user made.
func (s *BookingService) Mine(ctx context.Context, userID uint64, kind model.ResourceKind) ([]*model.Booking, error) {
	out, err := s.bookings.ListByUser(ctx, kind, userID)
	if err != nil {
		return nil, fail(s.log, err, "list my bookings")
	}
	return out, nil
}

// ForResource lists the bookings of a resource; only its owner may.
func (s *BookingService) ForResource(ctx context.Context, ownerID uint64, kind model.ResourceKind, resourceID uint64) ([]*model.Booking, error) {
	if _, err := s.ownedResource(ctx, ownerID, kind, resourceID); err != nil {
		return nil, err
	}
	out, err := s.bookings.ListByResource(ctx, kind, resourceID)
	if err != nil {
		return nil, fail(s.log, err, "list resource bookings")
	}
	return out, nil
}

// Decide lets the resource owner confirm or decline a pending booking.
func (s *BookingService) Decide(ctx context.Context, ownerID uint64, kind model.ResourceKind, id uint64, status string) (*model.Booking, error) {
	if status != model.BookingConfirmed && status != model.BookingDeclined {
		return nil, ErrInvalidTransition
	}
	b, err := s.bookings.GetByID(ctx, kind, id)
	if err != nil {
		return nil, fail(s.log, err, "get booking")
	}
	if _, err := s.ownedResource(ctx, ownerID, kind, b.ResourceID); err != nil {
		return nil, err
	}
	if b.Status != model.BookingPending {
		return nil, ErrInvalidTransition
	}
	if err := s.transition(ctx, b, status); err != nil {
		return nil, err
	}
	s.notify(ctx, b.UserID, model.NotifyBookingUpdated, "Booking "+strings.ToLower(status),
		fmt.Sprintf("Your booking #%d is now %s", b.ID, status), b)
	s.publish(ctx, b, ownerID)
	return b, nil
}

// Cancel lets the requester withdraw a pending or confirmed booking.
func (s *BookingService) Cancel(ctx context.Context, userID uint64, kind model.ResourceKind, id uint64) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, kind, id)
	if err != nil {
		return nil, fail(s.log, err, "get booking")
	}
	if b.UserID != userID {
		return nil, repository.ErrForbidden
	}
	if b.Status != model.BookingPending && b.Status != model.BookingConfirmed {
		return nil, ErrInvalidTransition
	}
	if err := s.transition(ctx, b, model.BookingCancelled); err != nil {
		return nil, err
	}
	owner, err := s.bookings.ResourceOwner(ctx, kind, b.ResourceID)
	if err != nil {
		s.log.Warn().Err(err).Uint64("booking_id", b.ID).Msg("resolve owner for cancel notice")
		return b, nil
	}
	s.notify(ctx, owner, model.NotifyBookingUpdated, "Booking cancelled",
		fmt.Sprintf("Booking #%d was cancelled by the requester", b.ID), b)
	s.publish(ctx, b, owner)
	return b, nil
}

func (s *BookingService) transition(ctx context.Context, b *model.Booking, to string) error {
	if err := s.bookings.UpdateStatus(ctx, b.Kind, b.ID, b.Status, to); err != nil {
		return fail(s.log, err, "update booking status")
	}
	b.Status = to
	b.UpdatedAt = s.now()
	return nil
}

func (s *BookingService) ownedResource(ctx context.Context, userID uint64, kind model.ResourceKind, id uint64) (uint64, error) {
	owner, err := s.bookings.ResourceOwner(ctx, kind, id)
	if err != nil {
		return 0, fail(s.log, err, "resource owner")
	}
	if owner != userID {
		return 0, repository.ErrForbidden
	}
	return owner, nil
}

// notify and publish are side effects of a committed change; their
// failures are logged only.
func (s *BookingService) notify(ctx context.Context, userID uint64, typ, title, body string, b *model.Booking) {
	link := fmt.Sprintf("/bookings/%s/%d", b.Kind, b.ID)
	if _, err := s.notifier.Notify(ctx, userID, typ, title, body, link); err != nil {
		s.log.Warn().Err(err).Uint64("booking_id", b.ID).Msg("booking notification failed")
	}
}

func (s *BookingService) publish(ctx context.Context, b *model.Booking, owner uint64) {
	ev := queue.BookingChangedEvent{
		BookingID:  b.ID,
		Kind:       string(b.Kind),
		ResourceID: b.ResourceID,
		UserID:     b.UserID,
		OwnerID:    owner,
		Status:     b.Status,
		StartsAt:   b.StartsAt,
		EndsAt:     b.EndsAt,
		ChangedAt:  s.now(),
	}
	if err := s.pub.Publish(ctx, queue.BookingChanged, ev); err != nil {
		s.log.Warn().Err(err).Uint64("booking_id", b.ID).Msg("publish booking change")
	}
}
