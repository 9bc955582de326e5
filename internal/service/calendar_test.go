package service

import (
	"context"
	"strings"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-platform/internal/model"
	"github.com/iliyamo/event-platform/internal/repository"
)

func newCalendar() (*CalendarService, *fakeBookings, *fakeBlocks) {
	bookings := &fakeBookings{owner: 9, byID: map[uint64]*model.Booking{}}
	blocks := &fakeBlocks{}
	svc := NewCalendarService(bookings, blocks, nopLog)
	svc.now = func() time.Time { return t0 }
	return svc, bookings, blocks
}

func TestCalendar_RangeDefaultsAndLimits(t *testing.T) {
	svc, _, _ := newCalendar()
	from, to, err := svc.Range(time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, t0, from)
	assert.Equal(t, t0.Add(30*24*time.Hour), to)

	_, _, err = svc.Range(t0, t0.Add(367*24*time.Hour))
	assert.ErrorIs(t, err, ErrRangeTooLarge)
	_, _, err = svc.Range(t0, t0)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestCalendar_FarWindowRefused(t *testing.T) {
	svc, bookings, _ := newCalendar()
	far := t0.AddDate(20, 0, 0)

	_, _, err := svc.Range(far, time.Time{})
	assert.ErrorIs(t, err, ErrTooFarAhead)
	_, err = svc.Entries(context.Background(), model.KindVenue, 5, far, far.Add(time.Hour))
	assert.ErrorIs(t, err, ErrTooFarAhead)
	assert.Zero(t, bookings.calls)

	_, _, err = svc.Range(t0.AddDate(1, 0, 0), time.Time{})
	assert.NoError(t, err)
}

func TestCalendar_EntriesMergeBookingsAndBlocks(t *testing.T) {
	svc, bookings, blocks := newCalendar()
	bookings.existing = []*model.Booking{
		{ID: 1, StartsAt: t0.Add(48 * time.Hour), EndsAt: t0.Add(50 * time.Hour), Status: model.BookingConfirmed},
		{ID: 2, StartsAt: t0.Add(time.Hour), EndsAt: t0.Add(2 * time.Hour), Status: model.BookingCancelled},
	}
	blocks.blocks = []*model.AvailabilityBlock{
		{ID: 3, StartsAt: t0, EndsAt: t0.Add(time.Hour), RRule: "FREQ=DAILY;COUNT=3", Note: "cleaning"},
	}
	entries, err := svc.Entries(context.Background(), model.KindVenue, 5, t0, t0.Add(72*time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, "block-3-1@event-platform", entries[0].UID())
	assert.Equal(t, "block-3-3@event-platform", entries[2].UID())
	assert.Equal(t, "booking-1@event-platform", entries[3].UID())
}

func TestCalendar_ICS(t *testing.T) {
	svc, bookings, _ := newCalendar()
	bookings.existing = []*model.Booking{{ID: 1, StartsAt: t0.Add(time.Hour), EndsAt: t0.Add(2 * time.Hour), Status: model.BookingPending}}
	out, err := svc.ICS(context.Background(), model.KindSupplier, 5, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.Contains(t, out, "UID:booking-1@event-platform")
}

func TestCalendar_BlockOwnershipAndRule(t *testing.T) {
	svc, _, blocks := newCalendar()
	ctx := context.Background()
	in := BlockInput{StartsAt: t0, EndsAt: t0.Add(time.Hour), RRule: "RRULE:FREQ=WEEKLY;BYDAY=MO"}

	_, err := svc.CreateBlock(ctx, 8, model.KindVenue, 5, in)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	b, err := svc.CreateBlock(ctx, 9, model.KindVenue, 5, in)
	require.NoError(t, err)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO", b.RRule)
	assert.Len(t, blocks.blocks, 1)

	_, err = svc.CreateBlock(ctx, 9, model.KindVenue, 5, BlockInput{StartsAt: t0, EndsAt: t0.Add(time.Hour), RRule: "FREQ=SOMETIMES"})
	var verr validation.Errors
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr, "rrule")

	_, err = svc.CreateBlock(ctx, 9, model.KindVenue, 5, BlockInput{StartsAt: t0, EndsAt: t0.Add(time.Minute), RRule: "FREQ=MINUTELY"})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr, "rrule")
	assert.Len(t, blocks.blocks, 1)

	assert.ErrorIs(t, svc.DeleteBlock(ctx, 8, b.ID), repository.ErrForbidden)
	require.NoError(t, svc.DeleteBlock(ctx, 9, b.ID))
	assert.Empty(t, blocks.blocks)
}
