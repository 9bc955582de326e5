package calendar

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-platform/internal/model"
)

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // Monday

func TestExpandBlock_OneOff(t *testing.T) {
	b := &model.AvailabilityBlock{ID: 1, StartsAt: day.Add(9 * time.Hour), EndsAt: day.Add(12 * time.Hour)}

	got, capped, err := ExpandBlock(context.Background(), b, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.False(t, capped)
	require.Len(t, got, 1)
	assert.Equal(t, "Unavailable", got[0].Title)
	assert.Equal(t, "block-1@event-platform", got[0].UID())

	// touching the range end is not an overlap
	got, _, err = ExpandBlock(context.Background(), b, day.Add(12*time.Hour), day.Add(13*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExpandBlock_Weekly(t *testing.T) {
	b := &model.AvailabilityBlock{
		ID:       4,
		StartsAt: day.Add(18 * time.Hour),
		EndsAt:   day.Add(22 * time.Hour),
		Note:     "Maintenance",
		RRule:    "RRULE:FREQ=WEEKLY;COUNT=10",
	}
	from := day.Add(7 * 24 * time.Hour)
	got, capped, err := ExpandBlock(context.Background(), b, from, from.Add(14*24*time.Hour))
	require.NoError(t, err)
	assert.False(t, capped)
	require.Len(t, got, 2)
	assert.Equal(t, from.Add(18*time.Hour), got[0].Start)
	assert.Equal(t, from.Add(22*time.Hour), got[0].End)
	assert.Equal(t, "Maintenance", got[0].Title)
	assert.Equal(t, "block-4-2@event-platform", got[0].UID())
}

func TestExpandBlock_InstanceStartedBeforeRange(t *testing.T) {
	b := &model.AvailabilityBlock{ID: 2, StartsAt: day.Add(22 * time.Hour), EndsAt: day.Add(26 * time.Hour), RRule: "FREQ=DAILY"}
	got, _, err := ExpandBlock(context.Background(), b, day.Add(24*time.Hour), day.Add(25*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, day.Add(22*time.Hour), got[0].Start)
}

func TestExpandBlock_Capped(t *testing.T) {
	b := &model.AvailabilityBlock{ID: 3, StartsAt: day, EndsAt: day.Add(time.Minute), RRule: "FREQ=HOURLY"}
	got, capped, err := ExpandBlock(context.Background(), b, day, day.Add(100*24*time.Hour))
	require.NoError(t, err)
	assert.True(t, capped)
	assert.Len(t, got, MaxOccurrences)
}

func TestExpandBlock_BadRule(t *testing.T) {
	b := &model.AvailabilityBlock{ID: 3, StartsAt: day, EndsAt: day.Add(time.Hour), RRule: "FREQ=SOMETIMES"}
	_, _, err := ExpandBlock(context.Background(), b, day, day.Add(time.Hour))
	assert.Error(t, err)
}

func TestParseRule_RejectsSubHourly(t *testing.T) {
	for _, rule := range []string{"FREQ=MINUTELY", "RRULE:FREQ=SECONDLY;INTERVAL=30"} {
		_, err := ParseRule(rule, day)
		assert.ErrorIs(t, err, ErrRuleTooFrequent, rule)
	}
	_, err := ParseRule("FREQ=HOURLY;INTERVAL=2", day)
	assert.NoError(t, err)
}

func TestExpandBlock_FarWindowStopsAfterStepBudget(t *testing.T) {
	b := &model.AvailabilityBlock{ID: 6, StartsAt: day, EndsAt: day.Add(time.Minute), RRule: "FREQ=HOURLY"}
	from := day.AddDate(20, 0, 0)

	start := time.Now()
	got, capped, err := ExpandBlock(context.Background(), b, from, from.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, capped)
	assert.Empty(t, got)
	assert.Less(t, time.Since(start), time.Second)
}

func TestExpandBlock_NumbersFromRuleStart(t *testing.T) {
	b := &model.AvailabilityBlock{ID: 7, StartsAt: day, EndsAt: day.Add(time.Hour), RRule: "FREQ=DAILY"}
	from := day.AddDate(1, 0, 0)
	got, capped, err := ExpandBlock(context.Background(), b, from, from.Add(24*time.Hour))
	require.NoError(t, err)
	assert.False(t, capped)
	require.Len(t, got, 1)
	assert.Equal(t, 366, got[0].Occurrence)
}

func TestExpandBlock_HonoursContext(t *testing.T) {
	b := &model.AvailabilityBlock{ID: 8, StartsAt: day, EndsAt: day.Add(time.Minute), RRule: "FREQ=HOURLY"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	from := day.AddDate(1, 0, 0)
	_, _, err := ExpandBlock(ctx, b, from, from.Add(time.Hour))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBlocksOverlap(t *testing.T) {
	blocks := []*model.AvailabilityBlock{
		{ID: 1, StartsAt: day.Add(9 * time.Hour), EndsAt: day.Add(10 * time.Hour), RRule: "FREQ=WEEKLY"},
	}
	next := day.Add(7 * 24 * time.Hour)
	hits, err := BlocksOverlap(context.Background(), blocks, next.Add(9*time.Hour), next.Add(11*time.Hour))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 2, hits[0].Occurrence)

	hits, err = BlocksOverlap(context.Background(), blocks, next.Add(10*time.Hour), next.Add(11*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, hits)

	// too far from the rule start to tell whether the slot is free
	hourly := []*model.AvailabilityBlock{{ID: 2, StartsAt: day, EndsAt: day.Add(time.Minute), RRule: "FREQ=HOURLY"}}
	far := day.AddDate(5, 0, 0).Add(30 * time.Minute)
	_, err = BlocksOverlap(context.Background(), hourly, far, far.Add(10*time.Minute))
	assert.ErrorIs(t, err, ErrExpansionLimit)
}

func TestMergeSortsByStart(t *testing.T) {
	bookings := []*model.Booking{
		{ID: 9, StartsAt: day.Add(15 * time.Hour), EndsAt: day.Add(16 * time.Hour), Status: model.BookingConfirmed},
	}
	blocks := []Entry{{Type: EntryBlock, SourceID: 1, Start: day.Add(8 * time.Hour), End: day.Add(9 * time.Hour)}}

	got := Merge(bookings, blocks)
	require.Len(t, got, 2)
	assert.Equal(t, EntryBlock, got[0].Type)
	assert.Equal(t, EntryBooking, got[1].Type)
	assert.Equal(t, "booking-9@event-platform", got[1].UID())
}

func TestBuildICS(t *testing.T) {
	entries := []Entry{
		{Type: EntryBooking, SourceID: 9, Start: day.Add(15 * time.Hour), End: day.Add(16 * time.Hour), Title: "Booking #9", Status: "CONFIRMED"},
	}
	out := BuildICS("Venue 3", entries, day)

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.Contains(t, out, "METHOD:PUBLISH")
	assert.Contains(t, out, "UID:booking-9@event-platform")
	assert.Contains(t, out, "DTSTART:20260302T150000Z")
	assert.Contains(t, out, "SUMMARY:Booking #9")
	assert.Contains(t, out, "END:VEVENT")
}
