// Package calendar merges bookings and availability blocks into a
// resource calendar and renders it as iCalendar.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/iliyamo/event-platform/internal/model"
)

const (
	// MaxOccurrences caps the instances of one recurring block returned
	// for a single range.
	MaxOccurrences = 500
	// MaxSteps caps the rule instances walked from DTSTART, inside the
	// range or not.  Two years of an hourly rule fit.
	MaxSteps = 20000

	ctxCheckEvery = 1024
)

var (
	// ErrRuleTooFrequent rejects rules repeating more often than hourly.
	ErrRuleTooFrequent = errors.New("rrule repeats more often than hourly")
	// ErrExpansionLimit means a block could not be walked up to the end of
	// the range within MaxSteps, so absence of a clash is unknown.
	ErrExpansionLimit = errors.New("recurring block too long to check")
)

// Entry kinds.
const (
	EntryBooking = "booking"
	EntryBlock   = "block"
)

// Entry is one busy interval on a calendar.  Occurrence is the 1-based
// index of a recurring block instance and 0 otherwise.
type Entry struct {
	Type       string    `json:"type"`
	SourceID   uint64    `json:"source_id"`
	Occurrence int       `json:"occurrence,omitempty"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Title      string    `json:"title"`
	Status     string    `json:"status,omitempty"`
}

// UID returns the iCalendar UID of the entry.
func (e Entry) UID() string {
	if e.Occurrence > 0 {
		return fmt.Sprintf("%s-%d-%d@event-platform", e.Type, e.SourceID, e.Occurrence)
	}
	return fmt.Sprintf("%s-%d@event-platform", e.Type, e.SourceID)
}

// ParseRule parses an RRULE value.  A leading "RRULE:" is tolerated.
// MINUTELY and SECONDLY rules are refused.
func ParseRule(s string, dtstart time.Time) (*rrule.RRule, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "RRULE:")
	r, err := rrule.StrToRRule(s)
	if err != nil {
		return nil, fmt.Errorf("parse rrule: %w", err)
	}
	if r.OrigOptions.Freq > rrule.HOURLY {
		return nil, ErrRuleTooFrequent
	}
	r.DTStart(dtstart)
	return r, nil
}

// ExpandBlock returns the instances of b that intersect [from, to).
// Recurring blocks keep the duration of their first instance.  The rule is
// walked lazily from DTSTART and the walk ends at to, after MaxSteps
// instances or once MaxOccurrences entries are collected; the second
// result reports that the walk ended early.
func ExpandBlock(ctx context.Context, b *model.AvailabilityBlock, from, to time.Time) ([]Entry, bool, error) {
	title := b.Note
	if title == "" {
		title = "Unavailable"
	}
	if b.RRule == "" {
		if !overlaps(b.StartsAt, b.EndsAt, from, to) {
			return nil, false, nil
		}
		return []Entry{{Type: EntryBlock, SourceID: b.ID, Start: b.StartsAt, End: b.EndsAt, Title: title}}, false, nil
	}

	r, err := ParseRule(b.RRule, b.StartsAt)
	if err != nil {
		return nil, false, err
	}
	dur := b.EndsAt.Sub(b.StartsAt)

	out := []Entry{}
	next := r.Iterator()
	// numbering starts at DTSTART so it is stable across ranges
	for n := 1; ; n++ {
		s, ok := next()
		if !ok || !s.Before(to) {
			return out, false, nil
		}
		if n > MaxSteps {
			return out, true, nil
		}
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, false, err
			}
		}
		e := s.Add(dur)
		if !overlaps(s, e, from, to) {
			continue
		}
		if len(out) == MaxOccurrences {
			return out, true, nil
		}
		out = append(out, Entry{Type: EntryBlock, SourceID: b.ID, Occurrence: n, Start: s.UTC(), End: e.UTC(), Title: title})
	}
}

// BlocksOverlap reports the block instances intersecting [start, end).
// A block whose walk stops early without a hit yields ErrExpansionLimit.
func BlocksOverlap(ctx context.Context, blocks []*model.AvailabilityBlock, start, end time.Time) ([]Entry, error) {
	var hits []Entry
	for _, b := range blocks {
		entries, capped, err := ExpandBlock(ctx, b, start, end)
		if err != nil {
			return nil, err
		}
		if capped && len(entries) == 0 {
			return nil, fmt.Errorf("block %d: %w", b.ID, ErrExpansionLimit)
		}
		hits = append(hits, entries...)
	}
	return hits, nil
}

// Merge combines bookings and expanded blocks into one list ordered by
// start time.
func Merge(bookings []*model.Booking, blocks []Entry) []Entry {
	out := make([]Entry, 0, len(bookings)+len(blocks))
	for _, b := range bookings {
		out = append(out, Entry{
			Type:     EntryBooking,
			SourceID: b.ID,
			Start:    b.StartsAt,
			End:      b.EndsAt,
			Title:    "Booking #" + fmt.Sprint(b.ID),
			Status:   b.Status,
		})
	}
	out = append(out, blocks...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].End.Before(out[j].End)
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// overlaps is the half-open interval test: touching ranges do not overlap.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
