package calendar

import (
	"time"

	ical "github.com/arran4/golang-ical"
)

// BuildICS renders entries as a PUBLISH calendar with one VEVENT each.
func BuildICS(name string, entries []Entry, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//event-platform//calendar//EN")
	cal.SetName(name)
	cal.SetXWRCalName(name)

	for _, e := range entries {
		ev := cal.AddEvent(e.UID())
		ev.SetDtStampTime(now.UTC())
		ev.SetStartAt(e.Start.UTC())
		ev.SetEndAt(e.End.UTC())
		ev.SetSummary(e.Title)
		if e.Status != "" {
			ev.SetDescription("Status: " + e.Status)
		}
	}
	return cal.Serialize()
}
