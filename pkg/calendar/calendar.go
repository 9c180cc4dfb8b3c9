// Package calendar renders the catalog as an iCalendar feed so events can be
// subscribed to from mail clients.
package calendar

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/yair/conference-portal/pkg/domain"
)

const (
	productID = "-//conference-portal//events//EN"
	feedName  = "Conference Portal"
	dateOnly  = "2006-01-02"
)

// Build returns one all-day VEVENT per event with an ISO start date. Events
// whose dates were kept as free text are left out.
func Build(events []domain.Event, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(feedName)

	for _, e := range events {
		start, err := time.Parse(dateOnly, strings.TrimSpace(e.StartDate))
		if err != nil {
			continue
		}
		end := start.AddDate(0, 0, 1)
		if last, err := time.Parse(dateOnly, strings.TrimSpace(e.EndDate)); err == nil && !last.Before(start) {
			end = last.AddDate(0, 0, 1)
		}

		ev := cal.AddEvent(e.ID)
		ev.SetDtStampTime(now.UTC())
		ev.SetAllDayStartAt(start)
		ev.SetAllDayEndAt(end)
		ev.SetSummary(e.EventName)
		if e.LocationRaw != "" {
			ev.SetLocation(e.LocationRaw)
		}
		if desc := description(e); desc != "" {
			ev.SetDescription(desc)
		}
		if e.RegistrationURL != "" && e.RegistrationURL != domain.PlaceholderRegistration {
			ev.SetProperty(ical.ComponentPropertyUrl, e.RegistrationURL)
		}
		if c, ok := e.Coordinates(); ok {
			ev.SetProperty(ical.ComponentPropertyGeo, fmt.Sprintf("%.6f;%.6f", c.Lat, c.Lng))
		}
	}

	return cal.Serialize()
}

func description(e domain.Event) string {
	var lines []string
	for _, f := range []struct{ label, value string }{
		{"Topic", e.Topic},
		{"Organizer", e.Organizer},
		{"Price", e.Price},
		{"Quarter", e.Quarter},
	} {
		if f.value != "" {
			lines = append(lines, f.label+": "+f.value)
		}
	}
	return strings.Join(lines, "\n")
}
