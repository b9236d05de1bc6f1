package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"voyageai/pkg/model"
)

// ErrNoDates is returned when a calendar is requested for a trip without dates.
var ErrNoDates = errors.New("trip has no start date")

const (
	floatingTimeFormat = "20060102T150405"
	activityDuration   = 90 * time.Minute
)

var periodDefaults = map[model.Period]time.Duration{
	model.Morning:   9 * time.Hour,
	model.Afternoon: 14 * time.Hour,
	model.Evening:   19 * time.Hour,
}

var clockLayouts = []string{"3:04 PM", "3:04PM", "15:04", "3 PM", "3PM"}

// ICal renders one all-day event per day plus one event per activity.
// Day i (by position) falls on the start date plus i days. Activity times are floating local times.
func ICal(req model.TripRequest, result *model.ItineraryResult, stamp time.Time) (string, error) {
	if req.StartDate.IsZero() {
		return "", ErrNoDates
	}

	cal := ics.NewCalendarFor("VoyageAI")
	cal.SetMethod(ics.MethodPublish)
	cal.SetXWRCalName(fmt.Sprintf("Trip to %s", req.Destination))
	if result.Summary != "" {
		cal.SetXWRCalDesc(result.Summary)
	}

	base := uidBase(req)
	start := time.Date(req.StartDate.Year(), req.StartDate.Month(), req.StartDate.Day(), 0, 0, 0, 0, time.UTC)

	for i, day := range result.Itinerary {
		date := start.AddDate(0, 0, i)

		ev := cal.AddEvent(fmt.Sprintf("%s-day%d@voyageai", base, i+1))
		ev.SetDtStampTime(stamp)
		ev.SetAllDayStartAt(date)
		ev.SetAllDayEndAt(date.AddDate(0, 0, 1))
		ev.SetSummary(fmt.Sprintf("Day %d: %s", day.Day, day.Title))
		ev.SetDescription(dayDescription(day))
		ev.SetLocation(req.Destination)
		ev.SetTimeTransparency(ics.TransparencyTransparent)

		for _, p := range model.Periods {
			for j, a := range day.Activities(p) {
				at := date.Add(clockOffset(a.Time, p))

				aev := cal.AddEvent(fmt.Sprintf("%s-day%d-%s%d@voyageai", base, i+1, p, j+1))
				aev.SetDtStampTime(stamp)
				aev.SetProperty(ics.ComponentPropertyDtStart, at.Format(floatingTimeFormat))
				aev.SetProperty(ics.ComponentPropertyDtEnd, at.Add(activityDuration).Format(floatingTimeFormat))
				aev.SetSummary(a.Name)
				aev.SetDescription(a.Description)
				aev.SetLocation(fmt.Sprintf("%s, %s", a.Name, req.Destination))
				if a.MapsLink != "" {
					aev.SetURL(a.MapsLink)
				}
			}
		}
	}

	return cal.Serialize(), nil
}

// clockOffset parses a free-form time label; unparseable labels fall back to the period default.
func clockOffset(label string, p model.Period) time.Duration {
	s := strings.ToUpper(strings.TrimSpace(label))
	if i := strings.IndexAny(s, "-–"); i > 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.ReplaceAll(s, ".", "")
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
		}
	}
	return periodDefaults[p]
}

func dayDescription(day model.ItineraryDay) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Weather: %s (%s°C / %s°C)", day.Weather.Summary, temp(day.Weather.LowTemp), temp(day.Weather.HighTemp))
	if len(day.VibeTags) > 0 {
		fmt.Fprintf(&b, "\nVibe: %s", strings.Join(day.VibeTags, " · "))
	}
	return b.String()
}

func uidBase(req model.TripRequest) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, req.Destination)
	return req.StartDate.String() + "-" + strings.Trim(slug, "-")
}
