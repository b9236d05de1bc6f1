// Package export renders itineraries as plain text, iCalendar and PDF documents.
package export

import (
	"fmt"
	"strconv"
	"strings"

	"voyageai/pkg/model"
)

const rule = "-----------------------------------"

// Text renders the downloadable plain-text itinerary.
func Text(result *model.ItineraryResult) string {
	var b strings.Builder
	b.WriteString("Your AI-Generated Travel Itinerary\n===================================\n\n")
	fmt.Fprintf(&b, "Trip Summary:\n%s\n\n%s\n\n", result.Summary, rule)

	if len(result.Accommodations) > 0 {
		b.WriteString("Accommodation Options:\n")
		for _, acc := range result.Accommodations {
			fmt.Fprintf(&b, "- %s (%s): %s\n", acc.Name, acc.Type, acc.Description)
		}
		fmt.Fprintf(&b, "\n%s\n\n", rule)
	}

	for _, day := range result.Itinerary {
		fmt.Fprintf(&b, "Day %d: %s\n", day.Day, day.Title)
		fmt.Fprintf(&b, "Weather: %s (%s°C / %s°C)\n\n", day.Weather.Summary, temp(day.Weather.LowTemp), temp(day.Weather.HighTemp))

		for _, p := range model.Periods {
			acts := day.Activities(p)
			if len(acts) == 0 {
				continue
			}
			fmt.Fprintf(&b, "%s:\n", model.Label(string(p)))
			for _, a := range acts {
				fmt.Fprintf(&b, "- %s - %s: %s\n", a.Time, a.Name, a.Description)
			}
			b.WriteString("\n")
		}

		fmt.Fprintf(&b, "Vibe: %s\n", strings.Join(day.VibeTags, " · "))
		fmt.Fprintf(&b, "%s\n\n", rule)
	}
	return b.String()
}

func temp(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
