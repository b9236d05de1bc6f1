package export

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voyageai/pkg/llm/imageutil"
	"voyageai/pkg/model"
)

func lisbonRequest() model.TripRequest {
	return model.TripRequest{
		Destination: "Lisbon, Portugal",
		StartDate:   openapi_types.Date{Time: time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)},
		EndDate:     openapi_types.Date{Time: time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC)},
		TripType:    model.TripFoodie,
		Pace:        model.PaceBalanced,
	}
}

func lisbonResult(t *testing.T) *model.ItineraryResult {
	return &model.ItineraryResult{
		Summary: "Two days of tiles, trams and pastéis.",
		Accommodations: []model.Accommodation{
			{Name: "Casa do Príncipe", Type: "boutique", Description: "Quiet rooms near the garden."},
		},
		Itinerary: []model.ItineraryDay{
			{
				Day:     1,
				Title:   "Alfama wanderings",
				Weather: model.Weather{HighTemp: 24.5, LowTemp: 15, Summary: "Sunny"},
				Morning: []model.Activity{
					{Time: "9:30 AM", Name: "Tram 28", Description: "Ride through the old town.", MapsLink: "https://maps.example/tram28"},
				},
				Afternoon: []model.Activity{
					{Time: "afternoon-ish", Name: "Miradouro", Description: "Viewpoint."},
				},
				Evening:  []model.Activity{{Time: "20:00", Name: "Fado dinner", Description: "Live music."}},
				VibeTags: []string{"historic", "musical"},
				Image:    model.ImageReady(imageutil.EncodeDataURI("image/png", tinyPNG(t))),
			},
			{
				Day:      2,
				Title:    "Belém",
				Weather:  model.Weather{HighTemp: 22, LowTemp: 14, Summary: "Breezy"},
				Morning:  []model.Activity{{Time: "10 AM", Name: "Jerónimos Monastery", Description: "Manueline cloisters."}},
				VibeTags: []string{"maritime"},
				Image:    model.ImageFailed(),
			},
		},
	}
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for x := 0; x < 8; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestText(t *testing.T) {
	out := Text(lisbonResult(t))

	assert.True(t, strings.HasPrefix(out, "Your AI-Generated Travel Itinerary\n"))
	assert.Contains(t, out, "Trip Summary:\nTwo days of tiles, trams and pastéis.")
	assert.Contains(t, out, "Accommodation Options:\n- Casa do Príncipe (boutique): Quiet rooms near the garden.")
	assert.Contains(t, out, "Day 1: Alfama wanderings\nWeather: Sunny (15°C / 24.5°C)")
	assert.Contains(t, out, "Morning:\n- 9:30 AM - Tram 28: Ride through the old town.")
	assert.Contains(t, out, "Vibe: historic · musical")
	assert.NotContains(t, out, "data:image")

	// Day 2 has no afternoon or evening entries.
	day2 := out[strings.Index(out, "Day 2"):]
	assert.NotContains(t, day2, "Afternoon:")
	assert.NotContains(t, day2, "Evening:")

	assert.Less(t, strings.Index(out, "Day 1"), strings.Index(out, "Day 2"))
}

func TestText_NoAccommodations(t *testing.T) {
	res := lisbonResult(t)
	res.Accommodations = nil
	assert.NotContains(t, Text(res), "Accommodation Options:")
}

func TestICal(t *testing.T) {
	stamp := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	out, err := ICal(lisbonRequest(), lisbonResult(t), stamp)
	require.NoError(t, err)

	cal, err := ics.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)

	events := cal.Events()
	// Two day events plus four activities.
	require.Len(t, events, 6)

	byID := make(map[string]*ics.VEvent)
	for _, ev := range events {
		byID[ev.Id()] = ev
	}

	day1 := byID["2026-05-10-lisbon--portugal-day1@voyageai"]
	require.NotNil(t, day1)
	assert.Equal(t, "20260510", day1.GetProperty(ics.ComponentPropertyDtStart).Value)
	assert.Equal(t, "Day 1: Alfama wanderings", day1.GetProperty(ics.ComponentPropertySummary).Value)

	day2 := byID["2026-05-10-lisbon--portugal-day2@voyageai"]
	require.NotNil(t, day2)
	assert.Equal(t, "20260511", day2.GetProperty(ics.ComponentPropertyDtStart).Value)

	tram := byID["2026-05-10-lisbon--portugal-day1-morning1@voyageai"]
	require.NotNil(t, tram)
	assert.Equal(t, "20260510T093000", tram.GetProperty(ics.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20260510T110000", tram.GetProperty(ics.ComponentPropertyDtEnd).Value)
	assert.Equal(t, "https://maps.example/tram28", tram.GetProperty(ics.ComponentPropertyUrl).Value)

	view := byID["2026-05-10-lisbon--portugal-day1-afternoon1@voyageai"]
	require.NotNil(t, view)
	assert.Equal(t, "20260510T140000", view.GetProperty(ics.ComponentPropertyDtStart).Value)
	assert.Nil(t, view.GetProperty(ics.ComponentPropertyUrl))
}

func TestICal_NoStartDate(t *testing.T) {
	req := lisbonRequest()
	req.StartDate = openapi_types.Date{}
	_, err := ICal(req, lisbonResult(t), time.Now())
	assert.ErrorIs(t, err, ErrNoDates)
}

func TestClockOffset(t *testing.T) {
	tests := []struct {
		label  string
		period model.Period
		want   time.Duration
	}{
		{"9:00 AM", model.Morning, 9 * time.Hour},
		{"9:15am", model.Morning, 9*time.Hour + 15*time.Minute},
		{"2:30 p.m.", model.Afternoon, 14*time.Hour + 30*time.Minute},
		{"18:45", model.Evening, 18*time.Hour + 45*time.Minute},
		{"7 PM", model.Evening, 19 * time.Hour},
		{"10:00 AM - 12:00 PM", model.Morning, 10 * time.Hour},
		{"Late afternoon", model.Afternoon, 14 * time.Hour},
		{"", model.Evening, 19 * time.Hour},
		{"whenever", model.Morning, 9 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, clockOffset(tt.label, tt.period))
		})
	}
}

func TestPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PDF(&buf, lisbonRequest(), lisbonResult(t)))

	out := buf.Bytes()
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	// The ready day image is embedded as an XObject.
	assert.Contains(t, string(out), "/Subtype /Image")
}

func TestPDF_BrokenImageIsSkipped(t *testing.T) {
	res := lisbonResult(t)
	res.Itinerary[0].Image = model.ImageReady(imageutil.EncodeDataURI("image/png", []byte("not a png")))

	var buf bytes.Buffer
	require.NoError(t, PDF(&buf, lisbonRequest(), res))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.NotContains(t, buf.String(), "/Subtype /Image")
}
