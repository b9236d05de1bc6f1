package itinerary

import (
	"testing"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voyageai/pkg/model"
)

func date(s string) openapi_types.Date {
	t, err := time.Parse(openapi_types.DateFormat, s)
	if err != nil {
		panic(err)
	}
	return openapi_types.Date{Time: t}
}

func kyotoRequest() model.TripRequest {
	return model.TripRequest{
		Destination:        "Kyoto",
		StartDate:          date("2025-04-01"),
		EndDate:            date("2025-04-03"),
		TripType:           model.TripCultural,
		BudgetLevel:        model.BudgetHigh,
		Pace:               model.PaceBalanced,
		Interests:          []string{"Temples", "Tea ceremonies"},
		DietaryPreference:  model.DietVegetarian,
		AccommodationType:  model.StayBoutique,
		AccessibilityNeeds: model.AccessLimitedWalking,
	}
}

func TestBuildPrompt_EmbedsEveryField(t *testing.T) {
	b := newBuilder(t)
	req := kyotoRequest()

	p, err := b.BuildPrompt(req)
	require.NoError(t, err)

	assert.True(t, p.UseSearch)
	assert.InDelta(t, 0.7, p.Temperature, 0.0001)

	for _, want := range []string{
		"Kyoto",
		"2025-04-01",
		"2025-04-03",
		"(3 days)",
		"Cultural (`cultural`)",
		"High (`high`)",
		"Balanced (`balanced`)",
		"Temples, Tea ceremonies",
		"Vegetarian (`vegetarian`)",
		"Boutique Hotel (`boutique`)",
		"Limited Walking (`limited-walking`)",
	} {
		assert.Contains(t, p.Text, want)
	}
}

func TestBuildPrompt_KeepsRawValues(t *testing.T) {
	req := kyotoRequest()
	req.DietaryPreference = model.DietVegan
	req.AccommodationType = model.StayAirbnb
	req.AccessibilityNeeds = model.AccessWheelchair

	p, err := newBuilder(t).BuildPrompt(req)
	require.NoError(t, err)

	for _, want := range []string{
		"`" + string(req.TripType) + "`",
		"`" + string(req.BudgetLevel) + "`",
		"`" + string(req.Pace) + "`",
		"`vegan-friendly`",
		"`airbnb`",
		"`wheelchair-accessible`",
	} {
		assert.Contains(t, p.Text, want)
	}

	more, err := newBuilder(t).BuildMoreActivitiesPrompt(req, model.ItineraryDay{Day: 1, Title: "Arrival"}, nil)
	require.NoError(t, err)
	for _, want := range []string{"`cultural`", "`balanced`", "`vegan-friendly`", "`wheelchair-accessible`"} {
		assert.Contains(t, more.Text, want)
	}
}

func TestBuildPrompt_ResponseContract(t *testing.T) {
	p, err := newBuilder(t).BuildPrompt(kyotoRequest())
	require.NoError(t, err)

	for _, want := range []string{
		`"summary"`, `"accommodations"`, `"itinerary"`,
		"3-4", "high_temp", "low_temp", "image_prompt", "vibe_tags",
		"morning, afternoon, evening", "maps_link",
	} {
		assert.Contains(t, p.Text, want)
	}
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	b := newBuilder(t)
	p1, err := b.BuildPrompt(kyotoRequest())
	require.NoError(t, err)
	p2, err := b.BuildPrompt(kyotoRequest())
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestBuildPrompt_NoInterests(t *testing.T) {
	req := kyotoRequest()
	req.Interests = nil

	p, err := newBuilder(t).BuildPrompt(req)
	require.NoError(t, err)
	assert.Contains(t, p.Text, "general sightseeing")
}

func TestBuildMoreActivitiesPrompt(t *testing.T) {
	day := model.ItineraryDay{
		Day:     2,
		Title:   "Bamboo and Tea",
		Morning: []model.Activity{{Time: "9:00 AM", Name: "Arashiyama Bamboo Grove"}},
		Evening: []model.Activity{{Time: "6:30 PM", Name: "Gion"}},
	}

	p, err := newBuilder(t).BuildMoreActivitiesPrompt(kyotoRequest(), day, []string{"Nightlife"})
	require.NoError(t, err)

	for _, want := range []string{"day 2", "Bamboo and Tea", "Kyoto", "2025-04-02", "- Arashiyama Bamboo Grove", "- Gion", "Nightlife", `"activities"`} {
		assert.Contains(t, p.Text, want)
	}
	assert.NotContains(t, p.Text, "Temples")
}

func TestDayDate(t *testing.T) {
	req := kyotoRequest()
	assert.Equal(t, "2025-04-01", DayDate(req, 1))
	assert.Equal(t, "2025-04-03", DayDate(req, 3))
	assert.Equal(t, "", DayDate(req, 0))
	assert.Equal(t, "", DayDate(model.TripRequest{}, 1))
}
