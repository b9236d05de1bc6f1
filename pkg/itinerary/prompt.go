package itinerary

import (
	"fmt"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"voyageai/pkg/llm"
	"voyageai/pkg/llm/prompts"
	"voyageai/pkg/model"
)

// PromptBuilder renders trip requests into text-generation prompts.
type PromptBuilder struct {
	prompts     *prompts.Manager
	temperature float32
}

// NewPromptBuilder creates a builder. A temperature of 0 leaves the provider default.
func NewPromptBuilder(m *prompts.Manager, temperature float32) *PromptBuilder {
	return &PromptBuilder{prompts: m, temperature: temperature}
}

// Template data uses plain strings; text/template does not convert named string types.
type constraintData struct {
	Diet          string
	Accessibility string
}

type itineraryData struct {
	constraintData
	Destination   string
	StartDate     string
	EndDate       string
	Days          int
	TripType      string
	Budget        string
	Pace          string
	Accommodation string
	Interests     []string
}

type moreActivitiesData struct {
	constraintData
	Day         int
	Title       string
	Destination string
	Date        string
	Existing    []string
	TripType    string
	Pace        string
	Interests   []string
}

// BuildPrompt renders the itinerary prompt. The request must already be validated.
func (b *PromptBuilder) BuildPrompt(req model.TripRequest) (llm.Prompt, error) {
	data := itineraryData{
		constraintData: constraintsOf(req),
		Destination:    req.Destination,
		StartDate:      req.StartDate.String(),
		EndDate:        req.EndDate.String(),
		Days:           req.Days(),
		TripType:       string(req.TripType),
		Budget:         string(req.BudgetLevel),
		Pace:           string(req.Pace),
		Accommodation:  string(req.AccommodationType),
		Interests:      req.Interests,
	}
	text, err := b.prompts.Render(prompts.Itinerary, data)
	if err != nil {
		return llm.Prompt{}, fmt.Errorf("render itinerary prompt: %w", err)
	}
	return llm.Prompt{Text: text, UseSearch: true, Temperature: b.temperature}, nil
}

// BuildMoreActivitiesPrompt renders the prompt asking for extra activities on one day.
func (b *PromptBuilder) BuildMoreActivitiesPrompt(req model.TripRequest, day model.ItineraryDay, interests []string) (llm.Prompt, error) {
	var existing []string
	for _, p := range model.Periods {
		for _, a := range day.Activities(p) {
			existing = append(existing, a.Name)
		}
	}
	data := moreActivitiesData{
		constraintData: constraintsOf(req),
		Day:            day.Day,
		Title:          day.Title,
		Destination:    req.Destination,
		Date:           DayDate(req, day.Day),
		Existing:       existing,
		TripType:       string(req.TripType),
		Pace:           string(req.Pace),
		Interests:      interests,
	}
	text, err := b.prompts.Render(prompts.MoreActivities, data)
	if err != nil {
		return llm.Prompt{}, fmt.Errorf("render more activities prompt: %w", err)
	}
	return llm.Prompt{Text: text, UseSearch: true, Temperature: b.temperature}, nil
}

// DayDate returns the calendar date of day n (1-based) of the trip, or "" when unknown.
func DayDate(req model.TripRequest, n int) string {
	if req.StartDate.IsZero() || n < 1 {
		return ""
	}
	return req.StartDate.AddDate(0, 0, n-1).Format(openapi_types.DateFormat)
}

func constraintsOf(req model.TripRequest) constraintData {
	return constraintData{
		Diet:          string(req.DietaryPreference),
		Accessibility: string(req.AccessibilityNeeds),
	}
}
