package itinerary

import (
	"context"
	"log/slog"

	"voyageai/pkg/llm"
	"voyageai/pkg/logging"
	"voyageai/pkg/model"
)

// Augmentor asks the text service for more activities on a single day.
type Augmentor struct {
	text    llm.TextGenerator
	builder *PromptBuilder
}

func NewAugmentor(text llm.TextGenerator, builder *PromptBuilder) *Augmentor {
	return &Augmentor{text: text, builder: builder}
}

// AddMoreActivities returns new period-tagged activities for day. It never modifies day.
// The trip request supplies destination, date and constraints; interests steer the suggestions.
func (a *Augmentor) AddMoreActivities(ctx context.Context, req model.TripRequest, day model.ItineraryDay, interests []string) ([]model.PeriodActivity, error) {
	if !a.text.Configured() {
		return nil, llm.ErrMissingCredentials
	}

	prompt, err := a.builder.BuildMoreActivitiesPrompt(req, day, interests)
	if err != nil {
		return nil, err
	}

	raw, err := a.text.GenerateText(ctx, llm.IntentMoreActivities, prompt)
	if err != nil {
		return nil, err
	}

	logging.Trace(nil, "Itinerary: raw more-activities response", "day", day.Day, "body", raw)

	items, err := ParseMoreActivities(raw)
	if err != nil {
		return nil, err
	}
	slog.Debug("Itinerary: more activities parsed", "day", day.Day, "count", len(items))
	return items, nil
}

// MergeActivities appends each item to its period. Existing entries are never reordered, replaced or deduplicated.
func MergeActivities(day *model.ItineraryDay, items []model.PeriodActivity) {
	for _, it := range items {
		day.Append(it.Period, it.Activity)
	}
}
