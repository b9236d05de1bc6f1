package itinerary

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"voyageai/pkg/llm"
	"voyageai/pkg/model"
)

// Wire shapes use pointers so a missing field is told apart from a zero value.
type wireResult struct {
	Summary        *string              `json:"summary"`
	Accommodations *[]wireAccommodation `json:"accommodations"`
	Itinerary      *[]wireDay           `json:"itinerary"`
}

type wireAccommodation struct {
	Name        *string `json:"name"`
	Type        *string `json:"type"`
	Description *string `json:"description"`
	MapsLink    *string `json:"maps_link"`
}

type wireWeather struct {
	HighTemp *float64 `json:"high_temp"`
	LowTemp  *float64 `json:"low_temp"`
	Summary  *string  `json:"summary"`
}

type wireActivity struct {
	Period      *string `json:"period"`
	Time        *string `json:"time"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	MapsLink    *string `json:"maps_link"`
}

type wireDay struct {
	Day         *int            `json:"day"`
	Title       *string         `json:"title"`
	Weather     *wireWeather    `json:"weather"`
	ImagePrompt *string         `json:"image_prompt"`
	Morning     *[]wireActivity `json:"morning"`
	Afternoon   *[]wireActivity `json:"afternoon"`
	Evening     *[]wireActivity `json:"evening"`
	VibeTags    *[]string       `json:"vibe_tags"`
}

type wireMoreActivities struct {
	Activities *[]wireActivity `json:"activities"`
}

// ParseItineraryResponse decodes the text service output into a result.
// Every day starts with a pending image regardless of the payload.
func ParseItineraryResponse(raw string) (*model.ItineraryResult, error) {
	text := llm.CleanJSONBlock(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	var w wireResult
	if err := json.Unmarshal([]byte(text), &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var errs []error
	missing := func(path string) { errs = append(errs, fmt.Errorf("%s is missing", path)) }

	res := &model.ItineraryResult{}
	if w.Summary == nil {
		missing("summary")
	} else {
		res.Summary = *w.Summary
	}

	if w.Accommodations == nil {
		missing("accommodations")
	} else {
		res.Accommodations = make([]model.Accommodation, 0, len(*w.Accommodations))
		for i, a := range *w.Accommodations {
			acc, aerrs := a.validate(fmt.Sprintf("accommodations[%d]", i))
			errs = append(errs, aerrs...)
			res.Accommodations = append(res.Accommodations, acc)
		}
	}

	switch {
	case w.Itinerary == nil:
		missing("itinerary")
	case len(*w.Itinerary) == 0:
		errs = append(errs, errors.New("itinerary is empty"))
	default:
		seen := make(map[int]bool, len(*w.Itinerary))
		res.Itinerary = make([]model.ItineraryDay, 0, len(*w.Itinerary))
		for i, d := range *w.Itinerary {
			path := fmt.Sprintf("itinerary[%d]", i)
			day, derrs := d.validate(path)
			errs = append(errs, derrs...)
			if d.Day != nil {
				if seen[day.Day] {
					errs = append(errs, fmt.Errorf("%s.day %d is duplicated", path, day.Day))
				}
				seen[day.Day] = true
			}
			res.Itinerary = append(res.Itinerary, day)
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, errors.Join(errs...))
	}
	return res, nil
}

// ParseMoreActivities decodes an augmentation response. It accepts {"activities":[...]} or a bare array.
// A missing or empty list yields an empty slice.
func ParseMoreActivities(raw string) ([]model.PeriodActivity, error) {
	text := llm.CleanJSONBlock(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	var items []wireActivity
	if strings.HasPrefix(text, "[") {
		if err := json.Unmarshal([]byte(text), &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	} else {
		var w wireMoreActivities
		if err := json.Unmarshal([]byte(text), &w); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if w.Activities != nil {
			items = *w.Activities
		}
	}

	var errs []error
	out := make([]model.PeriodActivity, 0, len(items))
	for i, item := range items {
		path := fmt.Sprintf("activities[%d]", i)
		var period model.Period
		if item.Period == nil {
			errs = append(errs, fmt.Errorf("%s.period is missing", path))
		} else if p, err := model.ParsePeriod(*item.Period); err != nil {
			errs = append(errs, fmt.Errorf("%s.period: %w", path, err))
		} else {
			period = p
		}
		act, aerrs := item.validate(path)
		errs = append(errs, aerrs...)
		out = append(out, model.PeriodActivity{Period: period, Activity: act})
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, errors.Join(errs...))
	}
	return out, nil
}

// fieldChecker collects missing-field errors under a path prefix.
type fieldChecker struct {
	path string
	errs []error
}

func (c *fieldChecker) str(name string, v *string) string {
	if v == nil {
		c.errs = append(c.errs, fmt.Errorf("%s.%s is missing", c.path, name))
		return ""
	}
	return *v
}

func (c *fieldChecker) num(name string, v *float64) float64 {
	if v == nil {
		c.errs = append(c.errs, fmt.Errorf("%s.%s is missing", c.path, name))
		return 0
	}
	return *v
}

func optional(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func (a wireAccommodation) validate(path string) (model.Accommodation, []error) {
	c := fieldChecker{path: path}
	acc := model.Accommodation{
		Name:        c.str("name", a.Name),
		Type:        c.str("type", a.Type),
		Description: c.str("description", a.Description),
		MapsLink:    optional(a.MapsLink),
	}
	return acc, c.errs
}

func (a wireActivity) validate(path string) (model.Activity, []error) {
	c := fieldChecker{path: path}
	act := model.Activity{
		Time:        c.str("time", a.Time),
		Name:        c.str("name", a.Name),
		Description: c.str("description", a.Description),
		MapsLink:    optional(a.MapsLink),
	}
	return act, c.errs
}

func validateActivities(path string, list *[]wireActivity) ([]model.Activity, []error) {
	if list == nil {
		return nil, []error{fmt.Errorf("%s is missing", path)}
	}
	var errs []error
	out := make([]model.Activity, 0, len(*list))
	for i, a := range *list {
		act, aerrs := a.validate(fmt.Sprintf("%s[%d]", path, i))
		errs = append(errs, aerrs...)
		out = append(out, act)
	}
	return out, errs
}

func (d wireDay) validate(path string) (model.ItineraryDay, []error) {
	c := fieldChecker{path: path}
	day := model.ItineraryDay{
		Title:       c.str("title", d.Title),
		ImagePrompt: c.str("image_prompt", d.ImagePrompt),
		Image:       model.ImagePending(),
	}

	switch {
	case d.Day == nil:
		c.errs = append(c.errs, fmt.Errorf("%s.day is missing", path))
	case *d.Day < 1:
		c.errs = append(c.errs, fmt.Errorf("%s.day must be positive, got %d", path, *d.Day))
	default:
		day.Day = *d.Day
	}

	if d.Weather == nil {
		c.errs = append(c.errs, fmt.Errorf("%s.weather is missing", path))
	} else {
		wc := fieldChecker{path: path + ".weather"}
		day.Weather = model.Weather{
			HighTemp: wc.num("high_temp", d.Weather.HighTemp),
			LowTemp:  wc.num("low_temp", d.Weather.LowTemp),
			Summary:  wc.str("summary", d.Weather.Summary),
		}
		c.errs = append(c.errs, wc.errs...)
	}

	var errs []error
	day.Morning, errs = validateActivities(path+".morning", d.Morning)
	c.errs = append(c.errs, errs...)
	day.Afternoon, errs = validateActivities(path+".afternoon", d.Afternoon)
	c.errs = append(c.errs, errs...)
	day.Evening, errs = validateActivities(path+".evening", d.Evening)
	c.errs = append(c.errs, errs...)

	if d.VibeTags == nil {
		c.errs = append(c.errs, fmt.Errorf("%s.vibe_tags is missing", path))
	} else {
		day.VibeTags = append([]string{}, *d.VibeTags...)
	}

	return day, c.errs
}
