package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Weather is the forecast for one itinerary day, in Celsius.
// High below low is accepted as-is.
type Weather struct {
	HighTemp float64 `json:"high_temp"`
	LowTemp  float64 `json:"low_temp"`
	Summary  string  `json:"summary"`
}

// Activity is one scheduled entry. Time is a free-form label ("9:00 AM").
type Activity struct {
	Time        string `json:"time"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MapsLink    string `json:"maps_link,omitempty"`
}

// Accommodation is a suggested place to stay.
type Accommodation struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	MapsLink    string `json:"maps_link,omitempty"`
}

// Period is a part of the day that holds activities.
type Period string

const (
	Morning   Period = "morning"
	Afternoon Period = "afternoon"
	Evening   Period = "evening"
)

// Periods lists the parts of the day in narrative order.
var Periods = []Period{Morning, Afternoon, Evening}

// ParsePeriod accepts a period name in any case.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	for _, p := range Periods {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// PeriodActivity is an activity tagged with the period it belongs to.
type PeriodActivity struct {
	Period   Period   `json:"period"`
	Activity Activity `json:"activity"`
}

// ImageStatus is the lifecycle position of a day's generated image.
type ImageStatus string

const (
	ImageStatusPending ImageStatus = "pending"
	ImageStatusFailed  ImageStatus = "failed"
	ImageStatusReady   ImageStatus = "ready"
)

// ImageState is Pending until the day's image call settles, then Failed or Ready(URI).
// The zero value is Pending.
type ImageState struct {
	status ImageStatus
	uri    string
}

func ImagePending() ImageState { return ImageState{status: ImageStatusPending} }
func ImageFailed() ImageState  { return ImageState{status: ImageStatusFailed} }

// ImageReady returns a settled state holding a self-contained image URI.
func ImageReady(uri string) ImageState {
	return ImageState{status: ImageStatusReady, uri: uri}
}

// Status returns the variant; the zero value reports Pending.
func (s ImageState) Status() ImageStatus {
	if s.status == "" {
		return ImageStatusPending
	}
	return s.status
}

func (s ImageState) IsPending() bool { return s.Status() == ImageStatusPending }
func (s ImageState) IsFailed() bool  { return s.Status() == ImageStatusFailed }
func (s ImageState) IsReady() bool   { return s.Status() == ImageStatusReady }

// URI returns the image URI; it is empty unless the state is Ready.
func (s ImageState) URI() string { return s.uri }

func (s ImageState) String() string {
	if s.IsReady() {
		return fmt.Sprintf("ready(%d bytes)", len(s.uri))
	}
	return string(s.Status())
}

type imageStateJSON struct {
	Status ImageStatus `json:"status"`
	URI    string      `json:"uri,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s ImageState) MarshalJSON() ([]byte, error) {
	return json.Marshal(imageStateJSON{Status: s.Status(), URI: s.uri})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *ImageState) UnmarshalJSON(data []byte) error {
	var raw imageStateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Status {
	case ImageStatusPending, "":
		*s = ImagePending()
	case ImageStatusFailed:
		*s = ImageFailed()
	case ImageStatusReady:
		if raw.URI == "" {
			return fmt.Errorf("ready image state without uri")
		}
		*s = ImageReady(raw.URI)
	default:
		return fmt.Errorf("unknown image status %q", raw.Status)
	}
	return nil
}

// ItineraryDay is one day of the plan. Day is unique within an itinerary but not necessarily contiguous.
type ItineraryDay struct {
	Day         int        `json:"day"`
	Title       string     `json:"title"`
	Weather     Weather    `json:"weather"`
	ImagePrompt string     `json:"image_prompt"`
	Morning     []Activity `json:"morning"`
	Afternoon   []Activity `json:"afternoon"`
	Evening     []Activity `json:"evening"`
	VibeTags    []string   `json:"vibe_tags"`
	Image       ImageState `json:"image"`
}

// Activities returns the activities of the given period.
func (d *ItineraryDay) Activities(p Period) []Activity {
	switch p {
	case Morning:
		return d.Morning
	case Afternoon:
		return d.Afternoon
	case Evening:
		return d.Evening
	}
	return nil
}

// Append adds activities to the end of a period, leaving existing entries untouched.
func (d *ItineraryDay) Append(p Period, acts ...Activity) {
	switch p {
	case Morning:
		d.Morning = append(d.Morning, acts...)
	case Afternoon:
		d.Afternoon = append(d.Afternoon, acts...)
	case Evening:
		d.Evening = append(d.Evening, acts...)
	}
}

// ActivityCount returns the number of activities across all periods.
func (d *ItineraryDay) ActivityCount() int {
	return len(d.Morning) + len(d.Afternoon) + len(d.Evening)
}

// Clone returns a deep copy of the day.
func (d ItineraryDay) Clone() ItineraryDay {
	d.Morning = cloneSlice(d.Morning)
	d.Afternoon = cloneSlice(d.Afternoon)
	d.Evening = cloneSlice(d.Evening)
	d.VibeTags = cloneSlice(d.VibeTags)
	return d
}

// ItineraryResult is the generated plan. Itinerary keeps narrative order, which need not match Day order.
type ItineraryResult struct {
	Summary        string          `json:"summary"`
	Accommodations []Accommodation `json:"accommodations"`
	Itinerary      []ItineraryDay  `json:"itinerary"`
}

// Clone returns a deep copy of the result.
func (r *ItineraryResult) Clone() *ItineraryResult {
	if r == nil {
		return nil
	}
	out := &ItineraryResult{
		Summary:        r.Summary,
		Accommodations: cloneSlice(r.Accommodations),
		Itinerary:      make([]ItineraryDay, len(r.Itinerary)),
	}
	for i, d := range r.Itinerary {
		out.Itinerary[i] = d.Clone()
	}
	return out
}

// DayByIndex returns the day whose Day field equals n.
func (r *ItineraryResult) DayByIndex(n int) (*ItineraryDay, bool) {
	for i := range r.Itinerary {
		if r.Itinerary[i].Day == n {
			return &r.Itinerary[i], true
		}
	}
	return nil, false
}

// PendingImages counts days whose image has not settled yet.
func (r *ItineraryResult) PendingImages() int {
	n := 0
	for _, d := range r.Itinerary {
		if d.Image.IsPending() {
			n++
		}
	}
	return n
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}
