package model

import "time"

// SavedItineraryKey is the persisted key holding the saved collection.
const SavedItineraryKey = "saved_itineraries"

// SavedItinerary is a frozen copy of a result taken at save time.
// Image states are whatever they were when saved.
type SavedItinerary struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Request   TripRequest     `json:"formValues"`
	Result    ItineraryResult `json:"resultData"`
}

// Clone returns a deep copy.
func (s SavedItinerary) Clone() SavedItinerary {
	s.Request = s.Request.Clone()
	if r := s.Result.Clone(); r != nil {
		s.Result = *r
	}
	return s
}
