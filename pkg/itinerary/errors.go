package itinerary

import (
	"errors"
	"fmt"

	"voyageai/pkg/llm"
)

var (
	// ErrMalformedResponse means the text service returned something that is not a valid itinerary.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrNotReady is returned for operations that need a completed itinerary.
	ErrNotReady = errors.New("itinerary is not ready")
	// ErrDayNotFound is returned when no day carries the requested index.
	ErrDayNotFound = errors.New("day not found")
	// ErrSuperseded is returned when a newer generation replaced the one an operation started on.
	ErrSuperseded = errors.New("generation superseded")
	// ErrAugmentation wraps failures of the add-more-activities call.
	ErrAugmentation = errors.New("could not add more activities")
)

// FailureReason classifies why a generation ended in the failed state.
type FailureReason string

const (
	ReasonConfiguration FailureReason = "configuration"
	ReasonMalformed     FailureReason = "malformed"
	ReasonTransport     FailureReason = "transport"
)

// Failure is the user-facing description of a failed generation.
type Failure struct {
	Reason  FailureReason `json:"reason"`
	Message string        `json:"message"`
}

// Classify maps a text-phase error to its failure reason.
func Classify(err error) FailureReason {
	switch {
	case errors.Is(err, llm.ErrMissingCredentials):
		return ReasonConfiguration
	case errors.Is(err, ErrMalformedResponse):
		return ReasonMalformed
	default:
		return ReasonTransport
	}
}

// NewFailure builds the failure shown to the user for err.
func NewFailure(err error) *Failure {
	reason := Classify(err)
	var msg string
	switch reason {
	case ReasonConfiguration:
		msg = llm.ErrMissingCredentials.Error()
	case ReasonMalformed:
		msg = "The AI returned an invalid format. Please try again."
	default:
		msg = fmt.Sprintf("Failed to generate itinerary. Error: %v", err)
	}
	return &Failure{Reason: reason, Message: msg}
}
