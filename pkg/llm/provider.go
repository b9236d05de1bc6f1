package llm

import (
	"context"
	"errors"
)

// ErrMissingCredentials is returned before any network call when a provider has no API key.
var ErrMissingCredentials = errors.New("API key is not configured. Please set the API_KEY environment variable")

// Intents name the kind of text request; providers map them to model profiles.
const (
	IntentItinerary      = "itinerary"
	IntentMoreActivities = "more_activities"
)

// ImagePromptPrefix frames every day's image prompt as a travel photograph.
const ImagePromptPrefix = "A high-quality, aesthetic travel photograph, capturing the essence of: "

// Prompt is a rendered text prompt plus generation hints.
type Prompt struct {
	Text string
	// UseSearch asks the provider to ground the answer with live web search where supported.
	UseSearch   bool
	Temperature float32
}

// ImageOptions shape a generated image.
type ImageOptions struct {
	AspectRatio string
	MIMEType    string
}

// DefaultImageOptions returns a landscape JPEG.
func DefaultImageOptions() ImageOptions {
	return ImageOptions{AspectRatio: "16:9", MIMEType: "image/jpeg"}
}

// WithDefaults fills empty fields from DefaultImageOptions.
func (o ImageOptions) WithDefaults() ImageOptions {
	d := DefaultImageOptions()
	if o.AspectRatio == "" {
		o.AspectRatio = d.AspectRatio
	}
	if o.MIMEType == "" {
		o.MIMEType = d.MIMEType
	}
	return o
}

// Image is raw encoded image bytes.
type Image struct {
	Data     []byte
	MIMEType string
}

// TextGenerator turns a prompt into a raw text answer.
type TextGenerator interface {
	// GenerateText returns the model's text. intent selects the model profile.
	GenerateText(ctx context.Context, intent string, p Prompt) (string, error)

	// HealthCheck verifies that the provider is configured and reachable.
	HealthCheck(ctx context.Context) error

	// Configured reports whether credentials are present.
	Configured() bool
}

// ImageGenerator renders one image for a descriptive prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (Image, error)
	HealthCheck(ctx context.Context) error
	Configured() bool
}
