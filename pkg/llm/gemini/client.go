package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"voyageai/pkg/config"
	"voyageai/pkg/llm"
	"voyageai/pkg/tracker"
)

const (
	defaultModel      = "gemini-2.5-flash"
	defaultImageModel = "imagen-4.0-generate-001"

	statsText  = "gemini"
	statsImage = "gemini.imagen"
)

// Client implements llm.TextGenerator and llm.ImageGenerator for Google Gemini and Imagen.
type Client struct {
	genaiClient *genai.Client
	apiKey      string
	baseURL     string
	modelName   string
	imageModel  string
	profiles    map[string]string // Map intent -> modelName
	tracker     *tracker.Tracker

	mu sync.RWMutex
}

// NewClient creates a new Gemini client. A missing key is not an error;
// every call then fails with llm.ErrMissingCredentials.
func NewClient(cfg config.LLMConfig, t *tracker.Tracker) (*Client, error) {
	c := &Client{tracker: t}
	if err := c.Configure(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// Configure updates the client with new settings.
func (c *Client) Configure(cfg config.LLMConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.apiKey = strings.TrimSpace(cfg.Key)
	c.baseURL = cfg.BaseURL
	c.modelName = cfg.Model
	c.imageModel = cfg.ImageModel
	c.profiles = cfg.Profiles

	if c.modelName == "" {
		c.modelName = defaultModel
	}
	if c.imageModel == "" {
		c.imageModel = defaultImageModel
	}

	if c.apiKey == "" {
		// Can't initialize without key.
		c.genaiClient = nil
		return nil
	}

	cc := &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return fmt.Errorf("failed to create genai client: %w", err)
	}
	c.genaiClient = client
	return nil
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.genaiClient != nil
}

// Close cleans up resources.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.genaiClient = nil
}

func (c *Client) client() (*genai.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.genaiClient == nil {
		return nil, llm.ErrMissingCredentials
	}
	return c.genaiClient, nil
}

// GenerateText sends a prompt and returns the text response.
func (c *Client) GenerateText(ctx context.Context, intent string, p llm.Prompt) (text string, err error) {
	client, err := c.client()
	if err != nil {
		return "", err
	}

	modelName, cfg := c.resolveModel(intent, p)

	start := time.Now()
	defer func() { c.observe(statsText, start, err) }()
	resp, err := client.Models.GenerateContent(ctx, modelName, genai.Text(p.Text), cfg)
	if err != nil {
		return "", fmt.Errorf("generate text error: %w", err)
	}

	if p.UseSearch && len(resp.Candidates) > 0 {
		if u := groundingUsage(resp.Candidates[0].GroundingMetadata); u.Used {
			slog.Info("Gemini: search grounding used", "intent", intent, "snippets", u.Snippets, "query", u.Query)
		} else {
			slog.Debug("Gemini: search grounding requested but not used", "intent", intent)
		}
	}

	text, err = getResponseText(resp)
	if err != nil {
		return "", err
	}

	return text, nil
}

// GenerateImage renders one image with Imagen.
func (c *Client) GenerateImage(ctx context.Context, prompt string, opts llm.ImageOptions) (img llm.Image, err error) {
	client, err := c.client()
	if err != nil {
		return llm.Image{}, err
	}

	c.mu.RLock()
	model := c.imageModel
	c.mu.RUnlock()

	opts = opts.WithDefaults()
	start := time.Now()
	defer func() { c.observe(statsImage, start, err) }()
	resp, err := client.Models.GenerateImages(ctx, model, llm.ImagePromptPrefix+prompt, &genai.GenerateImagesConfig{
		NumberOfImages:   1,
		AspectRatio:      opts.AspectRatio,
		OutputMIMEType:   opts.MIMEType,
		IncludeRAIReason: true,
	})
	if err != nil {
		return llm.Image{}, fmt.Errorf("generate image error: %w", err)
	}

	img, err = firstImage(resp, opts.MIMEType)
	if err != nil {
		return llm.Image{}, err
	}
	return img, nil
}

// HealthCheck verifies that the key is set and the configured model is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	c.mu.RLock()
	name := c.modelName
	c.mu.RUnlock()

	if _, err := client.Models.Get(ctx, qualifiedModel(name), nil); err != nil {
		return fmt.Errorf("gemini model %s unavailable: %w", name, err)
	}
	return nil
}

// ValidateModels checks the configured models against the key's model list and logs
// what is available when one is missing. It never blocks startup.
func (c *Client) ValidateModels(ctx context.Context) error {
	client, err := c.client()
	if err != nil {
		return err
	}

	c.mu.RLock()
	wanted := []string{c.modelName, c.imageModel}
	for _, m := range c.profiles {
		wanted = append(wanted, m)
	}
	c.mu.RUnlock()

	available := make(map[string]bool)
	for m, err := range client.Models.All(ctx) {
		if err != nil {
			return fmt.Errorf("failed to list models: %w", err)
		}
		available[m.Name] = true
	}

	var missing []string
	for _, w := range wanted {
		if w != "" && !available[qualifiedModel(w)] {
			missing = append(missing, w)
		}
	}
	if len(missing) == 0 {
		slog.Debug("Gemini model validation success", "models", len(wanted))
		return nil
	}

	slog.Error("Configured Gemini models not found", "missing", missing)
	for name := range available {
		if strings.Contains(name, "gemini") || strings.Contains(name, "imagen") {
			slog.Debug("Available model", "name", name)
		}
	}
	return fmt.Errorf("models not available for this key: %s", strings.Join(missing, ", "))
}

func qualifiedModel(name string) string {
	if strings.HasPrefix(name, "models/") {
		return name
	}
	return "models/" + name
}

func getResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", fmt.Errorf("candidate has no content (finish reason %s)", cand.FinishReason)
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response text")
	}
	return sb.String(), nil
}

var errNoImage = errors.New("image generation failed to produce an image")

func firstImage(resp *genai.GenerateImagesResponse, mimeType string) (llm.Image, error) {
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return llm.Image{}, errNoImage
	}
	gi := resp.GeneratedImages[0]
	if gi == nil || gi.Image == nil || len(gi.Image.ImageBytes) == 0 {
		if gi != nil && gi.RAIFilteredReason != "" {
			return llm.Image{}, fmt.Errorf("%w: %s", errNoImage, gi.RAIFilteredReason)
		}
		return llm.Image{}, errNoImage
	}
	if gi.Image.MIMEType != "" {
		mimeType = gi.Image.MIMEType
	}
	return llm.Image{Data: gi.Image.ImageBytes, MIMEType: mimeType}, nil
}

func (c *Client) observe(name string, start time.Time, err error) {
	if c.tracker != nil {
		c.tracker.Observe(name, start, err)
	}
}
