package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"voyageai/pkg/config"
	"voyageai/pkg/llm"
	"voyageai/pkg/tracker"
)

const (
	defaultModel      = "gpt-4o-mini"
	defaultImageModel = "dall-e-3"

	statsText  = "openai"
	statsImage = "openai.images"
)

// Client implements llm.TextGenerator and llm.ImageGenerator on the OpenAI API.
type Client struct {
	api        *openai.Client
	apiKey     string
	model      string
	imageModel string
	tracker    *tracker.Tracker

	mu sync.RWMutex
}

// NewClient creates a new OpenAI client. A missing key leaves the client unconfigured.
func NewClient(cfg config.OpenAIConfig, t *tracker.Tracker) *Client {
	c := &Client{tracker: t}
	c.Configure(cfg)
	return c
}

// Configure updates the client with new settings.
func (c *Client) Configure(cfg config.OpenAIConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.apiKey = strings.TrimSpace(cfg.Key)
	c.model = cfg.Model
	c.imageModel = cfg.ImageModel
	if c.model == "" {
		c.model = defaultModel
	}
	if c.imageModel == "" {
		c.imageModel = defaultImageModel
	}

	if c.apiKey == "" {
		c.api = nil
		return
	}

	// The failover chain decides what happens after a failure; the SDK must not retry on its own.
	opts := []option.RequestOption{option.WithAPIKey(c.apiKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	api := openai.NewClient(opts...)
	c.api = &api
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.api != nil
}

func (c *Client) client() (*openai.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.api == nil {
		return nil, llm.ErrMissingCredentials
	}
	return c.api, nil
}

// GenerateText sends the prompt as a single user message.
// Chat completions have no web search tool, so UseSearch is ignored.
func (c *Client) GenerateText(ctx context.Context, intent string, p llm.Prompt) (_ string, err error) {
	api, err := c.client()
	if err != nil {
		return "", err
	}
	c.mu.RLock()
	model := c.model
	c.mu.RUnlock()

	if p.UseSearch {
		slog.Debug("OpenAI: search grounding requested but not supported, continuing without it", "intent", intent)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(p.Text)},
	}
	if p.Temperature > 0 {
		params.Temperature = openai.Float(float64(p.Temperature))
	}

	start := time.Now()
	defer func() { c.observe(statsText, start, err) }()
	resp, err := api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion error: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("api returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// GenerateImage renders one image and returns its decoded bytes.
func (c *Client) GenerateImage(ctx context.Context, prompt string, opts llm.ImageOptions) (_ llm.Image, err error) {
	api, err := c.client()
	if err != nil {
		return llm.Image{}, err
	}
	c.mu.RLock()
	model := c.imageModel
	c.mu.RUnlock()

	opts = opts.WithDefaults()
	params := openai.ImageGenerateParams{
		Prompt: llm.ImagePromptPrefix + prompt,
		Model:  openai.ImageModel(model),
		N:      openai.Int(1),
		Size:   sizeFor(model, opts.AspectRatio),
	}
	// gpt-image models always return base64 and reject response_format.
	if strings.HasPrefix(model, "dall-e") {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
	}

	start := time.Now()
	defer func() { c.observe(statsImage, start, err) }()
	resp, err := api.Images.Generate(ctx, params)
	if err != nil {
		return llm.Image{}, fmt.Errorf("openai image error: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return llm.Image{}, errors.New("image generation failed to produce an image")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return llm.Image{}, fmt.Errorf("failed to decode image: %w", err)
	}

	return llm.Image{Data: data, MIMEType: "image/png"}, nil
}

// HealthCheck verifies that the key is set and the text model is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	api, err := c.client()
	if err != nil {
		return err
	}
	c.mu.RLock()
	model := c.model
	c.mu.RUnlock()

	if _, err := api.Models.Get(ctx, model); err != nil {
		return fmt.Errorf("openai model %s unavailable: %w", model, err)
	}
	return nil
}

// sizeFor picks the closest supported size for an aspect ratio like "16:9".
func sizeFor(model, aspect string) openai.ImageGenerateParamsSize {
	w, h := parseAspect(aspect)
	dalle := strings.HasPrefix(model, "dall-e")
	switch {
	case w > h && dalle:
		return openai.ImageGenerateParamsSize1792x1024
	case w > h:
		return openai.ImageGenerateParamsSize1536x1024
	case h > w && dalle:
		return openai.ImageGenerateParamsSize1024x1792
	case h > w:
		return openai.ImageGenerateParamsSize1024x1536
	}
	return openai.ImageGenerateParamsSize1024x1024
}

func parseAspect(s string) (w, h int) {
	ws, hs, ok := strings.Cut(s, ":")
	if !ok {
		return 1, 1
	}
	w, errW := strconv.Atoi(ws)
	h, errH := strconv.Atoi(hs)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 1, 1
	}
	return w, h
}

func (c *Client) observe(name string, start time.Time, err error) {
	if c.tracker != nil {
		c.tracker.Observe(name, start, err)
	}
}
