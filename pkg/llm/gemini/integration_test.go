package gemini_test

import (
	"context"
	"os"
	"testing"

	"voyageai/pkg/config"
	"voyageai/pkg/llm"
	"voyageai/pkg/llm/gemini"
)

func integrationClient(t *testing.T) *gemini.Client {
	t.Helper()
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		t.Skip("Skipping integration test: GEMINI_API_KEY not set")
	}
	c, err := gemini.NewClient(config.LLMConfig{
		Key:        key,
		Model:      "gemini-2.5-flash",
		ImageModel: "imagen-4.0-generate-001",
	}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestIntegration_GenerateText(t *testing.T) {
	c := integrationClient(t)

	out, err := c.GenerateText(context.Background(), "IntegrationTest", llm.Prompt{Text: "Say 'pong'"})
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if out == "" {
		t.Error("got empty response")
	}
	t.Logf("Response: %s", out)
}

func TestIntegration_GenerateTextWithSearch(t *testing.T) {
	c := integrationClient(t)

	out, err := c.GenerateText(context.Background(), "IntegrationTest", llm.Prompt{
		Text:      "What is the typical weather in Kyoto in early April? One sentence.",
		UseSearch: true,
	})
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if out == "" {
		t.Error("got empty response")
	}
}

func TestIntegration_GenerateImage(t *testing.T) {
	if os.Getenv("VOYAGEAI_IMAGE_INTEGRATION") == "" {
		t.Skip("Skipping image integration test: VOYAGEAI_IMAGE_INTEGRATION not set")
	}
	c := integrationClient(t)

	img, err := c.GenerateImage(context.Background(), "A quiet temple garden at dawn", llm.DefaultImageOptions())
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if len(img.Data) == 0 {
		t.Error("got empty image")
	}
}
