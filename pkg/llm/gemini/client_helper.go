package gemini

import (
	"google.golang.org/genai"

	"voyageai/pkg/llm"
)

// resolveModel picks the model for intent (profile first, then the default)
// and builds the request config for p.
func (c *Client) resolveModel(intent string, p llm.Prompt) (string, *genai.GenerateContentConfig) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	model := c.modelName
	if m := c.profiles[intent]; m != "" {
		model = m
	}

	cfg := &genai.GenerateContentConfig{}
	// Search grounding cannot be combined with a JSON response MIME type,
	// so grounded prompts carry their JSON contract in the text.
	if p.UseSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if p.Temperature > 0 {
		cfg.Temperature = genai.Ptr(p.Temperature)
	}
	return model, cfg
}

// searchUsage summarizes the grounding metadata of a response.
type searchUsage struct {
	Used     bool
	Query    string
	Snippets int
}

func groundingUsage(meta *genai.GroundingMetadata) searchUsage {
	if meta == nil {
		return searchUsage{}
	}
	u := searchUsage{Snippets: len(meta.GroundingChunks)}
	if len(meta.WebSearchQueries) > 0 {
		u.Query = meta.WebSearchQueries[0]
	}
	if meta.SearchEntryPoint != nil && u.Query == "" {
		u.Query = "[rendered entry point]"
	}
	u.Used = u.Query != "" || u.Snippets > 0
	return u
}
