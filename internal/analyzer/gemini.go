package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// DefaultGeminiModels is the model ladder tried in order.
var DefaultGeminiModels = []string{
	"gemini-1.5-flash-latest",
	"gemini-1.5-flash",
	"gemini-1.5-pro-latest",
	"gemini-1.5-pro",
	"gemini-pro",
	"gemini-2.0-flash-exp",
}

// Gemini calls the generateContent REST endpoint.
type Gemini struct {
	APIKey          string
	BaseURL         string
	Temperature     float64
	MaxOutputTokens int
	client          *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

func NewGemini(apiKey, baseURL string, temperature float64, maxOutputTokens int) *Gemini {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &Gemini{
		APIKey:          apiKey,
		BaseURL:         strings.TrimRight(baseURL, "/"),
		Temperature:     temperature,
		MaxOutputTokens: maxOutputTokens,
		client:          &http.Client{},
	}
}

func (g *Gemini) Name() string {
	return "gemini"
}

func (g *Gemini) Complete(ctx context.Context, model, prompt string) (string, error) {
	req := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}
	if g.Temperature > 0 || g.MaxOutputTokens > 0 {
		req.GenerationConfig = &geminiGenerationConfig{
			Temperature:     g.Temperature,
			MaxOutputTokens: g.MaxOutputTokens,
		}
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.BaseURL, url.PathEscape(model))
	body, err := postJSON(ctx, g.client, g.Name(), model, endpoint, map[string]string{"x-goog-api-key": g.APIKey}, req)
	if err != nil {
		return "", err
	}

	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("no candidates in response")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	content := strings.TrimSpace(text.String())
	if content == "" {
		return "", fmt.Errorf("empty content in response")
	}

	return content, nil
}
