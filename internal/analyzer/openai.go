package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama-3.3-70b-versatile"

	supervisorSystemPrompt = "You are a helpful internship supervisor assistant."
)

// OpenAI is a client for OpenAI-compatible chat/completions endpoints (Groq by default).
type OpenAI struct {
	name         string
	APIKey       string
	BaseURL      string // API base URL, supports OpenAI-compatible endpoints
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	client       *http.Client
}

type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatResponse struct {
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// NewGroq returns a chat/completions client with Groq defaults.
func NewGroq(apiKey, baseURL string, temperature float64, maxTokens int) *OpenAI {
	if baseURL == "" {
		baseURL = defaultGroqBaseURL
	}
	if temperature == 0 {
		temperature = 0.7
	}
	if maxTokens == 0 {
		maxTokens = 2048
	}
	return &OpenAI{
		name:         "groq",
		APIKey:       apiKey,
		BaseURL:      strings.TrimRight(baseURL, "/"),
		SystemPrompt: supervisorSystemPrompt,
		Temperature:  temperature,
		MaxTokens:    maxTokens,
		client:       &http.Client{},
	}
}

func (o *OpenAI) Name() string {
	return o.name
}

func (o *OpenAI) Complete(ctx context.Context, model, prompt string) (string, error) {
	if o.APIKey == "" {
		return "", fmt.Errorf("%s API key not configured", o.name)
	}

	req := ChatRequest{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: o.SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: o.Temperature,
		MaxTokens:   o.MaxTokens,
	}

	endpoint := fmt.Sprintf("%s/chat/completions", o.BaseURL)
	body, err := postJSON(ctx, o.client, o.name, model, endpoint,
		map[string]string{"Authorization": fmt.Sprintf("Bearer %s", o.APIKey)}, req)
	if err != nil {
		return "", err
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty content in response")
	}

	return content, nil
}
