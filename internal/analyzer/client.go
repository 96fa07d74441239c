package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"worklog-summary/internal/logger"
)

// Provider is one AI backend able to complete a prompt with a given model.
type Provider interface {
	Name() string
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// errorEnvelope covers both the Gemini and the OpenAI-style error bodies.
type errorEnvelope struct {
	Error struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
		Status  string          `json:"status"`
		Type    string          `json:"type"`
	} `json:"error"`
}

// postJSON makes a single request; it never retries.
func postJSON(ctx context.Context, client *http.Client, provider, model, endpoint string, headers map[string]string, payload interface{}) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	// Log progress for slow generations
	progressDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		startTime := time.Now()
		for {
			select {
			case <-ticker.C:
				logger.GetLogger().Infof("%s request in progress (model: %s, elapsed: %v)",
					provider, model, time.Since(startTime).Round(time.Second))
			case <-progressDone:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	resp, err := client.Do(httpReq)
	close(progressDone)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Provider:   provider,
			Model:      model,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
		var envelope errorEnvelope
		if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
			apiErr.Message = envelope.Error.Message
			apiErr.Status = envelope.Error.Status
			if apiErr.Status == "" {
				apiErr.Status = envelope.Error.Type
			}
		}
		return nil, apiErr
	}

	return body, nil
}
