// Package llm provides the completion collaborator used by the analysis
// and summarization tools.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	courerrors "courier/internal/errors"
)

// Config configures the OpenAI-compatible chat completions client.
type Config struct {
	APIKey  string
	BaseURL string // defaults to https://api.openai.com/v1
	Model   string
	Timeout time.Duration
}

// Client calls an OpenAI-compatible /chat/completions endpoint. It
// implements ports.CompletionClient.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a completion client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete sends a system+user prompt and returns the completion text.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	messages := []chatMessage{}
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	reqBody := map[string]any{
		"model":       c.config.Model,
		"messages":    messages,
		"temperature": 0.2,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", courerrors.NewTransientError(err, "The language model is unreachable right now.")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		apiErr := fmt.Errorf("completion API status %d: %s", resp.StatusCode, string(bodyBytes))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", courerrors.NewTransientError(apiErr, "")
		}
		return "", courerrors.NewPermanentError(apiErr, "")
	}

	var apiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("completion API returned no choices")
	}
	return apiResp.Choices[0].Message.Content, nil
}
