package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"EchoCanvas/config"
	"EchoCanvas/logger"
	"EchoCanvas/model"
)

var (
	// ErrEmptyOutput is returned when the model answers without usable content.
	ErrEmptyOutput = errors.New("model returned no usable output")
	// ErrInvalidInput marks requests rejected before any model call.
	ErrInvalidInput = errors.New("invalid AI request")
)

// Config contains configuration for the prompt service.
type Config struct {
	APIBaseURL  string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// ConfigFromApp derives the client configuration from the application config.
func ConfigFromApp(cfg *config.Config) *Config {
	return &Config{
		APIBaseURL:  cfg.AIAPIBaseURL,
		APIKey:      cfg.AIAPIKey,
		Model:       cfg.AIModel,
		MaxTokens:   1024,
		Temperature: 0.8,
	}
}

// Client talks to an OpenAI compatible /chat/completions endpoint.
type Client struct {
	config     *Config
	httpClient *http.Client
}

func NewClient(cfg *Config) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Configured reports whether a real API key is present.
func (c *Client) Configured() bool {
	return c != nil && !config.IsPlaceholder(c.config.APIKey)
}

// Complete sends one system/user exchange and returns the reply text.
func (c *Client) Complete(ctx context.Context, system string, user interface{}) (string, error) {
	reqBody := model.OpenAIChatRequest{
		Model: c.config.Model,
		Messages: []model.OpenAIChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:      c.config.MaxTokens,
		Temperature:    c.config.Temperature,
		ResponseFormat: &model.OpenAIResponseFormat{Type: "json_object"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIBaseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp model.OpenAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return "", ErrEmptyOutput
	}

	logger.Debug("[AI] completion received",
		logger.String("model", chatResp.Model),
		logger.Int("totalTokens", chatResp.Usage.TotalTokens),
		logger.Duration("elapsed", time.Since(start)))

	return chatResp.Choices[0].Message.Content, nil
}
