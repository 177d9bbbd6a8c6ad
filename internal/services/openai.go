// OpenAI chat completions implementation of [LanguageModel]
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tracktalk/internal/shared"
)

const openaiBaseURL = "https://api.openai.com/v1"

// OpenAIOpts contains configuration for creating an OpenAIService.
type OpenAIOpts struct {
	APIKey      string
	OrgID       string
	Model       string
	MaxTokens   int
	Temperature float64
	HTTPClient  *http.Client
}

// OpenAIService implements [LanguageModel] against the chat completions API.
type OpenAIService struct {
	apiKey      string
	orgID       string
	model       string
	maxTokens   int
	temperature float64
	baseURL     string
	httpClient  *http.Client
}

// NewOpenAIService creates a new OpenAI service.
func NewOpenAIService(opts OpenAIOpts) (*OpenAIService, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: openai api key", shared.ErrMissingCredentials)
	}
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2000
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}

	return &OpenAIService{
		apiKey:      opts.APIKey,
		orgID:       opts.OrgID,
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		baseURL:     openaiBaseURL,
		httpClient:  opts.HTTPClient,
	}, nil
}

func (o *OpenAIService) Name() string {
	return "OpenAI"
}

// chatMessage is the wire format for one chat message.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the request format for the chat completions API.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

// chatResponse is the subset of the chat completions response we consume.
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

const systemInstruction = "You are a music recommendation expert. You help users discover new music based on their listening history and preferences. Follow the output format and quantity stated in each request exactly."

// Complete sends a prompt to the chat completions endpoint and returns the reply text.
//
// Rate limits, timeouts and 5xx responses come back as [shared.ErrProviderTransient]
// so the orchestrator can apply its bounded retry.
func (o *OpenAIService) Complete(ctx context.Context, prompt string) (string, error) {
	reply, err := o.chat(ctx, prompt, o.maxTokens, o.temperature)
	if err != nil {
		return "", err
	}
	return reply, nil
}

// Ping checks that the provider is reachable with the configured credentials.
func (o *OpenAIService) Ping(ctx context.Context) error {
	_, err := o.chat(ctx, "Hello", 10, 0)
	return err
}

func (o *OpenAIService) chat(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	req := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	if o.orgID != "" {
		httpReq.Header.Set("OpenAI-Organization", o.orgID)
	}

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", shared.ErrProviderTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: openai returned %d", shared.ErrProviderTransient, resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized:
		return "", fmt.Errorf("%w: openai returned 401", shared.ErrAuthFailed)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: openai returned %d: %s", shared.ErrAPIRequest, resp.StatusCode, truncate(string(body), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("%w: %s", shared.ErrAPIRequest, parsed.Error.Message)
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty completion", shared.ErrAPIRequest)
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
