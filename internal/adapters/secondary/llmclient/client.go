// Package llmclient implements ports.LLMProvider over a plain chat-completions
// HTTP endpoint. No LLM SDK is exercised anywhere in the retrieval pack this
// module was grounded on, so the wire call here is hand-rolled net/http,
// wrapped in a sony/gobreaker circuit breaker. The client makes one attempt
// per call; retries on rate-limit and timeout errors are done by the
// recommend engine's callLLMWithRetry (see DESIGN.md).
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/outfitwx/platform/internal/core/domain"
	"github.com/outfitwx/platform/internal/infrastructure/circuitbreaker"
)

// Client implements ports.LLMProvider against a chat-completions-shaped
// HTTP endpoint (OpenAI-compatible: POST {model, messages[], temperature}).
type Client struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
	logger      *zap.Logger
	breaker     *circuitbreaker.CircuitBreakerWrapper
}

// NewClient constructs an llmclient.Client.
func NewClient(endpoint, apiKey, model string, temperature float64, httpClient *http.Client, breaker *circuitbreaker.CircuitBreakerWrapper, logger *zap.Logger) *Client {
	return &Client{
		endpoint:    endpoint,
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		httpClient:  httpClient,
		breaker:     breaker,
		logger:      logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	N           int           `json:"n"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// GenerateRecommendation sends a system/user prompt pair and returns the raw
// text completion.
func (c *Client) GenerateRecommendation(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: c.temperature,
		MaxTokens:   600,
		N:           1,
	}

	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return "", domain.NewServiceError(domain.KindInternal, "failed to encode LLM request", err)
	}

	var completion string

	execErr := c.breaker.Execute(ctx, "llm.generate", func() error {
		text, callErr := c.call(ctx, encoded)
		if callErr != nil {
			return callErr
		}
		completion = text
		return nil
	})

	if execErr != nil {
		return "", c.classify(execErr)
	}

	return completion, nil
}

func (c *Client) call(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building LLM request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("LLM request failed", zap.Error(err))
		return "", err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close LLM response body", zap.Error(closeErr))
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return "", domain.NewServiceError(domain.KindLLMRateLimited, "LLM provider rate limited the request", nil)
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return "", domain.NewServiceError(domain.KindLLMTimeout, "LLM provider timed out", nil)
	}

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("LLM provider returned status %d", resp.StatusCode)
	}

	if resp.StatusCode >= 400 {
		return "", domain.NewServiceError(domain.KindUpstreamSchemaError,
			fmt.Sprintf("LLM provider rejected request with status %d", resp.StatusCode), nil)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", domain.NewServiceError(domain.KindUpstreamSchemaError, "malformed LLM response body", err)
	}

	if len(parsed.Choices) == 0 {
		return "", domain.NewServiceError(domain.KindUpstreamSchemaError, "LLM response contained no choices", nil)
	}

	return parsed.Choices[0].Message.Content, nil
}

func (c *Client) classify(err error) error {
	if svcErr, ok := err.(*domain.ServiceError); ok {
		return svcErr
	}

	return domain.NewServiceError(domain.KindUpstreamUnavailable, "LLM provider unavailable", err)
}
