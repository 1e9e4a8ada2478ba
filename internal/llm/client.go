// Package llm provides the generative model client with rate limiting and a circuit breaker
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gmsas95/healthrisk/internal/config"
	apperrors "github.com/gmsas95/healthrisk/internal/errors"
	"github.com/gmsas95/healthrisk/internal/metrics"
)

const maxErrorBody = 2048

// Client calls the Gemini generateContent endpoint
type Client struct {
	cfg     config.AIConfig
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[string]
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithMetrics records breaker state changes
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a new model client
func NewClient(cfg config.AIConfig, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60
	}

	c := &Client{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}

	if cfg.RequestsPerMinute > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), burst)
	}

	for _, opt := range opts {
		opt(c)
	}

	c.breaker = newBreaker("gemini", cfg.Breaker, c.logger, c.metrics)
	return c
}

// Part is a content part
type Part struct {
	Text string `json:"text"`
}

// Content is a list of parts with an optional role
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// GenerationConfig holds sampling parameters
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// GenerateRequest is the generateContent request body
type GenerateRequest struct {
	Contents         []Content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

// GenerateResponse is the generateContent response body
type GenerateResponse struct {
	Candidates []struct {
		Content      Content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Text returns the first candidate's text.
func (r *GenerateResponse) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// Generate sends prompt to the model and returns the response text. All
// failures are *errors.AppError values with an AI_* code.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.cfg.APIKey == "" || c.cfg.BaseURL == "" {
		return "", apperrors.ErrAINotConfigured
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", apperrors.WrapAs(apperrors.ErrAIRateLimited, err)
		}
	}

	text, err := c.breaker.Execute(func() (string, error) {
		return c.generate(ctx, prompt)
	})
	if err != nil {
		if apperrors.Is(err, gobreaker.ErrOpenState) || apperrors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", apperrors.WrapAs(apperrors.ErrAICircuitOpen, err)
		}
		return "", err
	}
	return text, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	req := GenerateRequest{
		Contents: []Content{{Parts: []Part{{Text: prompt}}}},
		GenerationConfig: GenerationConfig{
			Temperature:     c.cfg.Temperature,
			TopK:            c.cfg.TopK,
			TopP:            c.cfg.TopP,
			MaxOutputTokens: c.cfg.MaxOutputTokens,
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrAITransport.Code, "failed to marshal request")
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrAITransport.Code, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrAITransport.Code, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", apperrors.New(apperrors.ErrAIStatus.Code,
			fmt.Sprintf("API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes))))
	}

	var result GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrAIUnreadable.Code, "failed to decode response")
	}

	text := result.Text()
	if text == "" {
		return "", apperrors.ErrAIEmpty
	}

	c.logger.Debug("model response received",
		zap.String("model", c.cfg.Model),
		zap.Int("prompt_tokens", result.UsageMetadata.PromptTokenCount),
		zap.Int("output_tokens", result.UsageMetadata.CandidatesTokenCount),
	)

	return text, nil
}

// Model returns the configured model
func (c *Client) Model() string {
	return c.cfg.Model
}
