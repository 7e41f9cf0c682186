package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tildaslashalef/codeboost/internal/loggy"
)

// Client represents a Google Gemini API client
type Client struct {
	apiKey          string
	baseURL         string
	apiVersion      string
	model           string
	httpClient      *http.Client
	maxRetries      int
	initialInterval time.Duration
	generation      GenerationConfig
	logger          *loggy.Logger
}

// Config configures the Gemini client
type Config struct {
	APIKey      string
	BaseURL     string
	APIVersion  string // v1 or v1beta
	Model       string
	Timeout     time.Duration
	MaxRetries  int // Extra attempts for 429 and 5xx responses
	MaxTokens   int
	Temperature *float64
	TopP        *float64
	TopK        *int

	// RetryInterval is the first backoff delay, 500ms when zero
	RetryInterval time.Duration
}

// NewClient creates a new Gemini client from config
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	return &Client{
		apiKey:          cfg.APIKey,
		baseURL:         baseURL,
		apiVersion:      apiVersion,
		model:           model,
		httpClient:      &http.Client{Timeout: cfg.Timeout},
		maxRetries:      cfg.MaxRetries,
		initialInterval: interval,
		generation: GenerationConfig{
			MaxOutputTokens: cfg.MaxTokens,
			Temperature:     cfg.Temperature,
			TopP:            cfg.TopP,
			TopK:            cfg.TopK,
		},
		logger: loggy.Component("gemini"),
	}
}

// Model returns the default model name
func (c *Client) Model() string {
	return c.model
}

// GenerateContent sends a generateContent request
func (c *Client) GenerateContent(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		req.Model = c.model
	}
	req.GenerationConfig = c.generationFor(req.GenerationConfig)

	var resp GenerateResponse
	path := fmt.Sprintf("models/%s:generateContent", url.PathEscape(req.Model))
	if err := c.makeRequest(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		c.logger.Warn("Prompt blocked",
			"request_id", loggy.GetRequestID(ctx),
			"reason", resp.PromptFeedback.BlockReason)
	}

	return &resp, nil
}

// generationFor overlays the request's non-zero settings on the client
// defaults. Nil means no generationConfig is sent.
func (c *Client) generationFor(req *GenerationConfig) *GenerationConfig {
	gc := c.generation
	if req != nil {
		if req.MaxOutputTokens > 0 {
			gc.MaxOutputTokens = req.MaxOutputTokens
		}
		if req.Temperature != nil {
			gc.Temperature = req.Temperature
		}
		if req.TopP != nil {
			gc.TopP = req.TopP
		}
		if req.TopK != nil {
			gc.TopK = req.TopK
		}
		if req.ResponseMIMEType != "" {
			gc.ResponseMIMEType = req.ResponseMIMEType
		}
	}
	if gc == (GenerationConfig{}) {
		return nil
	}
	return &gc
}

// makeRequest sends one API call, retrying 429/5xx and transport errors
func (c *Client) makeRequest(ctx context.Context, method, path string, requestBody, responseBody interface{}) error {
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, c.apiVersion, strings.TrimPrefix(path, "/"))

	var payload []byte
	if requestBody != nil {
		var err error
		payload, err = json.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("marshalling request: %w", err)
		}
	}

	logger := c.logger
	if id := loggy.GetRequestID(ctx); id != "" {
		logger = logger.With("request_id", id)
	}

	// The key is never logged
	logger.Debug("Sending Gemini request", "method", method, "url", endpoint, "body_bytes", len(payload))

	attempt := 0
	operation := func() error {
		attempt++

		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		q := req.URL.Query()
		q.Set("key", c.apiKey)
		req.URL.RawQuery = q.Encode()

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			logger.Warn("Gemini request failed", "attempt", attempt, "error", err)
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response body: %w", err)
		}

		logger.Debug("Gemini response", "status_code", resp.StatusCode, "attempt", attempt, "content_length", len(body))

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			apiErr := &APIError{StatusCode: resp.StatusCode}
			if jsonErr := json.Unmarshal(body, apiErr); jsonErr != nil || apiErr.ErrorDetail == nil {
				apiErr.ErrorDetail = &ErrorDetails{Code: resp.StatusCode, Message: strings.TrimSpace(string(body))}
			}
			logger.Error("Gemini API error response", "status", resp.Status, "attempt", attempt, "message", apiErr.ErrorDetail.Message)

			if apiErr.Retryable() {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if responseBody != nil {
			if err := json.Unmarshal(body, responseBody); err != nil {
				return backoff.Permanent(fmt.Errorf("unmarshalling response: %w", err))
			}
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialInterval
	var b backoff.BackOff = backoff.WithMaxRetries(policy, uint64(c.maxRetries))

	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}
