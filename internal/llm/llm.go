package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/tildaslashalef/codeboost/internal/config"
	"github.com/tildaslashalef/codeboost/internal/gemini"
	"github.com/tildaslashalef/codeboost/internal/loggy"
)

// ErrEmptyResponse means the model answered with no usable text. Callers
// treat it as "nothing to report" rather than as a failure.
var ErrEmptyResponse = errors.New("model returned no text")

// GenerateRequest is a single text-in request
type GenerateRequest struct {
	Model   string // Empty uses the provider default
	Prompt  string
	Feature string // Caller tag used for logging, e.g. "completion"
	JSON    bool   // Ask for an application/json reply
}

// GenerateResponse is the text-out half
type GenerateResponse struct {
	Content  string
	Model    string
	Duration time.Duration
}

// Client is the text generation oracle every feature talks to
type Client interface {
	GenerateText(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	Model() string
}

// ClientType defines the type of LLM client
type ClientType string

const (
	// Gemini client type
	Gemini ClientType = "gemini"
)

// Factory creates and returns LLM clients
type Factory struct {
	config *config.Config
	logger *loggy.Logger

	gemini        *gemini.Client
	geminiLimiter *rate.Limiter
}

// newLimiter builds a limiter from requests per minute and burst
func newLimiter(rpm, burst int) *rate.Limiter {
	if burst <= 0 {
		burst = 1
	}
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)
}

// NewFactory creates a new LLM client factory
func NewFactory(cfg *config.Config, logger *loggy.Logger) *Factory {
	return &Factory{
		config:        cfg,
		logger:        logger,
		geminiLimiter: newLimiter(cfg.Gemini.RequestsPerMinute, cfg.Gemini.BurstLimit),
	}
}

// GetClient returns the rate-limited client for clientType
func (f *Factory) GetClient(clientType ClientType) (Client, error) {
	switch clientType {
	case Gemini, "":
		if err := f.config.RequireAPIKey(); err != nil {
			return nil, err
		}
		if f.gemini == nil {
			g := f.config.Gemini
			cfg := gemini.Config{
				APIKey:     g.APIKey,
				BaseURL:    g.BaseURL,
				APIVersion: g.APIVersion,
				Model:      g.Model,
				Timeout:    g.Timeout,
				MaxRetries: g.MaxRetries,
				MaxTokens:  g.MaxTokens,
			}
			if g.Temperature > 0 {
				cfg.Temperature = gemini.Float64Ptr(g.Temperature)
			}
			if g.TopP > 0 {
				cfg.TopP = gemini.Float64Ptr(g.TopP)
			}
			if g.TopK > 0 {
				cfg.TopK = gemini.IntPtr(g.TopK)
			}
			f.gemini = gemini.NewClient(cfg)
		}
		return newRateLimitedClient(newGeminiClientAdapter(f.gemini), f.geminiLimiter, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported LLM client type: %s", clientType)
	}
}

// DefaultClient returns the Gemini client
func (f *Factory) DefaultClient() (Client, error) {
	return f.GetClient(Gemini)
}

// rateLimitedClient waits on a shared limiter before every call
type rateLimitedClient struct {
	next    Client
	limiter *rate.Limiter
	logger  *loggy.Logger
}

func newRateLimitedClient(next Client, limiter *rate.Limiter, logger *loggy.Logger) *rateLimitedClient {
	return &rateLimitedClient{next: next, limiter: limiter, logger: logger}
}

func (c *rateLimitedClient) GenerateText(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	ctx = loggy.WithRequestID(ctx)

	start := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	if waited := time.Since(start); waited > 100*time.Millisecond {
		c.logger.Debug("Rate limited LLM request",
			"feature", req.Feature,
			"request_id", loggy.GetRequestID(ctx),
			"waited", waited)
	}
	return c.next.GenerateText(ctx, req)
}

func (c *rateLimitedClient) Model() string {
	return c.next.Model()
}
