package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tildaslashalef/codeboost/internal/gemini"
	"github.com/tildaslashalef/codeboost/internal/loggy"
)

// geminiAPI is the part of *gemini.Client the adapter needs
type geminiAPI interface {
	GenerateContent(ctx context.Context, req gemini.GenerateRequest) (*gemini.GenerateResponse, error)
	Model() string
}

// geminiClientAdapter adapts the Gemini client to the LLM Client interface
type geminiClientAdapter struct {
	client geminiAPI
}

func newGeminiClientAdapter(client geminiAPI) *geminiClientAdapter {
	return &geminiClientAdapter{client: client}
}

// GenerateText sends the prompt as one user turn
func (a *geminiClientAdapter) GenerateText(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = a.client.Model()
	}

	greq := gemini.GenerateRequest{
		Model:    model,
		Contents: []gemini.Content{gemini.UserText(req.Prompt)},
	}
	if req.JSON {
		greq.GenerationConfig = &gemini.GenerationConfig{ResponseMIMEType: "application/json"}
	}

	start := time.Now()
	resp, err := a.client.GenerateContent(ctx, greq)
	if err != nil {
		return nil, fmt.Errorf("gemini %s request failed: %w", req.Feature, err)
	}

	content := resp.Text()
	elapsed := time.Since(start)
	loggy.Debug("Gemini generation finished",
		"feature", req.Feature,
		"model", model,
		"duration", elapsed,
		"response_length", len(content))

	if content == "" {
		return nil, ErrEmptyResponse
	}

	return &GenerateResponse{Content: content, Model: model, Duration: elapsed}, nil
}

func (a *geminiClientAdapter) Model() string {
	return a.client.Model()
}

// IsEmpty reports whether err means the model had nothing to say
func IsEmpty(err error) bool {
	return errors.Is(err, ErrEmptyResponse)
}
