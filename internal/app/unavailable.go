package app

import (
	"context"

	"github.com/tildaslashalef/codeboost/internal/llm"
)

// unavailableClient stands in for the model when configuration failed, so
// commands that never call the model still work
type unavailableClient struct {
	err   error
	model string
}

func (u unavailableClient) GenerateText(context.Context, llm.GenerateRequest) (*llm.GenerateResponse, error) {
	return nil, u.err
}

func (u unavailableClient) Model() string {
	return u.model
}
