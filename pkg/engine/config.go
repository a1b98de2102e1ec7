package engine

import (
	"log/slog"

	"github.com/rhuss/chatbridge/pkg/api"
)

// Config holds configuration for the engine.
type Config struct {
	// DefaultModel is used when a request omits the model. Empty means the
	// model is always required.
	DefaultModel string

	// CaptureReasoning keeps reasoning text in final results. A request
	// can also opt in with return_reasoning.
	CaptureReasoning bool

	// RepairToolArguments runs invalid tool call arguments through a JSON
	// repair pass before they are returned.
	RepairToolArguments bool

	// Validation limits requests. The zero value selects
	// api.DefaultValidationConfig.
	Validation api.ValidationConfig

	Logger *slog.Logger
}

func (c Config) validation() api.ValidationConfig {
	if c.Validation == (api.ValidationConfig{}) {
		return api.DefaultValidationConfig()
	}
	return c.Validation
}
