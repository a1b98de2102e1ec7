package provider

import (
	"github.com/rhuss/chatbridge/pkg/api"
)

// ValidateCapabilities checks whether the given request is compatible with
// the provider's declared capabilities. Returns an APIError identifying
// the specific unsupported feature, or nil if the request is compatible.
func ValidateCapabilities(caps Capabilities, req *api.ChatRequest) *api.APIError {
	if req.Stream && !caps.Streaming {
		return api.NewInvalidRequestError("stream",
			"the configured provider does not support streaming responses")
	}

	if len(req.Tools) > 0 && !caps.ToolCalling {
		return api.NewInvalidRequestError("tools",
			"the configured provider does not support tool calling")
	}

	if (req.ReturnReasoning || req.ReasoningEffort != "") && !caps.Reasoning {
		return api.NewInvalidRequestError("reasoning_effort",
			"the configured provider does not support reasoning models")
	}

	for _, msg := range req.Messages {
		if msg.HasImages() && !caps.Vision {
			return api.NewInvalidRequestError("messages",
				"the configured provider does not support image inputs")
		}
	}

	return nil
}
