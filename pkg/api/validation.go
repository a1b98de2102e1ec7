package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxMessages    int
	MaxContentSize int
	MaxTools       int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxMessages:    1000,
		MaxContentSize: 10 * 1024 * 1024, // 10MB
		MaxTools:       128,
	}
}

// ValidateRequest checks a ChatRequest for validity. It returns an
// *APIError describing the first validation failure, or nil if the request is valid.
func ValidateRequest(req *ChatRequest, cfg ValidationConfig) *APIError {
	if req.Model == "" {
		return NewInvalidRequestError("model", "model is required")
	}

	if len(req.Messages) == 0 {
		return NewInvalidRequestError("messages", "messages must contain at least one message")
	}

	if cfg.MaxMessages > 0 && len(req.Messages) > cfg.MaxMessages {
		return NewInvalidRequestError("messages",
			fmt.Sprintf("messages exceeds maximum of %d", cfg.MaxMessages))
	}

	if cfg.MaxTools > 0 && len(req.Tools) > cfg.MaxTools {
		return NewInvalidRequestError("tools",
			fmt.Sprintf("tools exceeds maximum of %d", cfg.MaxTools))
	}

	if req.MaxTokens != nil && *req.MaxTokens <= 0 {
		return NewInvalidRequestError("max_tokens", "max_tokens must be positive")
	}

	if req.Temperature != nil {
		if *req.Temperature < 0.0 || *req.Temperature > 2.0 {
			return NewInvalidRequestError("temperature", "temperature must be between 0.0 and 2.0")
		}
	}

	if req.TopP != nil {
		if *req.TopP < 0.0 || *req.TopP > 1.0 {
			return NewInvalidRequestError("top_p", "top_p must be between 0.0 and 1.0")
		}
	}

	switch req.ReasoningEffort {
	case "", "low", "medium", "high":
	default:
		return NewInvalidRequestError("reasoning_effort", "reasoning_effort must be 'low', 'medium' or 'high'")
	}

	for i, msg := range req.Messages {
		if err := validateMessage(i, msg, cfg); err != nil {
			return err
		}
	}

	for i, tool := range req.Tools {
		if tool.Name == "" {
			return NewInvalidRequestError(fmt.Sprintf("tools[%d].name", i), "tool name is required")
		}
		if len(tool.Parameters) > 0 && !json.Valid(tool.Parameters) {
			return NewInvalidRequestError(fmt.Sprintf("tools[%d].parameters", i), "parameters must be valid JSON")
		}
	}

	if req.ToolChoice != nil {
		switch req.ToolChoice.Mode {
		case "", "auto", "none", "required":
		default:
			return NewInvalidRequestError("tool_choice", "tool_choice mode must be 'auto', 'none' or 'required'")
		}
		// A forced function must reference a declared tool.
		if name := req.ToolChoice.Name; name != "" {
			found := false
			for _, tool := range req.Tools {
				if tool.Name == name {
					found = true
					break
				}
			}
			if !found {
				return NewInvalidRequestError("tool_choice",
					fmt.Sprintf("tool_choice references unknown tool %q", name))
			}
		}
	}

	return nil
}

func validateMessage(i int, msg Message, cfg ValidationConfig) *APIError {
	param := fmt.Sprintf("messages[%d]", i)

	switch msg.Role {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
	default:
		return NewInvalidRequestError(param+".role", fmt.Sprintf("unsupported role %q", msg.Role))
	}

	if cfg.MaxContentSize > 0 {
		size := len(msg.Content)
		for _, p := range msg.Parts {
			size += len(p.Text) + len(p.Data)
		}
		if size > cfg.MaxContentSize {
			return NewInvalidRequestError(param+".content",
				fmt.Sprintf("content exceeds maximum size of %d bytes", cfg.MaxContentSize))
		}
	}

	if msg.Role == RoleTool && msg.ToolCallID == "" {
		return NewInvalidRequestError(param+".tool_call_id", "tool messages require tool_call_id")
	}

	if msg.Role != RoleUser && msg.HasImages() {
		return NewInvalidRequestError(param+".parts", "only user messages may carry images")
	}

	for j, p := range msg.Parts {
		switch p.Type {
		case "text":
		case "image":
			if p.URL == "" && p.Data == "" {
				return NewInvalidRequestError(fmt.Sprintf("%s.parts[%d]", param, j), "image parts require url or data")
			}
		default:
			return NewInvalidRequestError(fmt.Sprintf("%s.parts[%d].type", param, j), fmt.Sprintf("unsupported part type %q", p.Type))
		}
	}

	if msg.Role == RoleAssistant {
		for j, tc := range msg.ToolCalls {
			if tc.ID == "" || tc.Name == "" {
				return NewInvalidRequestError(fmt.Sprintf("%s.tool_calls[%d]", param, j), "tool calls require id and name")
			}
		}
	}

	return nil
}

// ValidateImageRequest checks an image generation request.
func ValidateImageRequest(req *ImageRequest) *APIError {
	if strings.TrimSpace(req.Prompt) == "" {
		return NewInvalidRequestError("prompt", "prompt is required")
	}
	if req.N < 0 || req.N > 10 {
		return NewInvalidRequestError("n", "n must be between 1 and 10")
	}
	switch req.ResponseFormat {
	case "", "url", "b64_json":
	default:
		return NewInvalidRequestError("response_format", "response_format must be 'url' or 'b64_json'")
	}
	return nil
}
