package ollama

import (
	"encoding/json"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/provider"
)

func translateRequest(req *api.ChatRequest, streaming, think bool) *chatRequest {
	cr := &chatRequest{
		Model:  req.Model,
		Stream: streaming,
	}

	opts := map[string]any{}
	if req.Temperature != nil {
		opts["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		opts["top_p"] = *req.TopP
	}
	if req.MaxTokens != nil {
		opts["num_predict"] = *req.MaxTokens
	}
	if len(req.Stop) > 0 {
		opts["stop"] = req.Stop
	}
	if len(opts) > 0 {
		cr.Options = opts
	}

	if think && (req.ReturnReasoning || req.ReasoningEffort != "") {
		t := true
		cr.Think = &t
	}

	// Tool results reference calls by name; remember names by call ID.
	callNames := map[string]string{}
	for _, m := range req.Messages {
		cm := chatMessage{Role: string(m.Role), Content: m.Text(), ToolCallID: m.ToolCallID}
		for _, p := range m.Parts {
			if p.Type == "image" && p.Data != "" {
				cm.Images = append(cm.Images, p.Data)
			}
		}
		for _, tc := range m.ToolCalls {
			callNames[tc.ID] = tc.Name
			var call chatToolCall
			call.ID = tc.ID
			call.Function.Name = tc.Name
			call.Function.Arguments = argumentsObject(tc.Arguments)
			cm.ToolCalls = append(cm.ToolCalls, call)
		}
		if m.Role == api.RoleTool {
			cm.ToolName = callNames[m.ToolCallID]
		}
		cr.Messages = append(cr.Messages, cm)
	}

	for _, t := range provider.NormalizeTools(req.Tools) {
		cr.Tools = append(cr.Tools, chatTool{
			Type: "function",
			Function: functionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return cr
}

// argumentsObject turns a JSON argument string back into the raw object
// Ollama expects. Invalid JSON is sent as an empty object.
func argumentsObject(args string) json.RawMessage {
	if args == "" || !json.Valid([]byte(args)) {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(args)
}

// argumentsString renders Ollama's argument object as a JSON string.
func argumentsString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "{}"
	}
	// Some models emit the arguments as a JSON-encoded string.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func usageFrom(c *chatChunk) *api.TokenUsage {
	if c.PromptEvalCount == 0 && c.EvalCount == 0 {
		return nil
	}
	return &api.TokenUsage{
		InputTokens:  c.PromptEvalCount,
		OutputTokens: c.EvalCount,
		TotalTokens:  c.PromptEvalCount + c.EvalCount,
	}
}

// doneStatus maps done_reason to the stream core's status vocabulary.
func doneStatus(reason string) string {
	switch reason {
	case "", "stop":
		return "completed"
	case "length":
		return "incomplete"
	default:
		return reason
	}
}
