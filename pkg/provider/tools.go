package provider

import (
	"encoding/json"
	"log/slog"

	"github.com/rhuss/chatbridge/pkg/api"
)

// emptyObjectSchema is sent for tools declared without parameters; most
// backends reject a function tool with no schema at all.
var emptyObjectSchema = json.RawMessage(`{"type":"object","properties":{}}`)

// NormalizeTools prepares tool specs for a backend: tools without a
// parameter schema get an empty object schema, and later duplicates of a
// tool name are dropped with a warning.
func NormalizeTools(tools []api.ToolSpec) []api.ToolSpec {
	if len(tools) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(tools))
	out := make([]api.ToolSpec, 0, len(tools))
	for _, t := range tools {
		if seen[t.Name] {
			slog.Warn("duplicate tool name, dropping later definition", "name", t.Name)
			continue
		}
		seen[t.Name] = true
		if len(t.Parameters) == 0 {
			t.Parameters = emptyObjectSchema
		}
		out = append(out, t)
	}
	return out
}
