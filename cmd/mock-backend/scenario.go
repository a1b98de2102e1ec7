package main

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

const mockModel = "mock-model"

// reply is the scripted answer to one request, independent of wire format.
type reply struct {
	model     string
	reasoning []string
	tokens    []string
	tool      *toolReply
	failure   string // sent after the first token
}

type toolReply struct {
	callID    string
	name      string
	fragments []string // arguments, split as a server would stream them
}

func (t *toolReply) arguments() string { return strings.Join(t.fragments, "") }

func (r *reply) text() string { return strings.Join(r.tokens, "") }

func (r *reply) finishReason() string {
	if r.tool != nil {
		return "tool_calls"
	}
	return "stop"
}

// request is what every handler needs to know about an incoming body.
type request struct {
	raw    gjson.Result
	model  string
	stream bool
}

func readRequest(w http.ResponseWriter, r *http.Request) (*request, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
	if err != nil || !gjson.ValidBytes(body) {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return nil, false
	}
	raw := gjson.ParseBytes(body)
	model := raw.Get("model").String()
	if model == "" {
		model = mockModel
	}
	return &request{raw: raw, model: model, stream: raw.Get("stream").Bool()}, true
}

// lastUserText finds the last user turn in "messages" (Chat Completions,
// Ollama) or "input" (Responses), with string or multi-part content.
func (q *request) lastUserText() string {
	turns := q.raw.Get("messages")
	if !turns.Exists() {
		turns = q.raw.Get("input")
	}
	if turns.Type == gjson.String {
		return turns.String()
	}
	text := ""
	turns.ForEach(func(_, turn gjson.Result) bool {
		if turn.Get("role").String() != "user" {
			return true
		}
		content := turn.Get("content")
		if content.IsArray() {
			content.ForEach(func(_, part gjson.Result) bool {
				if t := part.Get("text"); t.Exists() {
					text = t.String()
					return false
				}
				return true
			})
		} else {
			text = content.String()
		}
		return true
	})
	return text
}

func (q *request) hasTools() bool {
	return q.raw.Get("tools.#").Int() > 0
}

func classify(q *request) *reply {
	r := &reply{model: q.model, tokens: []string{"Hello", ", ", "nice", " ", "day", "!"}}
	msg := strings.ToLower(q.lastUserText())

	switch {
	case q.hasTools():
		r.tokens = nil
		r.tool = &toolReply{
			callID:    "call_mock_1",
			name:      "get_weather",
			fragments: []string{`{"location":`, `"San Francisco",`, `"unit":"celsius"}`},
		}
	case strings.Contains(msg, "count from 1 to 5"):
		r.tokens = []string{"1", ", ", "2", ", ", "3", ", ", "4", ", ", "5"}
	case strings.Contains(msg, "think"):
		r.reasoning = []string{"The question ", "needs a number."}
		r.tokens = []string{"42"}
	case strings.Contains(msg, "fail"):
		r.tokens = []string{"partial"}
		r.failure = "mock backend failure"
	}
	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// eventWriter writes SSE or NDJSON frames and flushes after each one.
type eventWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func newEventWriter(w http.ResponseWriter, contentType string) *eventWriter {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	f, _ := w.(http.Flusher)
	return &eventWriter{w: w, f: f}
}

func (e *eventWriter) raw(s string) {
	io.WriteString(e.w, s)
	if e.f != nil {
		e.f.Flush()
	}
}

func (e *eventWriter) sse(event string, v any) {
	data, _ := json.Marshal(v)
	if event != "" {
		e.raw("event: " + event + "\ndata: " + string(data) + "\n\n")
		return
	}
	e.raw("data: " + string(data) + "\n\n")
}

func (e *eventWriter) ndjson(v any) {
	data, _ := json.Marshal(v)
	e.raw(string(data) + "\n")
}

// embedding returns a small deterministic vector for s.
func embedding(s string) []float32 {
	v := make([]float32, 4)
	for i, c := range s {
		v[i%4] += float32(c) / 1000
	}
	return v
}

func inputStrings(q *request) []string {
	in := q.raw.Get("input")
	if in.Type == gjson.String {
		return []string{in.String()}
	}
	var out []string
	in.ForEach(func(_, v gjson.Result) bool {
		out = append(out, v.String())
		return true
	})
	return out
}
