package main

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"

	"github.com/rhuss/chatbridge/pkg/provider/openaicompat"
)

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	q, ok := readRequest(w, r)
	if !ok {
		return
	}
	rep := classify(q)
	if q.stream {
		streamChatCompletions(w, rep)
		return
	}
	if rep.failure != "" {
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, openaicompat.ChatErrorResponse{Error: openaicompat.ChatErrorBody{Message: rep.failure, Type: "server_error"}})
		return
	}

	msg := openaicompat.ChatMessage{Role: "assistant"}
	if rep.tool != nil {
		msg.ToolCalls = []openaicompat.ChatToolCall{{
			ID:       rep.tool.callID,
			Type:     "function",
			Function: openaicompat.ChatFunctionCall{Name: rep.tool.name, Arguments: rep.tool.arguments()},
		}}
	} else {
		msg.Content = rep.text()
	}
	if len(rep.reasoning) > 0 {
		s := strings.Join(rep.reasoning, "")
		msg.ReasoningContent = &s
	}

	writeJSON(w, openaicompat.ChatCompletionResponse{
		ID:      "chatcmpl-mock",
		Object:  "chat.completion",
		Model:   rep.model,
		Choices: []openaicompat.ChatChoice{{Message: msg, FinishReason: rep.finishReason()}},
		Usage:   chatUsage(rep),
	})
}

func chatUsage(rep *reply) *openaicompat.ChatUsage {
	out := len(rep.tokens) + len(rep.reasoning)
	if rep.tool != nil {
		out += len(rep.tool.fragments)
	}
	return &openaicompat.ChatUsage{PromptTokens: 10, CompletionTokens: out, TotalTokens: 10 + out}
}

func streamChatCompletions(w http.ResponseWriter, rep *reply) {
	ew := newEventWriter(w, "text/event-stream")
	chunk := func(delta openaicompat.ChatChunkDelta, finish *string) openaicompat.ChatCompletionChunk {
		return openaicompat.ChatCompletionChunk{
			ID:      "chatcmpl-mock-stream",
			Object:  "chat.completion.chunk",
			Model:   rep.model,
			Choices: []openaicompat.ChatChunkChoice{{Delta: delta, FinishReason: finish}},
		}
	}

	ew.sse("", chunk(openaicompat.ChatChunkDelta{Role: "assistant"}, nil))
	for _, r := range rep.reasoning {
		ew.sse("", chunk(openaicompat.ChatChunkDelta{ReasoningContent: &r}, nil))
	}
	for _, tok := range rep.tokens {
		ew.sse("", chunk(openaicompat.ChatChunkDelta{Content: &tok}, nil))
		if rep.failure != "" {
			ew.sse("", openaicompat.ChatErrorResponse{Error: openaicompat.ChatErrorBody{Message: rep.failure, Type: "server_error"}})
			return
		}
	}
	if t := rep.tool; t != nil {
		for i, frag := range t.fragments {
			tc := openaicompat.ChatChunkToolCall{Function: openaicompat.ChatChunkFunctionCall{Arguments: frag}}
			if i == 0 {
				tc.ID, tc.Type, tc.Function.Name = t.callID, "function", t.name
			}
			ew.sse("", chunk(openaicompat.ChatChunkDelta{ToolCalls: []openaicompat.ChatChunkToolCall{tc}}, nil))
		}
	}

	finish := rep.finishReason()
	ew.sse("", chunk(openaicompat.ChatChunkDelta{}, &finish))
	ew.sse("", openaicompat.ChatCompletionChunk{
		ID:      "chatcmpl-mock-stream",
		Object:  "chat.completion.chunk",
		Model:   rep.model,
		Choices: []openaicompat.ChatChunkChoice{},
		Usage:   chatUsage(rep),
	})
	ew.raw("data: [DONE]\n\n")
}

func handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	q, ok := readRequest(w, r)
	if !ok {
		return
	}
	resp := openaicompat.EmbeddingResponse{Model: q.model}
	for i, s := range inputStrings(q) {
		resp.Data = append(resp.Data, openaicompat.EmbeddingData{Index: i, Embedding: embedding(s)})
	}
	writeJSON(w, resp)
}

// handleImages returns n placeholder images. URLs unless b64_json is
// requested; the prompt is echoed back as the revised prompt.
func handleImages(w http.ResponseWriter, r *http.Request) {
	q, ok := readRequest(w, r)
	if !ok {
		return
	}
	prompt := q.raw.Get("prompt").String()
	n := int(q.raw.Get("n").Int())
	if n <= 0 {
		n = 1
	}
	b64 := q.raw.Get("response_format").String() == "b64_json"

	resp := openaicompat.ImageResponse{Created: 1700000000}
	for i := range n {
		img := openaicompat.ImageData{RevisedPrompt: prompt}
		if b64 {
			img.B64JSON = base64.StdEncoding.EncodeToString([]byte(prompt))
		} else {
			img.URL = "https://images.mock.local/" + strconv.Itoa(i) + ".png"
		}
		resp.Data = append(resp.Data, img)
	}
	writeJSON(w, resp)
}

func handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, openaicompat.ChatModelsResponse{
		Object: "list",
		Data:   []openaicompat.ChatModel{{ID: mockModel, Object: "model", Created: 1700000000, OwnedBy: "chatbridge-mock"}},
	})
}
