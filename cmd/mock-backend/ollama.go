package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

func ollamaMessage(content, thinking string, rep *reply, final bool) object {
	msg := object{"role": "assistant", "content": content}
	if thinking != "" {
		msg["thinking"] = thinking
	}
	if final && rep.tool != nil {
		msg["tool_calls"] = []object{{
			"function": object{"name": rep.tool.name, "arguments": json.RawMessage(rep.tool.arguments())},
		}}
	}
	return msg
}

func ollamaChunk(rep *reply, msg object, done bool) object {
	c := object{
		"model":      rep.model,
		"created_at": time.Unix(1700000000, 0).UTC().Format(time.RFC3339),
		"message":    msg,
		"done":       done,
	}
	if done {
		u := chatUsage(rep)
		c["done_reason"] = "stop"
		c["prompt_eval_count"] = u.PromptTokens
		c["eval_count"] = u.CompletionTokens
	}
	return c
}

func handleOllamaChat(w http.ResponseWriter, r *http.Request) {
	q, ok := readRequest(w, r)
	if !ok {
		return
	}
	// Ollama streams unless told otherwise.
	stream := !q.raw.Get("stream").Exists() || q.stream
	rep := classify(q)

	if !stream {
		if rep.failure != "" {
			w.WriteHeader(http.StatusInternalServerError)
			writeJSON(w, object{"error": rep.failure})
			return
		}
		writeJSON(w, ollamaChunk(rep, ollamaMessage(rep.text(), strings.Join(rep.reasoning, ""), rep, true), true))
		return
	}

	ew := newEventWriter(w, "application/x-ndjson")
	for _, thought := range rep.reasoning {
		ew.ndjson(ollamaChunk(rep, ollamaMessage("", thought, rep, false), false))
	}
	for _, tok := range rep.tokens {
		ew.ndjson(ollamaChunk(rep, ollamaMessage(tok, "", rep, false), false))
		if rep.failure != "" {
			ew.ndjson(object{"error": rep.failure})
			return
		}
	}
	if rep.tool != nil {
		ew.ndjson(ollamaChunk(rep, ollamaMessage("", "", rep, true), false))
	}
	ew.ndjson(ollamaChunk(rep, ollamaMessage("", "", &reply{}, false), true))
}

func handleOllamaEmbed(w http.ResponseWriter, r *http.Request) {
	q, ok := readRequest(w, r)
	if !ok {
		return
	}
	var vecs [][]float32
	for _, s := range inputStrings(q) {
		vecs = append(vecs, embedding(s))
	}
	writeJSON(w, object{"model": q.model, "embeddings": vecs})
}

func handleOllamaTags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, object{"models": []object{
		{"name": mockModel + ":latest", "model": mockModel + ":latest", "modified_at": "2024-01-01T00:00:00Z", "size": 1 << 30},
	}})
}
