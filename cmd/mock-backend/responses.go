package main

import (
	"net/http"
	"strings"
)

type object = map[string]any

func responsesUsage(rep *reply) object {
	u := chatUsage(rep)
	return object{"input_tokens": u.PromptTokens, "output_tokens": u.CompletionTokens, "total_tokens": u.TotalTokens}
}

func handleResponses(w http.ResponseWriter, r *http.Request) {
	q, ok := readRequest(w, r)
	if !ok {
		return
	}
	rep := classify(q)
	if q.stream {
		streamResponses(w, rep)
		return
	}

	resp := object{
		"id":     "resp_mock",
		"object": "response",
		"model":  rep.model,
		"status": "completed",
		"usage":  responsesUsage(rep),
	}
	if rep.failure != "" {
		resp["status"] = "failed"
		resp["error"] = object{"code": "server_error", "message": rep.failure}
		resp["output"] = []object{}
		writeJSON(w, resp)
		return
	}

	var output []object
	if len(rep.reasoning) > 0 {
		output = append(output, object{
			"type":    "reasoning",
			"id":      "rs_mock",
			"summary": []object{{"type": "summary_text", "text": strings.Join(rep.reasoning, "")}},
		})
	}
	if t := rep.tool; t != nil {
		output = append(output, object{
			"type":      "function_call",
			"id":        "fc_mock",
			"call_id":   t.callID,
			"name":      t.name,
			"arguments": t.arguments(),
			"status":    "completed",
		})
	} else {
		output = append(output, object{
			"type":    "message",
			"id":      "msg_mock",
			"role":    "assistant",
			"status":  "completed",
			"content": []object{{"type": "output_text", "text": rep.text()}},
		})
	}
	resp["output"] = output
	writeJSON(w, resp)
}

func streamResponses(w http.ResponseWriter, rep *reply) {
	ew := newEventWriter(w, "text/event-stream")
	send := func(typ string, fields object) {
		fields["type"] = typ
		ew.sse(typ, fields)
	}

	send("response.created", object{"response": object{"id": "resp_mock", "model": rep.model, "status": "in_progress"}})
	for _, thought := range rep.reasoning {
		send("response.reasoning_summary_text.delta", object{"item_id": "rs_mock", "delta": thought})
	}
	for _, tok := range rep.tokens {
		send("response.output_text.delta", object{"item_id": "msg_mock", "output_index": 0, "delta": tok})
		if rep.failure != "" {
			send("response.failed", object{"response": object{
				"id":     "resp_mock",
				"status": "failed",
				"error":  object{"code": "server_error", "message": rep.failure},
			}})
			return
		}
	}
	if t := rep.tool; t != nil {
		send("response.output_item.added", object{"item": object{
			"type":    "function_call",
			"id":      "fc_mock",
			"call_id": t.callID,
			"name":    t.name,
		}})
		for _, frag := range t.fragments {
			send("response.function_call_arguments.delta", object{"item_id": "fc_mock", "delta": frag})
		}
		send("response.function_call_arguments.done", object{"item_id": "fc_mock", "arguments": t.arguments()})
	}
	send("response.completed", object{"response": object{
		"id":     "resp_mock",
		"model":  rep.model,
		"status": "completed",
		"usage":  responsesUsage(rep),
	}})
}
