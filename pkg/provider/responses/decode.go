package responses

import (
	"github.com/tidwall/gjson"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/stream"
)

// decodeEvent classifies one Responses API SSE message. eventType is the
// SSE "event:" field; when absent the payload's "type" is used. Unknown or
// unparseable messages become stream.Unrecognized.
func decodeEvent(eventType string, data []byte) stream.Event {
	if !gjson.ValidBytes(data) {
		return stream.Unrecognized{Type: eventType}
	}
	r := gjson.ParseBytes(data)
	if eventType == "" {
		eventType = r.Get("type").String()
	}

	switch eventType {
	case eventResponseCreated:
		return stream.Created{
			StreamID: r.Get("response.id").String(),
			Model:    r.Get("response.model").String(),
		}

	case eventTextDelta:
		return stream.TextDelta{Text: r.Get("delta").String()}

	case eventReasoningDelta, eventReasoningSummary:
		return stream.ReasoningDelta{Text: r.Get("delta").String()}

	case eventOutputItemAdded:
		item := r.Get("item")
		if item.Get("type").String() != "function_call" {
			return stream.Unrecognized{Type: eventType + ":" + item.Get("type").String()}
		}
		return stream.ToolCallStarted{
			ItemID: item.Get("id").String(),
			CallID: item.Get("call_id").String(),
			Name:   item.Get("name").String(),
		}

	case eventFuncCallArgsDelta:
		return stream.ToolCallArgumentDelta{
			ItemID:   r.Get("item_id").String(),
			Fragment: r.Get("delta").String(),
		}

	case eventFuncCallArgsDone:
		return stream.ToolCallArgumentDone{
			ItemID:    r.Get("item_id").String(),
			Arguments: r.Get("arguments").String(),
		}

	case eventResponseCompleted:
		return stream.Completed{
			Status: r.Get("response.status").String(),
			Usage:  decodeUsage(r.Get("response.usage")),
		}

	case eventResponseFailed:
		details := r.Get("response.error.message").String()
		if details == "" {
			details = "response failed"
		}
		return stream.Failed{
			Code:    r.Get("response.error.code").String(),
			Details: details,
		}

	case eventResponseIncomplete:
		reason := r.Get("response.incomplete_details.reason").String()
		if reason == "" {
			reason = "unknown"
		}
		return stream.Incomplete{
			Reason: reason,
			Usage:  decodeUsage(r.Get("response.usage")),
		}

	case eventError:
		// Top-level fields in current servers, nested under "error" in older ones.
		msg := r.Get("message").String()
		code := r.Get("code").String()
		if msg == "" {
			msg = r.Get("error.message").String()
			code = r.Get("error.code").String()
		}
		return stream.ErrorEvent{Code: code, Message: msg}

	default:
		return stream.Unrecognized{Type: eventType}
	}
}

// decodeUsage reads a Responses usage object, or returns nil when absent.
func decodeUsage(u gjson.Result) *api.TokenUsage {
	if !u.Exists() || u.Type == gjson.Null {
		return nil
	}
	return &api.TokenUsage{
		InputTokens:       int(u.Get("input_tokens").Int()),
		OutputTokens:      int(u.Get("output_tokens").Int()),
		TotalTokens:       int(u.Get("total_tokens").Int()),
		CachedInputTokens: int(u.Get("input_tokens_details.cached_tokens").Int()),
		ReasoningTokens:   int(u.Get("output_tokens_details.reasoning_tokens").Int()),
	}
}
