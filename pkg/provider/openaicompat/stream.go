package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/debug"
	"github.com/rhuss/chatbridge/pkg/provider"
	"github.com/rhuss/chatbridge/pkg/stream"
)

// toolCallBuffer tracks one tool call across chunks, keyed by its index.
type toolCallBuffer struct {
	itemID string
	callID string
	name   string
	args   []byte
}

// ChunkSource decodes a Chat Completions SSE stream into stream events.
//
// Chat Completions has no explicit tool call "done" message: all buffered
// calls are closed, in index order, when a choice reports finish_reason.
// Completed is emitted on the trailing usage chunk, or on [DONE] when the
// backend sends no usage.
type ChunkSource struct {
	body   io.ReadCloser
	reader *provider.SSEReader

	queue     []stream.Event
	created   bool
	toolCalls map[int]*toolCallBuffer
	status    string
	usage     *api.TokenUsage
	finished  bool
	ended     bool
}

// NewChunkSource creates a ChunkSource reading from body. Close closes body.
func NewChunkSource(body io.ReadCloser) *ChunkSource {
	return &ChunkSource{
		body:      body,
		reader:    provider.NewSSEReader(body),
		toolCalls: make(map[int]*toolCallBuffer),
	}
}

// Next returns the next decoded event, or io.EOF once the stream has ended.
func (s *ChunkSource) Next(ctx context.Context) (stream.Event, error) {
	for {
		if len(s.queue) > 0 {
			ev := s.queue[0]
			s.queue = s.queue[1:]
			return ev, nil
		}
		if s.ended {
			return nil, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msg, err := s.reader.Next()
		if errors.Is(err, io.EOF) {
			// Some backends close the connection without [DONE].
			if s.finished {
				s.complete()
				continue
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("openaicompat: read stream: %w", err)
		}

		debug.Trace("providers", "chat completions chunk", "data", debug.Truncate(msg.Data, 500))

		if msg.Data == "[DONE]" {
			if !s.finished {
				debug.Log("providers", "stream ended without finish_reason")
				s.flushToolCalls()
				s.status = "completed"
			}
			s.complete()
			continue
		}

		var chunk ChatCompletionChunk
		if err := json.Unmarshal([]byte(msg.Data), &chunk); err != nil {
			slog.Warn("skipping malformed SSE chunk",
				"error", err.Error(),
				"data", debug.Truncate(msg.Data, 200),
			)
			continue
		}
		s.translateChunk(&chunk)
	}
}

// Close closes the underlying response body.
func (s *ChunkSource) Close() error {
	return s.body.Close()
}

func (s *ChunkSource) emit(ev stream.Event) {
	s.queue = append(s.queue, ev)
}

func (s *ChunkSource) translateChunk(chunk *ChatCompletionChunk) {
	if chunk.Error != nil {
		s.emit(stream.ErrorEvent{Code: errorCode(chunk.Error.Code, chunk.Error.Type), Message: chunk.Error.Message})
		s.ended = true
		return
	}

	if !s.created {
		s.created = true
		s.emit(stream.Created{StreamID: chunk.ID, Model: chunk.Model})
	}

	if chunk.Usage != nil {
		s.usage = TranslateUsage(chunk.Usage)
	}

	// A usage-only chunk (stream_options.include_usage) trails the
	// finish_reason chunk.
	if len(chunk.Choices) == 0 {
		if s.finished && s.usage != nil {
			s.complete()
		}
		return
	}

	choice := chunk.Choices[0]
	delta := choice.Delta

	if delta.ReasoningContent != nil && *delta.ReasoningContent != "" {
		s.emit(stream.ReasoningDelta{Text: *delta.ReasoningContent})
	}
	if delta.Content != nil && *delta.Content != "" {
		s.emit(stream.TextDelta{Text: *delta.Content})
	}

	for _, tc := range delta.ToolCalls {
		buf, ok := s.toolCalls[tc.Index]
		if !ok {
			// First chunk for this index carries id and function name.
			callID := tc.ID
			if callID == "" {
				callID = api.NewCallID()
			}
			buf = &toolCallBuffer{
				itemID: fmt.Sprintf("tool_%d", tc.Index),
				callID: callID,
				name:   tc.Function.Name,
			}
			s.toolCalls[tc.Index] = buf
			s.emit(stream.ToolCallStarted{ItemID: buf.itemID, CallID: buf.callID, Name: buf.name})
		}
		if tc.Function.Arguments != "" {
			buf.args = append(buf.args, tc.Function.Arguments...)
			s.emit(stream.ToolCallArgumentDelta{ItemID: buf.itemID, Fragment: tc.Function.Arguments})
		}
	}

	if choice.FinishReason != nil && !s.finished {
		s.finished = true
		s.status = MapFinishStatus(*choice.FinishReason)
		s.flushToolCalls()
		if chunk.Usage != nil {
			s.complete()
		}
	}
}

// flushToolCalls closes every buffered tool call in index order.
func (s *ChunkSource) flushToolCalls() {
	indexes := make([]int, 0, len(s.toolCalls))
	for idx := range s.toolCalls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	for _, idx := range indexes {
		buf := s.toolCalls[idx]
		s.emit(stream.ToolCallArgumentDone{ItemID: buf.itemID, Arguments: string(buf.args)})
		delete(s.toolCalls, idx)
	}
}

func (s *ChunkSource) complete() {
	if s.ended {
		return
	}
	s.ended = true
	s.emit(stream.Completed{Status: s.status, Usage: s.usage})
}

func errorCode(code any, typ string) string {
	switch v := code.(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return fmt.Sprintf("%d", int(v))
	}
	return typ
}
