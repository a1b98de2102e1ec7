package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/debug"
	"github.com/rhuss/chatbridge/pkg/stream"
)

const maxLine = 4 * 1024 * 1024

// lineSource decodes the newline-delimited JSON stream of /api/chat.
//
// Tool calls arrive as complete objects, so each becomes a Started event
// immediately followed by its Done event.
type lineSource struct {
	body    io.ReadCloser
	scanner *bufio.Scanner

	queue   []stream.Event
	started bool
	calls   int
	ended   bool
}

func newLineSource(body io.ReadCloser) *lineSource {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	return &lineSource{body: body, scanner: scanner}
}

func (s *lineSource) Next(ctx context.Context) (stream.Event, error) {
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

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, fmt.Errorf("ollama: read stream: %w", err)
			}
			return nil, io.EOF
		}
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		debug.Trace("providers", "ollama chunk", "data", debug.Truncate(string(line), 500))

		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			slog.Warn("skipping malformed ollama chunk", "error", err.Error(), "data", debug.Truncate(string(line), 200))
			continue
		}
		s.translate(&chunk)
	}
}

func (s *lineSource) Close() error {
	return s.body.Close()
}

func (s *lineSource) translate(c *chatChunk) {
	if c.Error != "" {
		s.queue = append(s.queue, stream.ErrorEvent{Message: c.Error})
		s.ended = true
		return
	}

	if !s.started {
		s.started = true
		s.queue = append(s.queue, stream.Created{Model: c.Model})
	}

	if c.Message.Thinking != "" {
		s.queue = append(s.queue, stream.ReasoningDelta{Text: c.Message.Thinking})
	}
	if c.Message.Content != "" {
		s.queue = append(s.queue, stream.TextDelta{Text: c.Message.Content})
	}
	for _, tc := range c.Message.ToolCalls {
		itemID := fmt.Sprintf("tool_%d", s.calls)
		s.calls++
		callID := tc.ID
		if callID == "" {
			callID = api.NewCallID()
		}
		s.queue = append(s.queue,
			stream.ToolCallStarted{ItemID: itemID, CallID: callID, Name: tc.Function.Name},
			stream.ToolCallArgumentDone{ItemID: itemID, Arguments: argumentsString(tc.Function.Arguments)},
		)
	}

	if c.Done {
		s.queue = append(s.queue, stream.Completed{Status: doneStatus(c.DoneReason), Usage: usageFrom(c)})
		s.ended = true
	}
}
