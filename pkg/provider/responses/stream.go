package responses

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rhuss/chatbridge/pkg/debug"
	"github.com/rhuss/chatbridge/pkg/provider"
	"github.com/rhuss/chatbridge/pkg/stream"
)

// eventSource reads Responses API SSE messages from a response body and
// decodes each into one stream event.
type eventSource struct {
	body   io.ReadCloser
	reader *provider.SSEReader
}

func newEventSource(body io.ReadCloser) *eventSource {
	return &eventSource{body: body, reader: provider.NewSSEReader(body)}
}

func (s *eventSource) Next(ctx context.Context) (stream.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	msg, err := s.reader.Next()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("responses: read stream: %w", err)
	}
	if msg.Data == "[DONE]" {
		return nil, io.EOF
	}

	debug.Trace("providers", "responses event", "event", msg.Event, "data", debug.Truncate(msg.Data, 500))
	return decodeEvent(msg.Event, []byte(msg.Data)), nil
}

func (s *eventSource) Close() error {
	return s.body.Close()
}
