package provider

import (
	"bufio"
	"io"
	"strings"
)

// maxSSELine bounds a single SSE line. Completed events can carry the
// whole response, which easily exceeds bufio's 64KB default.
const maxSSELine = 4 * 1024 * 1024

// SSEMessage is one server-sent event. Event is empty when the server
// sent only data lines.
type SSEMessage struct {
	Event string
	Data  string
}

// SSEReader splits a server-sent event stream into messages.
type SSEReader struct {
	scanner *bufio.Scanner
}

// NewSSEReader creates an SSEReader reading from r.
func NewSSEReader(r io.Reader) *SSEReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)
	return &SSEReader{scanner: scanner}
}

// Next returns the next message. Multiple data lines are joined with
// newlines; comment lines are skipped. It returns io.EOF at the end of
// the stream.
func (r *SSEReader) Next() (SSEMessage, error) {
	var msg SSEMessage
	var data []string
	hasData := false

	for r.scanner.Scan() {
		line := r.scanner.Text()

		switch {
		case line == "":
			if hasData {
				msg.Data = strings.Join(data, "\n")
				return msg, nil
			}
			// A blank line without data resets a dangling event name.
			msg = SSEMessage{}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			msg.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			hasData = true
		}
	}

	if err := r.scanner.Err(); err != nil {
		return SSEMessage{}, err
	}
	// Servers may omit the final blank line.
	if hasData {
		msg.Data = strings.Join(data, "\n")
		return msg, nil
	}
	return SSEMessage{}, io.EOF
}
