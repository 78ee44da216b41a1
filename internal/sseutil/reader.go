// Package sseutil provides utilities for Server-Sent Events (SSE).
package sseutil

import (
	"bufio"
	"io"
	"strings"
)

// DefaultEventName is the event name assumed when a stream omits the
// "event:" field, per the SSE specification.
const DefaultEventName = "message"

// Event represents a single Server-Sent Event as received from a stream.
type Event struct {
	ID   string
	Name string
	Data string
}

// Reader incrementally decodes an SSE stream. Events are returned one at a
// time so callers can act on each event before the stream is exhausted.
type Reader struct {
	scanner *bufio.Scanner
}

// maxEventSize bounds a single SSE line; query results can be large.
const maxEventSize = 1024 * 1024

// NewReader wraps an SSE response body.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxEventSize)
	return &Reader{scanner: scanner}
}

// Next returns the next complete event from the stream. It returns io.EOF on
// normal stream termination and the underlying read error otherwise.
func (r *Reader) Next() (Event, error) {
	var (
		event    Event
		dataSeen bool
		lines    []string
	)
	for r.scanner.Scan() {
		line := r.scanner.Text()

		// A blank line dispatches the accumulated event.
		if line == "" {
			if dataSeen {
				event.Data = strings.Join(lines, "\n")
				if event.Name == "" {
					event.Name = DefaultEventName
				}
				return event, nil
			}
			continue
		}

		// Comment lines start with a colon.
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := splitField(line)
		switch field {
		case "event":
			event.Name = value
		case "id":
			event.ID = value
		case "data":
			lines = append(lines, value)
			dataSeen = true
		}
	}
	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}
	// A final event without a trailing blank line is still dispatched.
	if dataSeen {
		event.Data = strings.Join(lines, "\n")
		if event.Name == "" {
			event.Name = DefaultEventName
		}
		return event, nil
	}
	return Event{}, io.EOF
}

// splitField splits an SSE line into its field name and value. A single
// space after the colon is stripped, per the SSE specification.
func splitField(line string) (string, string) {
	field, value, found := strings.Cut(line, ":")
	if !found {
		return line, ""
	}
	return field, strings.TrimPrefix(value, " ")
}
