package sseutil

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// Writer provides basic SSE writing capabilities for test servers and
// fixtures that emulate the streaming side of the protocol.
type Writer struct {
	eventCounter uint64
}

// NewWriter creates a new SSE writer.
func NewWriter() *Writer {
	return &Writer{}
}

// GenerateEventID creates a unique event ID.
func (sw *Writer) GenerateEventID() string {
	timestamp := time.Now().UnixNano() / int64(time.Millisecond)
	counter := atomic.AddUint64(&sw.eventCounter, 1)
	return fmt.Sprintf("evt-%d-%d", timestamp, counter)
}

// WriteEvent writes a single SSE event to the http.ResponseWriter and
// flushes it if the writer supports flushing. Multi-line data is split into
// one data field per line, per the SSE framing rules.
func (sw *Writer) WriteEvent(w http.ResponseWriter, event Event) error {
	if event.Name != "" && event.Name != DefaultEventName {
		if _, err := fmt.Fprintf(w, "event: %s\n", event.Name); err != nil {
			return fmt.Errorf("failed to write SSE event name: %w", err)
		}
	}
	if event.ID != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", event.ID); err != nil {
			return fmt.Errorf("failed to write SSE event ID: %w", err)
		}
	}
	if event.Data != "" {
		for _, line := range strings.Split(strings.TrimSuffix(event.Data, "\n"), "\n") {
			if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
				return fmt.Errorf("failed to write SSE event data line: %w", err)
			}
		}
	}
	// End of event (blank line).
	if _, err := fmt.Fprint(w, "\n"); err != nil {
		return fmt.Errorf("failed to write SSE event terminator: %w", err)
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// SetStandardHeaders sets typical SSE response headers.
func SetStandardHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", ContentTypeEventStream)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

// ContentTypeEventStream is the SSE content type.
const ContentTypeEventStream = "text/event-stream"
