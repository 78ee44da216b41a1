package dbtmcp

import (
	"errors"
	"fmt"
	"time"
)

// ErrTransportClosed is observed by receivers and senders once the transport
// handle has been closed.
var ErrTransportClosed = errors.New("transport closed")

// TransportError reports a failure at the HTTP layer: connection refused,
// non-2xx status, or an unreadable body. It is surfaced before any message
// could be decoded and is never retried by the transport itself.
type TransportError struct {
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport error: %s returned status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("transport error: %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a payload that did not conform to the expected
// message schema. It is surfaced per message and does not abort unrelated
// in-flight exchanges.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ProtocolError reports a well-formed response carrying an error object.
// The exchange completed; the remote simply answered with an error.
type ProtocolError struct {
	ID      RequestID
	Code    int
	Message string
	Data    interface{}
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s (code: %d)", e.Message, e.Code)
}

// SubmissionError reports a job submission whose response carried an error
// or lacked the job identifier field.
type SubmissionError struct {
	Reason string
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("job submission failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("job submission failed: %s", e.Reason)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// JobFailedError reports a remote job that reached the FAILED status. The
// remote error text is carried verbatim so it can be surfaced to the user.
type JobFailedError struct {
	JobID   string
	Message string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Message)
}

// JobTimeoutError reports a poll budget exhausted without the job reaching a
// terminal status. Distinct from JobFailedError so callers can retry with a
// larger budget.
type JobTimeoutError struct {
	JobID    string
	Attempts int
	Interval time.Duration
}

func (e *JobTimeoutError) Error() string {
	return fmt.Sprintf("job %s not done after %d attempts at %s intervals",
		e.JobID, e.Attempts, e.Interval)
}
