package dbtmcp

import (
	"net/http"

	"github.com/sparkfiresmoke/dbt-mcp/internal/httputil"
)

// sessionState tracks the session token negotiated with the server and the
// static headers it must be merged into. A fresh handle starts with no
// session; the token is never persisted across handles.
//
// Only the transport's writer goroutine touches sessionState, so no locking
// is needed.
type sessionState struct {
	static http.Header
	id     string
}

func newSessionState(static map[string]string) *sessionState {
	headers := make(http.Header, len(static))
	for k, v := range static {
		headers.Set(k, v)
	}
	return &sessionState{static: headers}
}

// observe captures the session token from a response, if present. A later
// token overwrites an earlier one (last-write-wins).
func (s *sessionState) observe(h http.Header) {
	if id := h.Get(httputil.SessionIDHeader); id != "" {
		s.id = id
	}
}

// apply merges the static headers and the session token into an outbound
// request. Static headers win for every key except the session token itself,
// which always reflects the last observed value.
func (s *sessionState) apply(h http.Header) {
	for k, values := range s.static {
		for _, v := range values {
			h.Set(k, v)
		}
	}
	if s.id != "" {
		h.Set(httputil.SessionIDHeader, s.id)
	}
}

// ID returns the current session token, or "" before one was observed.
func (s *sessionState) ID() string { return s.id }
