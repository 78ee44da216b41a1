package dbtmcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	interrors "github.com/sparkfiresmoke/dbt-mcp/internal/errors"
	"github.com/sparkfiresmoke/dbt-mcp/internal/httputil"
	"github.com/sparkfiresmoke/dbt-mcp/internal/sseutil"
)

// defaultChannelCapacity bounds the outbound and inbound channels.
const defaultChannelCapacity = 16

// NotificationHandler handles server notifications observed while waiting
// for a response.
type NotificationHandler func(notification *JSONRPCNotification) error

// StreamableTransport is a duplex JSON-RPC channel multiplexed over HTTP.
// Each outbound message triggers exactly one HTTP POST whose response is
// either a plain JSON document or an SSE stream; decoded inbound messages
// are delivered through Receive in the order their originating sends were
// issued.
//
// A single transport is not designed for concurrent callers issuing
// overlapping sends; parallel use requires separate instances.
type StreamableTransport struct {
	endpoint   *url.URL
	httpClient *http.Client
	session    *sessionState
	logger     Logger
	recorder   MetricsRecorder
	capacity   int

	outbound chan Message
	inbound  chan inboundItem

	ctx        context.Context
	cancel     context.CancelFunc
	writerDone chan struct{}
	closeOnce  sync.Once

	requestID atomic.Int64

	notificationHandlers map[string]NotificationHandler
	handlersMutex        sync.RWMutex
}

// inboundItem is one decoded message or one per-exchange error.
type inboundItem struct {
	msg Message
	err error
}

// TransportOption configures a StreamableTransport.
type TransportOption func(*StreamableTransport)

// WithHTTPClient sets the HTTP client used for exchanges.
func WithHTTPClient(client *http.Client) TransportOption {
	return func(t *StreamableTransport) {
		t.httpClient = client
	}
}

// WithTransportLogger sets the logger for the transport.
func WithTransportLogger(logger Logger) TransportOption {
	return func(t *StreamableTransport) {
		t.logger = logger
	}
}

// WithChannelCapacity sets the capacity of the outbound and inbound
// channels.
func WithChannelCapacity(n int) TransportOption {
	return func(t *StreamableTransport) {
		if n > 0 {
			t.capacity = n
		}
	}
}

// WithMetricsRecorder sets the metrics recorder for the transport.
func WithMetricsRecorder(recorder MetricsRecorder) TransportOption {
	return func(t *StreamableTransport) {
		if recorder != nil {
			t.recorder = recorder
		}
	}
}

// Open creates a transport handle for one logical connection to endpoint.
// The static headers are attached to every outbound request. The handle
// starts with an empty session; a session token observed in any response is
// attached to every subsequent request until Close.
func Open(endpoint string, headers map[string]string, options ...TransportOption) (*StreamableTransport, error) {
	parsedURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interrors.ErrInvalidServerURL, err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("%w: %q", interrors.ErrInvalidServerURL, endpoint)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &StreamableTransport{
		endpoint:             parsedURL,
		httpClient:           &http.Client{},
		session:              newSessionState(headers),
		logger:               GetDefaultLogger(),
		recorder:             nopMetricsRecorder{},
		capacity:             defaultChannelCapacity,
		ctx:                  ctx,
		cancel:               cancel,
		writerDone:           make(chan struct{}),
		notificationHandlers: make(map[string]NotificationHandler),
	}
	for _, option := range options {
		option(t)
	}
	t.outbound = make(chan Message, t.capacity)
	t.inbound = make(chan inboundItem, t.capacity)

	go t.writeLoop()
	return t, nil
}

// Send enqueues one outbound message. It does not block while the outbound
// channel has spare capacity. It returns ErrTransportClosed once the handle
// is closed.
func (t *StreamableTransport) Send(msg Message) error {
	select {
	case <-t.ctx.Done():
		return ErrTransportClosed
	default:
	}
	select {
	case t.outbound <- msg:
		return nil
	case <-t.ctx.Done():
		return ErrTransportClosed
	}
}

// Receive blocks until the next inbound message or per-exchange error is
// available. It returns ErrTransportClosed once the handle is closed and
// all previously decoded items have been delivered.
func (t *StreamableTransport) Receive(ctx context.Context) (Message, error) {
	select {
	case item, ok := <-t.inbound:
		if !ok {
			return nil, ErrTransportClosed
		}
		return item.msg, item.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Call sends a request and blocks until its correlated response arrives.
// Notifications observed while waiting are dispatched to their registered
// handlers; unrelated messages are logged and dropped. An error response
// with a matching id is returned as a ProtocolError.
func (t *StreamableTransport) Call(ctx context.Context, req *JSONRPCRequest) (*JSONRPCResponse, error) {
	if err := t.Send(req); err != nil {
		return nil, err
	}
	for {
		msg, err := t.Receive(ctx)
		if err != nil {
			return nil, err
		}
		switch m := msg.(type) {
		case *JSONRPCResponse:
			if sameRequestID(m.ID, req.ID) {
				return m, nil
			}
			t.logger.Warnf("dropping response with unexpected id: %v", m.ID)
		case *JSONRPCError:
			if sameRequestID(m.ID, req.ID) {
				return nil, &ProtocolError{
					ID:      m.ID,
					Code:    m.Error.Code,
					Message: m.Error.Message,
					Data:    m.Error.Data,
				}
			}
			t.logger.Warnf("dropping error response with unexpected id: %v", m.ID)
		case *JSONRPCNotification:
			t.dispatchNotification(m)
		default:
			t.logger.Warnf("dropping unexpected message: %s", formatMessage(msg))
		}
	}
}

// Notify sends a notification; no response is expected.
func (t *StreamableTransport) Notify(notification *JSONRPCNotification) error {
	return t.Send(notification)
}

// NextRequestID returns a fresh request id for this handle.
func (t *StreamableTransport) NextRequestID() RequestID {
	return t.requestID.Add(1)
}

// SessionID returns the session token observed so far, or "" if the server
// has not issued one.
func (t *StreamableTransport) SessionID() string {
	return t.session.ID()
}

// RegisterNotificationHandler registers a handler for a notification method.
func (t *StreamableTransport) RegisterNotificationHandler(method string, handler NotificationHandler) {
	t.handlersMutex.Lock()
	defer t.handlersMutex.Unlock()
	t.notificationHandlers[method] = handler
}

// UnregisterNotificationHandler removes the handler for a notification
// method.
func (t *StreamableTransport) UnregisterNotificationHandler(method string) {
	t.handlersMutex.Lock()
	defer t.handlersMutex.Unlock()
	delete(t.notificationHandlers, method)
}

func (t *StreamableTransport) dispatchNotification(notification *JSONRPCNotification) {
	t.handlersMutex.RLock()
	handler, ok := t.notificationHandlers[notification.Method]
	t.handlersMutex.RUnlock()

	if !ok || handler == nil {
		t.logger.Debugf("received unhandled notification: %s", notification.Method)
		return
	}
	if err := handler(notification); err != nil {
		t.logger.Warnf("notification handler error for %s: %v", notification.Method, err)
	}
}

// Close releases the handle: no further sends are accepted, any in-progress
// stream read is cancelled, and blocked receivers observe end-of-stream once
// already-decoded items have been drained. Close is idempotent.
func (t *StreamableTransport) Close() error {
	t.closeOnce.Do(func() {
		t.cancel()
	})
	<-t.writerDone
	return nil
}

// writeLoop drains the outbound channel, one HTTP exchange per message. It
// owns the inbound channel and closes it on exit.
func (t *StreamableTransport) writeLoop() {
	defer close(t.writerDone)
	defer close(t.inbound)
	for {
		select {
		case <-t.ctx.Done():
			return
		case msg := <-t.outbound:
			t.recorder.IncExchanges()
			start := time.Now()
			err := t.exchange(msg)
			t.recorder.ObserveExchangeDuration(time.Since(start))
			if err != nil {
				t.recorder.IncExchangeErrors()
				t.logger.Errorf("exchange failed: %v", err)
				// One failed exchange does not terminate the session.
				t.forward(inboundItem{err: err})
			}
		}
	}
}

// exchange performs one HTTP POST and dispatches the decoded response
// message(s) to the inbound channel. The returned error, if any, is the
// per-exchange failure to forward inbound.
func (t *StreamableTransport) exchange(msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: %v", interrors.ErrRequestSerialization, err)
	}

	req, err := http.NewRequestWithContext(t.ctx, http.MethodPost, t.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", interrors.ErrHTTPRequestCreation, err)
	}
	req.Header.Set(httputil.ContentTypeHeader, httputil.ContentTypeJSON)
	req.Header.Set(httputil.AcceptHeader, httputil.ContentTypeJSON+", "+httputil.ContentTypeSSE)
	t.session.apply(req.Header)

	t.logger.Debugf("sending %s", formatMessage(msg))
	resp, err := t.httpClient.Do(req)
	if err != nil {
		if t.ctx.Err() != nil {
			// Cancelled by Close; not an exchange failure.
			return nil
		}
		return &TransportError{URL: t.endpoint.String(), Err: err}
	}
	defer resp.Body.Close()

	t.session.observe(resp.Header)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{URL: t.endpoint.String(), Status: resp.StatusCode}
	}

	contentType := resp.Header.Get(httputil.ContentTypeHeader)
	switch {
	case strings.Contains(contentType, httputil.ContentTypeSSE):
		return t.consumeStream(resp.Body)
	case strings.Contains(contentType, httputil.ContentTypeJSON):
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &TransportError{URL: t.endpoint.String(), Err: err}
		}
		messages, err := ParseMessages(data)
		if err != nil {
			return &DecodeError{Err: err}
		}
		for _, m := range messages {
			if !t.forwardMessage(m) {
				return nil
			}
		}
		return nil
	case contentType == "":
		// No content type: an empty response carrying no messages.
		return nil
	default:
		return fmt.Errorf("%w: %s", interrors.ErrUnknownContentType, contentType)
	}
}

// consumeStream reads an SSE body to exhaustion, forwarding each decoded
// message immediately. The writer does not proceed to the next outbound
// message until this returns, which preserves send ordering on the inbound
// channel.
func (t *StreamableTransport) consumeStream(body io.Reader) error {
	reader := sseutil.NewReader(body)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if t.ctx.Err() != nil {
				// Cancelled by Close; not an exchange failure.
				return nil
			}
			return &TransportError{URL: t.endpoint.String(), Err: err}
		}
		if event.Name != sseutil.DefaultEventName {
			t.logger.Warnf("dropping SSE event with unknown name: %s", event.Name)
			continue
		}
		messages, err := ParseMessages([]byte(event.Data))
		if err != nil {
			// Stop consuming this stream; later exchanges are unaffected.
			return &DecodeError{Err: err}
		}
		for _, m := range messages {
			if !t.forwardMessage(m) {
				return nil
			}
		}
	}
}

func (t *StreamableTransport) forwardMessage(msg Message) bool {
	t.logger.Debugf("received %s", formatMessage(msg))
	return t.forward(inboundItem{msg: msg})
}

// forward delivers one inbound item. After cancellation one last
// non-blocking attempt is made so an item decoded before the cancel was
// observed is still reported before closure completes.
func (t *StreamableTransport) forward(item inboundItem) bool {
	select {
	case t.inbound <- item:
		return true
	case <-t.ctx.Done():
		select {
		case t.inbound <- item:
			return true
		default:
			return false
		}
	}
}
