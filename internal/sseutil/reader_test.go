package sseutil

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderSingleEvent(t *testing.T) {
	r := NewReader(strings.NewReader("data: hello\n\n"))
	event, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, DefaultEventName, event.Name)
	assert.Equal(t, "hello", event.Data)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReaderNamedEventWithID(t *testing.T) {
	r := NewReader(strings.NewReader("event: progress\nid: 42\ndata: half\n\n"))
	event, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "progress", event.Name)
	assert.Equal(t, "42", event.ID)
	assert.Equal(t, "half", event.Data)
}

func TestReaderMultiLineData(t *testing.T) {
	r := NewReader(strings.NewReader("data: line one\ndata: line two\n\n"))
	event, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", event.Data)
}

func TestReaderSkipsCommentsAndBlankLines(t *testing.T) {
	r := NewReader(strings.NewReader(": keep-alive\n\n: another\ndata: real\n\n"))
	event, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "real", event.Data)
}

func TestReaderDispatchesTrailingEventWithoutBlankLine(t *testing.T) {
	r := NewReader(strings.NewReader("data: last"))
	event, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "last", event.Data)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReaderValueWithoutSpaceAfterColon(t *testing.T) {
	r := NewReader(strings.NewReader("data:tight\n\n"))
	event, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "tight", event.Data)
}

func TestReaderEmptyStream(t *testing.T) {
	r := NewReader(strings.NewReader(""))
	_, err := r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestWriterReaderRoundTrip(t *testing.T) {
	recorder := httptest.NewRecorder()
	SetStandardHeaders(recorder)
	assert.Equal(t, ContentTypeEventStream, recorder.Header().Get("Content-Type"))

	w := NewWriter()
	events := []Event{
		{ID: w.GenerateEventID(), Data: "first"},
		{Name: "progress", Data: "second\nwith a second line"},
		{Data: "third"},
	}
	for _, event := range events {
		require.NoError(t, w.WriteEvent(recorder, event))
	}

	r := NewReader(recorder.Body)
	for i, want := range events {
		got, err := r.Next()
		require.NoError(t, err, "event %d", i)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Data, got.Data)
		if want.Name == "" {
			assert.Equal(t, DefaultEventName, got.Name)
		} else {
			assert.Equal(t, want.Name, got.Name)
		}
	}
	_, err := r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestWriterGeneratesUniqueEventIDs(t *testing.T) {
	w := NewWriter()
	assert.NotEqual(t, w.GenerateEventID(), w.GenerateEventID())
}
