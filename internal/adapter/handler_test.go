package adapter

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/danmuck/nerve-search-adapter/internal/observability"
	"github.com/danmuck/nerve-search-adapter/internal/protocol"
	"github.com/danmuck/nerve-search-adapter/internal/protocol/frame"
	"github.com/danmuck/nerve-search-adapter/internal/search"
	"github.com/danmuck/nerve-search-adapter/internal/testutil/testlog"
	"github.com/rs/zerolog/log"
)

func newTestHandler(backend Searcher, limits frame.Limits) (*SearchHandler, *Registry) {
	reg := NewRegistry()
	return NewSearchHandler(reg, backend, DefaultQueryShape(), limits, log.Logger), reg
}

func searchFrame(id protocol.RequestID, payload []byte) frame.Frame {
	return frame.Frame{
		Header: frame.Header{
			Magic:       frame.Magic,
			Version:     frame.Version,
			MessageType: protocol.MessageSearchQuery,
			RequestID:   id,
			PayloadLen:  uint32(len(payload)),
		},
		Payload: payload,
	}
}

func decodeOne(t *testing.T, reply []byte) (frame.Frame, []search.Result) {
	t.Helper()
	replies := decodeReplies(t, reply)
	if len(replies) != 1 {
		t.Fatalf("expected one reply frame, got %d", len(replies))
	}
	var results []search.Result
	if err := json.Unmarshal(replies[0].Payload, &results); err != nil {
		t.Fatalf("reply payload is not a result array: %v", err)
	}
	return replies[0], results
}

func TestHandleRepliesWithFinalResult(t *testing.T) {
	testlog.Start(t)
	backend := &fakeBackend{}
	h, _ := newTestHandler(backend, frame.DefaultLimits())
	before := observability.RequestCount(observability.OutcomeReplied)

	reply := h.Handle(context.Background(), searchFrame(42, []byte("rust")))
	if reply == nil {
		t.Fatalf("expected a reply")
	}
	f, results := decodeOne(t, reply)
	if f.Header.MessageType != protocol.MessageSearchResult {
		t.Fatalf("unexpected reply type: %s", f.Header.MessageType)
	}
	if f.Header.RequestID != 42 {
		t.Fatalf("unexpected reply id: %d", f.Header.RequestID)
	}
	if !f.Header.Flags.Has(protocol.FlagFinal) || f.Header.Flags.Has(protocol.FlagError) {
		t.Fatalf("unexpected reply flags: %#x", f.Header.Flags)
	}
	if len(results) != 1 || results[0].URL != "https://example.com/rust" {
		t.Fatalf("unexpected results: %+v", results)
	}
	if got := backend.calls(); len(got) != 1 || got[0] != "rust" {
		t.Fatalf("unexpected backend calls: %v", got)
	}
	if got := observability.RequestCount(observability.OutcomeReplied) - before; got != 1 {
		t.Fatalf("expected replied outcome once, got %v", got)
	}
}

func TestHandleTrimsQueryBeforeSearch(t *testing.T) {
	testlog.Start(t)
	backend := &fakeBackend{}
	h, _ := newTestHandler(backend, frame.DefaultLimits())
	if reply := h.Handle(context.Background(), searchFrame(3, []byte("  go  \n"))); reply == nil {
		t.Fatalf("expected a reply")
	}
	if got := backend.calls(); len(got) != 1 || got[0] != "go" {
		t.Fatalf("expected trimmed query, got %v", got)
	}
}

func TestHandleEncodesEmptyResultsAsArray(t *testing.T) {
	testlog.Start(t)
	h, _ := newTestHandler(emptyBackend{}, frame.DefaultLimits())
	reply := h.Handle(context.Background(), searchFrame(8, []byte("nothing")))
	if reply == nil {
		t.Fatalf("expected a reply")
	}
	f, results := decodeOne(t, reply)
	if string(f.Payload) != "[]" || len(results) != 0 {
		t.Fatalf("expected empty array payload, got %q", f.Payload)
	}
}

func TestHandleSkipsBackendWhenCancelledBefore(t *testing.T) {
	testlog.Start(t)
	backend := &fakeBackend{}
	h, reg := newTestHandler(backend, frame.DefaultLimits())
	before := observability.RequestCount(observability.OutcomeCancelledBefore)

	reg.Cancel(99)
	if reply := h.Handle(context.Background(), searchFrame(99, []byte("rust"))); reply != nil {
		t.Fatalf("cancelled request must not reply")
	}
	if got := backend.calls(); len(got) != 0 {
		t.Fatalf("backend must not be called, got %v", got)
	}
	if got := observability.RequestCount(observability.OutcomeCancelledBefore) - before; got != 1 {
		t.Fatalf("expected cancelled_before outcome once, got %v", got)
	}
}

func TestHandleSuppressesReplyWhenCancelledDuringSearch(t *testing.T) {
	testlog.Start(t)
	backend := &fakeBackend{}
	h, reg := newTestHandler(backend, frame.DefaultLimits())
	backend.during = func(string) { reg.Cancel(7) }
	before := observability.RequestCount(observability.OutcomeCancelledAfter)

	if reply := h.Handle(context.Background(), searchFrame(7, []byte("rust"))); reply != nil {
		t.Fatalf("request cancelled mid-search must not reply")
	}
	if got := backend.calls(); len(got) != 1 {
		t.Fatalf("backend should have been called once, got %v", got)
	}
	if got := observability.RequestCount(observability.OutcomeCancelledAfter) - before; got != 1 {
		t.Fatalf("expected cancelled_after outcome once, got %v", got)
	}
}

func TestHandleSuppressesReplyWhenCancelledConcurrently(t *testing.T) {
	testlog.Start(t)
	started := make(chan struct{})
	release := make(chan struct{})
	backend := &fakeBackend{during: func(string) {
		close(started)
		<-release
	}}
	h, reg := newTestHandler(backend, frame.DefaultLimits())

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-started
		reg.Cancel(7)
		close(release)
	}()

	reply := h.Handle(context.Background(), searchFrame(7, []byte("rust")))
	<-done
	if reply != nil {
		t.Fatalf("request cancelled from another goroutine must not reply")
	}
}

func TestHandleDropsInvalidQueries(t *testing.T) {
	testlog.Start(t)
	cases := map[string][]byte{
		"invalid utf8": {0xff, 0xfe, 0xfd},
		"empty":        nil,
		"whitespace":   []byte(" \t\n"),
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			backend := &fakeBackend{}
			h, _ := newTestHandler(backend, frame.DefaultLimits())
			before := observability.RequestCount(observability.OutcomeInvalidQuery)
			if reply := h.Handle(context.Background(), searchFrame(11, payload)); reply != nil {
				t.Fatalf("invalid query must not reply")
			}
			if got := backend.calls(); len(got) != 0 {
				t.Fatalf("backend must not be called, got %v", got)
			}
			if got := observability.RequestCount(observability.OutcomeInvalidQuery) - before; got != 1 {
				t.Fatalf("expected invalid_query outcome once, got %v", got)
			}
		})
	}
}

func TestHandleDropsBackendFailure(t *testing.T) {
	testlog.Start(t)
	backend := &fakeBackend{err: errBackend}
	h, _ := newTestHandler(backend, frame.DefaultLimits())
	before := observability.RequestCount(observability.OutcomeBackendError)

	if reply := h.Handle(context.Background(), searchFrame(12, []byte("rust"))); reply != nil {
		t.Fatalf("backend failure must not reply")
	}
	if got := observability.RequestCount(observability.OutcomeBackendError) - before; got != 1 {
		t.Fatalf("expected backend_error outcome once, got %v", got)
	}
}

func TestHandleDropsOversizedReply(t *testing.T) {
	testlog.Start(t)
	backend := &fakeBackend{}
	h, _ := newTestHandler(backend, frame.Limits{MaxPayloadBytes: 32})
	before := observability.RequestCount(observability.OutcomeEncodeError)

	if reply := h.Handle(context.Background(), searchFrame(13, []byte("rust"))); reply != nil {
		t.Fatalf("oversized reply must be dropped")
	}
	if got := observability.RequestCount(observability.OutcomeEncodeError) - before; got != 1 {
		t.Fatalf("expected encode_error outcome once, got %v", got)
	}
}

type emptyBackend struct{}

func (emptyBackend) Search(context.Context, string, int, int, search.Filter, search.SortBy, search.Options) ([]search.Result, error) {
	return nil, nil
}
