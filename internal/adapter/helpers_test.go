package adapter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/danmuck/nerve-search-adapter/internal/protocol"
	"github.com/danmuck/nerve-search-adapter/internal/protocol/frame"
	"github.com/danmuck/nerve-search-adapter/internal/search"
	"github.com/danmuck/nerve-search-adapter/internal/testutil/frametest"
	"github.com/rs/zerolog/log"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeBackend records queries and returns canned results.
type fakeBackend struct {
	mu      sync.Mutex
	queries []string
	err     error
	during  func(query string)
}

func (b *fakeBackend) Search(_ context.Context, query string, limit, offset int, _ search.Filter, _ search.SortBy, _ search.Options) ([]search.Result, error) {
	b.mu.Lock()
	b.queries = append(b.queries, query)
	during := b.during
	err := b.err
	b.mu.Unlock()

	if during != nil {
		during(query)
	}
	if err != nil {
		return nil, err
	}
	return []search.Result{{URL: "https://example.com/" + query, Title: query, Domain: "example.com", Score: float64(limit - offset)}}, nil
}

func (b *fakeBackend) calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.queries...)
}

var errBackend = errors.New("backend fault")

// scriptConn replays scripted inbound bytes and captures writes.
type scriptConn struct {
	in  io.Reader
	out bytes.Buffer
}

func newScriptConn(in []byte) *scriptConn {
	return &scriptConn{in: bytes.NewReader(in)}
}

func (c *scriptConn) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c *scriptConn) Write(p []byte) (int, error) { return c.out.Write(p) }

func encodeFrame(t *testing.T, msgType protocol.MessageType, id protocol.RequestID, payload []byte) []byte {
	t.Helper()
	b, err := frame.Encode(msgType, 0, id, payload)
	if err != nil {
		t.Fatalf("encode frame: %v", err)
	}
	return b
}

func queryFrame(t *testing.T, id protocol.RequestID, q string) []byte {
	return encodeFrame(t, protocol.MessageSearchQuery, id, []byte(q))
}

func cancelFrame(t *testing.T, id protocol.RequestID) []byte {
	return encodeFrame(t, protocol.MessageCancel, id, nil)
}

func script(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func decodeReplies(t *testing.T, b []byte) []frame.Frame {
	t.Helper()
	r := bytes.NewReader(b)
	var out []frame.Frame
	for r.Len() > 0 {
		f, err := frametest.ReadFrame(r, frame.DefaultLimits())
		if err != nil {
			t.Fatalf("decode reply: %v", err)
		}
		out = append(out, f)
	}
	return out
}

func newTestSession(conn io.ReadWriter, backend Searcher) *Session {
	return NewSession(conn, backend, DefaultConfig(), log.Logger)
}
