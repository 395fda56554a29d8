package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/nerve-search-adapter/internal/observability"
	"github.com/danmuck/nerve-search-adapter/internal/protocol/frame"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Session results recorded in sessions_total.
const (
	sessionResultEOF       = "eof"
	sessionResultShutdown  = "shutdown"
	sessionResultDecode    = "decode_error"
	sessionResultTransport = "transport_error"
)

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Session drives one core stream. It owns the stream's frame reader and the
// cancellation registry for as long as the stream is open.
type Session struct {
	id         string
	conn       io.ReadWriter
	cfg        Config
	reader     *frame.Reader
	registry   *Registry
	dispatcher *Dispatcher
	logger     zerolog.Logger
}

func NewSession(conn io.ReadWriter, backend Searcher, cfg Config, logger zerolog.Logger) *Session {
	cfg = cfg.WithDefaults()
	id := uuid.NewString()
	logger = logger.With().Str("session", id).Logger()
	registry := NewRegistry()
	handler := NewSearchHandler(registry, backend, cfg.Query, cfg.Session.Limits, logger)
	return &Session{
		id:         id,
		conn:       conn,
		cfg:        cfg,
		reader:     frame.NewReader(cfg.Session.Limits),
		registry:   registry,
		dispatcher: NewDispatcher(registry, handler, logger),
		logger:     logger,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Registry() *Registry {
	return s.registry
}

// Serve reads and dispatches frames until the stream ends. It returns nil on
// a clean end of stream or when ctx is cancelled (the stream is closed to
// unblock the read), and the first transport or decode error otherwise.
func (s *Session) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		if c, ok := s.conn.(io.Closer); ok {
			_ = c.Close()
		}
	})
	defer stop()

	s.logger.Info().Msg("adapter.Session.Serve start")
	for {
		frames, err := s.reader.ReadFrames(s.conn)
		if err != nil {
			return s.finish(ctx, err)
		}
		for _, f := range frames {
			reply := s.dispatcher.Dispatch(ctx, f)
			if reply == nil {
				continue
			}
			if err := s.write(reply); err != nil {
				return s.finish(ctx, fmt.Errorf("write reply request_id=%d: %w", f.Header.RequestID, err))
			}
		}
	}
}

func (s *Session) finish(ctx context.Context, err error) error {
	logger := s.logger.With().Int("cancelled", s.registry.Len()).Logger()
	switch {
	case ctx.Err() != nil:
		logger.Info().Msg("adapter.Session.Serve shutdown")
		observability.RecordSession(sessionResultShutdown)
		return nil
	case errors.Is(err, io.EOF):
		logger.Info().Msg("adapter.Session.Serve peer closed")
		observability.RecordSession(sessionResultEOF)
		return nil
	case IsDecodeError(err):
		logger.Error().Err(err).Msg("adapter.Session.Serve decode error")
		observability.RecordSession(sessionResultDecode)
	default:
		logger.Error().Err(err).Msg("adapter.Session.Serve transport error")
		observability.RecordSession(sessionResultTransport)
	}
	return fmt.Errorf("adapter: session %s: %w", s.id, err)
}

func (s *Session) write(b []byte) error {
	if dc, ok := s.conn.(writeDeadliner); ok && s.cfg.Session.WriteTimeout > 0 {
		if err := dc.SetWriteDeadline(time.Now().Add(s.cfg.Session.WriteTimeout)); err != nil {
			return err
		}
		defer func() { _ = dc.SetWriteDeadline(time.Time{}) }()
	}
	n, err := s.conn.Write(b)
	if err == nil && n < len(b) {
		err = io.ErrShortWrite
	}
	return err
}

// IsDecodeError reports whether err came from a malformed frame rather than the transport.
func IsDecodeError(err error) bool {
	return errors.Is(err, frame.ErrInvalidMagic) ||
		errors.Is(err, frame.ErrUnsupportedVersion) ||
		errors.Is(err, frame.ErrPayloadTooLarge) ||
		errors.Is(err, frame.ErrTruncated)
}
