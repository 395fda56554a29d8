package adapter

import (
	"context"

	"github.com/danmuck/nerve-search-adapter/internal/observability"
	"github.com/danmuck/nerve-search-adapter/internal/protocol"
	"github.com/danmuck/nerve-search-adapter/internal/protocol/frame"
	"github.com/rs/zerolog"
)

// Dispatcher routes decoded frames by message type.
type Dispatcher struct {
	registry *Registry
	search   *SearchHandler
	logger   zerolog.Logger
}

func NewDispatcher(registry *Registry, search *SearchHandler, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		search:   search,
		logger:   logger,
	}
}

// Dispatch handles one frame and returns reply bytes to write, if any.
// Message types other than SearchQuery and Cancel are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, f frame.Frame) []byte {
	msgType := f.Header.MessageType
	observability.RecordFrame(msgType.String())

	switch msgType {
	case protocol.MessageSearchQuery:
		return d.search.Handle(ctx, f)
	case protocol.MessageCancel:
		if d.registry.Cancel(f.Header.RequestID) {
			observability.RecordCancel()
		}
		d.logger.Debug().Uint64("request_id", uint64(f.Header.RequestID)).Msg("adapter.Dispatcher.Dispatch cancel")
		return nil
	default:
		d.logger.Trace().Str("type", msgType.String()).Uint64("request_id", uint64(f.Header.RequestID)).Msg("adapter.Dispatcher.Dispatch ignored")
		return nil
	}
}
