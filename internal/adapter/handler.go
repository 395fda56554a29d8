package adapter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/danmuck/nerve-search-adapter/internal/observability"
	"github.com/danmuck/nerve-search-adapter/internal/protocol"
	"github.com/danmuck/nerve-search-adapter/internal/protocol/frame"
	"github.com/danmuck/nerve-search-adapter/internal/search"
	"github.com/rs/zerolog"
)

// Searcher is the search backend contract. *search.Index implements it.
type Searcher interface {
	Search(ctx context.Context, query string, limit, offset int, filter search.Filter, sortBy search.SortBy, opts search.Options) ([]search.Result, error)
}

// SearchHandler turns SearchQuery frames into backend calls and SearchResult replies.
type SearchHandler struct {
	registry *Registry
	backend  Searcher
	shape    QueryShape
	limits   frame.Limits
	logger   zerolog.Logger
}

func NewSearchHandler(registry *Registry, backend Searcher, shape QueryShape, limits frame.Limits, logger zerolog.Logger) *SearchHandler {
	return &SearchHandler{
		registry: registry,
		backend:  backend,
		shape:    shape,
		limits:   limits,
		logger:   logger,
	}
}

// Handle returns the encoded reply for f, or nil when nothing must be sent.
// Decode, backend and encode failures are dropped without a reply.
func (h *SearchHandler) Handle(ctx context.Context, f frame.Frame) []byte {
	id := f.Header.RequestID
	if h.registry.IsCancelled(id) {
		h.logger.Debug().Uint64("request_id", uint64(id)).Msg("adapter.SearchHandler.Handle cancelled before search")
		observability.RecordRequest(observability.OutcomeCancelledBefore)
		return nil
	}

	query, err := protocol.DecodeQuery(f.Payload)
	if err != nil {
		h.logger.Debug().Uint64("request_id", uint64(id)).Err(err).Msg("adapter.SearchHandler.Handle dropped query")
		observability.RecordRequest(observability.OutcomeInvalidQuery)
		return nil
	}

	start := time.Now()
	results, err := h.backend.Search(ctx, query, h.shape.Limit, h.shape.Offset, h.shape.Filter, h.shape.Sort, h.shape.Options)
	elapsed := time.Since(start)
	observability.RecordSearch(elapsed, err == nil)
	if err != nil {
		h.logger.Warn().Uint64("request_id", uint64(id)).Str("query", query).Err(err).Msg("adapter.SearchHandler.Handle backend failed")
		observability.RecordRequest(observability.OutcomeBackendError)
		return nil
	}

	var (
		reply  []byte
		encErr error
	)
	ok := h.registry.UnlessCancelled(id, func() {
		reply, encErr = encodeResults(id, results, h.limits)
	})
	if !ok {
		h.logger.Debug().Uint64("request_id", uint64(id)).Dur("elapsed", elapsed).Msg("adapter.SearchHandler.Handle cancelled during search")
		observability.RecordRequest(observability.OutcomeCancelledAfter)
		return nil
	}
	if encErr != nil {
		h.logger.Warn().Uint64("request_id", uint64(id)).Err(encErr).Msg("adapter.SearchHandler.Handle encode failed")
		observability.RecordRequest(observability.OutcomeEncodeError)
		return nil
	}

	h.logger.Debug().
		Uint64("request_id", uint64(id)).
		Int("results", len(results)).
		Dur("elapsed", elapsed).
		Msg("adapter.SearchHandler.Handle replied")
	observability.RecordRequest(observability.OutcomeReplied)
	return reply
}

func encodeResults(id protocol.RequestID, results []search.Result, limits frame.Limits) ([]byte, error) {
	if results == nil {
		results = []search.Result{}
	}
	payload, err := json.Marshal(results)
	if err != nil {
		return nil, err
	}
	return frame.EncodeWithLimits(protocol.MessageSearchResult, protocol.FlagFinal, id, payload, limits)
}
