package adapter

import (
	"github.com/danmuck/nerve-search-adapter/internal/protocol/session"
	"github.com/danmuck/nerve-search-adapter/internal/search"
)

// QueryShape is the fixed result shape applied to every SearchQuery.
type QueryShape struct {
	Limit   int
	Offset  int
	Filter  search.Filter
	Sort    search.SortBy
	Options search.Options
}

func DefaultQueryShape() QueryShape {
	return QueryShape{
		Limit:   10,
		Offset:  0,
		Filter:  search.NewFilter(),
		Sort:    search.SortRelevance,
		Options: search.Options{Snippets: true, Explain: false},
	}
}

func (q QueryShape) isZero() bool {
	return q.Limit == 0 && q.Offset == 0 &&
		len(q.Filter.Domains) == 0 && len(q.Filter.ExcludeDomains) == 0 && q.Filter.MinQuality == 0 &&
		q.Sort == search.SortRelevance && q.Options == (search.Options{})
}

// Config configures sessions created by a Client.
type Config struct {
	Session session.Config
	Query   QueryShape
}

func DefaultConfig() Config {
	return Config{
		Session: session.DefaultConfig(),
		Query:   DefaultQueryShape(),
	}
}

// WithDefaults fills unset fields from DefaultConfig. A zero Query takes the
// whole DefaultQueryShape; otherwise only Limit and Offset are corrected.
func (c Config) WithDefaults() Config {
	c.Session = c.Session.WithDefaults()
	if c.Query.isZero() {
		c.Query = DefaultQueryShape()
		return c
	}
	if c.Query.Limit <= 0 {
		c.Query.Limit = DefaultQueryShape().Limit
	}
	if c.Query.Offset < 0 {
		c.Query.Offset = 0
	}
	return c
}
