package adapter

import (
	"testing"

	"github.com/danmuck/nerve-search-adapter/internal/search"
	"github.com/danmuck/nerve-search-adapter/internal/testutil/testlog"
)

func TestWithDefaultsFillsZeroQueryShape(t *testing.T) {
	testlog.Start(t)
	cfg := Config{}.WithDefaults()
	if cfg.Query.Limit != 10 || cfg.Query.Offset != 0 {
		t.Fatalf("unexpected paging: %+v", cfg.Query)
	}
	if !cfg.Query.Options.Snippets || cfg.Query.Options.Explain {
		t.Fatalf("zero config should take default options, got %+v", cfg.Query.Options)
	}
	if cfg.Query.Sort != search.SortRelevance {
		t.Fatalf("unexpected sort: %s", cfg.Query.Sort)
	}
	if cfg.Session.Limits.MaxPayloadBytes == 0 {
		t.Fatalf("expected session defaults")
	}
}

func TestWithDefaultsKeepsExplicitQueryShape(t *testing.T) {
	testlog.Start(t)
	cfg := Config{Query: QueryShape{Offset: -3, Sort: search.SortQuality}}.WithDefaults()
	if cfg.Query.Limit != 10 || cfg.Query.Offset != 0 {
		t.Fatalf("limit and offset should be corrected: %+v", cfg.Query)
	}
	if cfg.Query.Sort != search.SortQuality || cfg.Query.Options.Snippets {
		t.Fatalf("explicit shape should be kept: %+v", cfg.Query)
	}
}
