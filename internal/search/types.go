package search

import (
	"errors"
	"strings"
)

var (
	ErrEmptyQuery   = errors.New("search: empty query")
	ErrInvalidLimit = errors.New("search: limit must be positive")
	ErrInvalidPage  = errors.New("search: offset must not be negative")
	ErrMissingURL   = errors.New("search: document url required")
	ErrClosed       = errors.New("search: index closed")
)

// SortBy selects result ordering.
type SortBy int

const (
	SortRelevance SortBy = iota
	SortPageRank
	SortQuality
)

func (s SortBy) String() string {
	switch s {
	case SortPageRank:
		return "pagerank"
	case SortQuality:
		return "quality"
	default:
		return "relevance"
	}
}

// ParseSortBy maps a config/CLI name to a SortBy.
func ParseSortBy(raw string) (SortBy, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "relevance":
		return SortRelevance, true
	case "pagerank":
		return SortPageRank, true
	case "quality":
		return SortQuality, true
	default:
		return SortRelevance, false
	}
}

// Filter narrows the candidate set. The zero value matches everything.
type Filter struct {
	Domains        []string
	ExcludeDomains []string
	MinQuality     float64
}

func NewFilter() Filter {
	return Filter{}
}

// Options toggles optional result decoration.
type Options struct {
	Snippets bool
	Explain  bool
}

// Document is one indexed page.
type Document struct {
	URL      string  `json:"url"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Domain   string  `json:"domain"`
	Quality  float64 `json:"quality"`
	PageRank float64 `json:"pagerank"`
	TFIDF    float64 `json:"tfidf"`
}

// Result is one ranked hit.
type Result struct {
	URL      string  `json:"url"`
	Title    string  `json:"title"`
	Domain   string  `json:"domain"`
	Snippet  string  `json:"snippet,omitempty"`
	Score    float64 `json:"score"`
	PageRank float64 `json:"pagerank"`
	Quality  float64 `json:"quality"`
	Explain  string  `json:"explain,omitempty"`
}
