// Package search owns the document index backing search queries.
//
// Ownership boundary:
// - page storage and FTS5 index maintenance
// - ranked query execution (bm25 with pagerank/quality orderings)
// - document ingest
//
// The adapter only depends on Index.Search.
package search
