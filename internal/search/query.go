package search

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// bm25 column weights: title, content.
const bm25Expr = `-bm25(documents, 4.0, 1.0)`

// Search runs query against the index and returns up to limit ranked results
// starting at offset. query is free text; punctuation only separates terms.
func (ix *Index) Search(ctx context.Context, query string, limit, offset int, filter Filter, sortBy SortBy, opts Options) ([]Result, error) {
	if ix == nil || ix.db == nil {
		return nil, ErrClosed
	}
	match := buildMatch(query)
	if match == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if offset < 0 {
		return nil, ErrInvalidPage
	}

	stmt, args := buildSearch(match, limit, offset, filter, sortBy, opts)
	rows, err := ix.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("search: query %q: %w", query, err)
	}
	defer rows.Close()

	results := make([]Result, 0, limit)
	for rows.Next() {
		var (
			res     Result
			tfidf   float64
			snippet string
		)
		if err := rows.Scan(&res.URL, &res.Title, &res.Domain, &res.Quality, &res.PageRank, &tfidf, &res.Score, &snippet); err != nil {
			return nil, fmt.Errorf("search: scan: %w", err)
		}
		if opts.Snippets {
			res.Snippet = snippet
		}
		if opts.Explain {
			res.Explain = fmt.Sprintf("bm25=%.4f pagerank=%.4f quality=%.2f tfidf=%.4f sort=%s",
				res.Score, res.PageRank, res.Quality, tfidf, sortBy)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search: query %q: %w", query, err)
	}
	return results, nil
}

// buildMatch turns free text into an FTS5 expression of quoted terms joined
// by OR. Terms split on anything that is not a letter or digit, as unicode61
// does. Returns "" when the text has no terms.
func buildMatch(query string) string {
	terms := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " OR ")
}

func buildSearch(match string, limit, offset int, filter Filter, sortBy SortBy, opts Options) (string, []any) {
	var b strings.Builder
	args := []any{}

	snippetExpr := `''`
	if opts.Snippets {
		snippetExpr = `snippet(documents, 1, '[', ']', '...', 16)`
	}
	fmt.Fprintf(&b, `SELECT p.url, p.title, p.domain, p.quality, p.pagerank, p.tfidf, %s AS score, %s
FROM documents JOIN pages p ON p.id = documents.rowid
WHERE documents MATCH ?`, bm25Expr, snippetExpr)
	args = append(args, match)

	if domains := normalizeDomains(filter.Domains); len(domains) > 0 {
		b.WriteString(" AND p.domain IN (" + placeholders(len(domains)) + ")")
		for _, d := range domains {
			args = append(args, d)
		}
	}
	if domains := normalizeDomains(filter.ExcludeDomains); len(domains) > 0 {
		b.WriteString(" AND p.domain NOT IN (" + placeholders(len(domains)) + ")")
		for _, d := range domains {
			args = append(args, d)
		}
	}
	if filter.MinQuality > 0 {
		b.WriteString(" AND p.quality >= ?")
		args = append(args, filter.MinQuality)
	}

	switch sortBy {
	case SortPageRank:
		b.WriteString(" ORDER BY p.pagerank DESC, score DESC, p.id ASC")
	case SortQuality:
		b.WriteString(" ORDER BY p.quality DESC, score DESC, p.id ASC")
	default:
		b.WriteString(" ORDER BY score DESC, p.pagerank DESC, p.id ASC")
	}
	b.WriteString(" LIMIT ? OFFSET ?;")
	args = append(args, limit, offset)
	return b.String(), args
}

func normalizeDomains(in []string) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		if v := normalizeDomain(d); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
