package search

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Index is a SQLite FTS5 document store. It is safe for concurrent use.
type Index struct {
	db *sql.DB
}

// Open opens (and creates if needed) the index database at path.
func Open(ctx context.Context, path string) (*Index, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("search: index path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("search: create index directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("search: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA journal_mode = WAL;",
	} {
		if _, err := db.ExecContext(pctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("search: %s: %w", pragma, err)
		}
	}
	if err := bootstrap(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Index{db: db}, nil
}

func bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS pages (
  id       INTEGER PRIMARY KEY,
  url      TEXT NOT NULL UNIQUE,
  title    TEXT NOT NULL DEFAULT '',
  content  TEXT NOT NULL DEFAULT '',
  domain   TEXT NOT NULL DEFAULT '',
  quality  REAL NOT NULL DEFAULT 0,
  pagerank REAL NOT NULL DEFAULT 0,
  tfidf    REAL NOT NULL DEFAULT 0
);`,
		`CREATE INDEX IF NOT EXISTS pages_domain_idx ON pages(domain);`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS documents USING fts5(
  title, content,
  content='pages', content_rowid='id',
  tokenize='porter unicode61'
);`,
		`CREATE TRIGGER IF NOT EXISTS pages_ai AFTER INSERT ON pages BEGIN
  INSERT INTO documents(rowid, title, content) VALUES (new.id, new.title, new.content);
END;`,
		`CREATE TRIGGER IF NOT EXISTS pages_ad AFTER DELETE ON pages BEGIN
  INSERT INTO documents(documents, rowid, title, content) VALUES ('delete', old.id, old.title, old.content);
END;`,
		`CREATE TRIGGER IF NOT EXISTS pages_au AFTER UPDATE ON pages BEGIN
  INSERT INTO documents(documents, rowid, title, content) VALUES ('delete', old.id, old.title, old.content);
  INSERT INTO documents(rowid, title, content) VALUES (new.id, new.title, new.content);
END;`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("search: bootstrap: %w", err)
		}
	}
	return nil
}

func (ix *Index) Close() error {
	if ix == nil || ix.db == nil {
		return nil
	}
	return ix.db.Close()
}

// Add upserts documents keyed by url in one transaction.
func (ix *Index) Add(ctx context.Context, docs ...Document) error {
	if ix == nil || ix.db == nil {
		return ErrClosed
	}
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("search: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO pages (url, title, content, domain, quality, pagerank, tfidf)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(url) DO UPDATE SET
  title = excluded.title,
  content = excluded.content,
  domain = excluded.domain,
  quality = excluded.quality,
  pagerank = excluded.pagerank,
  tfidf = excluded.tfidf;`)
	if err != nil {
		return fmt.Errorf("search: prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i, doc := range docs {
		doc, err := normalizeDocument(doc)
		if err != nil {
			return fmt.Errorf("search: document %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, doc.URL, doc.Title, doc.Content, doc.Domain, doc.Quality, doc.PageRank, doc.TFIDF); err != nil {
			return fmt.Errorf("search: upsert %q: %w", doc.URL, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("search: commit: %w", err)
	}
	return nil
}

// Count reports the number of indexed documents.
func (ix *Index) Count(ctx context.Context) (int, error) {
	if ix == nil || ix.db == nil {
		return 0, ErrClosed
	}
	var n int
	if err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("search: count: %w", err)
	}
	return n, nil
}

func normalizeDocument(doc Document) (Document, error) {
	doc.URL = strings.TrimSpace(doc.URL)
	if doc.URL == "" {
		return Document{}, ErrMissingURL
	}
	doc.Domain = normalizeDomain(doc.Domain)
	if doc.Domain == "" {
		if u, err := url.Parse(doc.URL); err == nil {
			doc.Domain = normalizeDomain(u.Hostname())
		}
	}
	return doc, nil
}

func normalizeDomain(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
