package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ReadDocuments decodes a stream of JSON document objects (one per line or
// concatenated) until EOF.
func ReadDocuments(r io.Reader) ([]Document, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	docs := make([]Document, 0)
	for {
		var doc Document
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return docs, nil
			}
			return nil, fmt.Errorf("search: decode document %d: %w", len(docs), err)
		}
		docs = append(docs, doc)
	}
}
