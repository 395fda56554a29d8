package protocol

import (
	"strings"
	"unicode/utf8"
)

// DecodeQuery interprets a SearchQuery payload as query text.
func DecodeQuery(payload []byte) (string, error) {
	if !utf8.Valid(payload) {
		return "", ErrInvalidQuery
	}
	q := strings.TrimSpace(string(payload))
	if q == "" {
		return "", ErrEmptyQuery
	}
	return q, nil
}
