package protocol

import "errors"

var (
	ErrEmptyQuery   = errors.New("protocol: empty query")
	ErrInvalidQuery = errors.New("protocol: query is not valid utf-8")
)
