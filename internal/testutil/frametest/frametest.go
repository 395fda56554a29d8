// Package frametest plays the core side of a frame stream in tests.
package frametest

import (
	"errors"
	"io"

	"github.com/danmuck/nerve-search-adapter/internal/protocol/frame"
)

// ReadFrame blocks until one full frame is read from r.
func ReadFrame(r io.Reader, limits frame.Limits) (frame.Frame, error) {
	var fixed [frame.HeaderSize]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return frame.Frame{}, frame.ErrTruncated
		}
		return frame.Frame{}, err
	}
	h, err := frame.DecodeHeader(fixed[:], limits)
	if err != nil {
		return frame.Frame{}, err
	}
	payload := make([]byte, h.PayloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return frame.Frame{}, frame.ErrTruncated
		}
		return frame.Frame{}, err
	}
	return frame.Frame{Header: h, Payload: payload}, nil
}
