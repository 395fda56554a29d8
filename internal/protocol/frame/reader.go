package frame

import (
	"errors"
	"fmt"
	"io"
)

const defaultReadSize = 32 * 1024

// Reader accumulates stream bytes across reads and splits them into frames.
// A single underlying read may complete zero, one, or many frames.
type Reader struct {
	limits Limits
	buf    []byte
	chunk  []byte
	err    error
}

func NewReader(limits Limits) *Reader {
	return &Reader{
		limits: limits,
		chunk:  make([]byte, defaultReadSize),
	}
}

// ReadFrames performs one read from src and returns every frame it completed.
// Frames decoded ahead of a read or decode error are returned first with a nil
// error; the error is reported by the next call and by every call after it.
// A clean end of stream at a frame boundary is io.EOF.
func (r *Reader) ReadFrames(src io.Reader) ([]Frame, error) {
	if r.err != nil {
		return nil, r.err
	}
	n, readErr := src.Read(r.chunk)
	if n > 0 {
		r.buf = append(r.buf, r.chunk[:n]...)
	}

	frames, decodeErr := r.drain()
	switch {
	case decodeErr != nil:
		r.err = decodeErr
	case readErr != nil:
		r.err = r.endOfStream(readErr)
	}
	if len(frames) == 0 && r.err != nil {
		return nil, r.err
	}
	return frames, nil
}

// Buffered reports bytes held for a frame that is not yet complete.
func (r *Reader) Buffered() int {
	return len(r.buf)
}

func (r *Reader) drain() ([]Frame, error) {
	var frames []Frame
	off := 0
	for len(r.buf)-off >= HeaderSize {
		h, err := DecodeHeader(r.buf[off:off+HeaderSize], r.limits)
		if err != nil {
			r.compact(off)
			return frames, err
		}
		end := off + HeaderSize + int(h.PayloadLen)
		if len(r.buf) < end {
			break
		}
		payload := make([]byte, h.PayloadLen)
		copy(payload, r.buf[off+HeaderSize:end])
		frames = append(frames, Frame{Header: h, Payload: payload})
		off = end
	}
	r.compact(off)
	return frames, nil
}

func (r *Reader) compact(off int) {
	if off == 0 {
		return
	}
	n := copy(r.buf, r.buf[off:])
	r.buf = r.buf[:n]
}

func (r *Reader) endOfStream(err error) error {
	if !errors.Is(err, io.EOF) {
		return err
	}
	if len(r.buf) > 0 {
		return fmt.Errorf("%w: %d bytes buffered", ErrTruncated, len(r.buf))
	}
	return io.EOF
}
