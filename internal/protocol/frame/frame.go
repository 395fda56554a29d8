package frame

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/danmuck/nerve-search-adapter/internal/protocol"
)

const (
	Magic      uint32 = 0x4E525645
	Version    uint8  = 1
	HeaderSize        = 20
)

var (
	ErrInvalidMagic       = errors.New("frame: invalid magic")
	ErrUnsupportedVersion = errors.New("frame: unsupported version")
	ErrPayloadTooLarge    = errors.New("frame: payload too large")
	ErrTruncated          = errors.New("frame: truncated frame at end of stream")
)

// Header is the fixed wire header.
type Header struct {
	Magic       uint32
	Version     uint8
	MessageType protocol.MessageType
	Flags       protocol.Flags
	RequestID   protocol.RequestID
	PayloadLen  uint32
}

// Frame is one complete wire message.
type Frame struct {
	Header  Header
	Payload []byte
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 8 * 1024 * 1024,
	}
}

// Encode serializes one frame with the default limits.
func Encode(msgType protocol.MessageType, flags protocol.Flags, id protocol.RequestID, payload []byte) ([]byte, error) {
	return EncodeWithLimits(msgType, flags, id, payload, DefaultLimits())
}

func EncodeWithLimits(msgType protocol.MessageType, flags protocol.Flags, id protocol.RequestID, payload []byte, limits Limits) ([]byte, error) {
	if uint64(len(payload)) > uint64(limits.MaxPayloadBytes) {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	h := Header{
		Magic:       Magic,
		Version:     Version,
		MessageType: msgType,
		Flags:       flags,
		RequestID:   id,
		PayloadLen:  uint32(len(payload)),
	}
	buf := make([]byte, HeaderSize, HeaderSize+len(payload))
	putHeader(buf, h)
	return append(buf, payload...), nil
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	putHeader(buf, h)
	return buf
}

func putHeader(buf []byte, h Header) {
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	buf[4] = h.Version
	buf[5] = byte(h.MessageType)
	buf[6] = byte(h.Flags)
	buf[7] = 0
	binary.BigEndian.PutUint64(buf[8:16], uint64(h.RequestID))
	binary.BigEndian.PutUint32(buf[16:20], h.PayloadLen)
}

// DecodeHeader parses and validates a fixed header against limits.
func DecodeHeader(b []byte, limits Limits) (Header, error) {
	if len(b) != HeaderSize {
		return Header{}, fmt.Errorf("frame: invalid fixed header length: %d", len(b))
	}
	h := Header{
		Magic:       binary.BigEndian.Uint32(b[0:4]),
		Version:     b[4],
		MessageType: protocol.MessageType(b[5]),
		Flags:       protocol.Flags(b[6]),
		RequestID:   protocol.RequestID(binary.BigEndian.Uint64(b[8:16])),
		PayloadLen:  binary.BigEndian.Uint32(b[16:20]),
	}
	if h.Magic != Magic {
		return Header{}, fmt.Errorf("%w: 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.PayloadLen > limits.MaxPayloadBytes {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, h.PayloadLen)
	}
	return h, nil
}
