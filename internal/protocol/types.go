package protocol

import "fmt"

// RequestID is the peer-assigned id correlating a query with its result or cancellation.
type RequestID uint64

// MessageType identifies how a frame payload is interpreted.
type MessageType uint8

const (
	MessageSearchQuery  MessageType = 0x01
	MessageSearchResult MessageType = 0x02
	MessageCancel       MessageType = 0x03
	// MessageError is reserved; the adapter never emits it.
	MessageError     MessageType = 0x04
	MessageHeartbeat MessageType = 0x05
)

func (t MessageType) String() string {
	switch t {
	case MessageSearchQuery:
		return "search.query"
	case MessageSearchResult:
		return "search.result"
	case MessageCancel:
		return "cancel"
	case MessageError:
		return "error"
	case MessageHeartbeat:
		return "heartbeat"
	default:
		return fmt.Sprintf("unknown(0x%02x)", uint8(t))
	}
}

// Flags is the frame flag bitset.
type Flags uint8

const (
	// FlagFinal marks the last frame emitted for a request id.
	FlagFinal Flags = 0x01
	FlagError Flags = 0x02
)

func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}
