// Package protocol owns the core<->adapter wire contract.
//
// Ownership boundary:
// - message type and flag identifiers
// - request id correlation type
// - frame/header primitives live in protocol/frame
package protocol
