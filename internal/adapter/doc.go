// Package adapter owns the core<->search bridge.
//
// Ownership boundary:
// - connection loop (Session.Serve) over one core stream
// - frame dispatch by message type
// - cancellation bookkeeping (Registry)
// - search invocation and reply encoding (SearchHandler)
// - connecting to the core (Client)
//
// A session processes frames strictly one at a time in arrival order.
// A reply is never written for a request id cancelled before the reply is
// encoded; the final check runs under the registry lock.
package adapter
