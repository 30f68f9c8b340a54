package dataplane

import (
	"errors"
	"fmt"
)

var (
	ErrShortTransfer      = errors.New("connection closed before all bytes arrived")
	ErrMalformedSize      = errors.New("malformed size line")
	ErrInconsistentTotals = errors.New("payload segment total does not match request")
)

// TransportError wraps a failed socket operation (dial, send, receive).
// It ends the affected worker only.
type TransportError struct {
	Op   string
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports a peer that spoke the protocol wrongly.
type ProtocolError struct {
	Addr   string
	Reason error
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error from %s: %v: %v", e.Addr, e.Reason, e.Err)
	}
	return fmt.Sprintf("protocol error from %s: %v", e.Addr, e.Reason)
}

// Unwrap exposes both the reason sentinel and the underlying cause.
func (e *ProtocolError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}
