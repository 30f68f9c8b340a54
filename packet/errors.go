package packet

import (
	"errors"
	"fmt"
)

type DecodeErrorKind int

const (
	BadMagic DecodeErrorKind = iota + 1
	BadType
	Truncated
	Oversized
)

var (
	ErrBadMagic  = errors.New("bad magic cookie")
	ErrBadType   = errors.New("unexpected message type")
	ErrTruncated = errors.New("truncated message")
	ErrOversized = errors.New("oversized message")
)

// DecodeError is returned for every datagram that cannot be parsed.
// Receivers drop the datagram; it is never fatal.
type DecodeError struct {
	Kind  DecodeErrorKind
	Magic uint32
	Type  MessageType
	Got   int
	Want  int
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case BadMagic:
		return fmt.Sprintf("%v: %#08x", ErrBadMagic, e.Magic)
	case BadType:
		return fmt.Sprintf("%v: %#02x", ErrBadType, uint8(e.Type))
	case Truncated:
		return fmt.Sprintf("%v: got %d bytes, need %d", ErrTruncated, e.Got, e.Want)
	case Oversized:
		return fmt.Sprintf("%v: got %d bytes, at most %d", ErrOversized, e.Got, e.Want)
	}
	return "decode error"
}

func (e *DecodeError) Unwrap() error {
	switch e.Kind {
	case BadMagic:
		return ErrBadMagic
	case BadType:
		return ErrBadType
	case Truncated:
		return ErrTruncated
	case Oversized:
		return ErrOversized
	}
	return nil
}
