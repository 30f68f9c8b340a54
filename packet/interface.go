package packet

import (
	"encoding/binary"

	"github.com/netsys-lab/speedtest/shared"
)

type MessageType uint8

const (
	OfferType   MessageType = shared.MSG_OFFER
	RequestType MessageType = shared.MSG_REQUEST
	PayloadType MessageType = shared.MSG_PAYLOAD
)

func (t MessageType) String() string {
	switch t {
	case OfferType:
		return "offer"
	case RequestType:
		return "request"
	case PayloadType:
		return "payload"
	}
	return "unknown"
}

// Message is one of Offer, Request or Payload.
type Message interface {
	Type() MessageType
	// Len is the encoded size including the magic/type prefix.
	Len() int
	// Pack writes the encoded message into buf, which must hold Len() bytes.
	Pack(buf []byte) error
	// Unpack reads the message body from an already validated buffer.
	Unpack(buf []byte) error
}

func packPrefix(buf []byte, t MessageType) {
	binary.BigEndian.PutUint32(buf[0:4], shared.MAGIC_COOKIE)
	buf[4] = byte(t)
}

// Encode returns the wire representation of m.
func Encode(m Message) ([]byte, error) {
	buf := make([]byte, m.Len())
	if err := m.Pack(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Decode parses any of the three message variants.
func Decode(buf []byte) (Message, error) {
	return decode(buf, OfferType, RequestType, PayloadType)
}

// DecodeOffer parses a datagram from the discovery channel, where only
// Offers are valid.
func DecodeOffer(buf []byte) (*Offer, error) {
	m, err := decode(buf, OfferType)
	if err != nil {
		return nil, err
	}
	return m.(*Offer), nil
}

// DecodeDatagram parses a datagram from the unreliable transfer channel,
// which carries Requests and Payloads.
func DecodeDatagram(buf []byte) (Message, error) {
	return decode(buf, RequestType, PayloadType)
}

func decode(buf []byte, allowed ...MessageType) (Message, error) {
	if len(buf) < 4 {
		return nil, &DecodeError{Kind: Truncated, Got: len(buf), Want: shared.PREFIX_LEN}
	}
	if magic := binary.BigEndian.Uint32(buf[0:4]); magic != shared.MAGIC_COOKIE {
		return nil, &DecodeError{Kind: BadMagic, Magic: magic}
	}
	if len(buf) < shared.PREFIX_LEN {
		return nil, &DecodeError{Kind: Truncated, Got: len(buf), Want: shared.PREFIX_LEN}
	}

	t := MessageType(buf[4])
	if !typeAllowed(t, allowed) {
		return nil, &DecodeError{Kind: BadType, Type: t}
	}

	var m Message
	switch t {
	case OfferType:
		m = &Offer{}
	case RequestType:
		m = &Request{}
	case PayloadType:
		m = &Payload{}
	}
	if err := m.Unpack(buf); err != nil {
		return nil, err
	}
	return m, nil
}

func typeAllowed(t MessageType, allowed []MessageType) bool {
	for _, a := range allowed {
		if t == a {
			return true
		}
	}
	return false
}
