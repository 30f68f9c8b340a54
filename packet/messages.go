package packet

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/netsys-lab/speedtest/shared"
)

var (
	ErrShortBuffer     = errors.New("buffer too small for message")
	ErrPayloadTooLarge = fmt.Errorf("payload data exceeds %d bytes", shared.SEGMENT_SIZE)
)

// Offer announces the server's transfer ports on the discovery channel.
type Offer struct {
	UDPPort uint16
	TCPPort uint16
}

func (o *Offer) Type() MessageType { return OfferType }
func (o *Offer) Len() int          { return shared.OFFER_LEN }

func (o *Offer) Pack(buf []byte) error {
	if len(buf) < shared.OFFER_LEN {
		return ErrShortBuffer
	}
	packPrefix(buf, OfferType)
	binary.BigEndian.PutUint16(buf[5:7], o.UDPPort)
	binary.BigEndian.PutUint16(buf[7:9], o.TCPPort)
	return nil
}

func (o *Offer) Unpack(buf []byte) error {
	if len(buf) < shared.OFFER_LEN {
		return &DecodeError{Kind: Truncated, Got: len(buf), Want: shared.OFFER_LEN}
	}
	o.UDPPort = binary.BigEndian.Uint16(buf[5:7])
	o.TCPPort = binary.BigEndian.Uint16(buf[7:9])
	return nil
}

// Request asks the server for an unreliable transfer of FileSize bytes.
type Request struct {
	FileSize uint64
}

func (r *Request) Type() MessageType { return RequestType }
func (r *Request) Len() int          { return shared.REQUEST_LEN }

func (r *Request) Pack(buf []byte) error {
	if len(buf) < shared.REQUEST_LEN {
		return ErrShortBuffer
	}
	packPrefix(buf, RequestType)
	binary.BigEndian.PutUint64(buf[5:13], r.FileSize)
	return nil
}

func (r *Request) Unpack(buf []byte) error {
	if len(buf) < shared.REQUEST_LEN {
		return &DecodeError{Kind: Truncated, Got: len(buf), Want: shared.REQUEST_LEN}
	}
	r.FileSize = binary.BigEndian.Uint64(buf[5:13])
	return nil
}

// Payload is one segment of an unreliable transfer.
type Payload struct {
	TotalSegments uint64
	SegmentIndex  uint64
	Data          []byte
}

func (p *Payload) Type() MessageType { return PayloadType }
func (p *Payload) Len() int          { return shared.PAYLOAD_HEADER_LEN + len(p.Data) }

func (p *Payload) Pack(buf []byte) error {
	if len(p.Data) > shared.SEGMENT_SIZE {
		return ErrPayloadTooLarge
	}
	if len(buf) < p.Len() {
		return ErrShortBuffer
	}
	p.PackHeader(buf)
	copy(buf[shared.PAYLOAD_HEADER_LEN:], p.Data)
	return nil
}

// PackHeader writes only the fixed header. Senders that keep the filler
// in place after the header use it to avoid copying the data per segment.
func (p *Payload) PackHeader(buf []byte) {
	packPrefix(buf, PayloadType)
	binary.BigEndian.PutUint64(buf[5:13], p.TotalSegments)
	binary.BigEndian.PutUint64(buf[13:21], p.SegmentIndex)
}

// Unpack keeps a reference to buf for Data.
func (p *Payload) Unpack(buf []byte) error {
	if len(buf) < shared.PAYLOAD_HEADER_LEN {
		return &DecodeError{Kind: Truncated, Got: len(buf), Want: shared.PAYLOAD_HEADER_LEN}
	}
	if len(buf) > shared.MAX_PAYLOAD_LEN {
		return &DecodeError{Kind: Oversized, Type: PayloadType, Got: len(buf), Want: shared.MAX_PAYLOAD_LEN}
	}
	p.TotalSegments = binary.BigEndian.Uint64(buf[5:13])
	p.SegmentIndex = binary.BigEndian.Uint64(buf[13:21])
	p.Data = nil
	if len(buf) > shared.PAYLOAD_HEADER_LEN {
		p.Data = buf[shared.PAYLOAD_HEADER_LEN:]
	}
	return nil
}
