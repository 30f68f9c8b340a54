package packet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/d4l3k/messagediff"
	"github.com/netsys-lab/speedtest/shared"
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"offer", &Offer{UDPPort: 12345, TCPPort: 54321}},
		{"offer_zero", &Offer{}},
		{"offer_max", &Offer{UDPPort: 0xffff, TCPPort: 0xffff}},
		{"request", &Request{FileSize: 1 << 30}},
		{"request_max", &Request{FileSize: ^uint64(0)}},
		{"payload", &Payload{TotalSegments: 2, SegmentIndex: 1, Data: bytes.Repeat([]byte{'A'}, shared.SEGMENT_SIZE)}},
		{"payload_short", &Payload{TotalSegments: 3, SegmentIndex: 2, Data: []byte("tail")}},
		{"payload_empty", &Payload{TotalSegments: ^uint64(0), SegmentIndex: ^uint64(0) - 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := Encode(tt.msg)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if len(buf) != tt.msg.Len() {
				t.Fatalf("encoded %d bytes, Len() = %d", len(buf), tt.msg.Len())
			}
			got, err := Decode(buf)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if diff, equal := messagediff.PrettyDiff(tt.msg, got); !equal {
				t.Errorf("round trip mismatch:\n%s", diff)
			}
		})
	}
}

func TestWireLayout(t *testing.T) {
	buf, err := Encode(&Offer{UDPPort: 12345, TCPPort: 54321})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0xab, 0xcd, 0xdc, 0xba, 0x02, 0x30, 0x39, 0xd4, 0x31}
	if !bytes.Equal(buf, want) {
		t.Errorf("offer = %x, want %x", buf, want)
	}

	buf, err = Encode(&Request{FileSize: 2048})
	if err != nil {
		t.Fatal(err)
	}
	want = []byte{0xab, 0xcd, 0xdc, 0xba, 0x03, 0, 0, 0, 0, 0, 0, 0x08, 0x00}
	if !bytes.Equal(buf, want) {
		t.Errorf("request = %x, want %x", buf, want)
	}

	buf, err = Encode(&Payload{TotalSegments: 2, SegmentIndex: 1, Data: []byte{'A'}})
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) != 22 || buf[4] != 0x04 || binary.BigEndian.Uint64(buf[5:13]) != 2 ||
		binary.BigEndian.Uint64(buf[13:21]) != 1 || buf[21] != 'A' {
		t.Errorf("payload = %x", buf)
	}
}

func TestBadMagic(t *testing.T) {
	inputs := [][]byte{
		{0, 0, 0, 0},
		{0xba, 0xdc, 0xcd, 0xab, 0x02, 0, 0, 0, 0},
		{0xab, 0xcd, 0xdc, 0xbb, 0x03, 0, 0, 0, 0, 0, 0, 0, 0},
		bytes.Repeat([]byte{0xff}, 100),
	}
	for _, in := range inputs {
		_, err := Decode(in)
		if !errors.Is(err, ErrBadMagic) {
			t.Errorf("Decode(%x) = %v, want bad magic", in, err)
		}
		var de *DecodeError
		if !errors.As(err, &de) || de.Kind != BadMagic {
			t.Errorf("Decode(%x) error kind = %v, want BadMagic", in, err)
		}
	}
}

func TestTruncated(t *testing.T) {
	full := map[string]Message{
		"offer":   &Offer{UDPPort: 1, TCPPort: 2},
		"request": &Request{FileSize: 3},
		"payload": &Payload{TotalSegments: 4, SegmentIndex: 5, Data: []byte("x")},
	}
	for name, m := range full {
		buf, err := Encode(m)
		if err != nil {
			t.Fatal(err)
		}
		minLen := m.Len()
		if p, ok := m.(*Payload); ok {
			minLen -= len(p.Data)
		}
		for n := 0; n < minLen; n++ {
			_, err := Decode(buf[:n])
			if !errors.Is(err, ErrTruncated) {
				t.Errorf("%s: Decode of %d/%d bytes = %v, want truncated", name, n, minLen, err)
			}
		}
	}
}

func TestDecodeContext(t *testing.T) {
	offer, _ := Encode(&Offer{UDPPort: 1, TCPPort: 2})
	request, _ := Encode(&Request{FileSize: 1})
	payload, _ := Encode(&Payload{TotalSegments: 1})

	if _, err := DecodeOffer(request); !errors.Is(err, ErrBadType) {
		t.Errorf("DecodeOffer(request) = %v, want bad type", err)
	}
	if _, err := DecodeOffer(payload); !errors.Is(err, ErrBadType) {
		t.Errorf("DecodeOffer(payload) = %v, want bad type", err)
	}
	if o, err := DecodeOffer(offer); err != nil || o.UDPPort != 1 || o.TCPPort != 2 {
		t.Errorf("DecodeOffer(offer) = %+v, %v", o, err)
	}

	if _, err := DecodeDatagram(offer); !errors.Is(err, ErrBadType) {
		t.Errorf("DecodeDatagram(offer) = %v, want bad type", err)
	}
	if m, err := DecodeDatagram(request); err != nil || m.Type() != RequestType {
		t.Errorf("DecodeDatagram(request) = %v, %v", m, err)
	}
	if m, err := DecodeDatagram(payload); err != nil || m.Type() != PayloadType {
		t.Errorf("DecodeDatagram(payload) = %v, %v", m, err)
	}

	unknown := append([]byte(nil), offer...)
	unknown[4] = 0x7
	if _, err := Decode(unknown); !errors.Is(err, ErrBadType) {
		t.Errorf("Decode(type 7) = %v, want bad type", err)
	}
}

func TestEncodeErrors(t *testing.T) {
	p := &Payload{Data: make([]byte, shared.SEGMENT_SIZE+1)}
	if _, err := Encode(p); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("oversized payload: %v", err)
	}
	if err := (&Offer{}).Pack(make([]byte, 3)); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("short buffer: %v", err)
	}
}

func TestOversizedPayload(t *testing.T) {
	full, err := Encode(&Payload{TotalSegments: 2, SegmentIndex: 1, Data: make([]byte, shared.SEGMENT_SIZE)})
	if err != nil {
		t.Fatal(err)
	}
	m, err := DecodeDatagram(full)
	if err != nil {
		t.Fatalf("full segment rejected: %v", err)
	}
	if got := len(m.(*Payload).Data); got != shared.SEGMENT_SIZE {
		t.Errorf("data = %d bytes", got)
	}

	for _, extra := range []int{1, 500} {
		buf := append(append([]byte(nil), full...), make([]byte, extra)...)
		_, err := DecodeDatagram(buf)
		if !errors.Is(err, ErrOversized) {
			t.Errorf("%d byte datagram = %v, want oversized", len(buf), err)
		}
		var de *DecodeError
		if !errors.As(err, &de) || de.Got != len(buf) || de.Want != shared.MAX_PAYLOAD_LEN {
			t.Errorf("decode error %+v", de)
		}
	}
}
