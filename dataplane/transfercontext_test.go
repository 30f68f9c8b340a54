package dataplane

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/netsys-lab/speedtest/packet"
)

func TestSegmentSetDedup(t *testing.T) {
	s := NewSegmentSet()
	if !s.Add(7) {
		t.Error("first add reported duplicate")
	}
	if s.Add(7) {
		t.Error("second add reported new")
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
	s.Add(3)
	if !s.Contains(3) || s.Contains(4) || s.Len() != 2 {
		t.Errorf("unexpected set state, len %d", s.Len())
	}
}

func TestSuccessRate(t *testing.T) {
	tests := []struct {
		received, expected uint64
		want               float64
	}{
		{0, 0, 0},
		{5, 0, 0},
		{1, 2, 50},
		{2, 2, 100},
		{0, 10, 0},
	}
	for _, tt := range tests {
		if got := SuccessRate(tt.received, tt.expected); got != tt.want {
			t.Errorf("SuccessRate(%d, %d) = %v, want %v", tt.received, tt.expected, got, tt.want)
		}
	}
}

func TestTransferContextAccept(t *testing.T) {
	tc := NewTransferContext(3)

	for _, idx := range []uint64{2, 0, 2, 0, 1} {
		if err := tc.Accept(&packet.Payload{TotalSegments: 3, SegmentIndex: idx, Data: []byte("x")}); err != nil {
			t.Fatalf("segment %d rejected: %v", idx, err)
		}
	}
	if err := tc.Accept(&packet.Payload{TotalSegments: 4, SegmentIndex: 1}); err != nil {
		t.Errorf("segment with other total rejected: %v", err)
	}
	if err := tc.Accept(&packet.Payload{TotalSegments: 3, SegmentIndex: 3}); !errors.Is(err, ErrInconsistentTotals) {
		t.Errorf("out of range index accepted: %v", err)
	}
	if err := tc.Accept(&packet.Payload{TotalSegments: 9, SegmentIndex: 7}); !errors.Is(err, ErrInconsistentTotals) {
		t.Errorf("out of range index accepted: %v", err)
	}

	var res Result
	tc.Fill(&res)
	if res.SegmentsReceived != 3 || res.SegmentsDuplicate != 3 || res.SegmentsInvalid != 2 || res.SegmentsMismatched != 1 {
		t.Errorf("got received=%d duplicate=%d invalid=%d mismatched=%d",
			res.SegmentsReceived, res.SegmentsDuplicate, res.SegmentsInvalid, res.SegmentsMismatched)
	}
	if res.BytesReceived != 5 {
		t.Errorf("bytes = %d, want 5", res.BytesReceived)
	}
	if res.SuccessRate() != 100 {
		t.Errorf("success rate = %v", res.SuccessRate())
	}
}

func TestTransferContextRoundedDownTotal(t *testing.T) {
	// 3000 bytes: 3 segments here, 2 from a sender that rounds down.
	tc := NewTransferContext(3)
	for _, idx := range []uint64{0, 1} {
		if err := tc.Accept(&packet.Payload{TotalSegments: 2, SegmentIndex: idx, Data: make([]byte, 1024)}); err != nil {
			t.Fatalf("segment %d rejected: %v", idx, err)
		}
	}
	var res Result
	tc.Fill(&res)
	if res.SegmentsReceived != 2 || res.SegmentsMismatched != 2 || res.SegmentsInvalid != 0 {
		t.Errorf("got received=%d mismatched=%d invalid=%d", res.SegmentsReceived, res.SegmentsMismatched, res.SegmentsInvalid)
	}
	if got := fmt.Sprintf("%.2f", res.SuccessRate()); got != "66.67" {
		t.Errorf("success rate = %s", got)
	}
}

func TestMetricsCollect(t *testing.T) {
	m := NewMetrics()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	samples := make(chan Sample, 16)
	go m.Collect(ctx, 20*time.Millisecond, func(s Sample) { samples <- s })

	m.AddTx(2, 2048)
	m.AddRx(1, 13)

	deadline := time.After(2 * time.Second)
	var tx, rx uint64
	for tx < 2048 || rx < 13 {
		select {
		case s := <-samples:
			tx += s.TxBandwidth
			rx += s.RxBandwidth
		case <-deadline:
			t.Fatalf("collected tx=%d rx=%d", tx, rx)
		}
	}
	if tx != 2048 || rx != 13 {
		t.Errorf("collected tx=%d rx=%d, want 2048 and 13", tx, rx)
	}
	if snap := m.Snapshot(); snap.TxPackets != 2 || snap.RxPackets != 1 {
		t.Errorf("snapshot %+v", snap)
	}
}
