package dataplane

import (
	"github.com/netsys-lab/speedtest/packet"
)

// SegmentSet records which segment indices of an unreliable transfer
// arrived. Duplicates and reordering do not change the outcome.
type SegmentSet struct {
	seen map[uint64]struct{}
}

func NewSegmentSet() *SegmentSet {
	return &SegmentSet{seen: make(map[uint64]struct{})}
}

// Add reports whether index was new.
func (s *SegmentSet) Add(index uint64) bool {
	if _, ok := s.seen[index]; ok {
		return false
	}
	s.seen[index] = struct{}{}
	return true
}

func (s *SegmentSet) Contains(index uint64) bool {
	_, ok := s.seen[index]
	return ok
}

func (s *SegmentSet) Len() uint64 {
	return uint64(len(s.seen))
}

func SuccessRate(received, expected uint64) float64 {
	if expected == 0 {
		return 0
	}
	return float64(received) / float64(expected) * 100
}

// TransferContext is the receive-side state of one unreliable transfer.
// It is owned by a single worker and needs no locking.
type TransferContext struct {
	Expected   uint64
	Segments   *SegmentSet
	Duplicate  uint64
	Invalid    uint64
	Mismatched uint64
	RxBytes    int64
}

func NewTransferContext(expected uint64) *TransferContext {
	return &TransferContext{
		Expected: expected,
		Segments: NewSegmentSet(),
	}
}

// Accept accounts for one decoded Payload. Any index inside the transfer
// is recorded, even when the sender announces a different total; such
// segments are also counted as mismatched. Indices outside the transfer
// are invalid and ignored.
func (tc *TransferContext) Accept(p *packet.Payload) error {
	if p.SegmentIndex >= tc.Expected {
		tc.Invalid++
		return ErrInconsistentTotals
	}
	if p.TotalSegments != tc.Expected {
		tc.Mismatched++
	}
	tc.RxBytes += int64(len(p.Data))
	if !tc.Segments.Add(p.SegmentIndex) {
		tc.Duplicate++
	}
	return nil
}

func (tc *TransferContext) Fill(r *Result) {
	r.SegmentsExpected = tc.Expected
	r.SegmentsReceived = tc.Segments.Len()
	r.SegmentsDuplicate = tc.Duplicate
	r.SegmentsInvalid = tc.Invalid
	r.SegmentsMismatched = tc.Mismatched
	r.BytesReceived = tc.RxBytes
}
