package dataplane

import (
	"context"
	"time"

	"github.com/netsys-lab/speedtest/utils"
)

type TransferKind int

const (
	Reliable TransferKind = iota
	Unreliable
)

func (k TransferKind) String() string {
	if k == Reliable {
		return "TCP"
	}
	return "UDP"
}

// Result is the outcome of one transfer attempt. Err is set when the
// attempt failed or the peer misbehaved; the counters still describe
// whatever was received before that.
type Result struct {
	Kind              TransferKind
	Index             int
	FileSize          uint64
	BytesReceived     int64
	Start             time.Time
	End               time.Time
	SegmentsExpected  uint64
	SegmentsReceived  uint64
	SegmentsDuplicate uint64
	SegmentsInvalid   uint64

	// SegmentsMismatched counts accepted segments whose sender announced
	// a different total.
	SegmentsMismatched uint64
	Err                error
}

func (r *Result) Elapsed() time.Duration {
	if r.End.Before(r.Start) {
		return 0
	}
	return r.End.Sub(r.Start)
}

func (r *Result) BitsPerSecond() float64 {
	return utils.BitsPerSecond(r.BytesReceived, r.Elapsed())
}

// SuccessRate is the percentage of expected segments seen at least once.
func (r *Result) SuccessRate() float64 {
	return SuccessRate(r.SegmentsReceived, r.SegmentsExpected)
}

// Transfer runs one measurement against the server endpoint addr
// ("host:port" of the matching transport).
type Transfer interface {
	Run(ctx context.Context, addr string, fileSize uint64) *Result
}

// Ensuring interface compatability at compile time.
var _ Transfer = &ReliableClient{}
var _ Transfer = &UnreliableClient{}
