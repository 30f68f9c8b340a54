package dataplane

import (
	"context"
	"sync/atomic"
	"time"
)

type SocketMetrics struct {
	RxBytes   uint64
	TxBytes   uint64
	RxPackets uint64
	TxPackets uint64
}

// Metrics counts traffic of a transfer server or client. Counters are
// updated concurrently by all workers sharing it.
type Metrics struct {
	rxBytes   atomic.Uint64
	txBytes   atomic.Uint64
	rxPackets atomic.Uint64
	txPackets atomic.Uint64
}

// Sample is the traffic of one collection interval.
type Sample struct {
	Interval    time.Duration
	Total       SocketMetrics
	RxBandwidth uint64 // bytes in this interval
	TxBandwidth uint64
	RxPackets   uint64
	TxPackets   uint64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) AddRx(packets, bytes int) {
	m.rxPackets.Add(uint64(packets))
	m.rxBytes.Add(uint64(bytes))
}

func (m *Metrics) AddTx(packets, bytes int) {
	m.txPackets.Add(uint64(packets))
	m.txBytes.Add(uint64(bytes))
}

func (m *Metrics) Snapshot() SocketMetrics {
	return SocketMetrics{
		RxBytes:   m.rxBytes.Load(),
		TxBytes:   m.txBytes.Load(),
		RxPackets: m.rxPackets.Load(),
		TxPackets: m.txPackets.Load(),
	}
}

// Collect calls onSample every interval with the traffic since the last
// tick, until ctx is cancelled.
func (m *Metrics) Collect(ctx context.Context, interval time.Duration, onSample func(Sample)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := m.Snapshot()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := m.Snapshot()
			onSample(Sample{
				Interval:    interval,
				Total:       cur,
				RxBandwidth: cur.RxBytes - last.RxBytes,
				TxBandwidth: cur.TxBytes - last.TxBytes,
				RxPackets:   cur.RxPackets - last.RxPackets,
				TxPackets:   cur.TxPackets - last.TxPackets,
			})
			last = cur
		}
	}
}
