package api

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/netsys-lab/speedtest/controlplane"
	"github.com/netsys-lab/speedtest/dataplane"
	"github.com/netsys-lab/speedtest/utils"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SessionReport is the outcome of all transfers started for one Offer.
type SessionReport struct {
	ID      uuid.UUID
	Server  controlplane.ServerOffer
	Start   time.Time
	End     time.Time
	Results []*dataplane.Result
}

func (sr *SessionReport) Elapsed() time.Duration {
	return sr.End.Sub(sr.Start)
}

func (sr *SessionReport) TotalBytes() int64 {
	var n int64
	for _, r := range sr.Results {
		n += r.BytesReceived
	}
	return n
}

func (sr *SessionReport) Failed() int {
	n := 0
	for _, r := range sr.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Coordinator runs the transfers of a session concurrently and joins them.
// A failing transfer never cancels its siblings.
type Coordinator struct {
	FileSize          uint64
	TCPConnections    int
	UDPConnections    int
	InactivityTimeout time.Duration
	DialTimeout       time.Duration
	Metrics           *dataplane.Metrics
}

func NewCoordinator(cfg ClientConfig, metrics *dataplane.Metrics) *Coordinator {
	return &Coordinator{
		FileSize:          cfg.FileSize,
		TCPConnections:    cfg.TCPConnections,
		UDPConnections:    cfg.UDPConnections,
		InactivityTimeout: cfg.InactivityTimeout,
		DialTimeout:       cfg.DialTimeout,
		Metrics:           metrics,
	}
}

// Run starts the transfers of one session. Negative counts start none.
func (c *Coordinator) Run(ctx context.Context, offer controlplane.ServerOffer) *SessionReport {
	tcpCount, udpCount := max(c.TCPConnections, 0), max(c.UDPConnections, 0)
	report := &SessionReport{
		ID:      uuid.New(),
		Server:  offer,
		Start:   time.Now(),
		Results: make([]*dataplane.Result, tcpCount+udpCount),
	}
	logger := log.WithFields(log.Fields{"session": report.ID, "server": offer.Addr.IP})
	logger.Infof("Starting %d TCP and %d UDP transfers of %s", tcpCount, udpCount, utils.ByteCountSI(int64(c.FileSize)))

	var g errgroup.Group
	slot := 0
	for i := 1; i <= tcpCount; i++ {
		client := &dataplane.ReliableClient{Index: i, DialTimeout: c.DialTimeout, Metrics: c.Metrics}
		c.spawn(ctx, &g, report, slot, client, offer.TCPAddr())
		slot++
	}
	for i := 1; i <= udpCount; i++ {
		client := &dataplane.UnreliableClient{Index: i, InactivityTimeout: c.InactivityTimeout, Metrics: c.Metrics}
		c.spawn(ctx, &g, report, slot, client, offer.UDPAddr())
		slot++
	}
	g.Wait()
	report.End = time.Now()

	for _, r := range report.Results {
		logResult(logger, r)
	}
	return report
}

// spawn starts one transfer writing only to its own result slot.
func (c *Coordinator) spawn(ctx context.Context, g *errgroup.Group, report *SessionReport, slot int, t dataplane.Transfer, addr string) {
	g.Go(func() error {
		report.Results[slot] = t.Run(ctx, addr, c.FileSize)
		return nil
	})
}

func logResult(logger *log.Entry, r *dataplane.Result) {
	entry := logger.WithFields(log.Fields{"transfer": r.Kind.String(), "index": r.Index})
	if r.Err != nil {
		entry.Warnf("%s transfer #%d failed after %s: %v", r.Kind, r.Index, utils.ByteCountSI(r.BytesReceived), r.Err)
		return
	}
	if r.Kind == dataplane.Unreliable {
		if r.SegmentsInvalid > 0 {
			entry.Warnf("%s transfer #%d dropped %d invalid datagrams", r.Kind, r.Index, r.SegmentsInvalid)
		}
		if r.SegmentsMismatched > 0 {
			entry.Warnf("%s transfer #%d: server announced a different total in %d segments", r.Kind, r.Index, r.SegmentsMismatched)
		}
		entry.Infof("%s transfer #%d finished in %v, %.2f%% of %d segments received", r.Kind, r.Index, r.Elapsed(), r.SuccessRate(), r.SegmentsExpected)
		return
	}
	entry.Infof("%s transfer #%d finished in %v, %s received", r.Kind, r.Index, r.Elapsed(), utils.ByteCountSI(r.BytesReceived))
}
