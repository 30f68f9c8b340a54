package api

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/netsys-lab/speedtest/controlplane"
	"github.com/netsys-lab/speedtest/dataplane"
	"github.com/netsys-lab/speedtest/packet"
	"github.com/netsys-lab/speedtest/socket"
	"github.com/netsys-lab/speedtest/utils"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Server owns the broadcaster and both transfer servers.
type Server struct {
	Config      ServerConfig
	Reliable    *dataplane.ReliableServer
	Unreliable  *dataplane.UnreliableServer
	Broadcaster *controlplane.Broadcaster
	Metrics     *dataplane.Metrics
}

// NewServer binds all sockets. Any bind failure is returned; nothing is
// left open in that case.
func NewServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	metrics := dataplane.NewMetrics()

	reliable, err := dataplane.NewReliableServer(net.JoinHostPort(cfg.BindIP, strconv.Itoa(cfg.TCPPort)), metrics)
	if err != nil {
		return nil, fmt.Errorf("tcp listen on port %d: %w", cfg.TCPPort, err)
	}
	unreliable, err := dataplane.NewUnreliableServer(net.JoinHostPort(cfg.BindIP, strconv.Itoa(cfg.UDPPort)), metrics)
	if err != nil {
		reliable.Listener.Close()
		return nil, fmt.Errorf("udp listen on port %d: %w", cfg.UDPPort, err)
	}

	offer := packet.Offer{
		UDPPort: uint16(unreliable.Addr().Port),
		TCPPort: uint16(reliable.Addr().Port),
	}
	broadcaster, err := controlplane.NewBroadcaster(ctx, offer)
	if err != nil {
		reliable.Listener.Close()
		unreliable.Conn.Close()
		return nil, fmt.Errorf("broadcast socket: %w", err)
	}
	broadcaster.Port = cfg.DiscoveryPort
	broadcaster.Targets = cfg.BroadcastTargets
	if cfg.OfferInterval > 0 {
		broadcaster.Interval = cfg.OfferInterval
	}

	return &Server{
		Config:      cfg,
		Reliable:    reliable,
		Unreliable:  unreliable,
		Broadcaster: broadcaster,
		Metrics:     metrics,
	}, nil
}

// Run serves until ctx is cancelled or one of the long-lived tasks fails.
func (s *Server) Run(ctx context.Context) error {
	log.Infof("Server started, listening on IP address %s", socket.LocalIPv4())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Reliable.Serve(gctx) })
	g.Go(func() error { return s.Unreliable.Serve(gctx) })
	g.Go(func() error { return s.Broadcaster.Run(gctx) })
	if s.Config.ReportInterval > 0 {
		g.Go(func() error {
			s.Metrics.Collect(gctx, s.Config.ReportInterval, func(sample dataplane.Sample) {
				if sample.TxPackets == 0 {
					return
				}
				log.Infof("Served %s in %d packets, %.0f bits/second",
					utils.ByteCountSI(int64(sample.TxBandwidth)), sample.TxPackets,
					utils.BitsPerSecond(int64(sample.TxBandwidth), sample.Interval))
			})
			return nil
		})
	}
	return g.Wait()
}
