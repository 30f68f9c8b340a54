package controlplane

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/netsys-lab/speedtest/packet"
	"github.com/netsys-lab/speedtest/shared"
	"github.com/netsys-lab/speedtest/socket"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
)

// Broadcaster announces the server by sending its Offer to the discovery
// port of every broadcast target once per Interval. Nothing is expected
// back; a failed send is logged and the next tick tries again.
type Broadcaster struct {
	Offer    packet.Offer
	Interval time.Duration
	Port     int
	// Targets overrides the broadcast addresses derived from the local
	// interfaces.
	Targets []socket.BroadcastTarget
	pc      *ipv4.PacketConn
	sent    atomic.Uint64
}

func NewBroadcaster(ctx context.Context, offer packet.Offer) (*Broadcaster, error) {
	conn, err := socket.ListenBroadcast(ctx)
	if err != nil {
		return nil, err
	}
	return &Broadcaster{
		Offer:    offer,
		Interval: shared.DefaultOfferInterval,
		Port:     shared.DISCOVERY_PORT,
		pc:       ipv4.NewPacketConn(conn),
	}, nil
}

// Sent is the number of Offers delivered to the network so far.
func (b *Broadcaster) Sent() uint64 {
	return b.sent.Load()
}

// Run broadcasts until ctx is cancelled. The first Offer goes out
// immediately. The socket is closed on return.
func (b *Broadcaster) Run(ctx context.Context) error {
	defer b.pc.Close()

	raw, err := packet.Encode(&b.Offer)
	if err != nil {
		return err
	}

	interval := b.Interval
	if interval <= 0 {
		interval = shared.DefaultOfferInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Infof("Broadcasting offers (udp port %d, tcp port %d) every %v", b.Offer.UDPPort, b.Offer.TCPPort, interval)
	for {
		b.announce(raw)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (b *Broadcaster) announce(raw []byte) {
	targets := b.Targets
	if targets == nil {
		targets = socket.BroadcastTargets(b.Port)
	}
	for _, t := range targets {
		var cm *ipv4.ControlMessage
		if t.IfIndex != 0 {
			cm = &ipv4.ControlMessage{IfIndex: t.IfIndex}
		}
		if _, err := b.pc.WriteTo(raw, cm, t.Addr); err != nil {
			log.WithField("target", t.Addr).Warnf("Could not send offer: %v", err)
			continue
		}
		b.sent.Add(1)
	}
}
