package api

import (
	"context"
	"fmt"

	"github.com/netsys-lab/speedtest/controlplane"
	"github.com/netsys-lab/speedtest/dataplane"
	log "github.com/sirupsen/logrus"
)

// Client listens for Offers and runs one measurement session per Offer.
type Client struct {
	Config      ClientConfig
	Listener    *controlplane.Listener
	Coordinator *Coordinator
	Metrics     *dataplane.Metrics
}

// NewClient binds the discovery port.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.TCPConnections < 0 || cfg.UDPConnections < 0 {
		return nil, fmt.Errorf("invalid connection counts %d tcp, %d udp", cfg.TCPConnections, cfg.UDPConnections)
	}
	c := &Client{
		Config:  cfg,
		Metrics: dataplane.NewMetrics(),
	}
	c.Coordinator = NewCoordinator(cfg, c.Metrics)

	l, err := controlplane.NewListener(ctx, cfg.DiscoveryPort, c.handleOffer)
	if err != nil {
		return nil, err
	}
	l.Serialize = !cfg.ConcurrentSessions
	c.Listener = l
	return c, nil
}

func (c *Client) Run(ctx context.Context) error {
	log.Info("Client started, listening for offer requests...")
	return c.Listener.Run(ctx)
}

func (c *Client) handleOffer(ctx context.Context, offer controlplane.ServerOffer) {
	report := c.Coordinator.Run(ctx, offer)
	if c.Config.OnReport != nil {
		c.Config.OnReport(report)
	}
	log.WithField("session", report.ID).Info("All transfers complete, listening to offer requests")
}
