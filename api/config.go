package api

import (
	"time"

	"github.com/netsys-lab/speedtest/shared"
	"github.com/netsys-lab/speedtest/socket"
)

const (
	DEFAULT_UDP_PORT  = 12345
	DEFAULT_TCP_PORT  = 54321
	DEFAULT_FILE_SIZE = 1024 * 1024 * 1024
)

type ServerConfig struct {
	// BindIP restricts the transfer sockets to one address, empty binds all.
	BindIP  string
	TCPPort int // 0 picks a free port; the Offer carries the bound one
	UDPPort int
	// DiscoveryPort is where Offers are sent to.
	DiscoveryPort  int
	OfferInterval  time.Duration
	ReportInterval time.Duration
	// BroadcastTargets replaces the interface-derived broadcast addresses.
	BroadcastTargets []socket.BroadcastTarget
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		TCPPort:        DEFAULT_TCP_PORT,
		UDPPort:        DEFAULT_UDP_PORT,
		DiscoveryPort:  shared.DISCOVERY_PORT,
		OfferInterval:  shared.DefaultOfferInterval,
		ReportInterval: 5 * time.Second,
	}
}

type ClientConfig struct {
	DiscoveryPort     int
	FileSize          uint64
	TCPConnections    int
	UDPConnections    int
	InactivityTimeout time.Duration
	DialTimeout       time.Duration
	// ConcurrentSessions keeps listening for Offers while a session runs.
	// By default discovery resumes only after all transfers finished.
	ConcurrentSessions bool
	// OnReport receives every finished session.
	OnReport func(*SessionReport)
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		DiscoveryPort:     shared.DISCOVERY_PORT,
		FileSize:          DEFAULT_FILE_SIZE,
		TCPConnections:    1,
		UDPConnections:    2,
		InactivityTimeout: shared.DefaultInactivityTimeout,
		DialTimeout:       5 * time.Second,
	}
}
