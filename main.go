// Measures TCP and UDP download throughput between hosts on a LAN.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anacrolix/tagflag"
	"github.com/netsys-lab/speedtest/api"
	"github.com/netsys-lab/speedtest/report"
	log "github.com/sirupsen/logrus"
)

var flags = struct {
	IsServer          bool
	BindIP            string
	TCPPort           int
	UDPPort           int
	DiscoveryPort     int
	Interval          time.Duration
	ReportInterval    time.Duration
	FileSize          tagflag.Bytes
	TCPConnections    int
	UDPConnections    int
	InactivityTimeout time.Duration
	Concurrent        bool
	LogLevel          string
}{
	TCPPort:           api.DEFAULT_TCP_PORT,
	UDPPort:           api.DEFAULT_UDP_PORT,
	DiscoveryPort:     13117,
	Interval:          time.Second,
	ReportInterval:    5 * time.Second,
	FileSize:          api.DEFAULT_FILE_SIZE,
	TCPConnections:    1,
	UDPConnections:    2,
	InactivityTimeout: time.Second,
	LogLevel:          "info",
}

func main() {
	if err := mainErr(); err != nil {
		log.Errorf("error in main: %v", err)
		os.Exit(1)
	}
}

func mainErr() error {
	tagflag.Parse(&flags)

	level, err := log.ParseLevel(flags.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.IsServer {
		return runServer(ctx)
	}
	return runClient(ctx)
}

func runServer(ctx context.Context) error {
	cfg := api.DefaultServerConfig()
	cfg.BindIP = flags.BindIP
	cfg.TCPPort = flags.TCPPort
	cfg.UDPPort = flags.UDPPort
	cfg.DiscoveryPort = flags.DiscoveryPort
	cfg.OfferInterval = flags.Interval
	cfg.ReportInterval = flags.ReportInterval

	server, err := api.NewServer(ctx, cfg)
	if err != nil {
		return err
	}
	return server.Run(ctx)
}

func runClient(ctx context.Context) error {
	if flags.FileSize < 0 {
		return fmt.Errorf("invalid file size %d", flags.FileSize)
	}
	if flags.TCPConnections < 0 || flags.UDPConnections < 0 {
		return fmt.Errorf("invalid connection counts %d tcp, %d udp", flags.TCPConnections, flags.UDPConnections)
	}

	cfg := api.DefaultClientConfig()
	cfg.DiscoveryPort = flags.DiscoveryPort
	cfg.FileSize = uint64(flags.FileSize)
	cfg.TCPConnections = flags.TCPConnections
	cfg.UDPConnections = flags.UDPConnections
	cfg.InactivityTimeout = flags.InactivityTimeout
	cfg.ConcurrentSessions = flags.Concurrent
	cfg.OnReport = func(sr *api.SessionReport) {
		fmt.Println(report.Session(sr))
	}

	client, err := api.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	return client.Run(ctx)
}
