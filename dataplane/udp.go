package dataplane

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/netsys-lab/speedtest/packet"
	"github.com/netsys-lab/speedtest/shared"
	"github.com/netsys-lab/speedtest/socket"
	log "github.com/sirupsen/logrus"
)

// UnreliableServer answers every Request on its shared UDP socket with the
// full sequence of Payload segments, sent back-to-back without pacing or
// retransmission.
type UnreliableServer struct {
	Conn    *net.UDPConn
	Metrics *Metrics
	wg      sync.WaitGroup
}

func NewUnreliableServer(addr string, metrics *Metrics) (*UnreliableServer, error) {
	conn, err := socket.ListenUDP(addr)
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &UnreliableServer{Conn: conn, Metrics: metrics}, nil
}

func (s *UnreliableServer) Addr() *net.UDPAddr {
	return s.Conn.LocalAddr().(*net.UDPAddr)
}

// Serve reads Requests until ctx is cancelled. Each Request is served by
// its own goroutine; Serve waits for them before returning.
func (s *UnreliableServer) Serve(ctx context.Context) error {
	stop := socket.CloseOnDone(ctx, s.Conn)
	defer stop()
	defer s.wg.Wait()

	log.Infof("UDP server started on port %d", s.Addr().Port)
	buf := make([]byte, shared.MAX_PAYLOAD_LEN)
	for {
		n, addr, err := s.Conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Warnf("Could not read udp: %v", err)
			continue
		}
		s.Metrics.AddRx(1, n)

		m, err := packet.DecodeDatagram(buf[:n])
		if err != nil {
			log.WithField("peer", addr).Debugf("Dropping datagram: %v", err)
			continue
		}
		req, ok := m.(*packet.Request)
		if !ok {
			log.WithField("peer", addr).Debugf("Dropping unexpected %s", m.Type())
			continue
		}

		log.WithField("peer", addr).Infof("Received UDP request, file size: %d", req.FileSize)
		s.wg.Add(1)
		go func(fileSize uint64, addr *net.UDPAddr) {
			defer s.wg.Done()
			sent, err := s.sendSegments(ctx, fileSize, addr)
			logger := log.WithField("peer", addr)
			if err != nil {
				logger.Warnf("UDP transfer aborted after %d segments: %v", sent, err)
				return
			}
			logger.Infof("Completed UDP transfer of %d segments", sent)
		}(req.FileSize, addr)
	}
}

func (s *UnreliableServer) sendSegments(ctx context.Context, fileSize uint64, addr *net.UDPAddr) (uint64, error) {
	total := shared.SegmentCount(fileSize)
	buf := make([]byte, shared.MAX_PAYLOAD_LEN)
	copy(buf[shared.PAYLOAD_HEADER_LEN:], filler)

	var i uint64
	for ; i < total; i++ {
		if ctx.Err() != nil {
			return i, ctx.Err()
		}
		p := packet.Payload{TotalSegments: total, SegmentIndex: i}
		p.PackHeader(buf)
		size := shared.PAYLOAD_HEADER_LEN + shared.SegmentLen(fileSize, i)
		n, err := s.Conn.WriteToUDP(buf[:size], addr)
		if err != nil {
			return i, &TransportError{Op: "send", Addr: addr.String(), Err: err}
		}
		s.Metrics.AddTx(1, n)
	}
	return i, nil
}

// UnreliableClient measures one UDP transfer. The end of the transfer is
// detected by InactivityTimeout passing without any datagram.
type UnreliableClient struct {
	Index             int
	InactivityTimeout time.Duration
	Metrics           *Metrics
}

func (c *UnreliableClient) Run(ctx context.Context, addr string, fileSize uint64) *Result {
	res := &Result{Kind: Unreliable, Index: c.Index, FileSize: fileSize}
	timeout := c.InactivityTimeout
	if timeout <= 0 {
		timeout = shared.DefaultInactivityTimeout
	}

	sock := socket.NewUDPTransportSocket()
	if err := sock.Listen(":0"); err != nil {
		res.Err = &TransportError{Op: "listen", Addr: ":0", Err: err}
		return res
	}
	defer sock.Close()
	stop := socket.CloseOnDone(ctx, sock)
	defer stop()

	if err := sock.Dial(addr); err != nil {
		res.Err = &TransportError{Op: "resolve", Addr: addr, Err: err}
		return res
	}

	req, err := packet.Encode(&packet.Request{FileSize: fileSize})
	if err != nil {
		res.Err = err
		return res
	}

	tc := NewTransferContext(shared.SegmentCount(fileSize))
	res.Start = time.Now()
	if _, err := sock.Write(req); err != nil {
		res.End = time.Now()
		res.Err = &TransportError{Op: "send", Addr: addr, Err: err}
		return res
	}

	buf := make([]byte, shared.MAX_PAYLOAD_LEN+1)
	for {
		n, from, err := sock.ReadTimeout(buf, timeout)
		if err != nil {
			if !socket.IsTimeout(err) {
				res.Err = &TransportError{Op: "receive", Addr: addr, Err: err}
			}
			break
		}
		if c.Metrics != nil {
			c.Metrics.AddRx(1, n)
		}

		m, err := packet.DecodeDatagram(buf[:n])
		if err != nil {
			tc.Invalid++
			log.WithField("peer", from).Debugf("Dropping datagram: %v", err)
			continue
		}
		p, ok := m.(*packet.Payload)
		if !ok {
			tc.Invalid++
			continue
		}
		if err := tc.Accept(p); err != nil {
			log.WithField("peer", from).Debugf("Dropping segment %d/%d: %v", p.SegmentIndex, p.TotalSegments, err)
		}
	}
	res.End = time.Now()
	tc.Fill(res)
	return res
}
