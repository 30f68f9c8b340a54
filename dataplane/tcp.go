package dataplane

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/netsys-lab/speedtest/socket"
	"github.com/netsys-lab/speedtest/utils"
	log "github.com/sirupsen/logrus"
)

const (
	FILLER_CHUNK_SIZE = 32 * 1024
	// Longest accepted size line: 20 digits of a uint64 plus CR LF and
	// some whitespace.
	MAX_SIZE_LINE = 32
)

var filler = func() []byte {
	b := make([]byte, FILLER_CHUNK_SIZE)
	for i := range b {
		b[i] = 'A'
	}
	return b
}()

// ReliableServer answers every TCP connection with the number of filler
// bytes the client asked for, then closes it.
type ReliableServer struct {
	Listener *net.TCPListener
	Metrics  *Metrics
	// RequestTimeout bounds how long a connection may take to send its size
	// line. Zero waits forever.
	RequestTimeout time.Duration
	wg             sync.WaitGroup
}

func NewReliableServer(addr string, metrics *Metrics) (*ReliableServer, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp4", addr)
	if err != nil {
		return nil, err
	}
	ln, err := net.ListenTCP("tcp4", tcpAddr)
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &ReliableServer{
		Listener:       ln,
		Metrics:        metrics,
		RequestTimeout: 10 * time.Second,
	}, nil
}

func (s *ReliableServer) Addr() *net.TCPAddr {
	return s.Listener.Addr().(*net.TCPAddr)
}

// Serve accepts connections until ctx is cancelled, handling each in its
// own goroutine. It waits for in-flight handlers before returning.
func (s *ReliableServer) Serve(ctx context.Context) error {
	stop := socket.CloseOnDone(ctx, s.Listener)
	defer stop()
	defer s.wg.Wait()

	log.Infof("TCP server started on port %d", s.Addr().Port)
	for {
		conn, err := s.Listener.AcceptTCP()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Warnf("Could not accept tcp: %v", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *ReliableServer) handleConn(ctx context.Context, conn *net.TCPConn) {
	defer conn.Close()
	stop := socket.CloseOnDone(ctx, conn)
	defer stop()

	peer := conn.RemoteAddr().String()
	logger := log.WithField("peer", peer)

	n, err := s.serveConn(conn)
	if err != nil {
		logger.Warnf("TCP transfer failed after %s: %v", utils.ByteCountSI(n), err)
		return
	}
	logger.Infof("Completed TCP transfer of %s", utils.ByteCountSI(n))
}

func (s *ReliableServer) serveConn(conn *net.TCPConn) (int64, error) {
	peer := conn.RemoteAddr().String()
	if s.RequestTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.RequestTimeout))
	}

	reader := bufio.NewReaderSize(conn, MAX_SIZE_LINE)
	line, err := reader.ReadSlice('\n')
	if err != nil {
		if errors.Is(err, bufio.ErrBufferFull) {
			return 0, &ProtocolError{Addr: peer, Reason: ErrMalformedSize, Err: errors.New("size line too long")}
		}
		return 0, &TransportError{Op: "read", Addr: peer, Err: err}
	}
	size, err := ParseSizeLine(line)
	if err != nil {
		return 0, &ProtocolError{Addr: peer, Reason: ErrMalformedSize, Err: err}
	}
	conn.SetReadDeadline(time.Time{})

	var sent int64
	for remaining := size; remaining > 0; {
		chunk := FILLER_CHUNK_SIZE
		if remaining < uint64(chunk) {
			chunk = int(remaining)
		}
		n, err := conn.Write(filler[:chunk])
		sent += int64(n)
		s.Metrics.AddTx(1, n)
		if err != nil {
			return sent, &TransportError{Op: "write", Addr: peer, Err: err}
		}
		remaining -= uint64(n)
	}
	return sent, nil
}

// ParseSizeLine parses the decimal byte count a reliable client sends.
func ParseSizeLine(line []byte) (uint64, error) {
	text := strings.TrimSpace(string(line))
	if text == "" {
		return 0, errors.New("empty size")
	}
	return strconv.ParseUint(text, 10, 64)
}

// ReliableClient measures one TCP bulk download.
type ReliableClient struct {
	Index       int
	DialTimeout time.Duration
	Metrics     *Metrics
}

func (c *ReliableClient) Run(ctx context.Context, addr string, fileSize uint64) *Result {
	res := &Result{Kind: Reliable, Index: c.Index, FileSize: fileSize}

	dialer := net.Dialer{Timeout: c.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp4", addr)
	if err != nil {
		res.Err = &TransportError{Op: "dial", Addr: addr, Err: err}
		return res
	}
	defer conn.Close()
	stop := socket.CloseOnDone(ctx, conn)
	defer stop()

	if _, err := fmt.Fprintf(conn, "%d\n", fileSize); err != nil {
		res.Err = &TransportError{Op: "write", Addr: addr, Err: err}
		return res
	}

	want := int64(math.MaxInt64)
	if fileSize < math.MaxInt64 {
		want = int64(fileSize)
	}

	res.Start = time.Now()
	n, err := io.CopyN(io.Discard, conn, want)
	res.End = time.Now()
	res.BytesReceived = n
	if c.Metrics != nil {
		c.Metrics.AddRx(1, int(n))
	}

	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		res.Err = &ProtocolError{Addr: addr, Reason: ErrShortTransfer,
			Err: fmt.Errorf("received %d of %d bytes", n, fileSize)}
	default:
		res.Err = &TransportError{Op: "read", Addr: addr, Err: err}
	}
	return res
}
