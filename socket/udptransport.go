package socket

import (
	"context"
	"errors"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
)

// UDPTransportSocket is a private datagram socket talking to one remote
// endpoint. Each unreliable transfer owns one, so received segments never
// mix between transfers.
type UDPTransportSocket struct {
	Conn       *net.UDPConn
	LocalAddr  *net.UDPAddr
	RemoteAddr *net.UDPAddr
}

func NewUDPTransportSocket() *UDPTransportSocket {
	return &UDPTransportSocket{}
}

func (uts *UDPTransportSocket) Listen(addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return err
	}
	udpConn, err := net.ListenUDP("udp4", udpAddr)
	if err != nil {
		return err
	}
	uts.LocalAddr = udpConn.LocalAddr().(*net.UDPAddr)
	uts.Conn = udpConn
	return nil
}

// Dial sets the destination for Write. The socket stays unconnected.
func (uts *UDPTransportSocket) Dial(addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return err
	}
	uts.RemoteAddr = udpAddr
	return nil
}

func (uts *UDPTransportSocket) Write(buf []byte) (int, error) {
	if uts.RemoteAddr == nil {
		return 0, errors.New("udp socket has no remote address")
	}
	return uts.Conn.WriteToUDP(buf, uts.RemoteAddr)
}

// ReadTimeout reads one datagram, waiting at most timeout for it.
func (uts *UDPTransportSocket) ReadTimeout(buf []byte, timeout time.Duration) (int, *net.UDPAddr, error) {
	if err := uts.Conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, nil, err
	}
	return uts.Conn.ReadFromUDP(buf)
}

func (uts *UDPTransportSocket) Close() error {
	if uts.Conn == nil {
		return nil
	}
	return uts.Conn.Close()
}

// ListenUDP binds the shared server socket for unreliable transfers.
func ListenUDP(addr string) (*net.UDPConn, error) {
	udpAddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, err
	}
	return net.ListenUDP("udp4", udpAddr)
}

// ListenDiscovery binds the well-known discovery port with address reuse
// enabled, so several clients on one host can receive the same broadcasts.
func ListenDiscovery(ctx context.Context, port int) (*net.UDPConn, error) {
	lc := net.ListenConfig{Control: controlReuse}
	pc, err := lc.ListenPacket(ctx, "udp4", (&net.UDPAddr{Port: port}).String())
	if err != nil {
		return nil, err
	}
	return pc.(*net.UDPConn), nil
}

// ListenBroadcast opens an ephemeral socket permitted to send to broadcast
// addresses.
func ListenBroadcast(ctx context.Context) (*net.UDPConn, error) {
	lc := net.ListenConfig{Control: controlBroadcast}
	pc, err := lc.ListenPacket(ctx, "udp4", ":0")
	if err != nil {
		return nil, err
	}
	return pc.(*net.UDPConn), nil
}

func IsTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// CloseOnDone closes c once ctx is cancelled, unblocking pending reads and
// accepts. The returned func stops the watcher.
func CloseOnDone(ctx context.Context, c interface{ Close() error }) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			if err := c.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				log.Debugf("Close on cancel failed: %v", err)
			}
		case <-done:
		}
	}()
	return func() { close(done) }
}
