package controlplane

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/netsys-lab/speedtest/packet"
	"github.com/netsys-lab/speedtest/socket"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
)

// Listener is the client's entry point: it receives datagrams on the
// discovery port and hands every valid Offer to Handler. Anything else on
// the port is dropped without complaint.
type Listener struct {
	Handler OfferHandler
	// Serialize runs Handler inline, so discovery pauses until the session
	// finished. Otherwise sessions run concurrently with discovery.
	Serialize bool
	conn      *net.UDPConn
	pc        *ipv4.PacketConn
	wg        sync.WaitGroup
}

func NewListener(ctx context.Context, port int, handler OfferHandler) (*Listener, error) {
	conn, err := socket.ListenDiscovery(ctx, port)
	if err != nil {
		return nil, err
	}
	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetControlMessage(ipv4.FlagDst|ipv4.FlagInterface, true); err != nil {
		log.Debugf("Control messages unavailable on discovery socket: %v", err)
	}
	return &Listener{
		Handler:   handler,
		Serialize: true,
		conn:      conn,
		pc:        pc,
	}, nil
}

func (l *Listener) Addr() *net.UDPAddr {
	return l.conn.LocalAddr().(*net.UDPAddr)
}

// Run receives Offers until ctx is cancelled and waits for the sessions it
// started before returning.
func (l *Listener) Run(ctx context.Context) error {
	defer l.conn.Close()
	stop := socket.CloseOnDone(ctx, l.conn)
	defer stop()
	defer l.wg.Wait()

	log.Infof("Listening for offer requests on port %d", l.Addr().Port)
	buf := make([]byte, 2048)
	for {
		n, cm, src, err := l.pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Warnf("Could not read discovery datagram: %v", err)
			continue
		}

		offer, err := packet.DecodeOffer(buf[:n])
		if err != nil {
			log.WithField("peer", src).Debugf("Ignoring datagram: %v", err)
			continue
		}
		from, ok := src.(*net.UDPAddr)
		if !ok {
			continue
		}

		fields := log.Fields{"peer": from.IP}
		if cm != nil && cm.Dst != nil {
			fields["dst"] = cm.Dst
		}
		log.WithFields(fields).Infof("Received offer from %s", from.IP)

		so := ServerOffer{Addr: from, Offer: *offer}
		if l.Serialize {
			l.Handler(ctx, so)
			continue
		}
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.Handler(ctx, so)
		}()
	}
}
