package controlplane

import (
	"context"
	"net"

	"github.com/netsys-lab/speedtest/packet"
)

// ServerOffer is a validated Offer together with the address it came from.
type ServerOffer struct {
	Addr  *net.UDPAddr
	Offer packet.Offer
}

// TCPAddr is the server's reliable transfer endpoint.
func (so ServerOffer) TCPAddr() string {
	return (&net.TCPAddr{IP: so.Addr.IP, Port: int(so.Offer.TCPPort)}).String()
}

// UDPAddr is the server's unreliable transfer endpoint.
func (so ServerOffer) UDPAddr() string {
	return (&net.UDPAddr{IP: so.Addr.IP, Port: int(so.Offer.UDPPort)}).String()
}

// OfferHandler runs one session for an accepted Offer.
type OfferHandler func(ctx context.Context, offer ServerOffer)
