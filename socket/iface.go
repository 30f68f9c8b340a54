package socket

import (
	"net"
)

// BroadcastTarget is a destination for discovery broadcasts. IfIndex pins
// the outgoing interface, 0 lets the routing table decide.
type BroadcastTarget struct {
	Addr    *net.UDPAddr
	IfIndex int
}

// BroadcastTargets returns the directed broadcast address of every up,
// broadcast-capable IPv4 interface, or the limited broadcast address if
// there is none.
func BroadcastTargets(port int) []BroadcastTarget {
	var targets []BroadcastTarget
	ifaces, err := net.Interfaces()
	if err == nil {
		for _, iface := range ifaces {
			if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagBroadcast == 0 ||
				iface.Flags&net.FlagLoopback != 0 {
				continue
			}
			addrs, err := iface.Addrs()
			if err != nil {
				continue
			}
			for _, addr := range addrs {
				ipNet, ok := addr.(*net.IPNet)
				if !ok {
					continue
				}
				if bcast := DirectedBroadcast(ipNet); bcast != nil {
					targets = append(targets, BroadcastTarget{
						Addr:    &net.UDPAddr{IP: bcast, Port: port},
						IfIndex: iface.Index,
					})
				}
			}
		}
	}

	if len(targets) == 0 {
		targets = append(targets, BroadcastTarget{
			Addr: &net.UDPAddr{IP: net.IPv4bcast, Port: port},
		})
	}
	return targets
}

// DirectedBroadcast returns the broadcast address of an IPv4 subnet, nil for
// IPv6 or host routes.
func DirectedBroadcast(ipNet *net.IPNet) net.IP {
	ip := ipNet.IP.To4()
	if ip == nil {
		return nil
	}
	mask := ipNet.Mask
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	if len(mask) != net.IPv4len {
		return nil
	}
	if ones, _ := net.IPMask(mask).Size(); ones >= 31 {
		return nil
	}
	bcast := make(net.IP, net.IPv4len)
	for i := range ip {
		bcast[i] = ip[i] | ^mask[i]
	}
	return bcast
}

// LocalIPv4 returns the first IPv4 address of an up, non-loopback
// interface; the server announces it as its discoverable address.
func LocalIPv4() net.IP {
	ifaces, err := net.Interfaces()
	if err != nil {
		return net.IPv4(127, 0, 0, 1)
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, addr := range addrs {
			if ipNet, ok := addr.(*net.IPNet); ok && ipNet.IP.To4() != nil {
				return ipNet.IP.To4()
			}
		}
	}
	return net.IPv4(127, 0, 0, 1)
}
