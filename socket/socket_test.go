package socket

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestDirectedBroadcast(t *testing.T) {
	tests := []struct {
		cidr string
		want string
	}{
		{"192.168.1.17/24", "192.168.1.255"},
		{"10.0.0.1/8", "10.255.255.255"},
		{"172.16.5.4/20", "172.16.15.255"},
		{"10.0.0.1/31", ""},
		{"10.0.0.1/32", ""},
		{"fe80::1/64", ""},
	}
	for _, tt := range tests {
		ip, ipNet, err := net.ParseCIDR(tt.cidr)
		if err != nil {
			t.Fatal(err)
		}
		ipNet.IP = ip
		got := DirectedBroadcast(ipNet)
		if tt.want == "" {
			if got != nil {
				t.Errorf("%s: got %v, want nil", tt.cidr, got)
			}
			continue
		}
		if got.String() != tt.want {
			t.Errorf("%s: got %v, want %s", tt.cidr, got, tt.want)
		}
	}
}

func TestBroadcastTargetsNeverEmpty(t *testing.T) {
	targets := BroadcastTargets(13117)
	if len(targets) == 0 {
		t.Fatal("no broadcast targets")
	}
	for _, tgt := range targets {
		if tgt.Addr.Port != 13117 || tgt.Addr.IP.To4() == nil {
			t.Errorf("bad target %v", tgt.Addr)
		}
	}
}

func TestListenDiscoveryReuse(t *testing.T) {
	ctx := context.Background()
	first, err := ListenDiscovery(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()

	port := first.LocalAddr().(*net.UDPAddr).Port
	second, err := ListenDiscovery(ctx, port)
	if err != nil {
		t.Skipf("address reuse not supported here: %v", err)
	}
	second.Close()
}

func TestUDPTransportSocketTimeout(t *testing.T) {
	sock := NewUDPTransportSocket()
	if err := sock.Listen("127.0.0.1:0"); err != nil {
		t.Fatal(err)
	}
	defer sock.Close()

	buf := make([]byte, 16)
	start := time.Now()
	_, _, err := sock.ReadTimeout(buf, 50*time.Millisecond)
	if !IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Error("returned before the deadline")
	}
}

func TestCloseOnDone(t *testing.T) {
	conn, err := ListenUDP("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	stop := CloseOnDone(ctx, conn)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		_, _, err := conn.ReadFromUDP(make([]byte, 16))
		errCh <- err
	}()
	cancel()

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("read succeeded on closed socket")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("read was not unblocked by cancel")
	}
}
