// Package transport binds RTPS Locators to real UDP sockets: one
// unicast socket per participant plus one multicast socket per joined
// group, using golang.org/x/net/ipv4 and ipv6 so SPDP/SEDP multicast
// traffic can be received on every configured interface rather than
// whichever one the kernel picks by default.
package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/charmbracelet/log"

	"github.com/opendds-go/rtps/rtps/types"
)

var timeInPast = time.Unix(0, 1)

// Datagram is one received UDP payload plus the locator it arrived from.
type Datagram struct {
	From    types.Locator
	Payload []byte
}

// UDPTransport owns a unicast socket and zero or more joined multicast
// groups, all on one port family (UDPv4 or UDPv6).
type UDPTransport struct {
	unicastConn *net.UDPConn
	unicastLoc  types.Locator
	multicast   map[types.Locator]*multicastGroup
	log         *log.Logger
}

type multicastGroup struct {
	pconn4 *ipv4.PacketConn
	pconn6 *ipv6.PacketConn
	conn   *net.UDPConn
}

// Listen opens a unicast UDP socket on port, choosing any available
// interface address, and returns a transport whose UnicastLocator reports
// the bound address and port.
func Listen(kind types.LocatorKind, port uint32, logger *log.Logger) (*UDPTransport, error) {
	network := "udp4"
	if kind == types.LocatorKindUDPv6 {
		network = "udp6"
	}
	conn, err := net.ListenUDP(network, &net.UDPAddr{Port: int(port)})
	if err != nil {
		return nil, fmt.Errorf("listen unicast: %w", err)
	}
	addr := conn.LocalAddr().(*net.UDPAddr)
	loc := types.NewUDPv4Locator(addr.IP.To4(), uint16(addr.Port))
	if kind == types.LocatorKindUDPv6 {
		loc = types.NewUDPv6Locator(addr.IP, uint16(addr.Port))
	}
	return &UDPTransport{
		unicastConn: conn,
		unicastLoc:  loc,
		multicast:   make(map[types.Locator]*multicastGroup),
		log:         logger,
	}, nil
}

// UnicastLocator returns the locator this transport's unicast socket is
// bound to.
func (t *UDPTransport) UnicastLocator() types.Locator {
	return t.unicastLoc
}

// JoinMulticast binds and joins the multicast group named by loc on
// every available multicast-capable interface (§4.6: SPDP relies on all
// participants reaching the well-known multicast locator).
func (t *UDPTransport) JoinMulticast(loc types.Locator) error {
	if _, ok := t.multicast[loc]; ok {
		return nil
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return fmt.Errorf("list interfaces: %w", err)
	}

	ip := loc.IP()
	network := "udp4"
	if loc.Kind == types.LocatorKindUDPv6 {
		network = "udp6"
	}
	conn, err := net.ListenUDP(network, &net.UDPAddr{IP: ip, Port: int(loc.Port)})
	if err != nil {
		conn, err = net.ListenUDP(network, &net.UDPAddr{Port: int(loc.Port)})
		if err != nil {
			return fmt.Errorf("listen multicast: %w", err)
		}
	}

	group := &multicastGroup{conn: conn}
	joined := 0
	if loc.Kind == types.LocatorKindUDPv4 {
		p := ipv4.NewPacketConn(conn)
		for _, iface := range ifaces {
			if iface.Flags&net.FlagMulticast == 0 || iface.Flags&net.FlagUp == 0 {
				continue
			}
			if err := p.JoinGroup(&iface, &net.UDPAddr{IP: ip}); err == nil {
				joined++
			}
		}
		group.pconn4 = p
	} else {
		p := ipv6.NewPacketConn(conn)
		for _, iface := range ifaces {
			if iface.Flags&net.FlagMulticast == 0 || iface.Flags&net.FlagUp == 0 {
				continue
			}
			if err := p.JoinGroup(&iface, &net.UDPAddr{IP: ip}); err == nil {
				joined++
			}
		}
		group.pconn6 = p
	}
	if joined == 0 && t.log != nil {
		t.log.Warn("joined no interfaces for multicast group", "locator", loc.String())
	}
	t.multicast[loc] = group
	return nil
}

// Send writes payload to the given locator over the unicast socket
// (multicast transmission also goes out the unicast socket; only
// reception needs the joined group sockets).
func (t *UDPTransport) Send(loc types.Locator, payload []byte) error {
	_, err := t.unicastConn.WriteToUDP(payload, loc.UDPAddr())
	return err
}

// RecvUnicast blocks until a datagram arrives on the unicast socket or
// ctx is cancelled.
func (t *UDPTransport) RecvUnicast(ctx context.Context) (Datagram, error) {
	return recvFrom(ctx, t.unicastConn, t.unicastLoc.Kind)
}

// RecvMulticast blocks until a datagram arrives on the given joined
// group's socket or ctx is cancelled.
func (t *UDPTransport) RecvMulticast(ctx context.Context, group types.Locator) (Datagram, error) {
	g, ok := t.multicast[group]
	if !ok {
		return Datagram{}, fmt.Errorf("not joined: %s", group.String())
	}
	return recvFrom(ctx, g.conn, group.Kind)
}

func recvFrom(ctx context.Context, conn *net.UDPConn, kind types.LocatorKind) (Datagram, error) {
	type result struct {
		d   Datagram
		err error
	}
	ch := make(chan result, 1)
	go func() {
		buf := make([]byte, 65507)
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			ch <- result{err: err}
			return
		}
		var from types.Locator
		if kind == types.LocatorKindUDPv6 {
			from = types.NewUDPv6Locator(addr.IP, uint16(addr.Port))
		} else {
			from = types.NewUDPv4Locator(addr.IP.To4(), uint16(addr.Port))
		}
		ch <- result{d: Datagram{From: from, Payload: buf[:n]}}
	}()
	select {
	case <-ctx.Done():
		conn.SetReadDeadline(timeInPast)
		return Datagram{}, ctx.Err()
	case r := <-ch:
		return r.d, r.err
	}
}

// Close releases the unicast socket and every joined multicast group.
func (t *UDPTransport) Close() error {
	var firstErr error
	if err := t.unicastConn.Close(); err != nil {
		firstErr = err
	}
	for _, g := range t.multicast {
		if err := g.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
