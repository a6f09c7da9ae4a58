package types

import (
	"fmt"
	"net"
)

// LocatorKind identifies the transport family a Locator addresses (§3).
type LocatorKind int32

const (
	LocatorKindInvalid LocatorKind = -1
	LocatorKindUDPv4   LocatorKind = 1
	LocatorKindUDPv6   LocatorKind = 2
)

// Locator is a (kind, port, 16-byte address) transport endpoint address.
type Locator struct {
	Kind    LocatorKind
	Port    uint32
	Address [16]byte
}

// InvalidLocator is the wire sentinel for "no locator".
var InvalidLocator = Locator{Kind: LocatorKindInvalid}

// NewUDPv4Locator builds a Locator for an IPv4 address and port. Per §3,
// UDPv4 addresses are stored in the last four bytes of the 16-byte field.
func NewUDPv4Locator(ip net.IP, port uint16) Locator {
	var addr [16]byte
	v4 := ip.To4()
	copy(addr[12:], v4)
	return Locator{Kind: LocatorKindUDPv4, Port: uint32(port), Address: addr}
}

// NewUDPv6Locator builds a Locator for an IPv6 address and port.
func NewUDPv6Locator(ip net.IP, port uint16) Locator {
	var addr [16]byte
	copy(addr[:], ip.To16())
	return Locator{Kind: LocatorKindUDPv6, Port: uint32(port), Address: addr}
}

// IP returns the net.IP this locator addresses.
func (l Locator) IP() net.IP {
	switch l.Kind {
	case LocatorKindUDPv4:
		return net.IP(l.Address[12:16])
	case LocatorKindUDPv6:
		ip := make(net.IP, 16)
		copy(ip, l.Address[:])
		return ip
	default:
		return nil
	}
}

// UDPAddr converts the locator to a *net.UDPAddr, or nil if invalid.
func (l Locator) UDPAddr() *net.UDPAddr {
	ip := l.IP()
	if ip == nil {
		return nil
	}
	return &net.UDPAddr{IP: ip, Port: int(l.Port)}
}

// IsMulticast reports whether the locator's address is a multicast group.
func (l Locator) IsMulticast() bool {
	ip := l.IP()
	return ip != nil && ip.IsMulticast()
}

// WithPortInvalidated returns a copy of l with its port zeroed, used when
// building the unicast reply locator from a datagram's source address
// (§4.4 message receiver).
func (l Locator) WithPortInvalidated() Locator {
	l.Port = 0
	return l
}

// WithMulticastAddressInvalidated returns a copy of l with its address
// cleared if it is a multicast locator, used for building the multicast
// reply locator (§4.4).
func (l Locator) WithMulticastAddressInvalidated() Locator {
	if l.IsMulticast() {
		l.Address = [16]byte{}
	}
	return l
}

func (l Locator) String() string {
	return fmt.Sprintf("%v:%d/%d", l.IP(), l.Port, l.Kind)
}
