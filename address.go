package muduo

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// InetAddress is an IPv4 or IPv6 endpoint, mirroring mini_muduo's
// InetAddress (a thin wrapper that in C++ aliases sockaddr_in/
// sockaddr_in6; here it just holds a net.IP and a port, which every
// socket.go call translates to/from a golang.org/x/sys/unix.Sockaddr at
// the syscall boundary).
type InetAddress struct {
	ip   net.IP
	port uint16
	ipv6 bool
}

// NewInetAddress builds an endpoint for the given host port, binding to
// the wildcard address unless loopbackOnly restricts it to localhost.
func NewInetAddress(port uint16, loopbackOnly bool, ipv6 bool) *InetAddress {
	if ipv6 {
		ip := net.IPv6zero
		if loopbackOnly {
			ip = net.IPv6loopback
		}
		return &InetAddress{ip: ip, port: port, ipv6: true}
	}

	ip := net.IPv4zero
	if loopbackOnly {
		ip = net.IPv4(127, 0, 0, 1)
	}
	return &InetAddress{ip: ip, port: port}
}

// NewInetAddressFromIP builds an endpoint from a literal "1.2.3.4" or
// "::1" address string and a port.
func NewInetAddressFromIP(ip string, port uint16) (*InetAddress, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("muduo: invalid ip address %q", ip)
	}
	return &InetAddress{ip: parsed, port: port, ipv6: parsed.To4() == nil}, nil
}

// ResolveOrDie resolves hostname to an InetAddress, fataling the
// process if resolution fails -- mirroring mini_muduo's "OrDie" naming
// for startup-time, unrecoverable errors.
func ResolveOrDie(hostname string, port uint16) *InetAddress {
	addr, err := Resolve(hostname, port)
	if err != nil {
		defaultLogger.Fatalf("muduo: resolve %q: %v", hostname, err)
	}
	return addr
}

// Resolve looks up hostname via the system resolver and returns its
// first A/AAAA record as an InetAddress.
func Resolve(hostname string, port uint16) (*InetAddress, error) {
	ips, err := net.LookupIP(hostname)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("muduo: no addresses for %q", hostname)
	}
	ip := ips[0]
	return &InetAddress{ip: ip, port: port, ipv6: ip.To4() == nil}, nil
}

func (a *InetAddress) IsIPv6() bool    { return a.ipv6 }
func (a *InetAddress) IP() string      { return a.ip.String() }
func (a *InetAddress) Port() uint16    { return a.port }
func (a *InetAddress) ToIP() string    { return a.IP() }
func (a *InetAddress) ToIPPort() string {
	if a.ipv6 {
		return fmt.Sprintf("[%s]:%d", a.IP(), a.port)
	}
	return fmt.Sprintf("%s:%d", a.IP(), a.port)
}

func (a *InetAddress) Family() int {
	if a.ipv6 {
		return unix.AF_INET6
	}
	return unix.AF_INET
}

func (a *InetAddress) sockaddr() unix.Sockaddr {
	if a.ipv6 {
		sa := &unix.SockaddrInet6{Port: int(a.port)}
		copy(sa.Addr[:], a.ip.To16())
		return sa
	}

	sa := &unix.SockaddrInet4{Port: int(a.port)}
	copy(sa.Addr[:], a.ip.To4())
	return sa
}

func addressFromSockaddr(sa unix.Sockaddr) *InetAddress {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		ip := make(net.IP, 4)
		copy(ip, v.Addr[:])
		return &InetAddress{ip: ip, port: uint16(v.Port)}
	case *unix.SockaddrInet6:
		ip := make(net.IP, 16)
		copy(ip, v.Addr[:])
		return &InetAddress{ip: ip, port: uint16(v.Port), ipv6: true}
	default:
		return &InetAddress{ip: net.IPv4zero, port: 0}
	}
}
