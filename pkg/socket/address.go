package socket

import (
	"net"
	"net/netip"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Family identifies the address family of an Addr, Socket or Conn. The
// values match the kernel's AF_* constants.
type Family int

const (
	IPv4 Family = unix.AF_INET
	IPv6 Family = unix.AF_INET6
)

func (f Family) String() string {
	if f == IPv6 {
		return "ipv6"
	}
	return "ipv4"
}

// Addr is the canonical, family-tagged binary form of a parsed address. It
// is produced only by ResolveAddr and is immutable once created.
type Addr struct {
	family Family
	ip     netip.Addr
	port   uint16
}

// ResolveAddr parses a numeric IPv4 or IPv6 literal into its canonical
// binary form. Hostnames are rejected, never resolved; the caller must not
// depend on name lookup.
func ResolveAddr(text string) (Addr, error) {
	ip, err := netip.ParseAddr(text)
	if err != nil {
		return Addr{}, errors.WithMessagef(ErrInvalidAddress, "could not parse the provided address %q", text)
	}
	if zone := ip.Zone(); zone != "" && zoneIndex(zone) == 0 {
		return Addr{}, errors.WithMessagef(ErrInvalidAddress, "could not parse the provided address %q", text)
	}
	family := IPv6
	if ip.Is4() {
		family = IPv4
	}
	return Addr{family: family, ip: ip}, nil
}

// zoneIndex maps an IPv6 scope zone to its interface index: either a
// numeric index spelled out in the literal, or an interface name. Unknown
// zones map to zero.
func zoneIndex(zone string) uint32 {
	if n, err := strconv.ParseUint(zone, 10, 32); err == nil {
		return uint32(n)
	}
	if iface, err := net.InterfaceByName(zone); err == nil {
		return uint32(iface.Index)
	}
	return 0
}

// Family returns the address family tag.
func (a Addr) Family() Family {
	return a.family
}

// Port returns the port field, zero unless assigned with withPort.
func (a Addr) Port() int {
	return int(a.port)
}

// String returns the canonical textual form of the address.
func (a Addr) String() string {
	return a.ip.String()
}

func (a Addr) withPort(port int) Addr {
	a.port = uint16(port)
	return a
}

// sockaddr selects the family-specific kernel structure for this address.
func (a Addr) sockaddr() unix.Sockaddr {
	if a.family == IPv4 {
		return &unix.SockaddrInet4{Port: int(a.port), Addr: a.ip.As4()}
	}
	sa := &unix.SockaddrInet6{Port: int(a.port), Addr: a.ip.As16()}
	if zone := a.ip.Zone(); zone != "" {
		sa.ZoneId = zoneIndex(zone)
	}
	return sa
}

// addrFromSockaddr recovers an Addr from a kernel-returned peer endpoint,
// as produced by accept.
func addrFromSockaddr(sa unix.Sockaddr) (Addr, bool) {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return Addr{family: IPv4, ip: netip.AddrFrom4(sa.Addr), port: uint16(sa.Port)}, true
	case *unix.SockaddrInet6:
		return Addr{family: IPv6, ip: netip.AddrFrom16(sa.Addr), port: uint16(sa.Port)}, true
	}
	return Addr{}, false
}

// validDescriptor reports whether fd is open. A descriptor is invalid only
// when querying its flags fails specifically with EBADF.
func validDescriptor(fd int) bool {
	_, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	return err == nil || err != unix.EBADF
}
