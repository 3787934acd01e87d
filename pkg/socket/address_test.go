package socket

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestResolveAddrIPv4(t *testing.T) {
	addr, err := ResolveAddr("127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, IPv4, addr.Family())
	assert.Equal(t, "127.0.0.1", addr.String())
}

func TestResolveAddrIPv6(t *testing.T) {
	addr, err := ResolveAddr("::1")
	require.NoError(t, err)
	assert.Equal(t, IPv6, addr.Family())
	assert.Equal(t, "::1", addr.String())
}

func TestResolveAddrCanonicalizes(t *testing.T) {
	addr, err := ResolveAddr("2001:DB8:0:0:0:0:0:1")
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::1", addr.String())
}

func TestResolveAddrMappedIPv4IsIPv6(t *testing.T) {
	addr, err := ResolveAddr("::ffff:10.1.2.3")
	require.NoError(t, err)
	assert.Equal(t, IPv6, addr.Family())
}

func TestResolveAddrZonedIPv6NumericZone(t *testing.T) {
	addr, err := ResolveAddr("fe80::1%4")
	require.NoError(t, err)
	assert.Equal(t, IPv6, addr.Family())

	sa, ok := addr.sockaddr().(*unix.SockaddrInet6)
	require.True(t, ok)
	assert.Equal(t, uint32(4), sa.ZoneId)
}

func TestResolveAddrZonedIPv6InterfaceZone(t *testing.T) {
	ifaces, err := net.Interfaces()
	require.NoError(t, err)
	require.NotEmpty(t, ifaces)

	addr, err := ResolveAddr("fe80::1%" + ifaces[0].Name)
	require.NoError(t, err)

	sa, ok := addr.sockaddr().(*unix.SockaddrInet6)
	require.True(t, ok)
	assert.Equal(t, uint32(ifaces[0].Index), sa.ZoneId)
}

func TestResolveAddrRejectsUnknownZone(t *testing.T) {
	_, err := ResolveAddr("fe80::1%nosuchiface0")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestResolveAddrRejectsHostnames(t *testing.T) {
	for _, text := range []string{"localhost", "example.com"} {
		_, err := ResolveAddr(text)
		assert.ErrorIs(t, err, ErrInvalidAddress, text)
		assert.ErrorIs(t, err, ErrInvalidArgument, text)
	}
}

func TestResolveAddrRejectsJunk(t *testing.T) {
	for _, text := range []string{"", "999.1.1.1", "1.2.3", "fe80:::1", "127.0.0.1:80"} {
		_, err := ResolveAddr(text)
		assert.ErrorIs(t, err, ErrInvalidAddress, text)
	}
}
