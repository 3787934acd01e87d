package socket

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Socket owns a bound, listening descriptor and produces Conns via Accept.
// Once bound, its family, host and port never change. The descriptor is
// exclusively owned: Close releases it exactly once.
type Socket struct {
	family Family
	host   string
	port   int
	fd     int
}

// Listen binds a stream socket to the given numeric address literal and
// port and begins listening with a backlog of Backlog pending peers.
// Address reuse is enabled so repeated restarts do not fail on a lingering
// "address in use".
func Listen(host string, port int) (*Socket, error) {
	if port < 1 || port > 65535 {
		return nil, errors.WithMessage(ErrInvalidArgument, "the provided port number is out of range")
	}
	addr, err := ResolveAddr(host)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Socket(int(addr.Family()), unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, errors.WithMessagef(ErrUnexpected, "couldn't create a socket: %v", err)
	}
	unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	s := &Socket{family: addr.Family(), host: addr.String(), port: port, fd: fd}
	if err := unix.Bind(fd, addr.withPort(port).sockaddr()); err != nil {
		unix.Close(fd)
		return nil, errors.WithMessagef(ErrUnexpected, "couldn't bind to [%s]:%d", s.host, s.port)
	}
	if err := unix.Listen(fd, Backlog); err != nil {
		unix.Close(fd)
		return nil, errors.WithMessagef(ErrUnexpected, "couldn't listen on [%s]:%d", s.host, s.port)
	}
	logger.WithFields(logrus.Fields{
		"host": s.host,
		"port": s.port,
	}).Debug("listening")
	return s, nil
}

// Accept blocks until a peer connects and returns it as an inbound Conn,
// seeded with this socket's host and port as the local address and the
// kernel-reported peer address as remote.
func (s *Socket) Accept() (*Conn, error) {
	if !s.Valid() {
		return nil, errors.WithMessagef(ErrUnexpected,
			"couldn't accept client on [%s]:%d - invalid socket", s.host, s.port)
	}
	fd, sa, err := unix.Accept(s.fd)
	if err != nil || fd < 0 {
		return nil, errors.WithMessagef(ErrUnexpected,
			"couldn't accept client on [%s]:%d - invalid client file descriptor", s.host, s.port)
	}
	var remote string
	if peer, ok := addrFromSockaddr(sa); ok {
		remote = peer.String()
	}
	return Accepted(s.host, remote, s.port, fd)
}

// Descriptor exposes the raw listening descriptor for uses this type does
// not cover (socket options, external polling). Callers must not close it.
func (s *Socket) Descriptor() int {
	return s.fd
}

// Family returns the address family the socket was bound with.
func (s *Socket) Family() Family {
	return s.family
}

// Host returns the canonical listening address. Always a numeric literal,
// never a hostname.
func (s *Socket) Host() string {
	return s.host
}

// Port returns the listening port.
func (s *Socket) Port() int {
	return s.port
}

// Valid reports whether the descriptor is still open.
func (s *Socket) Valid() bool {
	return validDescriptor(s.fd)
}

// Close releases the descriptor if still open. Idempotent; never fails.
func (s *Socket) Close() error {
	if s.Valid() {
		unix.Close(s.fd)
		s.fd = -1
		logger.WithFields(logrus.Fields{
			"host": s.host,
			"port": s.port,
		}).Debug("listener closed")
	}
	return nil
}
