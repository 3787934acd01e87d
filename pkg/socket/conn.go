package socket

import (
	"bytes"

	"github.com/google/netstack/tcpip/buffer"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Flow describes whether a Conn originated from an outbound connect or was
// produced by a Socket from an accepted peer.
type Flow int

const (
	Inbound Flow = iota
	Outbound
)

func (f Flow) String() string {
	if f == Outbound {
		return "outbound"
	}
	return "inbound"
}

// Conn owns one connected descriptor plus an internal receive buffer. It is
// created either by Connect (outbound) or by a Socket on accept (inbound).
// The buffer holds bytes received but not yet consumed, in arrival order;
// it grows without bound until drained by Read or ReadDelim.
type Conn struct {
	id     string
	buffer buffer.View
	family Family
	flow   Flow
	listen string
	port   int
	remote string
	fd     int
}

// Connect establishes a blocking outbound connection to the given numeric
// address literal and port. The listen address of the resulting Conn is
// empty; it is only meaningful for inbound connections.
func Connect(addr string, port int) (*Conn, error) {
	if port < 1 || port > 65535 {
		return nil, errors.WithMessage(ErrInvalidArgument, "the provided port number is out of range")
	}
	raddr, err := ResolveAddr(addr)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Socket(int(raddr.Family()), unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, errors.WithMessagef(ErrUnexpected, "couldn't create a socket: %v", err)
	}
	unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	c := &Conn{
		id:     uuid.NewString(),
		family: raddr.Family(),
		flow:   Outbound,
		port:   port,
		remote: raddr.String(),
		fd:     fd,
	}
	if err := unix.Connect(fd, raddr.withPort(port).sockaddr()); err != nil {
		unix.Close(fd)
		return nil, errors.WithMessagef(ErrUnexpected, "couldn't connect to [%s]:%d", c.remote, c.port)
	}
	c.logEvent("connected")
	return c, nil
}

// Accepted wraps an already-connected descriptor handed over by a listening
// socket. Ownership of fd transfers to the Conn; no descriptor is created
// or connected here. The local and remote addresses must share one family,
// IPv4 or IPv6.
func Accepted(localAddr, remoteAddr string, port, fd int) (*Conn, error) {
	if port < 1 || port > 65535 {
		return nil, errors.WithMessage(ErrInvalidArgument, "the provided port number is out of range")
	}
	if !validDescriptor(fd) {
		return nil, errors.WithMessage(ErrInvalidArgument, "the provided socket file descriptor is invalid")
	}
	laddr, err := ResolveAddr(localAddr)
	if err != nil {
		return nil, err
	}
	raddr, err := ResolveAddr(remoteAddr)
	if err != nil {
		return nil, err
	}
	if laddr.Family() != raddr.Family() {
		return nil, errors.WithMessage(ErrInvalidArgument,
			"the listen address and remote address have differing or unexpected address families")
	}
	c := &Conn{
		id:     uuid.NewString(),
		family: laddr.Family(),
		flow:   Inbound,
		listen: laddr.String(),
		port:   port,
		remote: raddr.String(),
		fd:     fd,
	}
	c.logEvent("accepted")
	return c, nil
}

// EnqueueData performs blocking receives on the descriptor and appends the
// result to the internal buffer, returning the number of bytes appended.
//
// A reliable request keeps issuing receive calls, each capped at MaxBytes,
// until exactly requestLength bytes have been enqueued; it waits
// indefinitely when less data is available than requested. An unreliable
// request issues exactly one receive call sized to min(requestLength,
// MaxBytes) and returns with whatever that call produced, possibly nothing.
//
// A failed receive closes the descriptor and reports ErrUnexpected; the
// Conn is unusable afterwards. A receive returning zero bytes is not an
// error in either mode.
func (c *Conn) EnqueueData(reliable bool, requestLength int) (int, error) {
	if requestLength <= 0 {
		return 0, errors.WithMessage(ErrInvalidArgument, "the requested length is invalid")
	}
	if !c.Valid() {
		return 0, errors.WithMessage(ErrInvalidArgument, "the socket file descriptor is invalid")
	}
	if !reliable && requestLength > MaxBytes {
		requestLength = MaxBytes
	}
	remaining := requestLength
	chunk := make([]byte, MaxBytes)
	for remaining > 0 {
		n, err := unix.Read(c.fd, chunk[:min(remaining, MaxBytes)])
		if err != nil || n < 0 {
			unix.Close(c.fd)
			c.fd = -1
			c.logEvent("reset by peer")
			return requestLength - remaining, errors.WithMessagef(ErrUnexpected,
				"connection reset by peer %s:%d", c.remote, c.port)
		}
		c.buffer = append(c.buffer, chunk[:n]...)
		remaining -= n
		if !reliable {
			break
		}
	}
	return requestLength - remaining, nil
}

// Read returns up to requestLength bytes, serving from the internal buffer
// first. When the buffer already holds requestLength bytes no I/O occurs.
// Otherwise the shortfall is enqueued: exactly the missing amount for a
// reliable read, a full MaxBytes refill for an unreliable one. Bytes beyond
// the request stay buffered for the next call, so several small reads
// against one stream never lose data.
func (c *Conn) Read(reliable bool, requestLength int) ([]byte, error) {
	bufLength := len(c.buffer)
	if bufLength < requestLength {
		remaining := MaxBytes
		if reliable {
			remaining = requestLength - bufLength
		}
		if remaining > 0 {
			if _, err := c.EnqueueData(reliable, remaining); err != nil {
				return nil, err
			}
		}
		bufLength = len(c.buffer)
	}
	n := min(requestLength, bufLength)
	if n < 0 {
		n = 0
	}
	data := make([]byte, n)
	copy(data, c.buffer[:n])
	c.buffer.TrimFront(n)
	return data, nil
}

// ReadDelim returns everything from the start of the stream through and
// including the first occurrence of delim, enqueuing unreliably until the
// delimiter arrives. Each iteration resumes the search where the previous
// one left off. Blocks indefinitely if the peer never sends the delimiter
// and is not reset.
func (c *Conn) ReadDelim(delim byte) ([]byte, error) {
	offset := 0
	var location int
	for {
		if i := bytes.IndexByte(c.buffer[offset:], delim); i >= 0 {
			location = offset + i + 1
			break
		}
		offset = len(c.buffer)
		if _, err := c.EnqueueData(false, MaxBytes); err != nil {
			return nil, err
		}
	}
	data := make([]byte, location)
	copy(data, c.buffer[:location])
	c.buffer.TrimFront(location)
	return data, nil
}

// ReadString performs one receive call, capped at MaxBytes, and returns the
// result as text. A receive returning zero or fewer bytes closes the
// descriptor and reports ErrUnexpected.
//
// Known defect, kept on purpose: the result is treated as NUL-terminated
// text, so a payload containing an embedded zero byte appears truncated.
// Use the buffered Read/ReadDelim API for binary data.
func (c *Conn) ReadString() (string, error) {
	if !c.Valid() {
		return "", errors.WithMessage(ErrInvalidArgument, "the socket file descriptor is invalid")
	}
	chunk := make([]byte, MaxBytes)
	n, err := unix.Read(c.fd, chunk)
	if err != nil || n <= 0 {
		unix.Close(c.fd)
		c.fd = -1
		c.logEvent("reset by peer")
		return "", errors.WithMessagef(ErrUnexpected,
			"connection reset by peer %s:%d", c.remote, c.port)
	}
	data := chunk[:n]
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return string(data), nil
}

// Write performs a single write of data, with a trailing newline unless
// suppressed. A short write is not detected or retried; only an invalid
// descriptor is reported.
func (c *Conn) Write(data []byte, newline bool) error {
	if !c.Valid() {
		return errors.WithMessage(ErrInvalidArgument, "the socket file descriptor is invalid")
	}
	if newline {
		data = append(append([]byte(nil), data...), '\n')
	}
	unix.Write(c.fd, data)
	return nil
}

// Descriptor exposes the raw connected descriptor for uses this type does
// not cover (socket options, external polling). Callers must not close it.
func (c *Conn) Descriptor() int {
	return c.fd
}

// Family returns the address family of the connection.
func (c *Conn) Family() Family {
	return c.family
}

// Flow returns whether the connection is inbound or outbound.
func (c *Conn) Flow() Flow {
	return c.flow
}

// Listen returns the canonical listening address for an inbound Conn, and
// the empty string for an outbound one.
func (c *Conn) Listen() string {
	return c.listen
}

// Port returns the listening port for an inbound Conn, or the port that was
// connected to for an outbound one.
func (c *Conn) Port() int {
	return c.port
}

// Remote returns the canonical remote address. Always a numeric literal,
// never a hostname.
func (c *Conn) Remote() string {
	return c.remote
}

// Valid reports whether the descriptor is still open.
func (c *Conn) Valid() bool {
	return validDescriptor(c.fd)
}

// Close releases the descriptor if still open. Idempotent; never fails.
func (c *Conn) Close() error {
	if c.Valid() {
		unix.Close(c.fd)
		c.fd = -1
		c.logEvent("closed")
	}
	return nil
}

func (c *Conn) logEvent(msg string) {
	logger.WithFields(logrus.Fields{
		"conn":   c.id,
		"flow":   c.flow.String(),
		"remote": c.remote,
		"port":   c.port,
	}).Debug(msg)
}
