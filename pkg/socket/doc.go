// Package socket is a minimal blocking TCP transport: it resolves numeric
// address literals, binds and listens, accepts peers, and performs length-
// and delimiter-bounded reads plus simple writes over a connection.
//
// Every operation is one blocking call. There is no event loop, no timeout
// and no internal locking; a Socket or Conn belongs to exactly one logical
// owner, and concurrent use of a single instance must be serialized by the
// caller (typically one goroutine per accepted Conn).
package socket
