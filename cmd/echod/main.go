// Entry point for echod.
// Listens on the given address and echoes each received line back to its peer.

package main

import (
	"bytes"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"socknet/pkg/socket"
)

func main() {
	if len(os.Args) != 3 {
		logrus.Fatalf("usage: %s <host> <port>", os.Args[0])
	}
	port, err := strconv.Atoi(os.Args[2])
	if err != nil {
		logrus.Fatalf("invalid port %q", os.Args[2])
	}

	s, err := socket.Listen(os.Args[1], port)
	if err != nil {
		logrus.Fatalf("failed to listen: %s", err)
	}
	defer s.Close()
	logrus.WithFields(logrus.Fields{"host": s.Host(), "port": s.Port()}).Info("echod listening")

	for {
		conn, err := s.Accept()
		if err != nil {
			logrus.WithError(err).Error("accept failed")
			if !s.Valid() {
				return
			}
			continue
		}
		go echo(conn)
	}
}

// echo writes every complete line back to the peer. The loop is driven by
// single unreliable receives so that a clean disconnect is visible: once
// the peer closes, a receive yields zero bytes and the loop ends, rather
// than waiting for a newline that will never come.
func echo(conn *socket.Conn) {
	defer conn.Close()
	log := logrus.WithFields(logrus.Fields{"remote": conn.Remote(), "port": conn.Port()})
	log.Info("peer connected")
	var acc []byte
	for {
		n, err := conn.EnqueueData(false, socket.MaxBytes)
		if err != nil {
			if !errors.Is(err, socket.ErrUnexpected) {
				log.WithError(err).Error("read failed")
			}
			log.Info("peer gone")
			return
		}
		if n == 0 {
			log.Info("peer disconnected")
			return
		}
		// The buffer holds exactly the n bytes just enqueued, so this
		// drains it without further I/O.
		chunk, err := conn.Read(false, n)
		if err != nil {
			log.WithError(err).Error("read failed")
			return
		}
		acc = append(acc, chunk...)
		for {
			i := bytes.IndexByte(acc, '\n')
			if i < 0 {
				break
			}
			if err := conn.Write(acc[:i+1], false); err != nil {
				log.WithError(err).Error("write failed")
				return
			}
			acc = acc[i+1:]
		}
	}
}
