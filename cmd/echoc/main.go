// Entry point for echoc.
// Connects to a remote endpoint and hands the connection to the interactive
// monitor.

package main

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"socknet/pkg/cli"
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

	conn, err := socket.Connect(os.Args[1], port)
	if err != nil {
		logrus.Fatalf("failed to connect: %s", err)
	}
	defer conn.Close()
	logrus.WithFields(logrus.Fields{"remote": conn.Remote(), "port": conn.Port()}).Info("connected")

	cli.Monitor(conn)
}
