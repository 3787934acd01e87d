package socket

import (
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// SetLogger replaces the package logger. Transport events (listen, accept,
// connect, close) are emitted at debug level.
func SetLogger(l logrus.FieldLogger) {
	if l != nil {
		logger = l
	}
}
