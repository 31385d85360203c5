// Package logx builds the shared structured logger used across the service.
package logx

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger from the configured level/format. It is
// constructed once at startup and handed down to every component.
func New(level, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return l
}
