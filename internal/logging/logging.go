// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Options selects the logger's level, format and destination.
type Options struct {
	Level string // logrus level name; empty means info
	JSON  bool
	Out   io.Writer // nil means stderr
}

// New returns a configured logger.
func New(opts Options) (*logrus.Logger, error) {
	logger := logrus.New()

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)

	level := logrus.InfoLevel
	if opts.Level != "" {
		l, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}
	logger.SetLevel(level)

	if opts.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}

// Discard returns a logger that writes nothing.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
