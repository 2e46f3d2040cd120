package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the process logger from LOG_LEVEL and LOG_FORMAT.
func New() *logrus.Logger {
	return NewWithOutput(os.Stdout, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

func NewWithOutput(w io.Writer, level, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	l.SetLevel(ParseLevel(level))
	return l
}

// ParseLevel maps a LOG_LEVEL value to a logrus level, defaulting to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Component tags every entry with the emitting subsystem.
func Component(l *logrus.Logger, name string) *logrus.Entry {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return l.WithField("component", name)
}
