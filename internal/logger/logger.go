// Package logger configures the logrus logger shared by the application.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type appNameHook struct {
	appName string
}

// Levels implements logrus.Hook interface.
func (h *appNameHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook interface.
func (h *appNameHook) Fire(entry *logrus.Entry) error {
	entry.Message = "[" + h.appName + "] " + entry.Message
	return nil
}

// New returns a logger writing to stdout at the given level. An unknown
// level falls back to info.
func New(appName, level string) *logrus.Logger {
	return NewWithOutput(os.Stdout, appName, level)
}

// NewWithOutput is New with an explicit destination.
func NewWithOutput(w io.Writer, appName, level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)

	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = logrus.InfoLevel
		defer l.Warnf("Invalid LOG_LEVEL '%s', defaulting to INFO", level)
	}
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	if appName != "" {
		l.AddHook(&appNameHook{appName})
	}
	return l
}

// SetJSON switches l to JSON output, for log collectors outside development.
func SetJSON(l *logrus.Logger) {
	l.SetFormatter(&logrus.JSONFormatter{})
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
