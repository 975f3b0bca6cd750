package server

import (
	"fmt"
	"time"

	"github.com/df07/go-scene-bridge/pkg/core"
)

// ConsoleMessage represents a console message with timestamp
type ConsoleMessage struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "debug", "info", "warning", "error"
}

// WebLogger implements core.Logger by forwarding to another logger and
// copying every message to a console channel
type WebLogger struct {
	inner       core.Logger
	consoleChan chan<- ConsoleMessage
}

// NewWebLogger creates a logger mirroring inner onto consoleChan
func NewWebLogger(inner core.Logger, consoleChan chan<- ConsoleMessage) *WebLogger {
	return &WebLogger{
		inner:       core.OrDiscard(inner),
		consoleChan: consoleChan,
	}
}

// Debugf implements core.Logger
func (wl *WebLogger) Debugf(format string, args ...interface{}) {
	wl.inner.Debugf(format, args...)
	wl.send("debug", format, args)
}

// Infof implements core.Logger
func (wl *WebLogger) Infof(format string, args ...interface{}) {
	wl.inner.Infof(format, args...)
	wl.send("info", format, args)
}

// Warnf implements core.Logger
func (wl *WebLogger) Warnf(format string, args ...interface{}) {
	wl.inner.Warnf(format, args...)
	wl.send("warning", format, args)
}

// Errorf implements core.Logger
func (wl *WebLogger) Errorf(format string, args ...interface{}) {
	wl.inner.Errorf(format, args...)
	wl.send("error", format, args)
}

func (wl *WebLogger) send(level, format string, args []interface{}) {
	if wl.consoleChan == nil {
		return
	}
	select {
	case wl.consoleChan <- ConsoleMessage{
		Message:   fmt.Sprintf(format, args...),
		Timestamp: time.Now(),
		Level:     level,
	}:
	default:
		// Channel full, skip (don't block)
	}
}

var _ core.Logger = (*WebLogger)(nil)
