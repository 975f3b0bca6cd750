// Package edit runs the interactive render on a background goroutine and
// coordinates it with edit blocks issued by the scene description.
package edit

import (
	"sync/atomic"
	"time"
)

// Status is the state shared between the caller and the render goroutine
type Status int32

const (
	ContinueRendering Status = iota
	PauseRendering
	AbortRendering
)

func (s Status) String() string {
	switch s {
	case ContinueRendering:
		return "continue"
	case PauseRendering:
		return "pause"
	case AbortRendering:
		return "abort"
	}
	return "unknown"
}

// pollInterval is how often a paused render re-checks its status
const pollInterval = 10 * time.Millisecond

// Controller is polled by the render loop between units of work
type Controller struct {
	status atomic.Int32
}

// Status returns the current status
func (c *Controller) Status() Status {
	return Status(c.status.Load())
}

// SetStatus sets the status
func (c *Controller) SetStatus(s Status) {
	c.status.Store(int32(s))
}

// Wait returns the status once it is no longer PauseRendering
func (c *Controller) Wait() Status {
	for {
		s := c.Status()
		if s != PauseRendering {
			return s
		}
		time.Sleep(pollInterval)
	}
}
