package edit

import (
	"sync"

	"github.com/google/uuid"

	"github.com/df07/go-scene-bridge/pkg/core"
)

// Edit types with dedicated handling
const (
	SuspendRenderingEdit = "suspendrendering"
	AttributeEdit        = "attribute"
	OptionEdit           = "option"

	// ExactScopeNameParam restricts attribute edits to one scope
	ExactScopeNameParam = "exactscopename"
)

// MasterRenderer renders until it finishes or the controller aborts it
type MasterRenderer interface {
	Render(ctrl *Controller) error
}

// RendererFactory creates the renderer for a new render session
type RendererFactory func() (MasterRenderer, error)

// Handler owns the background render goroutine
type Handler struct {
	factory RendererFactory
	logger  core.Logger
	ctrl    Controller

	mu        sync.Mutex
	running   bool
	started   bool
	done      chan struct{}
	session   uuid.UUID
	starts    int
	stops     int
	depth     int
	editType  string
	exactName string
}

// NewHandler creates a handler that builds renderers with factory
func NewHandler(factory RendererFactory, logger core.Logger) *Handler {
	return &Handler{
		factory: factory,
		logger:  core.OrDiscard(logger),
	}
}

// Controller returns the controller shared with the render goroutine
func (h *Handler) Controller() *Controller { return &h.ctrl }

// Rendering reports whether the render goroutine is running
func (h *Handler) Rendering() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.alive()
}

// alive reports whether the goroutine has been launched and not exited.
// Callers hold mu.
func (h *Handler) alive() bool {
	if !h.running {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Starts returns how many render goroutines were launched
func (h *Handler) Starts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.starts
}

// Stops returns how many times a running render was stopped
func (h *Handler) Stops() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stops
}

// InsideEditBlock reports whether an edit block is open
func (h *Handler) InsideEditBlock() bool { return h.depth > 0 }

// EditType returns the type of the outermost open edit
func (h *Handler) EditType() string { return h.editType }

// ExactScopeName returns the scope filter of the current attribute edit
func (h *Handler) ExactScopeName() string { return h.exactName }

// StartRendering resumes a paused render, or launches a new one when
// nothing is running
func (h *Handler) StartRendering() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.alive() {
		if h.ctrl.Status() == PauseRendering {
			h.ctrl.SetStatus(ContinueRendering)
		}
		return
	}

	renderer, err := h.factory()
	if err != nil {
		h.logger.Errorf("startRendering: Cannot create renderer: %v", err)
		return
	}

	h.ctrl.SetStatus(ContinueRendering)
	h.running = true
	h.started = true
	h.starts++
	h.session = uuid.New()
	h.done = make(chan struct{})
	go h.render(renderer, h.session, h.done)
}

func (h *Handler) render(renderer MasterRenderer, session uuid.UUID, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			h.logger.Errorf("render: Session %s panicked: %v", session, r)
		}
	}()

	h.logger.Debugf("render: Session %s started", session)
	if err := renderer.Render(&h.ctrl); err != nil {
		h.logger.Errorf("render: Session %s failed: %v", session, err)
		return
	}
	h.logger.Debugf("render: Session %s finished", session)
}

// PauseRendering asks the render goroutine to pause between work units
func (h *Handler) PauseRendering() {
	h.ctrl.SetStatus(PauseRendering)
}

// StopRendering aborts the render and blocks until the goroutine exits
func (h *Handler) StopRendering() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}

	h.ctrl.SetStatus(AbortRendering)
	<-h.done
	h.running = false
	h.stops++
}

// Wait blocks until the current render finishes on its own
func (h *Handler) Wait() {
	h.mu.Lock()
	done := h.done
	h.mu.Unlock()
	if done != nil {
		<-done
	}
}

// EditBegin opens an edit block. A suspendrendering edit only pauses the
// render; any other edit stops it before the scene is changed.
func (h *Handler) EditBegin(editType string, params core.Params) {
	if !h.started {
		h.logger.Errorf("editBegin: Called before rendering started.")
		return
	}

	h.depth++
	if h.depth == 1 {
		h.editType = editType
	}

	if editType == SuspendRenderingEdit {
		h.PauseRendering()
		return
	}

	h.StopRendering()
	if editType == AttributeEdit {
		h.exactName, _ = params.String(ExactScopeNameParam)
	}
}

// EditEnd closes an edit block, restarting the render once the outermost
// block is closed
func (h *Handler) EditEnd() {
	if !h.started {
		h.logger.Errorf("editEnd: Called before rendering started.")
		return
	}
	if h.depth == 0 {
		h.logger.Errorf("editEnd: No matching editBegin() call.")
		return
	}

	h.depth--
	if h.depth > 0 {
		return
	}
	h.editType = ""
	h.exactName = ""
	h.StartRendering()
}
