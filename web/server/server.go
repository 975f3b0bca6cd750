// Package server is the live preview display: it serves the latest
// rendered pass over HTTP and streams pass updates as server-sent events.
package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/display"
)

// ProgressUpdate represents a single progressive update sent via SSE
type ProgressUpdate struct {
	PassNumber     int     `json:"passNumber"`
	TotalPasses    int     `json:"totalPasses"`
	ImageData      string  `json:"imageData"` // Base64 encoded PNG
	AverageSamples float64 `json:"averageSamples"`
	IsComplete     bool    `json:"isComplete"`
	ElapsedMs      int64   `json:"elapsedMs"`
}

// event is one server-sent event queued for a client
type event struct {
	name string
	data string
}

// clientBuffer is the number of events queued per client before new ones are dropped
const clientBuffer = 16

// Server is a display.Driver that publishes passes to HTTP clients
type Server struct {
	logger core.Logger
	router chi.Router
	start  time.Time

	mu         sync.Mutex
	lastPNG    []byte
	lastUpdate *ProgressUpdate
	clients    map[chan event]struct{}

	console  chan ConsoleMessage
	done     chan struct{}
	stopOnce sync.Once
	http     *http.Server
}

// New creates a preview server. Call ListenAndServe to accept connections,
// or mount Handler on an existing server.
func New(logger core.Logger) *Server {
	s := &Server{
		logger:  core.OrDiscard(logger),
		start:   time.Now(),
		clients: make(map[chan event]struct{}),
		console: make(chan ConsoleMessage, 100),
		done:    make(chan struct{}),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/frame", s.handleFrame)
		r.Get("/events", s.handleEvents)
	})
	s.router = r

	go s.pumpConsole()
	return s
}

// Handler returns the HTTP handler serving the preview API
func (s *Server) Handler() http.Handler { return s.router }

// Logger returns a logger that forwards to inner and mirrors every message
// to connected clients as console events
func (s *Server) Logger(inner core.Logger) core.Logger {
	return NewWebLogger(core.OrDiscard(inner), s.console)
}

// ListenAndServe serves the preview API on addr until Shutdown is called
func (s *Server) ListenAndServe(addr string) error {
	s.mu.Lock()
	s.http = &http.Server{Addr: addr, Handler: s.router}
	srv := s.http
	s.mu.Unlock()

	s.logger.Infof("preview: Serving on http://%s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("preview: %w", err)
	}
	return nil
}

// Shutdown disconnects every client and stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.done) })

	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Update implements display.Driver
func (s *Server) Update(result display.PassResult) error {
	if result.Image == nil {
		return fmt.Errorf("preview: pass %d has no image: %w", result.Pass, core.ErrInvalidValue)
	}
	pngData, err := encodePNG(result.Image)
	if err != nil {
		return fmt.Errorf("preview: failed to encode image: %w", err)
	}

	update := &ProgressUpdate{
		PassNumber:     result.Pass,
		TotalPasses:    result.TotalPasses,
		ImageData:      base64.StdEncoding.EncodeToString(pngData),
		AverageSamples: result.Samples,
		IsComplete:     result.Final,
		ElapsedMs:      time.Since(s.start).Milliseconds(),
	}
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.lastPNG = pngData
	s.lastUpdate = update
	s.mu.Unlock()

	s.broadcast(event{"progress", string(data)})
	if result.Final {
		s.broadcast(event{"complete", "Rendering completed"})
	}
	return nil
}

// Close implements display.Driver. The server keeps serving the last frame
// until Shutdown.
func (s *Server) Close() error {
	s.broadcast(event{"closed", "Render session closed"})
	return nil
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleFrame serves the latest pass as a PNG
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data := s.lastPNG
	s.mu.Unlock()

	if data == nil {
		http.Error(w, "no frame rendered yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

// handleEvents streams pass and console events until the client disconnects
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch, last := s.subscribe()
	defer s.unsubscribe(ch)

	if last != nil {
		data, err := json.Marshal(last)
		if err == nil {
			sendSSEEvent(w, "progress", string(data))
		}
	} else {
		// Headers reach the client before the first pass
		w.(http.Flusher).Flush()
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case ev := <-ch:
			if err := sendSSEEvent(w, ev.name, ev.data); err != nil {
				return
			}
		}
	}
}

// subscribe registers a client and returns the update it should see first
func (s *Server) subscribe() (chan event, *ProgressUpdate) {
	ch := make(chan event, clientBuffer)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[ch] = struct{}{}
	return ch, s.lastUpdate
}

func (s *Server) unsubscribe(ch chan event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, ch)
}

// broadcast queues ev for every client without blocking on slow readers
func (s *Server) broadcast(ev event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.clients {
		select {
		case ch <- ev:
		default:
		}
	}
}

// clientCount reports the number of connected event streams
func (s *Server) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) pumpConsole() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.console:
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			s.broadcast(event{"console", string(data)})
		}
	}
}

// encodePNG converts an image to PNG bytes
func encodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sendSSEEvent sends a generic SSE event
func sendSSEEvent(w http.ResponseWriter, event, data string) error {
	if flusher, ok := w.(http.Flusher); ok {
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}
	return fmt.Errorf("streaming not supported")
}

var _ display.Driver = (*Server)(nil)
