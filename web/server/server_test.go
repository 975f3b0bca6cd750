package server

import (
	"bufio"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-scene-bridge/pkg/core"
	"github.com/df07/go-scene-bridge/pkg/display"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(core.DiscardLogger())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Shutdown(context.Background())
		ts.Close()
	})
	return s, ts
}

func testPass(pass int, final bool) display.PassResult {
	return display.PassResult{
		Pass:        pass,
		TotalPasses: 2,
		Image:       image.NewRGBA(image.Rect(0, 0, 4, 3)),
		Samples:     float64(pass),
		Final:       final,
	}
}

// readEvent reads the next SSE event name and data from the stream
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
}

func TestServer_Health(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestServer_Frame(t *testing.T) {
	s, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/frame")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "no pass delivered yet")

	require.NoError(t, s.Update(testPass(1, false)))

	resp, err = http.Get(ts.URL + "/api/frame")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())
}

func TestServer_UpdateRejectsNilImage(t *testing.T) {
	s, ts := newTestServer(t)
	err := s.Update(display.PassResult{Pass: 1})
	assert.ErrorIs(t, err, core.ErrInvalidValue)

	resp, err := http.Get(ts.URL + "/api/frame")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}

func TestServer_EventsStreamPasses(t *testing.T) {
	s, ts := newTestServer(t)
	require.NoError(t, s.Update(testPass(1, false)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)

	// The latest pass is replayed on connect
	name, data := readEvent(t, r)
	require.Equal(t, "progress", name)
	var update ProgressUpdate
	require.NoError(t, json.Unmarshal([]byte(data), &update))
	assert.Equal(t, 1, update.PassNumber)
	assert.False(t, update.IsComplete)
	assert.NotEmpty(t, update.ImageData)

	require.Eventually(t, func() bool { return s.clientCount() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Update(testPass(2, true)))

	name, data = readEvent(t, r)
	require.Equal(t, "progress", name)
	require.NoError(t, json.Unmarshal([]byte(data), &update))
	assert.Equal(t, 2, update.PassNumber)
	assert.True(t, update.IsComplete)

	name, _ = readEvent(t, r)
	assert.Equal(t, "complete", name)

	require.NoError(t, s.Close())
	name, _ = readEvent(t, r)
	assert.Equal(t, "closed", name)
}

func TestServer_EventsStreamConsole(t *testing.T) {
	s, ts := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Eventually(t, func() bool { return s.clientCount() == 1 }, time.Second, 5*time.Millisecond)
	s.Logger(nil).Warnf("render: Display update failed: %v", "disk full")

	name, data := readEvent(t, bufio.NewReader(resp.Body))
	require.Equal(t, "console", name)
	var msg ConsoleMessage
	require.NoError(t, json.Unmarshal([]byte(data), &msg))
	assert.Equal(t, "warning", msg.Level)
	assert.Equal(t, "render: Display update failed: disk full", msg.Message)
}

func TestServer_DisconnectUnsubscribes(t *testing.T) {
	s, ts := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return s.clientCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	resp.Body.Close()
	assert.Eventually(t, func() bool { return s.clientCount() == 0 }, time.Second, 5*time.Millisecond)
}
