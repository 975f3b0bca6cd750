package display

import "sync"

// Memory keeps the most recent pass in memory
type Memory struct {
	mu     sync.Mutex
	last   PassResult
	passes int
	closed bool
}

// NewMemory creates an empty memory driver
func NewMemory() *Memory {
	return &Memory{}
}

// Update implements Driver
func (m *Memory) Update(result PassResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = result
	m.passes++
	return nil
}

// Close implements Driver
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Last returns the most recent pass and whether any pass was received
func (m *Memory) Last() (PassResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.passes > 0
}

// Passes returns the number of passes received
func (m *Memory) Passes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.passes
}

// Closed reports whether Close was called
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
