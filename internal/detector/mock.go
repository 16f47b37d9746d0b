package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/mukha/internal/landmark"
)

// MockDetector is a test implementation of the Detector interface.
// Queued frames are returned in order; once the queue is drained the
// fallback frame is returned on every call.
type MockDetector struct {
	mu       sync.Mutex
	queue    []*landmark.Frame
	fallback *landmark.Frame
	err      error
	calls    int
	closed   bool
}

// NewMockDetector creates a new MockDetector that sees no face.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFrame sets the frame returned once the queue is empty. nil means no face.
func (m *MockDetector) SetFrame(f *landmark.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = f
}

// Queue appends frames to be returned by subsequent Detect calls.
func (m *MockDetector) Queue(frames ...*landmark.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, frames...)
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the next queued frame, the fallback frame or the error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*landmark.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		f := m.queue[0]
		m.queue = m.queue[1:]
		return f, nil
	}
	return m.fallback, nil
}

// Calls returns the number of Detect calls so far.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
