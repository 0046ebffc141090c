// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package linktest provides an in-memory link.Port for tests.
package linktest

import (
	"errors"
	"sync"
	"time"
)

// ErrPortClosed is returned by a MockPort after Close
var ErrPortClosed = errors.New("mock port closed")

// MockPort emulates a serial port. Bytes queued with Feed are returned by
// Read; every Write is recorded and, if Respond is set, its reply is queued.
type MockPort struct {
	mu sync.Mutex

	rx      []byte
	written [][]byte
	timeout time.Duration
	closed  bool
	resets  int

	// Respond, when set, is called for each written frame and its result is
	// queued as device output.
	Respond func(frame []byte) []byte
	// MaxRead limits how many bytes one Read returns (0 = unlimited).
	MaxRead int
	// ReadErr and WriteErr force failures.
	ReadErr  error
	WriteErr error
}

// NewMockPort returns an open mock port with nothing to read
func NewMockPort() *MockPort {
	return &MockPort{}
}

// Feed queues bytes as if the device had sent them
func (m *MockPort) Feed(chunks ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.rx = append(m.rx, c...)
	}
}

// Written returns a copy of every frame written so far
func (m *MockPort) Written() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.written))
	for i, w := range m.written {
		out[i] = append([]byte(nil), w...)
	}
	return out
}

// Resets returns how many times ResetInputBuffer was called
func (m *MockPort) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// Closed reports whether Close was called
func (m *MockPort) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Pending returns how many fed bytes have not been read
func (m *MockPort) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rx)
}

func (m *MockPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrPortClosed
	}
	if m.ReadErr != nil {
		err := m.ReadErr
		m.mu.Unlock()
		return 0, err
	}
	if len(m.rx) == 0 {
		timeout := m.timeout
		m.mu.Unlock()
		// behave like a quiet line: wait a little, return nothing
		if timeout > 0 {
			time.Sleep(min(timeout, time.Millisecond))
		}
		return 0, nil
	}
	limit := len(p)
	if m.MaxRead > 0 && m.MaxRead < limit {
		limit = m.MaxRead
	}
	n := copy(p[:limit], m.rx)
	m.rx = m.rx[n:]
	m.mu.Unlock()
	return n, nil
}

func (m *MockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrPortClosed
	}
	if m.WriteErr != nil {
		return 0, m.WriteErr
	}
	frame := append([]byte(nil), p...)
	m.written = append(m.written, frame)
	if m.Respond != nil {
		m.rx = append(m.rx, m.Respond(frame)...)
	}
	return len(p), nil
}

func (m *MockPort) ResetInputBuffer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	m.rx = nil
	return nil
}

func (m *MockPort) SetReadTimeout(t time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = t
	return nil
}

func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
