// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrClosed is returned by every operation on a closed Link.
	ErrClosed = errors.New("link closed")
	// ErrTimeout is returned by ReadFull when the deadline passes first.
	ErrTimeout = errors.New("read timeout")
)

// TransportError wraps a failure of the underlying port.
type TransportError struct {
	Op   string
	Port string
	Err  error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
}

// Unwrap returns the port error
func (e *TransportError) Unwrap() error {
	return e.Err
}

const readChunk = 256

// Link is an open connection to one port. It is safe for use by several
// goroutines, but the protocol above it expects one logical user at a time.
type Link struct {
	mu    sync.Mutex
	port  Port
	name  string
	baud  int
	open  bool
	rx    []byte
	chunk []byte
}

// New wraps an already opened port
func New(port Port, name string, baudRate int) *Link {
	return &Link{
		port:  port,
		name:  name,
		baud:  baudRate,
		open:  true,
		chunk: make([]byte, readChunk),
	}
}

// Open opens the port named by descriptor, which may carry a
// "<path>: <description>" suffix from ListPorts.
func Open(descriptor string, baudRate int, opener Opener) (*Link, error) {
	if opener == nil {
		opener = OpenSerial
	}
	path := PortPath(descriptor)
	if path == "" {
		return nil, fmt.Errorf("empty port name")
	}
	port, err := opener(path, baudRate)
	if err != nil {
		return nil, &TransportError{Op: "open", Port: path, Err: err}
	}
	log.Debug().Str("port", path).Int("baud", baudRate).Msg("link opened")
	return New(port, path, baudRate), nil
}

// Name returns the port path
func (l *Link) Name() string { return l.name }

// BaudRate returns the configured baud rate
func (l *Link) BaudRate() int { return l.baud }

// IsOpen reports whether Close has not been called yet
func (l *Link) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open
}

// fill performs one port read bounded by timeout and appends the result to rx.
// Caller holds mu.
func (l *Link) fill(timeout time.Duration) (int, error) {
	if err := l.port.SetReadTimeout(timeout); err != nil {
		return 0, &TransportError{Op: "set timeout", Port: l.name, Err: err}
	}
	n, err := l.port.Read(l.chunk)
	if n > 0 {
		l.rx = append(l.rx, l.chunk[:n]...)
	}
	if err != nil {
		return n, &TransportError{Op: "read", Port: l.name, Err: err}
	}
	return n, nil
}

// Buffered returns how many received bytes are waiting, without blocking.
func (l *Link) Buffered() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.open {
		return 0, ErrClosed
	}
	for {
		n, err := l.fill(0)
		if err != nil {
			return len(l.rx), err
		}
		if n == 0 {
			return len(l.rx), nil
		}
	}
}

// Read copies waiting bytes into p. It never blocks and may return 0, nil.
func (l *Link) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.open {
		return 0, ErrClosed
	}
	if len(l.rx) < len(p) {
		if _, err := l.fill(0); err != nil {
			return 0, err
		}
	}
	n := copy(p, l.rx)
	l.rx = l.rx[n:]
	return n, nil
}

// Unread pushes b back to the front of the receive buffer.
func (l *Link) Unread(b []byte) {
	if len(b) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rx = append(append(make([]byte, 0, len(b)+len(l.rx)), b...), l.rx...)
}

// ReadFull reads exactly n bytes or gives up after timeout. On timeout it
// returns the bytes that did arrive together with ErrTimeout.
func (l *Link) ReadFull(n int, timeout time.Duration) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.open {
		return nil, ErrClosed
	}

	deadline := time.Now().Add(timeout)
	for len(l.rx) < n {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			partial := l.rx
			l.rx = nil
			return partial, ErrTimeout
		}
		if _, err := l.fill(remaining); err != nil {
			return nil, err
		}
	}

	out := make([]byte, n)
	copy(out, l.rx)
	l.rx = l.rx[n:]
	return out, nil
}

// Write sends all of p or fails
func (l *Link) Write(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.open {
		return ErrClosed
	}
	for written := 0; written < len(p); {
		n, err := l.port.Write(p[written:])
		if err != nil {
			return &TransportError{Op: "write", Port: l.name, Err: err}
		}
		if n == 0 {
			return &TransportError{Op: "write", Port: l.name, Err: errors.New("short write")}
		}
		written += n
	}
	return nil
}

// Flush discards everything received so far, buffered or still in the driver.
func (l *Link) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.open {
		return ErrClosed
	}
	if dropped := len(l.rx); dropped > 0 {
		log.Debug().Int("bytes", dropped).Str("port", l.name).Msg("flushed receive buffer")
	}
	l.rx = nil
	if err := l.port.ResetInputBuffer(); err != nil {
		return &TransportError{Op: "flush", Port: l.name, Err: err}
	}
	return nil
}

// Close releases the port. Calling it again is a no-op.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.open {
		return nil
	}
	l.open = false
	l.rx = nil
	if err := l.port.Close(); err != nil {
		return &TransportError{Op: "close", Port: l.name, Err: err}
	}
	log.Debug().Str("port", l.name).Msg("link closed")
	return nil
}
