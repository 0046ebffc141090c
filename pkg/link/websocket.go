// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrConnectionClosed is returned when reading from a closed WebSocket bridge
var ErrConnectionClosed = errors.New("websocket connection closed")

// wsPort carries the serial byte stream over binary WebSocket messages.
// A pump goroutine owns ReadMessage so that read timeouts never touch the
// connection's deadline, which gorilla treats as fatal.
type wsPort struct {
	conn     *websocket.Conn
	incoming chan []byte
	done     chan struct{}

	errMu   sync.Mutex
	readErr error

	pending []byte
	timeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newWSPort(conn *websocket.Conn) *wsPort {
	w := &wsPort{
		conn:     conn,
		incoming: make(chan []byte, 64),
		done:     make(chan struct{}),
		timeout:  -1,
	}
	go w.pump()
	return w
}

func (w *wsPort) pump() {
	defer close(w.incoming)
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.errMu.Lock()
			w.readErr = err
			w.errMu.Unlock()
			return
		}
		// only binary messages carry the byte stream
		if messageType != websocket.BinaryMessage {
			continue
		}
		select {
		case w.incoming <- data:
		case <-w.done:
			return
		}
	}
}

func (w *wsPort) closedErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.readErr != nil {
		return fmt.Errorf("%w: %v", ErrConnectionClosed, w.readErr)
	}
	return ErrConnectionClosed
}

func (w *wsPort) Read(p []byte) (int, error) {
	if len(w.pending) == 0 {
		var (
			data []byte
			ok   bool
		)
		switch {
		case w.timeout == 0:
			select {
			case data, ok = <-w.incoming:
			default:
				return 0, nil
			}
		case w.timeout < 0:
			data, ok = <-w.incoming
		default:
			timer := time.NewTimer(w.timeout)
			select {
			case data, ok = <-w.incoming:
				timer.Stop()
			case <-timer.C:
				return 0, nil
			}
		}
		if !ok {
			return 0, w.closedErr()
		}
		w.pending = data
	}

	n := copy(p, w.pending)
	w.pending = w.pending[n:]
	return n, nil
}

func (w *wsPort) Write(p []byte) (int, error) {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsPort) ResetInputBuffer() error {
	w.pending = nil
	for {
		select {
		case _, ok := <-w.incoming:
			if !ok {
				return nil
			}
		default:
			return nil
		}
	}
}

func (w *wsPort) SetReadTimeout(t time.Duration) error {
	w.timeout = t
	return nil
}

func (w *wsPort) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.conn.Close()
	})
	return err
}

// DialWebSocket connects to a serial-over-WebSocket bridge with optional
// HTTP Basic auth. The returned Port can be wrapped with New.
func DialWebSocket(ctx context.Context, wsURL, username, password string, skipSSLVerify bool) (Port, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify, //nolint:gosec // operator opt-in for self-signed bridges
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return newWSPort(conn), nil
}
