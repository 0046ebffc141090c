// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package link provides the byte transport to the pacemaker board: a serial
// port (or a serial-over-WebSocket bridge) with a small receive buffer that
// supports non-blocking availability checks, bounded reads and push-back.
package link

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate is the board's UART rate
const DefaultBaudRate = 115200

// Port is the raw endpoint a Link drives. go.bug.st/serial.Port satisfies it.
//
// SetReadTimeout(0) must make Read return immediately with whatever is
// available, possibly nothing.
type Port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
}

// Opener opens a port by device path. Tests inject a mock.
type Opener func(path string, baudRate int) (Port, error)

// OpenSerial opens a serial port at 8N1
func OpenSerial(path string, baudRate int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	return port, nil
}
