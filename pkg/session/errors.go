// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"errors"
	"fmt"
)

// Error kinds carried by CommError
var (
	// ErrNotConnected indicates there is no open transport.
	ErrNotConnected = errors.New("not connected")
	// ErrTimeout indicates the board sent nothing, or too little, in time.
	ErrTimeout = errors.New("response timeout")
	// ErrMalformedResponse indicates a response that could not be decoded.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrTransport indicates a port failure; reconnect before retrying.
	ErrTransport = errors.New("transport failure")
	// ErrNoCommand indicates AwaitResponse without an outstanding command.
	ErrNoCommand = errors.New("no command outstanding")
)

// CommError is the single outcome of a failed command.
type CommError struct {
	Kind error
	Op   string
	Err  error
}

// Error implements error.
func (e *CommError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *CommError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Mismatch identifies the first field the board stored differently from
// what was requested.
type Mismatch struct {
	Field    string
	Expected float64
	Actual   float64
}

// Error implements error.
func (m *Mismatch) Error() string {
	return fmt.Sprintf("verification mismatch on %s: expected %g, board stored %g", m.Field, m.Expected, m.Actual)
}
