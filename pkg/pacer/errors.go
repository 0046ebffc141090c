// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pacer

import (
	"errors"
	"fmt"
)

// Error kinds. DecodeError and EncodeError unwrap to one of these so callers
// can test with errors.Is.
var (
	ErrLengthMismatch = errors.New("length mismatch")
	ErrOutOfRange     = errors.New("value out of range")
	ErrBadSentinel    = errors.New("bad sentinel")
)

// DecodeError describes a response or telemetry frame that could not be decoded.
type DecodeError struct {
	Kind  error
	Frame string // "echo", "led echo", "telemetry"
	Field string
	Got   int
	Want  int
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	switch {
	case errors.Is(e.Kind, ErrLengthMismatch):
		return fmt.Sprintf("decode %s: length mismatch: got %d bytes, want %d", e.Frame, e.Got, e.Want)
	case e.Field != "":
		return fmt.Sprintf("decode %s: field %s: %v (raw %d)", e.Frame, e.Field, e.Kind, e.Got)
	default:
		return fmt.Sprintf("decode %s: %v", e.Frame, e.Kind)
	}
}

// Unwrap returns the error kind
func (e *DecodeError) Unwrap() error {
	return e.Kind
}

// EncodeError reports a field whose scaled value does not fit the wire type.
type EncodeError struct {
	Field  string
	Value  float64
	Scaled float64
	Min    int
	Max    int
}

// Error implements the error interface
func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode field %s: value %g scales to %g, outside [%d, %d]",
		e.Field, e.Value, e.Scaled, e.Min, e.Max)
}

// Unwrap returns ErrOutOfRange
func (e *EncodeError) Unwrap() error {
	return ErrOutOfRange
}

func lengthError(frame string, got, want int) error {
	return &DecodeError{Kind: ErrLengthMismatch, Frame: frame, Got: got, Want: want}
}
