// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package session drives request/response exchanges with the pacemaker
// board, one outstanding command at a time.
package session

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Thermoquad/pacelink/pkg/link"
	"github.com/Thermoquad/pacelink/pkg/pacer"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds every response wait unless overridden
const DefaultTimeout = time.Second

// Tolerance is the accepted difference for non-integer fields on verify
const Tolerance = 0.05

// State of the current exchange
type State int

// Session states
const (
	Idle State = iota
	Sent
	Acknowledged
	TimedOut
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sent:
		return "sent"
	case Acknowledged:
		return "acknowledged"
	case TimedOut:
		return "timed out"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Transport is the subset of *link.Link a Session needs
type Transport interface {
	Write(p []byte) error
	Flush() error
	ReadFull(n int, timeout time.Duration) ([]byte, error)
}

// Session serialises commands over one Transport. A failed command never
// poisons the Session; callers may retry or disconnect.
type Session struct {
	mu      sync.Mutex
	t       Transport
	state   State
	pending pacer.Command
	timeout time.Duration
}

// Option configures a Session
type Option func(*Session)

// WithTimeout sets the response timeout
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New creates a Session over t. A nil t yields ErrNotConnected on every call.
func New(t Transport, opts ...Option) *Session {
	s := &Session{t: t, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the state of the last exchange
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Timeout returns the response timeout
func (s *Session) Timeout() time.Duration {
	return s.timeout
}

// Send flushes stale input, writes cmd and moves to Sent.
func (s *Session) Send(cmd pacer.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send(cmd)
}

// AwaitResponse reads exactly expectedLen bytes for the outstanding command.
func (s *Session) AwaitResponse(expectedLen int, timeout time.Duration) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.await(expectedLen, timeout)
}

func (s *Session) send(cmd pacer.Command) error {
	if s.t == nil {
		return &CommError{Kind: ErrNotConnected, Op: "send"}
	}
	// a failed send leaves nothing outstanding
	s.state, s.pending = Idle, nil

	frame, err := pacer.Encode(cmd)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if err := s.t.Flush(); err != nil {
		return transportError("send "+cmd.Name(), err)
	}
	if err := s.t.Write(frame); err != nil {
		return transportError("send "+cmd.Name(), err)
	}
	log.Debug().Str("frame", pacer.FormatFrame(frame)).Msg("sent")
	s.pending = cmd
	s.state = Sent
	return nil
}

func (s *Session) await(expectedLen int, timeout time.Duration) ([]byte, error) {
	if s.t == nil {
		return nil, &CommError{Kind: ErrNotConnected, Op: "await"}
	}
	if s.state != Sent || s.pending == nil {
		return nil, &CommError{Kind: ErrNoCommand, Op: "await"}
	}
	op := "await " + s.pending.Name()

	b, err := s.t.ReadFull(expectedLen, timeout)
	if err != nil {
		if errors.Is(err, link.ErrTimeout) {
			s.state = TimedOut
			log.Warn().Str("command", s.pending.Name()).Int("received", len(b)).
				Int("expected", expectedLen).Dur("timeout", timeout).Msg("response timeout")
			return b, &CommError{Kind: ErrTimeout, Op: op,
				Err: fmt.Errorf("received %d of %d bytes in %s", len(b), expectedLen, timeout)}
		}
		s.state = Idle
		return nil, transportError(op, err)
	}
	s.state = Acknowledged
	return b, nil
}

// exchange sends cmd and waits for its fixed-size response
func (s *Session) exchange(cmd pacer.Command, responseLen int) ([]byte, error) {
	if err := s.send(cmd); err != nil {
		return nil, err
	}
	return s.await(responseLen, s.timeout)
}

func transportError(op string, err error) error {
	if errors.Is(err, link.ErrClosed) {
		return &CommError{Kind: ErrNotConnected, Op: op, Err: err}
	}
	return &CommError{Kind: ErrTransport, Op: op, Err: err}
}

// Interrogate asks the board for its stored parameters. On a decode failure
// the returned Echo still carries the raw bytes.
func (s *Session) Interrogate() (pacer.Echo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interrogate()
}

func (s *Session) interrogate() (pacer.Echo, error) {
	b, err := s.exchange(pacer.EchoRequest{}, pacer.EchoResponseSize)
	if err != nil {
		return pacer.Echo{Raw: b}, err
	}
	echo, err := pacer.DecodeEchoResponse(b)
	if err != nil {
		return echo, &CommError{Kind: ErrMalformedResponse, Op: "interrogate", Err: err}
	}
	return echo, nil
}

// Verification is the outcome of WriteAndVerify. Requested is the
// quantized form of what the caller asked for.
type Verification struct {
	Requested pacer.ParameterSet
	Stored    pacer.ParameterSet
	Raw       []byte
	Mismatch  *Mismatch
}

// Matched reports whether every field agreed
func (v Verification) Matched() bool {
	return v.Mismatch == nil
}

// WriteAndVerify programs params and reads them back. The returned error
// covers transport and codec failures only; a successful exchange whose echo
// disagrees is reported through Verification.Mismatch.
func (s *Session) WriteAndVerify(params pacer.ParameterSet) (Verification, error) {
	expected, err := pacer.Quantize(params)
	if err != nil {
		return Verification{}, fmt.Errorf("write: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.send(pacer.SetParameters{Params: params}); err != nil {
		return Verification{}, err
	}

	echo, err := s.interrogate()
	v := Verification{Requested: expected, Raw: echo.Raw}
	if err != nil {
		return v, err
	}
	v.Stored = echo.Params
	v.Mismatch = Compare(expected, echo.Params)

	if v.Mismatch != nil {
		log.Error().Str("field", v.Mismatch.Field).Float64("expected", v.Mismatch.Expected).
			Float64("actual", v.Mismatch.Actual).Str("raw", echo.Hex()).Msg("parameter verification failed")
	} else {
		log.Info().Str("mode", expected.Mode.String()).Msg("parameters verified")
	}
	return v, nil
}

// Compare returns the first field, in ParameterSet order, where actual
// differs from expected. Integer fields must match exactly; the others
// within Tolerance.
func Compare(expected, actual pacer.ParameterSet) *Mismatch {
	for _, f := range pacer.Fields() {
		e, a := f.Get(expected), f.Get(actual)
		if f.Integer {
			if e != a {
				return &Mismatch{Field: f.Name, Expected: e, Actual: a}
			}
			continue
		}
		if math.Abs(e-a) > Tolerance+1e-9 {
			return &Mismatch{Field: f.Name, Expected: e, Actual: a}
		}
	}
	return nil
}

// SetLED drives the diagnostic LED. The board does not answer this command.
func (s *Session) SetLED(cmd pacer.SetLED) error {
	return s.Send(cmd)
}

// InterrogateLED reads the LED blink settings back.
func (s *Session) InterrogateLED() (pacer.LEDEcho, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.exchange(pacer.LEDEchoRequest{}, pacer.LEDEchoResponseSize)
	if err != nil {
		return pacer.LEDEcho{}, err
	}
	e, err := pacer.DecodeLEDEcho(b)
	if err != nil {
		return pacer.LEDEcho{}, &CommError{Kind: ErrMalformedResponse, Op: "interrogate led", Err: err}
	}
	return e, nil
}

// StartEgram asks the board to begin streaming telemetry
func (s *Session) StartEgram() error {
	return s.Send(pacer.StartEgram{})
}

// StopEgram asks the board to stop streaming telemetry
func (s *Session) StopEgram() error {
	return s.Send(pacer.StopEgram{})
}
