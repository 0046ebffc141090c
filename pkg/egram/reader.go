// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package egram extracts telemetry samples from the board's unframed byte
// stream. Frames are located by their sentinel byte; anything else is
// skipped, so the reader recovers by itself from partial or corrupt frames.
package egram

import (
	"errors"
	"sync"
	"time"

	"github.com/Thermoquad/pacelink/pkg/pacer"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ErrStopped is returned by Poll outside a streaming session
var ErrStopped = errors.New("egram stream stopped")

// Source is the receive side of a link. *link.Link satisfies it.
type Source interface {
	Buffered() (int, error)
	Read(p []byte) (int, error)
	Unread(b []byte)
	Flush() error
}

// Reader turns a byte stream into Samples. Poll never blocks.
type Reader struct {
	mu        sync.Mutex
	src       Source
	clock     clockwork.Clock
	streaming bool
	origin    time.Time
	last      time.Duration
	stats     *Statistics
	frame     []byte
}

// Option configures a Reader
type Option func(*Reader)

// WithClock sets the clock used to stamp samples
func WithClock(c clockwork.Clock) Option {
	return func(r *Reader) {
		r.clock = c
	}
}

// NewReader creates a stopped Reader over src
func NewReader(src Source, opts ...Option) *Reader {
	r := &Reader{
		src:   src,
		clock: clockwork.NewRealClock(),
		frame: make([]byte, pacer.TelemetryFrameSize),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.stats = newStatistics(r.clock.Now())
	return r
}

// Start discards stale input and begins a session. Sample times are
// relative to this call.
func (r *Reader) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.src.Flush(); err != nil {
		return err
	}
	now := r.clock.Now()
	r.origin = now
	r.last = -1
	r.stats.Reset(now)
	r.streaming = true
	return nil
}

// Stop ends the session; later polls return ErrStopped.
func (r *Reader) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streaming = false
}

// Streaming reports whether a session is active
func (r *Reader) Streaming() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.streaming
}

// Stats returns a snapshot of the current session's statistics
func (r *Reader) Stats() Statistics {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := *r.stats
	s.CalculateRates(r.clock.Now())
	return s
}

// Clock returns the reader's clock
func (r *Reader) Clock() clockwork.Clock {
	return r.clock
}

// Poll drains every complete frame currently waiting and returns the
// decoded samples. Frames that fail to decode are dropped. A transport
// error ends the poll and is returned with the samples decoded so far.
func (r *Reader) Poll() ([]pacer.Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.streaming {
		return nil, ErrStopped
	}

	var out []pacer.Sample
	for {
		n, err := r.src.Buffered()
		if err != nil {
			return out, err
		}
		if n < pacer.TelemetryFrameSize {
			return out, nil
		}

		if got, err := r.src.Read(r.frame[:1]); err != nil || got == 0 {
			return out, err
		}
		if r.frame[0] != pacer.TelemetrySentinel {
			r.stats.GarbageBytes++
			continue
		}

		got, err := r.src.Read(r.frame[1:])
		if err != nil {
			return out, err
		}
		if got < pacer.TelemetryFrameSize-1 {
			// retry the whole frame on the next poll
			r.src.Unread(append([]byte(nil), r.frame[:1+got]...))
			r.stats.ShortReads++
			return out, nil
		}

		now := r.clock.Now()
		s, err := pacer.DecodeTelemetryFrame(r.frame)
		r.stats.recordFrame(now, err, err == nil && s.Marker == pacer.MarkerUnknown)
		if err != nil {
			log.Debug().Err(err).Msg("dropped telemetry frame")
			continue
		}
		s.Elapsed = r.stamp(now)
		out = append(out, s)
	}
}

// stamp returns a strictly increasing offset from the session origin
func (r *Reader) stamp(now time.Time) time.Duration {
	d := now.Sub(r.origin)
	if d <= r.last {
		d = r.last + 1
	}
	r.last = d
	return d
}
