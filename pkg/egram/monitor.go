// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package egram

import (
	"context"
	"errors"
	"time"

	"github.com/Thermoquad/pacelink/pkg/pacer"
	"github.com/rs/zerolog/log"
)

// DefaultPollInterval matches the board's 100 Hz sample rate closely enough
// to keep the driver buffer small.
const DefaultPollInterval = 10 * time.Millisecond

// PollFunc polls once. Reader.Poll satisfies it.
type PollFunc func() ([]pacer.Sample, error)

// Monitor polls on a ticker from its own goroutine and delivers non-empty
// batches on a channel.
type Monitor struct {
	reader   *Reader
	poll     PollFunc
	interval time.Duration
}

// NewMonitor creates a Monitor for r. A non-positive interval uses
// DefaultPollInterval.
func NewMonitor(r *Reader, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{reader: r, poll: r.Poll, interval: interval}
}

// WithPoll replaces the poll function, e.g. with one that also tears down
// the connection on failure.
func (m *Monitor) WithPoll(poll PollFunc) *Monitor {
	m.poll = poll
	return m
}

// Run polls until ctx is done or the stream stops. It closes out on return.
// A transport failure is returned; a stopped stream or cancelled context
// returns nil.
func (m *Monitor) Run(ctx context.Context, out chan<- []pacer.Sample) error {
	defer close(out)

	ticker := m.reader.Clock().NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}

		samples, err := m.poll()
		if len(samples) > 0 {
			select {
			case out <- samples:
			case <-ctx.Done():
				return nil
			}
		}
		if errors.Is(err, ErrStopped) {
			return nil
		}
		if err != nil {
			log.Error().Err(err).Msg("egram stream failed")
			return err
		}
	}
}
