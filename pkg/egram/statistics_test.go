// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package egram

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatistics(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newStatistics(start)

	for i := 0; i < 8; i++ {
		s.recordFrame(start, nil, false)
	}
	s.recordFrame(start, nil, true)
	s.recordFrame(start, errors.New("bad sentinel"), false)
	s.GarbageBytes = 3
	s.ShortReads = 1

	now := start.Add(2 * time.Second)
	summary := s.Summary(now)

	assert.Equal(t, uint64(10), s.TotalFrames)
	assert.Equal(t, uint64(9), s.ValidFrames)
	assert.InDelta(t, 4.5, s.FrameRate, 1e-9)
	assert.InDelta(t, 1.0, s.ErrorRate, 1e-9)

	assert.Contains(t, summary, "(2 seconds)")
	assert.Contains(t, summary, "Valid Frames:           9 (90.0%)")
	assert.Contains(t, summary, "Decode Errors:          1 (10.0%)")
	assert.Contains(t, summary, "Skipped Bytes:          3")
	assert.Contains(t, summary, "Unknown Markers:        1")

	s.Reset(now)
	assert.Equal(t, Statistics{StartTime: now, LastUpdateTime: now}, *s)
	assert.NotContains(t, s.Summary(now), "Decode Errors")
}
