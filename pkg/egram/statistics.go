// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package egram

import (
	"fmt"
	"time"
)

// Statistics tracks frame counts and error rates for one streaming session
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames   uint64
	ValidFrames   uint64
	DecodeErrors  uint64
	GarbageBytes  uint64
	ShortReads    uint64
	UnknownMarker uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

func newStatistics(now time.Time) *Statistics {
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

func (s *Statistics) recordFrame(now time.Time, decodeErr error, unknownMarker bool) {
	s.TotalFrames++
	s.LastUpdateTime = now
	if decodeErr != nil {
		s.DecodeErrors++
		return
	}
	s.ValidFrames++
	if unknownMarker {
		s.UnknownMarker++
	}
}

// CalculateRates calculates frame and error rates as of now
func (s *Statistics) CalculateRates(now time.Time) {
	elapsed := now.Sub(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.ValidFrames) / elapsed
		s.ErrorRate = float64(s.DecodeErrors+s.ShortReads) / elapsed
	}
}

// Summary returns a formatted statistics block as of now
func (s *Statistics) Summary(now time.Time) string {
	s.CalculateRates(now)

	var validPercent, decodeErrorPercent float64
	if s.TotalFrames > 0 {
		validPercent = float64(s.ValidFrames) * 100.0 / float64(s.TotalFrames)
		decodeErrorPercent = float64(s.DecodeErrors) * 100.0 / float64(s.TotalFrames)
	}

	result := fmt.Sprintf("=== Egram Statistics (%.0f seconds) ===\n", now.Sub(s.StartTime).Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, validPercent)

	if s.DecodeErrors > 0 {
		result += fmt.Sprintf("Decode Errors:   %8d (%.1f%%)\n", s.DecodeErrors, decodeErrorPercent)
	}
	if s.GarbageBytes > 0 {
		result += fmt.Sprintf("Skipped Bytes:   %8d\n", s.GarbageBytes)
	}
	if s.ShortReads > 0 {
		result += fmt.Sprintf("Short Reads:     %8d\n", s.ShortReads)
	}
	if s.UnknownMarker > 0 {
		result += fmt.Sprintf("Unknown Markers: %8d\n", s.UnknownMarker)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "======================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset(now time.Time) {
	*s = Statistics{StartTime: now, LastUpdateTime: now}
}
