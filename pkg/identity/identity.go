// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package identity decides from a port descriptor whether the connected
// device is the pacemaker board, and notices when the board changes between
// connections.
package identity

import (
	"fmt"
	"strings"
	"sync"
)

// UnverifiedID is the device id reported for unrecognised ports
const UnverifiedID = "unverified"

// DefaultBoardID is the id reported for recognised ports
const DefaultBoardID = "FRDM-K64F"

// DefaultKeywords match the board's debug interface descriptions
var DefaultKeywords = []string{"mbed", "k64f", "frdm", "daplink", "cmsis-dap", "st-link", "stlink", "jlink"}

// Identity describes what is on the other end of the link.
// An empty DeviceID means no device.
type Identity struct {
	Connected bool
	DeviceID  string
	Verified  bool
}

// Disconnected is the identity with no device attached
func Disconnected() Identity {
	return Identity{}
}

// String returns a short human-readable form
func (i Identity) String() string {
	switch {
	case !i.Connected:
		return "disconnected"
	case i.Verified:
		return i.DeviceID + " (verified)"
	default:
		return "unverified device"
	}
}

// Classifier matches port descriptors against known-safe keywords
type Classifier struct {
	keywords []string
	boardID  string
}

// NewClassifier creates a Classifier. Nil keywords or an empty boardID use
// the defaults.
func NewClassifier(keywords []string, boardID string) *Classifier {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	if boardID == "" {
		boardID = DefaultBoardID
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	return &Classifier{keywords: lowered, boardID: boardID}
}

// Classify returns the identity of a freshly opened port
func (c *Classifier) Classify(descriptor string) Identity {
	d := strings.ToLower(descriptor)
	for _, k := range c.keywords {
		if strings.Contains(d, k) {
			return Identity{Connected: true, DeviceID: c.boardID, Verified: true}
		}
	}
	return Identity{Connected: true, DeviceID: UnverifiedID}
}

// ChangeWarning reports that a different device answered than last time
type ChangeWarning struct {
	Previous string
	Current  string
}

// String implements fmt.Stringer
func (w ChangeWarning) String() string {
	return fmt.Sprintf("device changed: previously %s, now %s", w.Previous, w.Current)
}

// DetectChange returns a warning when last is set and differs from current
func DetectChange(current, last string) *ChangeWarning {
	if last == "" || last == current {
		return nil
	}
	return &ChangeWarning{Previous: last, Current: current}
}

// Tracker remembers the last interrogated device across connections
type Tracker struct {
	mu   sync.Mutex
	last string
}

// Observe checks current against the remembered id, then remembers current.
func (t *Tracker) Observe(current string) *ChangeWarning {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := DetectChange(current, t.last)
	t.last = current
	return w
}

// Last returns the remembered device id, empty if none
func (t *Tracker) Last() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}
