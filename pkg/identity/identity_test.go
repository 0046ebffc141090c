// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	c := NewClassifier(nil, "")

	tests := []struct {
		descriptor string
		verified   bool
	}{
		{"COM3: mbed Serial Port", true},
		{"COM4: USB Serial", false},
		{"/dev/ttyACM0: DAPLink CMSIS-DAP", true},
		{"/dev/ttyACM1: FRDM-K64F", true},
		{"/dev/ttyUSB0: FT232R USB UART", false},
		{"COM9", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.descriptor, func(t *testing.T) {
			t.Parallel()
			id := c.Classify(tt.descriptor)
			assert.True(t, id.Connected)
			assert.Equal(t, tt.verified, id.Verified)
			if tt.verified {
				assert.Equal(t, DefaultBoardID, id.DeviceID)
			} else {
				assert.Equal(t, UnverifiedID, id.DeviceID)
			}
		})
	}
}

func TestClassify_CustomKeywords(t *testing.T) {
	t.Parallel()

	c := NewClassifier([]string{"  Pacer-Sim ", ""}, "SIM-1")
	assert.Equal(t, Identity{Connected: true, DeviceID: "SIM-1", Verified: true}, c.Classify("COM5: PACER-SIM v2"))
	assert.False(t, c.Classify("COM3: mbed Serial Port").Verified)
}

func TestDetectChange(t *testing.T) {
	t.Parallel()

	w := DetectChange("B", "A")
	require.NotNil(t, w)
	assert.Equal(t, ChangeWarning{Previous: "A", Current: "B"}, *w)
	assert.Contains(t, w.String(), "previously A")

	assert.Nil(t, DetectChange("A", "A"))
	assert.Nil(t, DetectChange("A", ""))
}

func TestTracker(t *testing.T) {
	t.Parallel()

	var tr Tracker
	assert.Nil(t, tr.Observe("FRDM-K64F"))
	assert.Equal(t, "FRDM-K64F", tr.Last())

	assert.Nil(t, tr.Observe("FRDM-K64F"))

	w := tr.Observe(UnverifiedID)
	require.NotNil(t, w)
	assert.Equal(t, "FRDM-K64F", w.Previous)
	assert.Equal(t, UnverifiedID, w.Current)
	assert.Equal(t, UnverifiedID, tr.Last())
}

func TestIdentityString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "disconnected", Disconnected().String())
	assert.Equal(t, "FRDM-K64F (verified)", Identity{Connected: true, DeviceID: "FRDM-K64F", Verified: true}.String())
	assert.Equal(t, "unverified device", Identity{Connected: true, DeviceID: UnverifiedID}.String())
}
