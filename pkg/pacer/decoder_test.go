// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pacer

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTelemetry creates a 16-byte telemetry frame
func buildTelemetry(m0, m1 byte, atrial, ventricular float32) []byte {
	b := make([]byte, TelemetryFrameSize)
	b[0] = TelemetrySentinel
	b[1] = m0
	b[2] = m1
	le.PutUint32(b[8:12], math.Float32bits(atrial))
	le.PutUint32(b[12:16], math.Float32bits(ventricular))
	return b
}

// ============================================================
// Parameter echo
// ============================================================

func TestDecodeEcho_RoundTrip(t *testing.T) {
	t.Parallel()

	payload, err := EncodeParameters(NominalParameters())
	require.NoError(t, err)

	got, err := DecodeEcho(payload)
	require.NoError(t, err)

	want, err := Quantize(NominalParameters())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeEcho_LengthMismatch(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 15, 17, 18, 100, 4096} {
		_, err := DecodeEcho(make([]byte, n))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrLengthMismatch)

		var decErr *DecodeError
		require.ErrorAs(t, err, &decErr)
		assert.Equal(t, n, decErr.Got)
		assert.Equal(t, EchoResponseSize, decErr.Want)
	}
}

func TestDecodeEcho_InvalidMode(t *testing.T) {
	t.Parallel()

	payload, err := EncodeParameters(NominalParameters())
	require.NoError(t, err)

	for _, mode := range []byte{0, 9, 0xFF} {
		payload[0] = mode
		_, err := DecodeEcho(payload)
		assert.ErrorIs(t, err, ErrOutOfRange, "mode %d", mode)
	}
}

func TestDecodeEcho_InvalidThreshold(t *testing.T) {
	t.Parallel()

	payload, err := EncodeParameters(NominalParameters())
	require.NoError(t, err)
	payload[13] = 7

	_, err = DecodeEcho(payload)
	require.ErrorIs(t, err, ErrOutOfRange)

	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, "activity_threshold", decErr.Field)
}

func TestDecodeEchoResponse_KeepsRaw(t *testing.T) {
	t.Parallel()

	raw := make([]byte, EchoResponseSize)
	echo, err := DecodeEchoResponse(raw)
	require.Error(t, err)
	assert.Equal(t, raw, echo.Raw)
	assert.Equal(t, "00000000000000000000000000000000", echo.Hex())
}

// ============================================================
// LED echo
// ============================================================

func TestDecodeLEDEcho(t *testing.T) {
	t.Parallel()

	b := []byte{0, 1, 0, 0xC8, 0x00, 0x00, 0x00, 0x00, 0x3F}
	e, err := DecodeLEDEcho(b)
	require.NoError(t, err)
	assert.Equal(t, LEDGreen, e.Color())
	assert.Equal(t, uint16(200), e.SwitchTime)
	assert.InDelta(t, 0.5, e.OffTime, 1e-9)

	_, err = DecodeLEDEcho(b[:8])
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestLEDEcho_Color(t *testing.T) {
	t.Parallel()

	assert.Equal(t, LEDOff, LEDEcho{}.Color())
	assert.Equal(t, LEDRed, LEDEcho{Red: 1}.Color())
	assert.Equal(t, LEDBlue, LEDEcho{Blue: 255}.Color())
	assert.Equal(t, LEDOff, LEDEcho{Red: 1, Blue: 1}.Color())
}

// ============================================================
// Telemetry
// ============================================================

func TestDecodeTelemetryFrame_Tags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tag  string
		want Marker
	}{
		{"--", MarkerNone},
		{"VS", MarkerVentricularSense},
		{"VP", MarkerVentricularPace},
		{"()", MarkerRefractory},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.tag, func(t *testing.T) {
			t.Parallel()
			s, err := DecodeTelemetryFrame(buildTelemetry(tt.tag[0], tt.tag[1], 0.25, -1.5))
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Marker)
			assert.Empty(t, s.Tag)
			assert.InDelta(t, 0.25, s.Atrial, 1e-9)
			assert.InDelta(t, -1.5, s.Ventricular, 1e-9)
			assert.Equal(t, time.Duration(0), s.Elapsed)
		})
	}
}

func TestDecodeTelemetryFrame_NumericMarker(t *testing.T) {
	t.Parallel()

	for code, want := range []Marker{MarkerNone, MarkerVentricularSense, MarkerVentricularPace, MarkerRefractory} {
		s, err := DecodeTelemetryFrame(buildTelemetry(byte(code), 0, 0, 0))
		require.NoError(t, err)
		assert.Equal(t, want, s.Marker)
	}

	s, err := DecodeTelemetryFrame(buildTelemetry(0x10, 0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, MarkerNone, s.Marker)
}

func TestDecodeTelemetryFrame_UnknownTag(t *testing.T) {
	t.Parallel()

	s, err := DecodeTelemetryFrame(buildTelemetry('A', 'P', 1, 1))
	require.NoError(t, err)
	assert.Equal(t, MarkerUnknown, s.Marker)
	assert.Equal(t, "AP", s.Tag)
}

func TestDecodeTelemetryFrame_Errors(t *testing.T) {
	t.Parallel()

	bad := buildTelemetry('-', '-', 0, 0)
	bad[0] = 0x02
	_, err := DecodeTelemetryFrame(bad)
	assert.ErrorIs(t, err, ErrBadSentinel)

	_, err = DecodeTelemetryFrame(make([]byte, 15))
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = DecodeTelemetryFrame(buildTelemetry('-', '-', float32(math.NaN()), 0))
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = DecodeTelemetryFrame(buildTelemetry('-', '-', 0, float32(math.Inf(-1))))
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestDecodeTelemetryFrame_ReportsAtrialFirst(t *testing.T) {
	t.Parallel()

	nan := float32(math.NaN())
	for i := 0; i < 50; i++ {
		_, err := DecodeTelemetryFrame(buildTelemetry('-', '-', nan, nan))
		var derr *DecodeError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "atrial", derr.Field)
	}

	_, err := DecodeTelemetryFrame(buildTelemetry('-', '-', 1, nan))
	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "ventricular", derr.Field)
}
