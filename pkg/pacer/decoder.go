// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pacer

import (
	"encoding/hex"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Echo is a decoded parameter echo together with the bytes it came from.
type Echo struct {
	Params ParameterSet
	Raw    []byte
}

// Hex returns the raw response as upper-case hex
func (e Echo) Hex() string {
	return strings.ToUpper(hex.EncodeToString(e.Raw))
}

// DecodeEcho decodes a 16-byte parameter echo. It never panics; malformed
// input yields a *DecodeError.
func DecodeEcho(b []byte) (ParameterSet, error) {
	if len(b) != EchoResponseSize {
		return ParameterSet{}, lengthError("echo", len(b), EchoResponseSize)
	}

	var p ParameterSet
	for _, f := range fields {
		f.set(&p, unscale(f, b[f.Offset]))
	}

	if !p.Mode.Valid() {
		return ParameterSet{}, &DecodeError{Kind: ErrOutOfRange, Frame: "echo", Field: "mode", Got: int(b[0])}
	}
	if int(p.ActivityThreshold) >= len(thresholdNames) {
		f, _ := FieldByName("activity_threshold")
		return ParameterSet{}, &DecodeError{Kind: ErrOutOfRange, Frame: "echo", Field: f.Name, Got: int(b[f.Offset])}
	}
	return p, nil
}

// DecodeEchoResponse is DecodeEcho that keeps a copy of the raw bytes for
// diagnostics, also when decoding fails.
func DecodeEchoResponse(b []byte) (Echo, error) {
	echo := Echo{Raw: append([]byte(nil), b...)}
	p, err := DecodeEcho(b)
	if err != nil {
		return echo, err
	}
	echo.Params = p
	return echo, nil
}

// LEDEcho is the board's reply to LEDEchoRequest.
type LEDEcho struct {
	Red        uint8
	Green      uint8
	Blue       uint8
	SwitchTime uint16  // ms
	OffTime    float32 // seconds
}

// Color returns the single lit channel, or LEDOff if none or several are lit
func (e LEDEcho) Color() LEDColor {
	switch {
	case e.Red != 0 && e.Green == 0 && e.Blue == 0:
		return LEDRed
	case e.Red == 0 && e.Green != 0 && e.Blue == 0:
		return LEDGreen
	case e.Red == 0 && e.Green == 0 && e.Blue != 0:
		return LEDBlue
	}
	return LEDOff
}

// DecodeLEDEcho decodes the 9-byte LED echo:
// red, green, blue (1 byte each), switch_time (uint16), off_time (float32).
func DecodeLEDEcho(b []byte) (LEDEcho, error) {
	if len(b) != LEDEchoResponseSize {
		return LEDEcho{}, lengthError("led echo", len(b), LEDEchoResponseSize)
	}
	e := LEDEcho{
		Red:        b[0],
		Green:      b[1],
		Blue:       b[2],
		SwitchTime: le.Uint16(b[3:5]),
		OffTime:    math.Float32frombits(le.Uint32(b[5:9])),
	}
	if v := float64(e.OffTime); math.IsNaN(v) || math.IsInf(v, 0) {
		return LEDEcho{}, &DecodeError{Kind: ErrOutOfRange, Frame: "led echo", Field: "off_time"}
	}
	return e, nil
}

// Marker tags a telemetry sample with a detected cardiac event.
type Marker uint8

// Marker values
const (
	MarkerNone Marker = iota
	MarkerVentricularSense
	MarkerVentricularPace
	MarkerRefractory
	MarkerUnknown
)

var markerTags = map[string]Marker{
	"--": MarkerNone,
	"VS": MarkerVentricularSense,
	"VP": MarkerVentricularPace,
	"()": MarkerRefractory,
}

// String returns the two-character tag the board uses for the marker
func (m Marker) String() string {
	switch m {
	case MarkerNone:
		return "--"
	case MarkerVentricularSense:
		return "VS"
	case MarkerVentricularPace:
		return "VP"
	case MarkerRefractory:
		return "()"
	}
	return "??"
}

// Sample is one decoded egram telemetry frame. Elapsed is assigned by the
// stream reader, relative to the start of the streaming session.
type Sample struct {
	Elapsed     time.Duration
	Atrial      float32
	Ventricular float32
	Marker      Marker
	Tag         string // raw tag when Marker is MarkerUnknown
}

// DecodeTelemetryFrame decodes one 16-byte telemetry frame:
// sentinel, marker (2 bytes), 5 reserved bytes, atrial float32, ventricular float32.
func DecodeTelemetryFrame(b []byte) (Sample, error) {
	if len(b) != TelemetryFrameSize {
		return Sample{}, lengthError("telemetry", len(b), TelemetryFrameSize)
	}
	if b[0] != TelemetrySentinel {
		return Sample{}, &DecodeError{Kind: ErrBadSentinel, Frame: "telemetry", Got: int(b[0]), Want: TelemetrySentinel}
	}

	var s Sample
	s.Marker, s.Tag = decodeMarker(b[telemetryMarkerOffset], b[telemetryMarkerOffset+1])

	s.Atrial = math.Float32frombits(le.Uint32(b[telemetryAtrialOffset:]))
	s.Ventricular = math.Float32frombits(le.Uint32(b[telemetryVentricularOffset:]))
	if !finite(s.Atrial) {
		return Sample{}, &DecodeError{Kind: ErrOutOfRange, Frame: "telemetry", Field: "atrial"}
	}
	if !finite(s.Ventricular) {
		return Sample{}, &DecodeError{Kind: ErrOutOfRange, Frame: "telemetry", Field: "ventricular"}
	}
	return s, nil
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// decodeMarker reads the marker either as a two-character ASCII tag or, when
// the bytes are not printable, as a numeric code in the low byte.
func decodeMarker(b0, b1 byte) (Marker, string) {
	if printable(b0) && printable(b1) {
		tag := string([]byte{b0, b1})
		if m, ok := markerTags[tag]; ok {
			return m, ""
		}
		return MarkerUnknown, tag
	}

	switch b0 {
	case 0:
		return MarkerNone, ""
	case 1:
		return MarkerVentricularSense, ""
	case 2:
		return MarkerVentricularPace, ""
	case 3:
		return MarkerRefractory, ""
	}
	log.Debug().Uint16("code", le.Uint16([]byte{b0, b1})).Msg("unknown egram marker code, using none")
	return MarkerNone, ""
}

func printable(b byte) bool {
	return b >= 0x20 && b <= 0x7E
}
