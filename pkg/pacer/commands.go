// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pacer

import (
	"fmt"
	"strings"
)

// Command is an outbound host-to-device command. Each implementation maps to
// exactly one frame shape; FrameLen is fixed per type.
type Command interface {
	Code() byte
	FrameLen() int
	Name() string

	// putPayload fills frame[HeaderSize:]. frame is zeroed and FrameLen long.
	putPayload(frame []byte) error
}

// SetParameters programs a complete ParameterSet (0x55, 18 bytes).
type SetParameters struct {
	Params ParameterSet
}

func (SetParameters) Code() byte    { return CmdSet }
func (SetParameters) FrameLen() int { return ParamFrameSize }
func (SetParameters) Name() string  { return "SET_PARAMS" }

func (c SetParameters) putPayload(frame []byte) error {
	return putParameters(frame[HeaderSize:], c.Params)
}

// EchoRequest asks the board to send back its stored parameters (0x22, 18 bytes).
// The response is EchoResponseSize bytes.
type EchoRequest struct{}

func (EchoRequest) Code() byte                { return CmdEcho }
func (EchoRequest) FrameLen() int             { return ParamFrameSize }
func (EchoRequest) Name() string              { return "ECHO_PARAMS" }
func (EchoRequest) putPayload(_ []byte) error { return nil }

// LEDEchoRequest asks for the LED blink settings (0x22, 11 bytes).
// The response is LEDEchoResponseSize bytes.
type LEDEchoRequest struct{}

func (LEDEchoRequest) Code() byte                { return CmdEcho }
func (LEDEchoRequest) FrameLen() int             { return LEDFrameSize }
func (LEDEchoRequest) Name() string              { return "ECHO_LED" }
func (LEDEchoRequest) putPayload(_ []byte) error { return nil }

// StartEgram starts telemetry streaming (0x33, 18 bytes, zero payload).
type StartEgram struct{}

func (StartEgram) Code() byte                { return CmdEgramStart }
func (StartEgram) FrameLen() int             { return ParamFrameSize }
func (StartEgram) Name() string              { return "EGRAM_START" }
func (StartEgram) putPayload(_ []byte) error { return nil }

// StopEgram stops telemetry streaming (0x34, 18 bytes, zero payload).
type StopEgram struct{}

func (StopEgram) Code() byte                { return CmdEgramStop }
func (StopEgram) FrameLen() int             { return ParamFrameSize }
func (StopEgram) Name() string              { return "EGRAM_STOP" }
func (StopEgram) putPayload(_ []byte) error { return nil }

// LEDColor selects which diagnostic LED channel is lit.
type LEDColor uint8

// LED colors
const (
	LEDOff LEDColor = iota
	LEDRed
	LEDGreen
	LEDBlue
)

var ledColorNames = []string{"off", "red", "green", "blue"}

// String returns the color name
func (c LEDColor) String() string {
	if int(c) < len(ledColorNames) {
		return ledColorNames[c]
	}
	return fmt.Sprintf("unknown(%d)", uint8(c))
}

// ParseLEDColor parses "off", "red", "green" or "blue"
func ParseLEDColor(s string) (LEDColor, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range ledColorNames {
		if name == s {
			return LEDColor(i), nil
		}
	}
	return 0, fmt.Errorf("unknown LED color %q", s)
}

// SetLED drives the diagnostic RGB LED (0x55, 11 bytes).
// Payload: red, green, blue (1 byte each), off_time (float32), switch_time (uint16).
type SetLED struct {
	Color      LEDColor
	OffTime    float32 // seconds
	SwitchTime uint16  // ms
}

// NewSetLED creates a SetLED command with the board's default blink timing.
func NewSetLED(color LEDColor) SetLED {
	return SetLED{Color: color, OffTime: DefaultLEDOffTime, SwitchTime: DefaultLEDSwitchTime}
}

func (SetLED) Code() byte    { return CmdSet }
func (SetLED) FrameLen() int { return LEDFrameSize }
func (SetLED) Name() string  { return "SET_LED" }

func (c SetLED) putPayload(frame []byte) error {
	if int(c.Color) >= len(ledColorNames) {
		return &EncodeError{Field: "color", Value: float64(c.Color), Scaled: float64(c.Color), Min: 0, Max: len(ledColorNames) - 1}
	}
	if err := checkFloat32("off_time", c.OffTime); err != nil {
		return err
	}
	frame[2] = boolByte(c.Color == LEDRed)
	frame[3] = boolByte(c.Color == LEDGreen)
	frame[4] = boolByte(c.Color == LEDBlue)
	le.PutUint32(frame[5:9], float32bits(c.OffTime))
	le.PutUint16(frame[9:11], c.SwitchTime)
	return nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
