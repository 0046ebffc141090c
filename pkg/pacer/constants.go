// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package pacer implements the binary frame codec spoken by the pacemaker
// simulator board over its UART.
//
// Every host-to-device frame starts with a sync byte and a command code and
// has a fixed length determined by the command. Device responses carry no
// prefix; their length alone identifies them. Telemetry frames streamed
// during egram capture start with a sentinel byte instead.
//
// Only one protocol revision is implemented (ProtocolRevision). Field
// scaling and ordering are described by the parameter field table in
// params.go.
package pacer

// ProtocolRevision identifies the frame layout implemented by this package.
// Earlier board firmware used incompatible layouts which are not supported.
const ProtocolRevision = 1

// Framing bytes
const (
	SyncByte          = 0x16
	TelemetrySentinel = 0x01
)

// Command codes (host -> device, byte 1 of every frame)
const (
	CmdSet        = 0x55
	CmdEcho       = 0x22
	CmdEgramStart = 0x33
	CmdEgramStop  = 0x34
)

// Frame lengths
const (
	HeaderSize = 2

	ParamPayloadSize = 16
	ParamFrameSize   = HeaderSize + ParamPayloadSize // set params, echo request, egram start/stop
	EchoResponseSize = ParamPayloadSize

	LEDFrameSize        = 11
	LEDEchoResponseSize = 9

	TelemetryFrameSize = 16
)

// Telemetry frame layout
const (
	telemetryMarkerOffset      = 1
	telemetryAtrialOffset      = 8
	telemetryVentricularOffset = 12
)

// LED defaults used by the board's blink state machine
const (
	DefaultLEDOffTime    float32 = 0.5
	DefaultLEDSwitchTime uint16  = 200
)
