// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package linktest

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/Thermoquad/pacelink/pkg/pacer"
)

// Board emulates the pacemaker firmware's command handling. Use its Respond
// method as MockPort.Respond.
type Board struct {
	mu        sync.Mutex
	params    []byte
	led       []byte
	streaming bool

	// Silent drops every response.
	Silent bool
	// EchoHook may rewrite a parameter echo before it is sent.
	EchoHook func(payload []byte) []byte
}

// NewBoard returns a board holding the nominal parameters
func NewBoard() *Board {
	params, err := pacer.EncodeParameters(pacer.NominalParameters())
	if err != nil {
		panic(err)
	}
	return &Board{
		params: params,
		led:    make([]byte, pacer.LEDEchoResponseSize),
	}
}

// Streaming reports whether the last egram command was start
func (b *Board) Streaming() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.streaming
}

// StoredParameters returns the raw 16-byte parameter block
func (b *Board) StoredParameters() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.params...)
}

// Respond handles one host frame and returns the board's reply, if any
func (b *Board) Respond(frame []byte) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(frame) < pacer.HeaderSize || frame[0] != pacer.SyncByte {
		return nil
	}

	var reply []byte
	switch {
	case frame[1] == pacer.CmdSet && len(frame) == pacer.ParamFrameSize:
		copy(b.params, frame[pacer.HeaderSize:])
	case frame[1] == pacer.CmdSet && len(frame) == pacer.LEDFrameSize:
		// set: r g b off(f32) switch(u16); echo: r g b switch(u16) off(f32)
		copy(b.led[0:3], frame[2:5])
		copy(b.led[3:5], frame[9:11])
		copy(b.led[5:9], frame[5:9])
	case frame[1] == pacer.CmdEcho && len(frame) == pacer.ParamFrameSize:
		reply = append([]byte(nil), b.params...)
		if b.EchoHook != nil {
			reply = b.EchoHook(reply)
		}
	case frame[1] == pacer.CmdEcho && len(frame) == pacer.LEDFrameSize:
		reply = append([]byte(nil), b.led...)
	case frame[1] == pacer.CmdEgramStart:
		b.streaming = true
	case frame[1] == pacer.CmdEgramStop:
		b.streaming = false
	}

	if b.Silent {
		return nil
	}
	return reply
}

// TelemetryFrame builds a 16-byte telemetry frame with a two-character tag
func TelemetryFrame(tag string, atrial, ventricular float32) []byte {
	f := make([]byte, pacer.TelemetryFrameSize)
	f[0] = pacer.TelemetrySentinel
	if len(tag) == 2 {
		f[1], f[2] = tag[0], tag[1]
	}
	binary.LittleEndian.PutUint32(f[8:12], math.Float32bits(atrial))
	binary.LittleEndian.PutUint32(f[12:16], math.Float32bits(ventricular))
	return f
}
