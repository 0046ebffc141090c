package pacer

import (
	"encoding/binary"
	"fmt"
	"math"
)

var le = binary.LittleEndian

// Encode serialises a command to its fixed-length wire frame.
// Every frame is [SyncByte, cmd.Code(), payload...] and exactly
// cmd.FrameLen() bytes long.
func Encode(cmd Command) ([]byte, error) {
	if cmd == nil {
		return nil, fmt.Errorf("encode: nil command")
	}
	frame := make([]byte, cmd.FrameLen())
	frame[0] = SyncByte
	frame[1] = cmd.Code()
	if err := cmd.putPayload(frame); err != nil {
		return nil, fmt.Errorf("encode %s: %w", cmd.Name(), err)
	}
	return frame, nil
}

// MustEncode encodes a command and panics on error.
// Only use with commands whose payload cannot fail (echo, egram start/stop).
func MustEncode(cmd Command) []byte {
	frame, err := Encode(cmd)
	if err != nil {
		panic(fmt.Sprintf("pacer: %v", err))
	}
	return frame
}

// EncodeParameters returns the 16-byte scaled parameter payload.
func EncodeParameters(p ParameterSet) ([]byte, error) {
	payload := make([]byte, ParamPayloadSize)
	if err := putParameters(payload, p); err != nil {
		return nil, err
	}
	return payload, nil
}

// Quantize returns p as the board will store it: every field scaled,
// rounded and unscaled again. It fails like EncodeParameters.
func Quantize(p ParameterSet) (ParameterSet, error) {
	payload, err := EncodeParameters(p)
	if err != nil {
		return ParameterSet{}, err
	}
	var q ParameterSet
	for _, f := range fields {
		f.set(&q, unscale(f, payload[f.Offset]))
	}
	return q, nil
}

func putParameters(payload []byte, p ParameterSet) error {
	for _, f := range fields {
		raw, err := scale(f, f.get(&p))
		if err != nil {
			return err
		}
		payload[f.Offset] = raw
	}
	return nil
}

// scale converts a field value to its uint8 wire form, rejecting anything
// that would wrap.
func scale(f Field, v float64) (uint8, error) {
	scaled := math.Round(v * float64(f.Mul) / float64(f.Div))
	if math.IsNaN(scaled) || scaled < 0 || scaled > math.MaxUint8 {
		return 0, &EncodeError{Field: f.Name, Value: v, Scaled: scaled, Min: 0, Max: math.MaxUint8}
	}
	return uint8(scaled), nil
}

func unscale(f Field, raw uint8) float64 {
	return float64(raw) * float64(f.Div) / float64(f.Mul)
}

func checkFloat32(field string, v float32) error {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return &EncodeError{Field: field, Value: f, Scaled: f, Min: -math.MaxInt32, Max: math.MaxInt32}
	}
	return nil
}

func float32bits(f float32) uint32 {
	return math.Float32bits(f)
}
