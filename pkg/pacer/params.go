// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pacer

import (
	"fmt"
	"strings"
)

// Mode is the pacing mode code stored in byte 0 of the parameter payload.
type Mode uint8

// Pacing modes. Zero is not a valid mode on the wire.
const (
	ModeAOO Mode = iota + 1
	ModeVOO
	ModeAAI
	ModeVVI
	ModeAOOR
	ModeVOOR
	ModeAAIR
	ModeVVIR
)

var modeNames = map[Mode]string{
	ModeAOO:  "AOO",
	ModeVOO:  "VOO",
	ModeAAI:  "AAI",
	ModeVVI:  "VVI",
	ModeAOOR: "AOOR",
	ModeVOOR: "VOOR",
	ModeAAIR: "AAIR",
	ModeVVIR: "VVIR",
}

// String returns the mode name, or UNKNOWN(n) for invalid codes
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(m))
}

// Valid reports whether m is a known mode code
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// RateAdaptive reports whether the mode uses the activity sensor
func (m Mode) RateAdaptive() bool {
	return m >= ModeAOOR && m <= ModeVVIR
}

// ParseMode parses a mode name such as "VVI" or "aair"
func ParseMode(s string) (Mode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown pacing mode %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid pacing mode %d", uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ActivityThreshold selects the accelerometer level that counts as activity.
type ActivityThreshold uint8

// Activity threshold values
const (
	ThresholdVeryLow ActivityThreshold = iota
	ThresholdLow
	ThresholdMedLow
	ThresholdMed
	ThresholdMedHigh
	ThresholdHigh
	ThresholdVeryHigh
)

var thresholdNames = []string{"V-LOW", "LOW", "MED-LOW", "MED", "MED-HIGH", "HIGH", "V-HIGH"}

// String returns the threshold name
func (a ActivityThreshold) String() string {
	if int(a) < len(thresholdNames) {
		return thresholdNames[a]
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(a))
}

// MarshalText implements encoding.TextMarshaler
func (a ActivityThreshold) MarshalText() ([]byte, error) {
	if int(a) >= len(thresholdNames) {
		return nil, fmt.Errorf("invalid activity threshold %d", uint8(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *ActivityThreshold) UnmarshalText(text []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(text)))
	for i, name := range thresholdNames {
		if name == s {
			*a = ActivityThreshold(i)
			return nil
		}
	}
	return fmt.Errorf("unknown activity threshold %q", string(text))
}

// ParameterSet holds one complete set of programmable pacing parameters.
// Physical quantities are kept in their natural units; only the codec knows
// the device's fixed-point representation.
type ParameterSet struct {
	Mode                   Mode              `toml:"mode" json:"mode" validate:"min=1,max=8"`
	LowerRateLimit         float64           `toml:"lower_rate_limit" json:"lower_rate_limit" validate:"min=30,max=175"`       // ppm
	MaxSensorRate          float64           `toml:"max_sensor_rate" json:"max_sensor_rate" validate:"min=50,max=175"`         // ppm
	AtrialAmplitude        float64           `toml:"atrial_amplitude" json:"atrial_amplitude" validate:"min=0,max=7"`          // V
	VentricularAmplitude   float64           `toml:"ventricular_amplitude" json:"ventricular_amplitude" validate:"min=0,max=7"` // V
	AtrialPulseWidth       float64           `toml:"atrial_pulse_width" json:"atrial_pulse_width" validate:"min=0.05,max=1.9"`  // ms
	VentricularPulseWidth  float64           `toml:"ventricular_pulse_width" json:"ventricular_pulse_width" validate:"min=0.05,max=1.9"`
	AtrialSensitivity      float64           `toml:"atrial_sensitivity" json:"atrial_sensitivity" validate:"min=0.25,max=10"` // mV
	VentricularSensitivity float64           `toml:"ventricular_sensitivity" json:"ventricular_sensitivity" validate:"min=0.25,max=10"`
	AtrialRefractory       float64           `toml:"atrial_refractory" json:"atrial_refractory" validate:"min=150,max=500"` // ms
	VentricularRefractory  float64           `toml:"ventricular_refractory" json:"ventricular_refractory" validate:"min=150,max=500"`
	Hysteresis             float64           `toml:"hysteresis" json:"hysteresis" validate:"min=0,max=175"`      // ppm, 0 = off
	RecoveryTime           float64           `toml:"recovery_time" json:"recovery_time" validate:"min=2,max=16"` // min
	ResponseFactor         uint8             `toml:"response_factor" json:"response_factor" validate:"min=1,max=16"`
	ActivityThreshold      ActivityThreshold `toml:"activity_threshold" json:"activity_threshold" validate:"max=6"`
	ReactionTime           float64           `toml:"reaction_time" json:"reaction_time" validate:"min=10,max=50"` // s
}

// NominalParameters returns the board's factory nominal settings.
func NominalParameters() ParameterSet {
	return ParameterSet{
		Mode:                   ModeVVI,
		LowerRateLimit:         60,
		MaxSensorRate:          120,
		AtrialAmplitude:        5.0,
		VentricularAmplitude:   5.0,
		AtrialPulseWidth:       1.0,
		VentricularPulseWidth:  1.0,
		AtrialSensitivity:      0.75,
		VentricularSensitivity: 2.5,
		AtrialRefractory:       250,
		VentricularRefractory:  320,
		Hysteresis:             0,
		RecoveryTime:           5,
		ResponseFactor:         8,
		ActivityThreshold:      ThresholdMed,
		ReactionTime:           30,
	}
}

// Field describes how one ParameterSet field is carried in the 16-byte
// parameter payload: value * Mul / Div, rounded, stored as a uint8.
type Field struct {
	Name    string
	Offset  int
	Mul     int
	Div     int
	Integer bool // dimensionless enum or count, compared exactly

	get func(*ParameterSet) float64
	set func(*ParameterSet, float64)
}

// Resolution is the smallest representable step in the field's unit
func (f Field) Resolution() float64 {
	return float64(f.Div) / float64(f.Mul)
}

// Get reads the field from p
func (f Field) Get(p ParameterSet) float64 {
	return f.get(&p)
}

// Set stores v into the field of p. Integer fields truncate v.
func (f Field) Set(p *ParameterSet, v float64) {
	f.set(p, v)
}

// fields lists every parameter in ParameterSet declaration order. Offset is
// the byte position inside the payload, which follows the board's parser.
var fields = []Field{
	{Name: "mode", Offset: 0, Mul: 1, Div: 1, Integer: true,
		get: func(p *ParameterSet) float64 { return float64(p.Mode) },
		set: func(p *ParameterSet, v float64) { p.Mode = Mode(v) }},
	{Name: "lower_rate_limit", Offset: 3, Mul: 1, Div: 1,
		get: func(p *ParameterSet) float64 { return p.LowerRateLimit },
		set: func(p *ParameterSet, v float64) { p.LowerRateLimit = v }},
	{Name: "max_sensor_rate", Offset: 12, Mul: 1, Div: 1,
		get: func(p *ParameterSet) float64 { return p.MaxSensorRate },
		set: func(p *ParameterSet, v float64) { p.MaxSensorRate = v }},
	{Name: "atrial_amplitude", Offset: 4, Mul: 10, Div: 1,
		get: func(p *ParameterSet) float64 { return p.AtrialAmplitude },
		set: func(p *ParameterSet, v float64) { p.AtrialAmplitude = v }},
	{Name: "ventricular_amplitude", Offset: 5, Mul: 10, Div: 1,
		get: func(p *ParameterSet) float64 { return p.VentricularAmplitude },
		set: func(p *ParameterSet, v float64) { p.VentricularAmplitude = v }},
	{Name: "atrial_pulse_width", Offset: 1, Mul: 100, Div: 1,
		get: func(p *ParameterSet) float64 { return p.AtrialPulseWidth },
		set: func(p *ParameterSet, v float64) { p.AtrialPulseWidth = v }},
	{Name: "ventricular_pulse_width", Offset: 2, Mul: 100, Div: 1,
		get: func(p *ParameterSet) float64 { return p.VentricularPulseWidth },
		set: func(p *ParameterSet, v float64) { p.VentricularPulseWidth = v }},
	{Name: "atrial_sensitivity", Offset: 8, Mul: 10, Div: 1,
		get: func(p *ParameterSet) float64 { return p.AtrialSensitivity },
		set: func(p *ParameterSet, v float64) { p.AtrialSensitivity = v }},
	{Name: "ventricular_sensitivity", Offset: 9, Mul: 10, Div: 1,
		get: func(p *ParameterSet) float64 { return p.VentricularSensitivity },
		set: func(p *ParameterSet, v float64) { p.VentricularSensitivity = v }},
	{Name: "atrial_refractory", Offset: 6, Mul: 1, Div: 10,
		get: func(p *ParameterSet) float64 { return p.AtrialRefractory },
		set: func(p *ParameterSet, v float64) { p.AtrialRefractory = v }},
	{Name: "ventricular_refractory", Offset: 7, Mul: 1, Div: 10,
		get: func(p *ParameterSet) float64 { return p.VentricularRefractory },
		set: func(p *ParameterSet, v float64) { p.VentricularRefractory = v }},
	{Name: "hysteresis", Offset: 15, Mul: 1, Div: 1,
		get: func(p *ParameterSet) float64 { return p.Hysteresis },
		set: func(p *ParameterSet, v float64) { p.Hysteresis = v }},
	{Name: "recovery_time", Offset: 10, Mul: 1, Div: 1,
		get: func(p *ParameterSet) float64 { return p.RecoveryTime },
		set: func(p *ParameterSet, v float64) { p.RecoveryTime = v }},
	{Name: "response_factor", Offset: 11, Mul: 1, Div: 1, Integer: true,
		get: func(p *ParameterSet) float64 { return float64(p.ResponseFactor) },
		set: func(p *ParameterSet, v float64) { p.ResponseFactor = uint8(v) }},
	{Name: "activity_threshold", Offset: 13, Mul: 1, Div: 1, Integer: true,
		get: func(p *ParameterSet) float64 { return float64(p.ActivityThreshold) },
		set: func(p *ParameterSet, v float64) { p.ActivityThreshold = ActivityThreshold(v) }},
	{Name: "reaction_time", Offset: 14, Mul: 1, Div: 1,
		get: func(p *ParameterSet) float64 { return p.ReactionTime },
		set: func(p *ParameterSet, v float64) { p.ReactionTime = v }},
}

// Fields returns the parameter field table in ParameterSet order
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// FieldByName looks up a field descriptor
func FieldByName(name string) (Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
