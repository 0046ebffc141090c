// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pacer

import (
	"fmt"
	"strings"
)

// FormatCommandCode returns the human-readable name for a frame.
// Both the code and the frame length are needed since SET and ECHO codes are
// shared between the LED and parameter frames.
func FormatCommandCode(code byte, frameLen int) string {
	switch code {
	case CmdSet:
		if frameLen == LEDFrameSize {
			return "SET_LED"
		}
		return "SET_PARAMS"
	case CmdEcho:
		if frameLen == LEDFrameSize {
			return "ECHO_LED"
		}
		return "ECHO_PARAMS"
	case CmdEgramStart:
		return "EGRAM_START"
	case CmdEgramStop:
		return "EGRAM_STOP"
	default:
		return "UNKNOWN"
	}
}

// FormatFrame formats an outbound frame as "NAME (0xCC) len=N: hex"
func FormatFrame(frame []byte) string {
	if len(frame) < HeaderSize || frame[0] != SyncByte {
		return fmt.Sprintf("INVALID len=%d: %s", len(frame), FormatHex(frame))
	}
	return fmt.Sprintf("%s (0x%02X) len=%d: %s",
		FormatCommandCode(frame[1], len(frame)), frame[1], len(frame), FormatHex(frame))
}

// FormatHex returns space-separated upper-case hex, 16 bytes per line
func FormatHex(b []byte) string {
	var sb strings.Builder
	for i, c := range b {
		if i > 0 {
			if i%16 == 0 {
				sb.WriteString("\n")
			} else {
				sb.WriteString(" ")
			}
		}
		fmt.Fprintf(&sb, "%02X", c)
	}
	return sb.String()
}

var fieldUnits = map[string]string{
	"lower_rate_limit":        "ppm",
	"max_sensor_rate":         "ppm",
	"atrial_amplitude":        "V",
	"ventricular_amplitude":   "V",
	"atrial_pulse_width":      "ms",
	"ventricular_pulse_width": "ms",
	"atrial_sensitivity":      "mV",
	"ventricular_sensitivity": "mV",
	"atrial_refractory":       "ms",
	"ventricular_refractory":  "ms",
	"hysteresis":              "ppm",
	"recovery_time":           "min",
	"reaction_time":           "s",
}

// FormatFieldValue formats a single field value with its unit
func FormatFieldValue(name string, v float64) string {
	switch name {
	case "mode":
		return Mode(v).String()
	case "activity_threshold":
		return ActivityThreshold(v).String()
	}
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
	if unit, ok := fieldUnits[name]; ok {
		return s + " " + unit
	}
	return s
}

// FormatParameters formats a ParameterSet one field per line
func FormatParameters(p ParameterSet) string {
	var sb strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&sb, "  %-24s %s\n", f.Name+":", FormatFieldValue(f.Name, f.Get(p)))
	}
	return sb.String()
}

// FormatLEDEcho formats an LED echo on one line
func FormatLEDEcho(e LEDEcho) string {
	return fmt.Sprintf("LED %s (r=%d g=%d b=%d) off_time=%.2fs switch_time=%dms",
		e.Color(), e.Red, e.Green, e.Blue, e.OffTime, e.SwitchTime)
}

// FormatSample formats one telemetry sample on one line
func FormatSample(s Sample) string {
	marker := s.Marker.String()
	if s.Marker == MarkerUnknown && s.Tag != "" {
		marker = s.Tag
	}
	return fmt.Sprintf("[%10.3fs] %s  atr=%8.3f  vent=%8.3f",
		s.Elapsed.Seconds(), marker, s.Atrial, s.Ventricular)
}
