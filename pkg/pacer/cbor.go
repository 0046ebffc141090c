// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pacer

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Capture record types. A capture file is a sequence of CBOR items, each
// [record_type, payload_map] with small integer keys.
const (
	RecordSample     uint8 = 0x01
	RecordParameters uint8 = 0x02
)

// Sample record keys
const (
	keySampleElapsed     = 0
	keySampleAtrial      = 1
	keySampleVentricular = 2
	keySampleMarker      = 3
	keySampleTag         = 4
)

// MarshalSampleRecord encodes a telemetry sample as a capture record
func MarshalSampleRecord(s Sample) ([]byte, error) {
	payload := map[int]interface{}{
		keySampleElapsed:     s.Elapsed.Nanoseconds(),
		keySampleAtrial:      s.Atrial,
		keySampleVentricular: s.Ventricular,
		keySampleMarker:      uint8(s.Marker),
	}
	if s.Tag != "" {
		payload[keySampleTag] = s.Tag
	}
	return cbor.Marshal([]interface{}{RecordSample, payload})
}

// MarshalParametersRecord encodes a parameter set as a capture record,
// keyed by payload offset with the raw wire byte as value.
func MarshalParametersRecord(p ParameterSet) ([]byte, error) {
	raw, err := EncodeParameters(p)
	if err != nil {
		return nil, err
	}
	payload := make(map[int]interface{}, len(fields))
	for _, f := range fields {
		payload[f.Offset] = raw[f.Offset]
	}
	return cbor.Marshal([]interface{}{RecordParameters, payload})
}

// ParseRecord parses one capture record: [record_type, payload_map]
func ParseRecord(data []byte) (recordType uint8, payload map[int]interface{}, err error) {
	if len(data) == 0 {
		return 0, nil, fmt.Errorf("empty CBOR record")
	}

	var rec []interface{}
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return 0, nil, fmt.Errorf("failed to decode CBOR: %w", err)
	}
	if len(rec) != 2 {
		return 0, nil, fmt.Errorf("expected 2-element array, got %d elements", len(rec))
	}

	switch v := rec[0].(type) {
	case uint64:
		if v > 255 {
			return 0, nil, fmt.Errorf("record type out of range: %d", v)
		}
		recordType = uint8(v)
	default:
		return 0, nil, fmt.Errorf("expected uint for record type, got %T", rec[0])
	}

	m, ok := rec[1].(map[interface{}]interface{})
	if !ok {
		return 0, nil, fmt.Errorf("expected map payload, got %T", rec[1])
	}
	payload = make(map[int]interface{}, len(m))
	for key, val := range m {
		switch k := key.(type) {
		case uint64:
			payload[int(k)] = val
		case int64:
			payload[int(k)] = val
		default:
			return 0, nil, fmt.Errorf("expected integer map key, got %T", key)
		}
	}
	return recordType, payload, nil
}

// UnmarshalSampleRecord decodes a record produced by MarshalSampleRecord
func UnmarshalSampleRecord(data []byte) (Sample, error) {
	recordType, payload, err := ParseRecord(data)
	if err != nil {
		return Sample{}, err
	}
	if recordType != RecordSample {
		return Sample{}, fmt.Errorf("expected sample record, got type 0x%02X", recordType)
	}

	var s Sample
	ns, ok := mapInt(payload, keySampleElapsed)
	if !ok {
		return Sample{}, fmt.Errorf("sample record missing elapsed")
	}
	s.Elapsed = time.Duration(ns)
	if s.Atrial, ok = mapFloat32(payload, keySampleAtrial); !ok {
		return Sample{}, fmt.Errorf("sample record missing atrial")
	}
	if s.Ventricular, ok = mapFloat32(payload, keySampleVentricular); !ok {
		return Sample{}, fmt.Errorf("sample record missing ventricular")
	}
	if m, ok := mapInt(payload, keySampleMarker); ok {
		s.Marker = Marker(m)
	}
	if tag, ok := payload[keySampleTag].(string); ok {
		s.Tag = tag
	}
	return s, nil
}

func mapInt(m map[int]interface{}, key int) (int64, bool) {
	switch v := m[key].(type) {
	case uint64:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}

func mapFloat32(m map[int]interface{}, key int) (float32, bool) {
	switch v := m[key].(type) {
	case float32:
		return v, true
	case float64:
		return float32(v), true
	}
	return 0, false
}
