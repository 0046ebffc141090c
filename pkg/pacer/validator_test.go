// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pacer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateParameters_Nominal(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateParameters(NominalParameters()))
}

func TestValidateParameters_Ranges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		field string
		edit  func(*ParameterSet)
	}{
		{"mode zero", "mode", func(p *ParameterSet) { p.Mode = 0 }},
		{"rate too low", "lower_rate_limit", func(p *ParameterSet) { p.LowerRateLimit = 20 }},
		{"amplitude too high", "ventricular_amplitude", func(p *ParameterSet) { p.VentricularAmplitude = 8 }},
		{"refractory too short", "atrial_refractory", func(p *ParameterSet) { p.AtrialRefractory = 100 }},
		{"threshold", "activity_threshold", func(p *ParameterSet) { p.ActivityThreshold = 7 }},
		{"response factor", "response_factor", func(p *ParameterSet) { p.ResponseFactor = 0 }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := NominalParameters()
			tt.edit(&p)

			err := ValidateParameters(p)
			require.Error(t, err)

			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestValidateParameters_CrossField(t *testing.T) {
	t.Parallel()

	p := NominalParameters()
	p.Mode = ModeVVIR
	p.LowerRateLimit = 100
	p.MaxSensorRate = 90

	var verrs ValidationErrors
	require.ErrorAs(t, ValidateParameters(p), &verrs)
	assert.Equal(t, "max_sensor_rate", verrs[0].Field)

	// Non rate-adaptive modes ignore the sensor rate ordering
	p.Mode = ModeVVI
	assert.NoError(t, ValidateParameters(p))

	p.Hysteresis = 100
	require.ErrorAs(t, ValidateParameters(p), &verrs)
	assert.Equal(t, "hysteresis", verrs[0].Field)
}
