// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"testing"
	"time"

	"github.com/Thermoquad/pacelink/pkg/pacer"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPath = "/home/operator/.config/pacelink/config.toml"

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	vals, err := Load(afero.NewMemMapFs(), testPath)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), vals)
	assert.Equal(t, 115200, vals.Serial.Baud)
	assert.Equal(t, Duration(time.Second), vals.Serial.ResponseTimeout)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	data := []byte(`
config_schema = 1

[serial]
port = "COM3"
response_timeout = "250ms"

[identity]
keywords = ["pacer-sim"]
board_id = "SIM-1"

[egram]
poll_interval = "20ms"

[logging]
level = "debug"

[parameters]
mode = "VVI"
lower_rate_limit = 70
activity_threshold = "HIGH"
`)
	require.NoError(t, afero.WriteFile(fs, testPath, data, 0o600))

	vals, err := Load(fs, testPath)
	require.NoError(t, err)

	assert.Equal(t, "COM3", vals.Serial.Port)
	assert.Equal(t, 115200, vals.Serial.Baud)
	assert.Equal(t, Duration(250*time.Millisecond), vals.Serial.ResponseTimeout)
	assert.Equal(t, Duration(20*time.Millisecond), vals.Egram.PollInterval)
	assert.Equal(t, "debug", vals.Logging.Level)
	assert.InDelta(t, 70, vals.Parameters.LowerRateLimit, 1e-9)
	assert.Equal(t, pacer.ThresholdHigh, vals.Parameters.ActivityThreshold)
	// untouched keys keep their nominal values
	assert.InDelta(t, 120, vals.Parameters.MaxSensorRate, 1e-9)

	id := vals.Classifier().Classify("COM5: Pacer-Sim bridge")
	assert.True(t, id.Verified)
	assert.Equal(t, "SIM-1", id.DeviceID)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{"malformed toml", "config_schema = [1"},
		{"schema mismatch", "config_schema = 2"},
		{"bad duration", "config_schema = 1\n[serial]\nresponse_timeout = \"soon\""},
		{"bad log level", "config_schema = 1\n[logging]\nlevel = \"loud\""},
		{"bad mode", "config_schema = 1\n[parameters]\nmode = \"XYZ\""},
		{"parameter out of range", "config_schema = 1\n[parameters]\nlower_rate_limit = 250"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, testPath, []byte(tt.data), 0o600))

			vals, err := Load(fs, testPath)
			require.Error(t, err)
			assert.Equal(t, Defaults(), vals)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	vals := Defaults()
	vals.Serial.Port = "/dev/ttyACM0"
	vals.LED.SwitchTime = 500
	vals.Parameters.Mode = pacer.ModeVVI
	vals.Parameters.AtrialAmplitude = 3.5

	require.NoError(t, Save(fs, testPath, vals))

	loaded, err := Load(fs, testPath)
	require.NoError(t, err)
	assert.Equal(t, vals, loaded)
}

func TestSave_RejectsInvalid(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	vals := Defaults()
	vals.Serial.Baud = 0

	require.Error(t, Save(fs, testPath, vals))
	exists, err := afero.Exists(fs, testPath)
	require.NoError(t, err)
	assert.False(t, exists)
}

//nolint:paralleltest // sets an environment variable
func TestDefaultPath_Env(t *testing.T) {
	t.Setenv(EnvPath, "/tmp/custom.toml")
	assert.Equal(t, "/tmp/custom.toml", DefaultPath())
}
