// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the operator station settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/Thermoquad/pacelink/pkg/egram"
	"github.com/Thermoquad/pacelink/pkg/identity"
	"github.com/Thermoquad/pacelink/pkg/link"
	"github.com/Thermoquad/pacelink/pkg/pacer"
	"github.com/Thermoquad/pacelink/pkg/session"
	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	SchemaVersion = 1
	FileName      = "config.toml"
	AppDir        = "pacelink"
	EnvPath       = "PACELINK_CONFIG"
)

// Duration is a time.Duration written as a Go duration string ("250ms")
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

type Values struct {
	ConfigSchema int                `toml:"config_schema"`
	Serial       Serial             `toml:"serial"`
	Identity     Identity           `toml:"identity"`
	Egram        Egram              `toml:"egram"`
	LED          LED                `toml:"led"`
	Logging      Logging            `toml:"logging"`
	Parameters   pacer.ParameterSet `toml:"parameters" validate:"-"`
}

type Serial struct {
	Port            string   `toml:"port,omitempty"`
	Baud            int      `toml:"baud" validate:"min=1200,max=4000000"`
	ResponseTimeout Duration `toml:"response_timeout" validate:"min=1000000"`
}

type Identity struct {
	Keywords []string `toml:"keywords,omitempty"`
	BoardID  string   `toml:"board_id" validate:"required"`
}

type Egram struct {
	PollInterval Duration `toml:"poll_interval" validate:"min=1000000"`
}

type LED struct {
	OffTime    float32 `toml:"off_time" validate:"gt=0,max=60"`
	SwitchTime uint16  `toml:"switch_time" validate:"min=1"`
}

type Logging struct {
	Level string `toml:"level" validate:"oneof=trace debug info warn error"`
	File  string `toml:"file,omitempty"`
}

// Defaults returns the settings used when no file overrides them
func Defaults() Values {
	return Values{
		ConfigSchema: SchemaVersion,
		Serial: Serial{
			Baud:            link.DefaultBaudRate,
			ResponseTimeout: Duration(session.DefaultTimeout),
		},
		Identity: Identity{
			Keywords: append([]string(nil), identity.DefaultKeywords...),
			BoardID:  identity.DefaultBoardID,
		},
		Egram: Egram{
			PollInterval: Duration(egram.DefaultPollInterval),
		},
		LED: LED{
			OffTime:    pacer.DefaultLEDOffTime,
			SwitchTime: pacer.DefaultLEDSwitchTime,
		},
		Logging: Logging{
			Level: "info",
		},
		Parameters: pacer.NominalParameters(),
	}
}

// DefaultPath returns the config file location, honouring PACELINK_CONFIG
func DefaultPath() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return FileName
	}
	return filepath.Join(dir, AppDir, FileName)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("toml"), ",")
		return name
	})
	return v
}

// Validate checks every section, including the parameter profile
func (v *Values) Validate() error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := pacer.ValidateParameters(v.Parameters); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads path from fs on top of the defaults. A missing file yields
// the defaults unchanged.
func Load(afs afero.Fs, path string) (Values, error) {
	vals := Defaults()

	data, err := afero.ReadFile(afs, path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("path", path).Msg("no config file, using defaults")
		return vals, nil
	} else if err != nil {
		return vals, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, &vals); err != nil {
		return Defaults(), fmt.Errorf("failed to parse config file: %w", err)
	}

	if vals.ConfigSchema != SchemaVersion {
		return Defaults(), fmt.Errorf("schema version mismatch: got %d, expecting %d",
			vals.ConfigSchema, SchemaVersion)
	}

	if err := vals.Validate(); err != nil {
		return Defaults(), err
	}

	log.Debug().Str("path", path).Msg("loaded config")
	return vals, nil
}

// Save writes vals to path, creating the parent directory
func Save(afs afero.Fs, path string, vals Values) error {
	if err := vals.Validate(); err != nil {
		return err
	}

	data, err := toml.Marshal(&vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afs.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := afero.WriteFile(afs, path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Classifier builds the identity classifier from the identity section
func (v *Values) Classifier() *identity.Classifier {
	return identity.NewClassifier(v.Identity.Keywords, v.Identity.BoardID)
}
