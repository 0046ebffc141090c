// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/Thermoquad/pacelink/pkg/config"
	"github.com/Thermoquad/pacelink/pkg/logging"
	"github.com/Thermoquad/pacelink/pkg/pacer"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// Exit codes
const (
	ExitOK         = 0
	ExitFailure    = 1 // verification mismatch, timeout or bad input
	ExitConnection = 2
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	configPath      string
	responseTimeout time.Duration
	logLevel        string
	logFile         string

	// cfg holds the loaded config with flag overrides applied
	cfg = config.Defaults()
	// appFs is the filesystem the config is read from
	appFs = afero.NewOsFs()
)

var rootCmd = &cobra.Command{
	Use:   "pacelink",
	Short: "Pacemaker device controller-monitor",
	Long: `Pacelink - A CLI tool for programming and monitoring a pacemaker
development board over its serial protocol.

Provides commands to list and identify ports, interrogate and program the
pacing parameters, drive the diagnostic LED and stream electrogram telemetry.

Connection modes:
  Serial:    --port /dev/ttyACM0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

Settings are read from a TOML config file (--config, PACELINK_CONFIG, or the
user config directory). Flags override the file.

For WebSocket authentication, the password is read from the PACELINK_PASSWORD
environment variable, or prompted interactively if not set.

Exit codes:
  0 - Success
  1 - Verification mismatch, timeout or invalid input
  2 - Connection error`,
	Version:           fmt.Sprintf("1.0.0 (protocol revision %d)", pacer.ProtocolRevision),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device or \"<path>: <description>\"")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket bridge URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $PACELINK_CONFIG or user config dir)")
	rootCmd.PersistentFlags().DurationVar(&responseTimeout, "timeout", time.Second, "Response timeout for device commands")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (default from config)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this rotating file")
}

// loadSettings reads the config file and applies explicitly set flags on top
func loadSettings(cmd *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}

	vals, err := config.Load(appFs, path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		vals.Serial.Port = portName
	}
	if flags.Changed("baud") {
		vals.Serial.Baud = baudRate
	}
	if flags.Changed("timeout") {
		vals.Serial.ResponseTimeout = config.Duration(responseTimeout)
	}
	if flags.Changed("log-file") {
		vals.Logging.File = logFile
	}
	if flags.Changed("log-level") {
		vals.Logging.Level = logLevel
	}

	if err := vals.Validate(); err != nil {
		return err
	}
	cfg = vals

	return logging.Init(logging.Options{Level: cfg.Logging.Level, File: cfg.Logging.File})
}

// exitError carries the process exit code for an error
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

func connectionError(err error) error {
	return withCode(ExitConnection, fmt.Errorf("connection error: %w", err))
}

// ExitCode maps an error returned by Execute to a process exit code
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitFailure
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
