// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"

	"github.com/Thermoquad/pacelink/pkg/config"
	"github.com/Thermoquad/pacelink/pkg/pacer"
	"github.com/Thermoquad/pacelink/pkg/session"
	"github.com/spf13/cobra"
)

var (
	interrogateRaw    bool
	interrogateSave   string
	interrogateFormat string
)

var interrogateCmd = &cobra.Command{
	Use:   "interrogate",
	Short: "Read the parameters stored on the board",
	Long: `Request a parameter echo from the board and print the stored values.

With --save the values are written as the [parameters] profile of a config
file, which the program command uses as its starting point.

Formats:
  text  The labelled parameter table
  cbor  One parameters record, in the same record format as egram captures

Examples:
  pacelink interrogate --port /dev/ttyACM0
  pacelink interrogate --port COM3 --raw --save profile.toml
  pacelink interrogate --port COM3 --format cbor > stored.cbor

Exit codes:
  0 - Parameters read
  1 - Timeout or malformed response
  2 - Connection error`,
	Args: cobra.NoArgs,
	RunE: runInterrogate,
}

func init() {
	rootCmd.AddCommand(interrogateCmd)
	interrogateCmd.Flags().BoolVar(&interrogateRaw, "raw", false, "Also print the raw echo bytes")
	interrogateCmd.Flags().StringVar(&interrogateSave, "save", "", "Write the stored parameters to this config file")
	interrogateCmd.Flags().StringVar(&interrogateFormat, "format", "text", "Output format: text or cbor")
}

// commandError maps a device command failure to its exit code
func commandError(err error) error {
	if errors.Is(err, session.ErrTransport) || errors.Is(err, session.ErrNotConnected) {
		return connectionError(err)
	}
	return withCode(ExitFailure, err)
}

func runInterrogate(cmd *cobra.Command, _ []string) error {
	if interrogateFormat != "text" && interrogateFormat != "cbor" {
		return withCode(ExitFailure, fmt.Errorf("unknown format %q (want text or cbor)", interrogateFormat))
	}

	d, connInfo, err := OpenDevice(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Disconnect()

	// cbor keeps stdout for the record
	out := cmd.OutOrStdout()
	if interrogateFormat == "cbor" {
		out = cmd.ErrOrStderr()
	}
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Connection:"), connInfo)
	fmt.Fprintf(out, "%s %s\n\n", labelStyle.Render("Device:"), d.Identity())

	echo, err := d.Interrogate()
	if err != nil {
		return commandError(err)
	}

	if interrogateFormat == "cbor" {
		rec, err := pacer.MarshalParametersRecord(echo.Params)
		if err != nil {
			return withCode(ExitFailure, err)
		}
		if _, err := cmd.OutOrStdout().Write(rec); err != nil {
			return withCode(ExitFailure, err)
		}
	} else {
		fmt.Fprint(out, pacer.FormatParameters(echo.Params))
	}
	if interrogateRaw {
		fmt.Fprintf(out, "\nRaw echo:\n%s\n", pacer.FormatHex(echo.Raw))
	}

	if interrogateSave != "" {
		vals := cfg
		vals.Parameters = echo.Params
		if err := config.Save(appFs, interrogateSave, vals); err != nil {
			return withCode(ExitFailure, err)
		}
		fmt.Fprintf(out, "\nSaved to %s\n", interrogateSave)
	}
	return nil
}
