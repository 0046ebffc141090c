// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"

	"github.com/Thermoquad/pacelink/pkg/dcm"
	"github.com/Thermoquad/pacelink/pkg/pacer"
	"github.com/spf13/cobra"
)

var ledEcho bool

var ledCmd = &cobra.Command{
	Use:       "led <off|red|green|blue>",
	Short:     "Drive the diagnostic LED",
	ValidArgs: []string{"off", "red", "green", "blue"},
	Long: `Light the board's diagnostic LED in one color, or turn it off.

Only a verified board accepts LED commands. The board does not acknowledge the command; use --echo to read the LED settings
back afterwards.

Examples:
  pacelink led red --port COM3
  pacelink led off --port /dev/ttyACM0 --echo

Exit codes:
  0 - Command sent (and echoed)
  1 - Unverified device, invalid color or timeout
  2 - Connection error`,
	Args: cobra.ExactArgs(1),
	RunE: runLED,
}

func init() {
	rootCmd.AddCommand(ledCmd)
	ledCmd.Flags().BoolVar(&ledEcho, "echo", false, "Read the LED settings back after setting them")
}

func runLED(cmd *cobra.Command, args []string) error {
	color, err := pacer.ParseLEDColor(args[0])
	if err != nil {
		return withCode(ExitFailure, err)
	}

	d, _, err := OpenDevice(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Disconnect()

	out := cmd.OutOrStdout()
	if err := d.SetLED(color); err != nil {
		if errors.Is(err, dcm.ErrUnverified) {
			return withCode(ExitFailure, fmt.Errorf("%w: LED commands need a verified board", err))
		}
		return commandError(err)
	}
	fmt.Fprintf(out, "LED set to %s\n", color)

	if ledEcho {
		e, err := d.InterrogateLED()
		if err != nil {
			return commandError(err)
		}
		fmt.Fprintln(out, pacer.FormatLEDEcho(e))
	}
	return nil
}
