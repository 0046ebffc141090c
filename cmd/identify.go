// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var identifyCmd = &cobra.Command{
	Use:   "identify [descriptor]",
	Short: "Classify a port descriptor or the connected device",
	Long: `Report whether a port belongs to a verified board.

With a descriptor argument the classification happens offline. Without one,
the device named by --port or --url is connected and classified.

Examples:
  pacelink identify "COM3: mbed Serial Port"
  pacelink identify --port /dev/ttyACM0

Exit codes:
  0 - Identified (verified or not)
  2 - Connection error`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)
}

func runIdentify(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		id := cfg.Classifier().Classify(args[0])
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Device:"), id)
		return nil
	}

	d, connInfo, err := OpenDevice(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Disconnect()

	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Connection:"), connInfo)
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Device:"), d.Identity())
	return nil
}
