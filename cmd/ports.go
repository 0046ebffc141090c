// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports and classify them",
	Long: `List every serial port as "<path>: <description>" and mark the ports
whose description matches a known board debug interface.

Examples:
  pacelink ports

Exit codes:
  0 - Ports listed (possibly none)
  2 - Port enumeration failed`,
	Args: cobra.NoArgs,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, _ []string) error {
	ports, err := listPorts()
	if err != nil {
		return connectionError(err)
	}

	out := cmd.OutOrStdout()
	if len(ports) == 0 {
		fmt.Fprintln(out, "No serial ports found")
		return nil
	}

	classifier := cfg.Classifier()
	for _, p := range ports {
		id := classifier.Classify(p)
		mark := "  "
		if id.Verified {
			mark = okStyle.Render("* ")
		}
		fmt.Fprintf(out, "%s%s\n", mark, p)
	}
	return nil
}
