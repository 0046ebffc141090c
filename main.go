// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Pacelink - Pacemaker Device Controller-Monitor
//
// A CLI tool for programming, verifying and monitoring a pacemaker
// development board over its serial protocol.

package main

import (
	"fmt"
	"os"

	"github.com/Thermoquad/pacelink/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cmd.ExitCode(err))
	}
}
