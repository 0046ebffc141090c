// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/Thermoquad/pacelink/pkg/pacer"
	"github.com/Thermoquad/pacelink/pkg/session"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	programMode       string
	programThreshold  string
	programFromDevice bool
	programDryRun     bool

	// programValues holds one flag per numeric parameter, keyed by field name
	programValues = map[string]*float64{}
)

// flag aliases for the most used rate limits
var programAliases = map[string]string{
	"lrl": "lower-rate-limit",
	"msr": "max-sensor-rate",
}

var programCmd = &cobra.Command{
	Use:   "program",
	Short: "Write pacing parameters and verify the board stored them",
	Long: `Program the board with a parameter set and read it back.

The starting point is the [parameters] profile of the config file (nominal
values by default), or the board's stored values with --from-device. Flags
override individual fields. Values are range-checked before anything is sent.

After writing, the board is interrogated and every field is compared with
what was requested, at the resolution the wire format carries.

Examples:
  pacelink program --port COM3 --mode VVI --lrl 60
  pacelink program --port /dev/ttyACM0 --from-device --atrial-amplitude 3.5
  pacelink program --mode AAIR --msr 140 --dry-run

Exit codes:
  0 - Parameters written and verified
  1 - Invalid parameters, verification mismatch or timeout
  2 - Connection error`,
	Args: cobra.NoArgs,
	RunE: runProgram,
}

func init() {
	rootCmd.AddCommand(programCmd)

	flags := programCmd.Flags()
	flags.StringVar(&programMode, "mode", "", "Pacing mode (AOO, VOO, AAI, VVI, AOOR, VOOR, AAIR, VVIR)")
	flags.StringVar(&programThreshold, "activity-threshold", "", "Activity threshold (V-LOW .. V-HIGH)")
	flags.BoolVar(&programFromDevice, "from-device", false, "Start from the parameters stored on the board")
	flags.BoolVar(&programDryRun, "dry-run", false, "Validate and print the frame without connecting")

	for _, f := range pacer.Fields() {
		if f.Name == "mode" || f.Name == "activity_threshold" {
			continue
		}
		v := new(float64)
		programValues[f.Name] = v
		usage := strings.ReplaceAll(f.Name, "_", " ")
		if unit := unitOf(f.Name); unit != "" {
			usage += " (" + unit + ")"
		}
		flags.Float64Var(v, flagName(f.Name), 0, usage)
	}

	flags.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		if long, ok := programAliases[name]; ok {
			name = long
		}
		return pflag.NormalizedName(name)
	})
}

func flagName(field string) string {
	return strings.ReplaceAll(field, "_", "-")
}

// unitOf extracts the unit FormatFieldValue appends to a field
func unitOf(field string) string {
	_, unit, _ := strings.Cut(pacer.FormatFieldValue(field, 1), " ")
	return unit
}

// applyProgramFlags overrides the fields whose flags were set
func applyProgramFlags(flags *pflag.FlagSet, p *pacer.ParameterSet) error {
	if flags.Changed("mode") {
		m, err := pacer.ParseMode(programMode)
		if err != nil {
			return err
		}
		p.Mode = m
	}
	if flags.Changed("activity-threshold") {
		if err := p.ActivityThreshold.UnmarshalText([]byte(programThreshold)); err != nil {
			return err
		}
	}
	for _, f := range pacer.Fields() {
		v, ok := programValues[f.Name]
		if ok && flags.Changed(flagName(f.Name)) {
			f.Set(p, *v)
		}
	}
	return nil
}

func runProgram(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	params := cfg.Parameters

	if programDryRun {
		if programFromDevice {
			return withCode(ExitFailure, fmt.Errorf("--from-device cannot be combined with --dry-run"))
		}
		if err := prepareParameters(cmd.Flags(), &params); err != nil {
			return err
		}
		frame, err := pacer.Encode(pacer.SetParameters{Params: params})
		if err != nil {
			return withCode(ExitFailure, err)
		}
		fmt.Fprint(out, pacer.FormatParameters(params))
		fmt.Fprintf(out, "\n%s\n", pacer.FormatFrame(frame))
		return nil
	}

	d, connInfo, err := OpenDevice(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Disconnect()

	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Connection:"), connInfo)
	fmt.Fprintf(out, "%s %s\n\n", labelStyle.Render("Device:"), d.Identity())

	if programFromDevice {
		echo, err := d.Interrogate()
		if err != nil {
			return commandError(err)
		}
		params = echo.Params
	}

	if err := prepareParameters(cmd.Flags(), &params); err != nil {
		return err
	}

	v, err := d.WriteAndVerify(params)
	if err != nil {
		return commandError(err)
	}

	printVerification(out, v)
	if !v.Matched() {
		return withCode(ExitFailure, v.Mismatch)
	}
	return nil
}

func prepareParameters(flags *pflag.FlagSet, p *pacer.ParameterSet) error {
	if err := applyProgramFlags(flags, p); err != nil {
		return withCode(ExitFailure, err)
	}
	if err := pacer.ValidateParameters(*p); err != nil {
		return withCode(ExitFailure, err)
	}
	return nil
}

// printVerification prints requested and stored values side by side
func printVerification(w io.Writer, v session.Verification) {
	fmt.Fprintf(w, "  %-24s %-12s %-12s\n", "", "REQUESTED", "STORED")
	for _, f := range pacer.Fields() {
		req, got := f.Get(v.Requested), f.Get(v.Stored)
		line := fmt.Sprintf("  %-24s %-12s %-12s", f.Name+":",
			pacer.FormatFieldValue(f.Name, req), pacer.FormatFieldValue(f.Name, got))
		if v.Mismatch != nil && v.Mismatch.Field == f.Name {
			line = errorStyle.Render(line + "  <--")
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)

	if v.Matched() {
		fmt.Fprintln(w, okStyle.Render("MATCH: board stored every parameter"))
		return
	}
	fmt.Fprintln(w, errorStyle.Render("MISMATCH: "+v.Mismatch.Error()))
	fmt.Fprintf(w, "Raw echo:\n%s\n", pacer.FormatHex(v.Raw))
}
