// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Thermoquad/pacelink/pkg/pacer"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	egramDuration time.Duration
	egramFormat   string
	egramOutput   string
)

var egramCmd = &cobra.Command{
	Use:   "egram",
	Short: "Stream electrogram telemetry",
	Long: `Start the board's telemetry stream and print each sample with its time
since the stream started, its marker and both channel readings.

The stream runs until --duration elapses or Ctrl+C is pressed, then the board
is told to stop and the stream statistics are printed to stderr.

Formats:
  text  One line per sample
  cbor  A CBOR sequence of sample records, for capture and later analysis

Examples:
  pacelink egram --port COM3
  pacelink egram --port /dev/ttyACM0 --duration 30s --format cbor --output run.cbor

Exit codes:
  0 - Stream ended normally
  1 - Timeout starting the stream or output failure
  2 - Connection error or the link failed mid-stream`,
	Args: cobra.NoArgs,
	RunE: runEgram,
}

func init() {
	rootCmd.AddCommand(egramCmd)
	egramCmd.Flags().DurationVar(&egramDuration, "duration", 0, "Stop after this long (0 streams until interrupted)")
	egramCmd.Flags().StringVar(&egramFormat, "format", "text", "Output format: text or cbor")
	egramCmd.Flags().StringVarP(&egramOutput, "output", "o", "", "Write samples to this file instead of stdout")
}

// sampleWriter writes one sample in the selected format
type sampleWriter func(w io.Writer, s pacer.Sample) error

func writerFor(format string) (sampleWriter, error) {
	switch format {
	case "text":
		return func(w io.Writer, s pacer.Sample) error {
			_, err := fmt.Fprintln(w, pacer.FormatSample(s))
			return err
		}, nil
	case "cbor":
		return func(w io.Writer, s pacer.Sample) error {
			rec, err := pacer.MarshalSampleRecord(s)
			if err != nil {
				return err
			}
			_, err = w.Write(rec)
			return err
		}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want text or cbor)", format)
	}
}

func runEgram(cmd *cobra.Command, _ []string) error {
	write, err := writerFor(egramFormat)
	if err != nil {
		return withCode(ExitFailure, err)
	}

	var dst io.Writer = cmd.OutOrStdout()
	if egramOutput != "" {
		f, err := appFs.Create(egramOutput)
		if err != nil {
			return withCode(ExitFailure, fmt.Errorf("failed to create output file: %w", err))
		}
		defer f.Close()
		dst = f
	}
	buf := bufio.NewWriter(dst)
	defer buf.Flush()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if egramDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, egramDuration)
		defer cancel()
	}

	d, connInfo, err := OpenDevice(ctx)
	if err != nil {
		return err
	}
	defer d.Disconnect()

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "%s %s\n", labelStyle.Render("Connection:"), connInfo)
	fmt.Fprintf(stderr, "%s %s\n", labelStyle.Render("Device:"), d.Identity())
	fmt.Fprintf(stderr, "Press Ctrl+C to stop\n\n")

	if err := d.StartStream(); err != nil {
		return commandError(err)
	}

	m, err := d.Monitor(time.Duration(cfg.Egram.PollInterval))
	if err != nil {
		return commandError(err)
	}

	batches := make(chan []pacer.Sample, 16)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := m.Run(gctx, batches); err != nil {
			return connectionError(err)
		}
		return nil
	})

	g.Go(func() error {
		for batch := range batches {
			for _, s := range batch {
				if err := write(buf, s); err != nil {
					return withCode(ExitFailure, fmt.Errorf("failed to write sample: %w", err))
				}
			}
			if err := buf.Flush(); err != nil {
				return withCode(ExitFailure, fmt.Errorf("failed to write sample: %w", err))
			}
		}
		return nil
	})

	runErr := g.Wait()

	if d.Streaming() {
		if err := d.StopStream(); err != nil && runErr == nil {
			runErr = commandError(err)
		}
	}

	stats := d.StreamStats()
	fmt.Fprintf(stderr, "\n%s\n", stats.Summary(time.Now()))

	return runErr
}
