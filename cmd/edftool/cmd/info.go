// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package cmd

import (
	"bytes"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/OpenPSG/edf/v2"
	"github.com/OpenPSG/edf/v2/internal/fileio"
	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newInfoCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Print the header of a recording",
		Long: `Print the header fields, signal table and annotation count of a recording.

Example:
  edftool info SC4001E0-PSG.edf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			b, err := fileio.ReadFile(path)
			if err != nil {
				return err
			}

			er, err := edf.Open(bytes.NewReader(b), edf.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("error opening %s: %w", path, err)
			}
			rec, err := er.ReadRecording()
			if err != nil {
				return fmt.Errorf("error reading %s: %w", path, err)
			}

			hdr := er.Header()
			dataEnd := min(len(b), hdr.HeaderBytes+hdr.DataRecords*hdr.RecordSize())

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File:            %s (%s, %s)\n", path, humanize.Bytes(uint64(len(b))), fileio.ContainerFor(path))
			fmt.Fprintf(out, "Format:          %s %s\n", hdr.Format, hdr.Reserved)
			fmt.Fprintf(out, "Patient:         %s\n", hdr.PatientID)
			fmt.Fprintf(out, "Recording:       %s\n", hdr.RecordingID)
			if start, err := hdr.Start(); err == nil {
				fmt.Fprintf(out, "Start:           %s\n", start.Format("2006-01-02 15:04:05"))
			} else {
				fmt.Fprintf(out, "Start:           %s %s\n", hdr.StartDate, hdr.StartTime)
			}
			fmt.Fprintf(out, "Data records:    %s x %gs\n", humanize.Comma(int64(hdr.DataRecords)), hdr.DataRecordDuration)
			fmt.Fprintf(out, "Sampling rate:   %g Hz\n", rec.SampleRate)
			fmt.Fprintf(out, "Samples:         %s per channel\n", humanize.Comma(int64(rec.NumSamples())))
			fmt.Fprintf(out, "Annotations:     %s\n", humanize.Comma(int64(len(rec.Annotations))))
			fmt.Fprintf(out, "Data digest:     %016x\n", xxhash.Sum64(b[hdr.HeaderBytes:dataEnd]))
			fmt.Fprintln(out)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tLABEL\tDIMENSION\tPHYSICAL\tDIGITAL\tSAMPLES/REC\tRATE")
			for i, sig := range hdr.Signals {
				rate := "-"
				if !sig.IsAnnotation() {
					rate = fmt.Sprintf("%g Hz", float64(sig.SamplesPerRecord)/hdr.DataRecordDuration)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%g..%g\t%d..%d\t%d\t%s\n", i, sig.Label, sig.PhysicalDimension,
					sig.PhysicalMin, sig.PhysicalMax, sig.DigitalMin, sig.DigitalMax, sig.SamplesPerRecord, rate)
			}
			return tw.Flush()
		},
	}
}
