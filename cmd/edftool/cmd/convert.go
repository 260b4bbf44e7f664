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
	"fmt"
	"log/slog"
	"strings"

	"github.com/OpenPSG/edf/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newConvertCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Convert a recording between EDF and BDF",
		Long: `Read a recording and write it again in the chosen format. Channels
sampled at different rates are brought to the highest rate.

Example:
  edftool convert --format bdf --record-duration 1 input.edf output.bdf.zst`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, output := args[0], args[1]

			format, err := outputFormat(cmd.Flags(), output)
			if err != nil {
				return err
			}

			opts, err := writerOptions(cmd.Flags())
			if err != nil {
				return err
			}
			opts.Logger = logger

			rec, hdr, err := edf.ReadFile(input, edf.WithLogger(logger))
			if err != nil {
				return err
			}

			// Carry the identification fields over unless configured.
			if !cmd.Flags().Changed("config") {
				opts.PatientID = hdr.PatientID
				opts.RecordingID = hdr.RecordingID
				opts.StartDate = hdr.StartDate
				opts.StartTime = hdr.StartTime
			}

			if err := edf.WriteFile(output, rec, format, opts); err != nil {
				return fmt.Errorf("error writing %s: %w", output, err)
			}

			logger.Info("converted recording",
				slog.String("input", input),
				slog.String("output", output),
				slog.String("format", format.Name),
				slog.Int("channels", len(rec.Channels)),
				slog.Int("annotations", len(rec.Annotations)))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("format", "", "Output format: edf or bdf (default from the output file name)")
	flags.String("config", "", "YAML file with writer options")
	flags.Float64("record-duration", 0, "Data record duration in seconds, 0 for a single record")
	flags.Float64("padding", 0.05, "Physical range padding as a fraction of each channel's span")
	flags.Bool("no-annotations", false, "Do not write an annotation signal")
	flags.Int("annotation-samples", 0, "Fixed annotation samples per record, 0 to size automatically")

	return cmd
}

func outputFormat(flags *pflag.FlagSet, output string) (edf.Format, error) {
	name, _ := flags.GetString("format")
	if name == "" {
		name = "edf"
		if strings.Contains(strings.ToLower(output), ".bdf") {
			name = "bdf"
		}
	}

	switch strings.ToLower(name) {
	case "edf":
		return edf.EDF, nil
	case "bdf":
		return edf.BDF, nil
	default:
		return edf.Format{}, fmt.Errorf("unknown format: %q", name)
	}
}

// writerOptions starts from the defaults or the config file and applies any
// flags given explicitly on the command line.
func writerOptions(flags *pflag.FlagSet) (edf.WriterOptions, error) {
	opts := edf.DefaultWriterOptions()
	if path, _ := flags.GetString("config"); path != "" {
		var err error
		if opts, err = edf.LoadWriterOptions(path); err != nil {
			return opts, err
		}
	}

	if flags.Changed("record-duration") {
		opts.RecordDuration, _ = flags.GetFloat64("record-duration")
	}
	if flags.Changed("padding") {
		opts.PhysicalPadding, _ = flags.GetFloat64("padding")
	}
	if flags.Changed("no-annotations") {
		noAnnotations, _ := flags.GetBool("no-annotations")
		opts.Annotations = !noAnnotations
	}
	if flags.Changed("annotation-samples") {
		opts.AnnotationSamplesPerRecord, _ = flags.GetInt("annotation-samples")
	}

	return opts, nil
}
