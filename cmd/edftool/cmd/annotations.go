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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/OpenPSG/edf/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// annotation is the export form of an event.
type annotation struct {
	Onset    float64 `json:"onset" yaml:"onset" cbor:"onset"`
	Duration float64 `json:"duration" yaml:"duration" cbor:"duration"`
	Text     string  `json:"text" yaml:"text" cbor:"text"`
}

func newAnnotationsCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotations <file>",
		Short: "List the annotations of a recording",
		Long: `List the annotations of a recording, deduplicated and sorted by onset.

Example:
  edftool annotations --format json SC4001EC-Hypnogram.edf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")

			rec, _, err := edf.ReadFile(args[0], edf.WithLogger(logger))
			if err != nil {
				return err
			}

			events := edf.DeduplicateEvents(rec.Annotations)
			return writeAnnotations(cmd.OutOrStdout(), events, format)
		},
	}

	cmd.Flags().StringP("format", "f", "text", "Output format: text, json, yaml or cbor")

	return cmd
}

func writeAnnotations(w io.Writer, events []edf.AnnotationEvent, format string) error {
	rows := make([]annotation, len(events))
	for i, ev := range events {
		rows[i] = annotation{Onset: ev.Onset, Duration: ev.Duration, Text: ev.Text}
	}

	switch format {
	case "text":
		for _, row := range rows {
			if _, err := fmt.Fprintf(w, "%.6f\t%.6f\t%s\n", row.Onset, row.Duration, row.Text); err != nil {
				return err
			}
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(rows)
	case "cbor":
		return cbor.NewEncoder(w).Encode(rows)
	default:
		return fmt.Errorf("unknown output format: %q", format)
	}
}
