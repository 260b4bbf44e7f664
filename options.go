// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// WriterOptions controls how a recording is laid out and labelled on write.
type WriterOptions struct {
	// RecordDuration is the data record duration in seconds. Zero or less
	// writes the whole recording as a single unpadded record.
	RecordDuration float64 `yaml:"record_duration"`
	// PatientID, RecordingID, StartDate and StartTime are copied into the
	// header, space padded or truncated to their field widths.
	PatientID   string `yaml:"patient_id"`
	RecordingID string `yaml:"recording_id"`
	StartDate   string `yaml:"start_date"`
	StartTime   string `yaml:"start_time"`
	// PhysicalDimension is the unit of every data channel (e.g., uV).
	PhysicalDimension string `yaml:"physical_dimension"`
	// PhysicalPadding widens each channel's observed range by this fraction
	// of its span on both sides.
	PhysicalPadding float64 `yaml:"physical_padding"`
	// Annotations enables the annotation signal when the recording has
	// events.
	Annotations bool `yaml:"annotations"`
	// AnnotationSamplesPerRecord fixes the annotation signal size. Zero
	// sizes it automatically from the events.
	AnnotationSamplesPerRecord int `yaml:"annotation_samples_per_record"`
	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger `yaml:"-"`
}

// DefaultWriterOptions returns the options used when none are given.
func DefaultWriterOptions() WriterOptions {
	return WriterOptions{
		RecordDuration:    0,
		PatientID:         "X X X X",
		RecordingID:       "Startdate X X X X",
		StartDate:         "01.01.85",
		StartTime:         "00.00.00",
		PhysicalDimension: "uV",
		PhysicalPadding:   0.05,
		Annotations:       true,
	}
}

// LoadWriterOptions reads writer options from a YAML file. Fields missing
// from the file keep their default values.
func LoadWriterOptions(path string) (WriterOptions, error) {
	opts := DefaultWriterOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("failed to read writer options: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("failed to parse writer options: %w", err)
	}
	return opts, opts.validate()
}

func (o WriterOptions) validate() error {
	if math.IsNaN(o.RecordDuration) || math.IsInf(o.RecordDuration, 0) {
		return fmt.Errorf("%w: record duration must be finite", ErrConfig)
	}
	if !(o.PhysicalPadding >= 0) || math.IsInf(o.PhysicalPadding, 0) {
		return fmt.Errorf("%w: physical padding must be a non-negative fraction, got %g", ErrConfig, o.PhysicalPadding)
	}
	if o.AnnotationSamplesPerRecord < 0 {
		return fmt.Errorf("%w: annotation samples per record must not be negative", ErrConfig)
	}
	return nil
}

func (o WriterOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return discardLogger()
	}
	return o.Logger
}

// ReadOption configures a Reader.
type ReadOption func(*Reader)

// WithLogger sets the logger a Reader reports anomalies to.
func WithLogger(logger *slog.Logger) ReadOption {
	return func(r *Reader) {
		r.logger = logger
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
