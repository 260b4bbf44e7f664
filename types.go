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
	"strings"
	"time"
)

// Format describes the parameters that distinguish EDF from BDF. Both
// families share the same header layout and record structure.
type Format struct {
	Name              string // Short name of the format (e.g., EDF, BDF)
	SampleBytes       int    // Bytes per stored sample (2 for EDF, 3 for BDF)
	Version           string // Raw 8-byte version field
	DigitalMin        int    // Native minimum digital value for data signals
	DigitalMax        int    // Native maximum digital value for data signals
	AnnotationLabel   string // Label of the annotation signal
	PlainReserved     string // Reserved field without an annotation signal
	AnnotatedReserved string // Reserved field with an annotation signal
}

var (
	// EDF is the 16-bit European Data Format (EDF/EDF+).
	EDF = Format{
		Name:              "EDF",
		SampleBytes:       2,
		Version:           "0",
		DigitalMin:        -32768,
		DigitalMax:        32767,
		AnnotationLabel:   "EDF Annotations",
		PlainReserved:     "",
		AnnotatedReserved: "EDF+C",
	}

	// BDF is the 24-bit BioSemi Data Format (BDF/BDF+).
	BDF = Format{
		Name:              "BDF",
		SampleBytes:       3,
		Version:           "\xffBIOSEMI",
		DigitalMin:        -8388608,
		DigitalMax:        8388607,
		AnnotationLabel:   "BDF Annotations",
		PlainReserved:     "24BIT",
		AnnotatedReserved: "BDF+C",
	}
)

// annotationRange is the digital range declared for annotation signals. The
// payload is raw bytes so the range only needs to be symmetric and valid.
func (f Format) annotationRange() (int, int) {
	limit := 1<<(8*f.SampleBytes-1) - 1
	return -limit, limit
}

func (f Format) String() string {
	return f.Name
}

// Header represents the EDF/EDF+ or BDF/BDF+ file header.
type Header struct {
	Format             Format   // Format family, sniffed from the version field when reading
	PatientID          string   // Identification of the patient
	RecordingID        string   // Identification of the recording session
	StartDate          string   // Start date of the recording (dd.mm.yy)
	StartTime          string   // Start time of the recording (hh.mm.ss)
	HeaderBytes        int      // Number of bytes in the header
	Reserved           string   // Reserved field (EDF+C, BDF+C, 24BIT, ...)
	DataRecords        int      // Number of data records, -1 if unknown
	DataRecordDuration float64  // Duration of a single data record in seconds
	SignalCount        int      // Number of signals in each data record
	Signals            []Signal // Details of each signal
}

// Signal represents the characteristics of each signal in the file.
type Signal struct {
	Label             string  // Label of the signal (e.g., EEG Fpz-Cz)
	TransducerType    string  // Type of transducer used
	PhysicalDimension string  // Physical dimension (e.g., uV, mV)
	PhysicalMin       float64 // Minimum physical value
	PhysicalMax       float64 // Maximum physical value
	DigitalMin        int     // Minimum digital value
	DigitalMax        int     // Maximum digital value
	Prefiltering      string  // Pre-filtering information
	SamplesPerRecord  int     // Number of samples in each data record for this signal
	Reserved          string  // Reserved for future use
}

// IsAnnotation reports whether the signal carries a TAL annotation stream.
func (s Signal) IsAnnotation() bool {
	return strings.Contains(strings.ToLower(s.Label), "annotations")
}

// AnnotationSignals returns the indices of all annotation signals.
func (h *Header) AnnotationSignals() []int {
	var idx []int
	for i, sig := range h.Signals {
		if sig.IsAnnotation() {
			idx = append(idx, i)
		}
	}
	return idx
}

// Continuous reports whether the reserved field marks an EDF+C/BDF+C file.
func (h *Header) Continuous() bool {
	return strings.HasSuffix(strings.TrimSpace(h.Reserved), "+C")
}

// RecordSize returns the size in bytes of a single data record.
func (h *Header) RecordSize() int {
	size := 0
	for _, sig := range h.Signals {
		size += sig.SamplesPerRecord * h.Format.SampleBytes
	}
	return size
}

// RecordDuration returns the data record duration as a time.Duration.
func (h *Header) RecordDuration() time.Duration {
	return time.Duration(h.DataRecordDuration * float64(time.Second))
}

// Start parses the start date and time fields. Two digit years are clipped to
// 1985-2084 as EDF requires.
func (h *Header) Start() (time.Time, error) {
	startDate, err := time.Parse("02.01.06", strings.TrimSpace(h.StartDate))
	if err != nil {
		return time.Time{}, fmt.Errorf("error parsing start date: %w", err)
	}
	startTime, err := time.Parse("15.04.05", strings.TrimSpace(h.StartTime))
	if err != nil {
		return time.Time{}, fmt.Errorf("error parsing start time: %w", err)
	}

	year := startDate.Year()%100 + 1900
	if year < 1985 {
		year += 100
	}

	return time.Date(year, startDate.Month(), startDate.Day(),
		startTime.Hour(), startTime.Minute(), startTime.Second(), 0, time.UTC), nil
}

// AnnotationEvent is a discrete event attached to a recording.
type AnnotationEvent struct {
	Onset    float64 // Seconds relative to the recording start
	Duration float64 // Seconds, 0 for a point event
	Text     string  // Free text description
}

// Recording is a decoded multichannel recording. All channels share a single
// sampling rate and have the same number of samples.
type Recording struct {
	Channels    []string          // Channel labels
	SampleRate  float64           // Sampling rate in Hz
	Data        [][]float64       // Physical samples, indexed [channel][sample]
	Annotations []AnnotationEvent // Discrete events, unordered
}

// NumSamples returns the per-channel sample count.
func (r *Recording) NumSamples() int {
	if len(r.Data) == 0 {
		return 0
	}
	return len(r.Data[0])
}

// Duration returns the recording length in seconds.
func (r *Recording) Duration() float64 {
	if r.SampleRate <= 0 {
		return 0
	}
	return float64(r.NumSamples()) / r.SampleRate
}

// Validate checks the invariants a recording must satisfy before it can be
// written.
func (r *Recording) Validate() error {
	if len(r.Channels) == 0 {
		return fmt.Errorf("%w: recording has no channels", ErrValidation)
	}
	if len(r.Channels) != len(r.Data) {
		return fmt.Errorf("%w: %d channel names but %d data rows", ErrValidation, len(r.Channels), len(r.Data))
	}
	for _, name := range r.Channels {
		if (Signal{Label: name}).IsAnnotation() {
			return fmt.Errorf("%w: channel %q would be read back as an annotation signal, rename it", ErrValidation, name)
		}
	}
	if !(r.SampleRate > 0) {
		return fmt.Errorf("%w: sampling rate must be positive, got %g", ErrValidation, r.SampleRate)
	}
	n := len(r.Data[0])
	if n == 0 {
		return fmt.Errorf("%w: recording has no samples", ErrValidation)
	}
	for i, row := range r.Data {
		if len(row) != n {
			return fmt.Errorf("%w: channel %q has %d samples, expected %d", ErrValidation, r.Channels[i], len(row), n)
		}
	}
	return nil
}
