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
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/OpenPSG/edf/v2/internal/fileio"
)

// Writer writes EDF/BDF files one data record at a time.
type Writer struct {
	w           io.Writer
	hdr         *Header
	scalings    []scaling
	recordSize  int
	dataRecords int  // Number of data records written so far.
	patchCount  bool // Rewrite the record count on Close.
	clamped     int  // Samples clamped to the digital range so far.
}

// Create creates a new writer and writes the header. If hdr.DataRecords is
// not positive the count is written as -1 and, when w is an io.WriteSeeker,
// patched with the actual count on Close.
func Create(w io.Writer, hdr Header) (*Writer, error) {
	if hdr.Format.SampleBytes == 0 {
		hdr.Format = EDF
	}
	hdr.Signals = append([]Signal(nil), hdr.Signals...)

	ew := &Writer{w: w, hdr: &hdr}
	if hdr.DataRecords <= 0 {
		hdr.DataRecords = -1 // Unknown number of data records (at this time).
		_, ew.patchCount = w.(io.WriteSeeker)
	}

	ew.recordSize = hdr.RecordSize()
	if ew.recordSize > maxRecordBytes {
		return nil, fmt.Errorf("%w: data record too large: %d bytes, max is %d bytes", ErrConfig, ew.recordSize, maxRecordBytes)
	}
	for _, sig := range hdr.Signals {
		ew.scalings = append(ew.scalings, newScaling(sig))
	}

	// Write the initial header
	if err := ew.writeHeader(); err != nil {
		return nil, fmt.Errorf("error writing header: %w", err)
	}

	return ew, nil
}

// Close finalizes the file by updating the header with the total number of
// data records, if it was not known up front.
func (ew *Writer) Close() error {
	if !ew.patchCount {
		return nil
	}

	ws := ew.w.(io.WriteSeeker)
	if _, err := ws.Seek(0, io.SeekStart); err != nil {
		return err
	}

	// Finalize the header with the actual number of data records
	ew.hdr.DataRecords = ew.dataRecords
	if err := ew.writeHeader(); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	_, err := ws.Seek(0, io.SeekEnd)
	return err
}

// Clamped returns the number of samples written so far that fell outside
// their signal's physical range and were clamped.
func (ew *Writer) Clamped() int {
	return ew.clamped
}

// WriteRecord writes a single data record. signals holds the physical samples
// of each data signal, in header order with annotation signals skipped. A
// signal with fewer samples than its SamplesPerRecord is zero padded.
// annotations is the TAL payload of the first annotation signal and is zero
// padded to the signal's size.
func (ew *Writer) WriteRecord(signals [][]float64, annotations []byte) error {
	width := ew.hdr.Format.SampleBytes
	record := make([]byte, ew.recordSize)

	offset := 0
	next := 0
	annotated := false
	for i, sig := range ew.hdr.Signals {
		size := sig.SamplesPerRecord * width
		chunk := record[offset : offset+size]
		offset += size

		if sig.IsAnnotation() {
			if !annotated {
				if len(annotations) > size {
					return &AnnotationOverflowError{Record: ew.dataRecords, Required: len(annotations), Available: size}
				}
				copy(chunk, annotations)
				annotated = true
			}
			continue
		}

		if next >= len(signals) {
			return fmt.Errorf("%w: expected samples for signal %q, got %d signals", ErrValidation, sig.Label, len(signals))
		}
		samples := signals[next]
		next++
		if len(samples) > sig.SamplesPerRecord {
			return fmt.Errorf("%w: signal %q has %d samples, record holds %d",
				ErrValidation, sig.Label, len(samples), sig.SamplesPerRecord)
		}

		for j, sample := range samples {
			digital, clamped := ew.scalings[i].digital(sample)
			if clamped {
				ew.clamped++
			}
			packSample(chunk[j*width:(j+1)*width], digital)
		}
	}

	if next != len(signals) {
		return fmt.Errorf("%w: expected %d signals, got %d", ErrValidation, next, len(signals))
	}
	if len(annotations) > 0 && !annotated {
		return fmt.Errorf("%w: annotations given but header has no annotation signal", ErrValidation)
	}

	if _, err := ew.w.Write(record); err != nil {
		return err
	}

	ew.dataRecords++
	return nil
}

func (ew *Writer) writeHeader() error {
	b, err := ew.hdr.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = ew.w.Write(b)
	return err
}

// Write encodes a whole recording in the given format.
func Write(w io.Writer, rec *Recording, format Format, opts WriterOptions) error {
	logger := opts.logger()

	if err := rec.Validate(); err != nil {
		return err
	}
	if err := opts.validate(); err != nil {
		return err
	}

	n := rec.NumSamples()
	layout, err := planLayout(n, rec.SampleRate, opts.RecordDuration)
	if err != nil {
		return err
	}

	if stored := layout.storedRate(); stored != rec.SampleRate {
		logger.Warn("sampling rate is not exactly representable in the header, set a record duration",
			slog.Float64("rate", rec.SampleRate),
			slog.Float64("stored_rate", stored),
			slog.Float64("record_duration", layout.duration))
	}

	var buckets [][]AnnotationEvent
	if opts.Annotations {
		if events := NormalizeEvents(rec.Annotations); len(events) > 0 {
			buckets = layout.eventsByRecord(events)
			layout.annotationSamples, err = planAnnotationSamples(layout, buckets, format, opts.AnnotationSamplesPerRecord)
			if err != nil {
				return err
			}
		}
	}

	if err := layout.checkSize(len(rec.Channels), format); err != nil {
		return err
	}

	logger.Debug("planned record layout",
		slog.String("format", format.Name),
		slog.Int("records", layout.numRecords),
		slog.Int("samples_per_record", layout.samplesPerRecord),
		slog.Float64("record_duration", layout.duration),
		slog.Int("annotation_samples", layout.annotationSamples))

	hdr := Header{
		Format:             format,
		PatientID:          opts.PatientID,
		RecordingID:        opts.RecordingID,
		StartDate:          opts.StartDate,
		StartTime:          opts.StartTime,
		Reserved:           format.PlainReserved,
		DataRecords:        layout.numRecords,
		DataRecordDuration: layout.duration,
	}
	for i, label := range rec.Channels {
		sig, err := dataSignal(label, opts.PhysicalDimension, rec.Data[i], opts.PhysicalPadding, format, layout.samplesPerRecord)
		if err != nil {
			return err
		}
		hdr.Signals = append(hdr.Signals, sig)
	}
	if buckets != nil {
		hdr.Reserved = format.AnnotatedReserved
		hdr.Signals = append(hdr.Signals, annotationSignal(format, layout.annotationSamples))
	}

	ew, err := Create(w, hdr)
	if err != nil {
		return err
	}

	signals := make([][]float64, len(rec.Channels))
	for i := 0; i < layout.numRecords; i++ {
		start := i * layout.samplesPerRecord
		end := min(start+layout.samplesPerRecord, n)
		for c := range signals {
			signals[c] = rec.Data[c][start:end]
		}

		var tal []byte
		if buckets != nil {
			tal, err = BuildTALRecord(layout.recordOnset(i), buckets[i], layout.annotationSamples*format.SampleBytes)
			if err != nil {
				var overflow *AnnotationOverflowError
				if errors.As(err, &overflow) {
					overflow.Record = i
				}
				return err
			}
		}

		if err := ew.WriteRecord(signals, tal); err != nil {
			return fmt.Errorf("error writing data record %d: %w", i, err)
		}
	}

	if ew.Clamped() > 0 {
		logger.Warn("clamped samples outside the physical range", slog.Int("count", ew.Clamped()))
	}

	return ew.Close()
}

// WriteFile writes a recording to path, compressing it when the path ends in
// .gz, .zst or .lz4. A failed write may leave a partial file behind.
func WriteFile(path string, rec *Recording, format Format, opts WriterOptions) error {
	f, err := fileio.Create(path)
	if err != nil {
		return err
	}

	if err := Write(f, rec, format, opts); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}
