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
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/OpenPSG/edf/v2/internal/fileio"
)

// Reader reads EDF/EDF+ and BDF/BDF+ files.
type Reader struct {
	r      io.ReadSeeker
	hdr    *Header
	logger *slog.Logger
}

// Open opens an EDF/BDF file for reading. The header is parsed immediately;
// a record count missing from the header is inferred from the file size.
func Open(r io.ReadSeeker, opts ...ReadOption) (*Reader, error) {
	er := &Reader{r: r, logger: discardLogger()}
	for _, opt := range opts {
		opt(er)
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("error seeking to header: %w", err)
	}

	hdr, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	headerBytes := commonHeaderBytes + hdr.SignalCount*signalHeaderBytes
	if hdr.HeaderBytes != headerBytes {
		er.logger.Warn("header byte count does not match signal count",
			slog.Int("declared", hdr.HeaderBytes), slog.Int("actual", headerBytes))
		hdr.HeaderBytes = headerBytes
	}

	fileSize, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("error seeking to end of file: %w", err)
	}

	available := inferRecordCount(fileSize, hdr.HeaderBytes, hdr.RecordSize())
	switch {
	case hdr.DataRecords <= 0:
		er.logger.Warn("number of data records unknown, inferring from file size",
			slog.Int("records", available))
		hdr.DataRecords = available
	case hdr.DataRecords > available:
		er.logger.Warn("file is truncated, reading complete data records only",
			slog.Int("declared", hdr.DataRecords), slog.Int("available", available))
		hdr.DataRecords = available
	}

	er.logger.Debug("parsed header",
		slog.String("format", hdr.Format.Name),
		slog.Int("signals", hdr.SignalCount),
		slog.Int("records", hdr.DataRecords),
		slog.Float64("record_duration", hdr.DataRecordDuration))

	er.hdr = hdr
	return er, nil
}

// Header returns the parsed file header.
func (er *Reader) Header() *Header {
	return er.hdr
}

// ReadRecording decodes every data record into a Recording. Annotation
// signals are excluded from the channels and decoded into events, and
// channels sampled below the fastest channel are sample-and-hold resampled to
// its rate.
func (er *Reader) ReadRecording() (*Recording, error) {
	hdr := er.hdr
	width := hdr.Format.SampleBytes
	recordSize := hdr.RecordSize()

	if _, err := er.r.Seek(int64(hdr.HeaderBytes), io.SeekStart); err != nil {
		return nil, fmt.Errorf("error seeking to data records: %w", err)
	}

	buf := make([]byte, hdr.DataRecords*recordSize)
	if _, err := io.ReadFull(er.r, buf); err != nil {
		return nil, fmt.Errorf("%w: error reading data records: %w", ErrFormat, err)
	}

	rec := &Recording{}
	var (
		scalings         []scaling
		samplesPerRecord []int
	)
	for _, sig := range hdr.Signals {
		if sig.IsAnnotation() {
			continue
		}
		rec.Channels = append(rec.Channels, sig.Label)
		scalings = append(scalings, newScaling(sig))
		samplesPerRecord = append(samplesPerRecord, sig.SamplesPerRecord)
	}

	data := make([][]float64, len(rec.Channels))
	for i := range data {
		data[i] = make([]float64, 0, samplesPerRecord[i]*hdr.DataRecords)
	}

	var (
		events   []AnnotationEvent
		startsAt *float64
		skipped  int
	)
	for n := 0; n < hdr.DataRecords; n++ {
		offset := n * recordSize
		channel := 0
		for _, sig := range hdr.Signals {
			chunk := buf[offset : offset+sig.SamplesPerRecord*width]
			offset += len(chunk)

			if sig.IsAnnotation() {
				recordEvents, recordOnset, recordSkipped := parseTAL(chunk)
				if n == 0 && startsAt == nil {
					startsAt = recordOnset
				}
				events = append(events, recordEvents...)
				skipped += recordSkipped
				continue
			}

			data[channel] = decodeSamples(data[channel], chunk, width, scalings[channel])
			channel++
		}
	}

	if skipped > 0 {
		er.logger.Warn("skipped unparsable annotation entries", slog.Int("count", skipped))
	}

	// Onsets are relative to the header start time; make them relative to
	// the first sample instead.
	if startsAt != nil && *startsAt != 0 {
		er.logger.Debug("shifting annotations by first record onset", slog.Float64("onset", *startsAt))
		events = ShiftEvents(events, -*startsAt)
	}
	slices.SortStableFunc(events, compareTAL)
	rec.Annotations = events

	if len(data) > 0 {
		reconciled, target := reconcileRates(data, samplesPerRecord, hdr.DataRecords)
		for i, spr := range samplesPerRecord {
			if spr != target {
				er.logger.Info("resampled channel to common rate",
					slog.String("channel", rec.Channels[i]),
					slog.Float64("from_hz", sampleRate(spr, hdr.DataRecordDuration)),
					slog.Float64("to_hz", sampleRate(target, hdr.DataRecordDuration)))
			}
		}
		rec.Data = reconciled
		rec.SampleRate = sampleRate(target, hdr.DataRecordDuration)
	}

	return rec, nil
}

// ReadFile reads a whole EDF/BDF file, transparently decompressing .gz, .zst
// and .lz4 files.
func ReadFile(path string, opts ...ReadOption) (*Recording, *Header, error) {
	b, err := fileio.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	er, err := Open(bytes.NewReader(b), opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening %s: %w", path, err)
	}

	rec, err := er.ReadRecording()
	if err != nil {
		return nil, nil, fmt.Errorf("error reading %s: %w", path, err)
	}

	return rec, er.Header(), nil
}

// SignalReader reads continuous signal data from an EDF/BDF file.
type SignalReader struct {
	r                io.ReadSeeker
	hdr              *Header
	scaling          scaling
	currentRecord    int // Current record being processed
	currentSample    int // Current sample in the record
	recordSize       int // Total size of one data record
	signalOffset     int // Byte offset of the signal in a record
	samplesPerRecord int // Number of samples per record for the signal
}

// Signal creates a new SignalReader for a specified signal index.
func (er *Reader) Signal(signalIndex int) (*SignalReader, error) {
	if signalIndex < 0 || signalIndex >= len(er.hdr.Signals) {
		return nil, fmt.Errorf("signal index out of range")
	}

	width := er.hdr.Format.SampleBytes
	signal := er.hdr.Signals[signalIndex]
	signalOffset := 0
	for _, sig := range er.hdr.Signals[:signalIndex] {
		signalOffset += sig.SamplesPerRecord * width
	}

	return &SignalReader{
		r:                er.r,
		hdr:              er.hdr,
		scaling:          newScaling(signal),
		recordSize:       er.hdr.RecordSize(),
		signalOffset:     signalOffset,
		samplesPerRecord: signal.SamplesPerRecord,
	}, nil
}

// Read fills the provided float64 slice with the physical values from the signal.
func (sr *SignalReader) Read(data []float64) (int, error) {
	width := sr.hdr.Format.SampleBytes

	n := 0
	for n < len(data) {
		if sr.currentRecord >= sr.hdr.DataRecords || sr.samplesPerRecord == 0 {
			return n, io.EOF // End of data records
		}

		// Read as much of the current record's samples as fits in data.
		count := min(sr.samplesPerRecord-sr.currentSample, len(data)-n)
		pos := int64(sr.hdr.HeaderBytes) + int64(sr.currentRecord)*int64(sr.recordSize) +
			int64(sr.signalOffset) + int64(sr.currentSample*width)
		if _, err := sr.r.Seek(pos, io.SeekStart); err != nil {
			return n, fmt.Errorf("error seeking to position: %w", err)
		}

		buf := make([]byte, count*width)
		if _, err := io.ReadFull(sr.r, buf); err != nil {
			return n, fmt.Errorf("error reading sample data: %w", err)
		}
		decodeSamples(data[n:n], buf, width, sr.scaling)

		n += count

		// Move to the next sample
		sr.currentSample += count
		if sr.currentSample >= sr.samplesPerRecord {
			sr.currentSample = 0
			sr.currentRecord++
		}
	}

	return n, nil
}
