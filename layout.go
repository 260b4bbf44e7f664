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
	"math"
	"strconv"
)

const (
	// maxRecordBytes caps the size of a single data record.
	maxRecordBytes = 15 * 1024 * 1024

	minAnnotationSamples      = 80
	annotationSampleAlignment = 16
)

// recordLayout describes how a recording is divided into data records.
type recordLayout struct {
	duration          float64 // Seconds per data record
	samplesPerRecord  int     // Data samples per signal per record
	numRecords        int
	annotationSamples int // Samples per record in the annotation signal, 0 if absent
}

// planLayout divides n samples at fs Hz into data records of the requested
// duration. A non-positive duration yields a single record holding every
// sample.
func planLayout(n int, fs, duration float64) (recordLayout, error) {
	if duration <= 0 {
		return recordLayout{
			duration:         float64(n) / fs,
			samplesPerRecord: n,
			numRecords:       1,
		}, nil
	}

	exact := fs * duration
	spr := math.Round(exact)
	if math.Abs(exact-spr) > 1e-6 || spr < 1 {
		return recordLayout{}, fmt.Errorf("%w: record duration %gs at %g Hz is not a whole number of samples (%g)",
			ErrConfig, duration, fs, exact)
	}

	samplesPerRecord := int(spr)
	return recordLayout{
		duration:         duration,
		samplesPerRecord: samplesPerRecord,
		numRecords:       (n + samplesPerRecord - 1) / samplesPerRecord,
	}, nil
}

// recordBytes returns the size in bytes of one data record.
func (l recordLayout) recordBytes(channels int, format Format) int {
	return (channels*l.samplesPerRecord + l.annotationSamples) * format.SampleBytes
}

// checkSize rejects layouts whose data records are too large.
func (l recordLayout) checkSize(channels int, format Format) error {
	if size := l.recordBytes(channels, format); size > maxRecordBytes {
		return fmt.Errorf("%w: data record too large: %d bytes, max is %d bytes", ErrConfig, size, maxRecordBytes)
	}
	return nil
}

// storedRate returns the sampling rate a reader recovers once the record
// duration has been written to its eight character header field.
func (l recordLayout) storedRate() float64 {
	duration, err := strconv.ParseFloat(formatHeaderNumber(l.duration, recordDurationWidth), 64)
	if err != nil || duration <= 0 {
		return 0
	}
	return sampleRate(l.samplesPerRecord, duration)
}

// recordOnset returns the start time of record i in seconds.
func (l recordLayout) recordOnset(i int) float64 {
	return float64(i) * l.duration
}

// eventsByRecord assigns each event to the record its onset falls in. Events
// before the start go to the first record and events past the end go to the
// last.
func (l recordLayout) eventsByRecord(events []AnnotationEvent) [][]AnnotationEvent {
	buckets := make([][]AnnotationEvent, l.numRecords)
	for _, ev := range events {
		i := 0
		if l.numRecords > 1 {
			i = int(math.Floor(ev.Onset / l.duration))
			i = max(0, min(i, l.numRecords-1))
		}
		buckets[i] = append(buckets[i], ev)
	}
	return buckets
}

// planAnnotationSamples sizes the annotation signal. With override > 0 the
// override is used as is and every record must fit in it; otherwise the
// largest record requirement is rounded up to the minimum and alignment.
func planAnnotationSamples(l recordLayout, buckets [][]AnnotationEvent, format Format, override int) (int, error) {
	required := 0
	worstRecord := 0
	for i, events := range buckets {
		if size := talSize(l.recordOnset(i), events); size > required {
			required = size
			worstRecord = i
		}
	}

	if override > 0 {
		if available := override * format.SampleBytes; required > available {
			return 0, &AnnotationOverflowError{Record: worstRecord, Required: required, Available: available}
		}
		return override, nil
	}

	samples := (required + format.SampleBytes - 1) / format.SampleBytes
	samples = max(samples, minAnnotationSamples)
	samples = (samples + annotationSampleAlignment - 1) / annotationSampleAlignment * annotationSampleAlignment
	return samples, nil
}

// inferRecordCount derives the number of complete data records from the file
// size when the header does not state it.
func inferRecordCount(fileSize int64, headerBytes, recordBytes int) int {
	if recordBytes <= 0 || fileSize <= int64(headerBytes) {
		return 0
	}
	return int((fileSize - int64(headerBytes)) / int64(recordBytes))
}
