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
	"math"
	"strconv"
	"strings"
)

const (
	commonHeaderBytes = 256
	signalHeaderBytes = 256

	// recordDurationWidth is the width of the data record duration field.
	recordDurationWidth = 8
)

// ParseHeader parses a complete EDF/BDF header. b must contain at least the
// 256 byte common block and the per-signal block that follows it.
func ParseHeader(b []byte) (*Header, error) {
	return readHeader(bytes.NewReader(b))
}

func readHeader(r io.Reader) (*Header, error) {
	b := make([]byte, commonHeaderBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("%w: error reading header: %w", ErrFormat, err)
	}

	// Parse fields based on EDF/EDF+ specifications
	hdr := &Header{Format: EDF}
	if b[0] == 0xff {
		hdr.Format = BDF
	}
	hdr.PatientID = strings.TrimSpace(string(b[8:88]))
	hdr.RecordingID = strings.TrimSpace(string(b[88:168]))
	hdr.StartDate = strings.TrimSpace(string(b[168:176]))
	hdr.StartTime = strings.TrimSpace(string(b[176:184]))
	hdr.HeaderBytes = parseInt(b[184:192])
	hdr.Reserved = strings.TrimSpace(string(b[192:236]))

	// A missing or garbled record count is inferred from the file size later.
	numDataRecords, err := strconv.Atoi(strings.TrimSpace(string(b[236:244])))
	if err != nil {
		numDataRecords = -1
	}
	hdr.DataRecords = numDataRecords

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(b[244:252])), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: error parsing data record duration: %w", ErrFormat, err)
	}
	if !(duration > 0) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("%w: data record duration must be positive, got %q", ErrFormat, strings.TrimSpace(string(b[244:252])))
	}
	hdr.DataRecordDuration = duration

	signalCount, err := strconv.Atoi(strings.TrimSpace(string(b[252:256])))
	if err != nil {
		return nil, fmt.Errorf("%w: error parsing signal count: %w", ErrFormat, err)
	}
	if signalCount <= 0 {
		return nil, fmt.Errorf("%w: signal count must be positive, got %d", ErrFormat, signalCount)
	}
	hdr.SignalCount = signalCount

	// Per-signal fields are stored column-major: all labels, then all
	// transducer types, and so on.
	hdr.Signals = make([]Signal, signalCount)

	labels, err := readFields(r, signalCount, 16)
	if err != nil {
		return nil, err
	}
	transducers, err := readFields(r, signalCount, 80)
	if err != nil {
		return nil, err
	}
	dimensions, err := readFields(r, signalCount, 8)
	if err != nil {
		return nil, err
	}
	physicalMins, err := readFields(r, signalCount, 8)
	if err != nil {
		return nil, err
	}
	physicalMaxs, err := readFields(r, signalCount, 8)
	if err != nil {
		return nil, err
	}
	digitalMins, err := readFields(r, signalCount, 8)
	if err != nil {
		return nil, err
	}
	digitalMaxs, err := readFields(r, signalCount, 8)
	if err != nil {
		return nil, err
	}
	prefilterings, err := readFields(r, signalCount, 80)
	if err != nil {
		return nil, err
	}
	samplesPerRecord, err := readFields(r, signalCount, 8)
	if err != nil {
		return nil, err
	}
	reserved, err := readFields(r, signalCount, 32)
	if err != nil {
		return nil, err
	}

	for i := range hdr.Signals {
		sig := &hdr.Signals[i]
		sig.Label = labels[i]
		sig.TransducerType = transducers[i]
		sig.PhysicalDimension = dimensions[i]
		sig.PhysicalMin = parseFloat([]byte(physicalMins[i]))
		sig.PhysicalMax = parseFloat([]byte(physicalMaxs[i]))
		sig.DigitalMin = parseInt([]byte(digitalMins[i]))
		sig.DigitalMax = parseInt([]byte(digitalMaxs[i]))
		sig.Prefiltering = prefilterings[i]
		sig.SamplesPerRecord = parseInt([]byte(samplesPerRecord[i]))
		sig.Reserved = reserved[i]

		if sig.SamplesPerRecord < 0 {
			return nil, fmt.Errorf("%w: signal %d (%s) has negative samples per record", ErrFormat, i, sig.Label)
		}
	}

	return hdr, nil
}

// readFields reads one column of n fixed-width per-signal fields.
func readFields(r io.Reader, n, width int) ([]string, error) {
	b := make([]byte, n*width)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("%w: error reading signal headers: %w", ErrFormat, err)
	}

	fields := make([]string, n)
	for i := range fields {
		fields[i] = strings.TrimSpace(string(b[i*width : (i+1)*width]))
	}
	return fields, nil
}

// MarshalBinary encodes the header. HeaderBytes and SignalCount are updated to
// match the encoded signals.
func (h *Header) MarshalBinary() ([]byte, error) {
	if len(h.Signals) == 0 {
		return nil, fmt.Errorf("%w: header has no signals", ErrValidation)
	}
	if h.SignalCount != 0 && h.SignalCount != len(h.Signals) {
		return nil, fmt.Errorf("%w: signal count %d does not match %d signal descriptors",
			ErrValidation, h.SignalCount, len(h.Signals))
	}
	if h.Format.SampleBytes == 0 {
		h.Format = EDF
	}

	h.SignalCount = len(h.Signals)
	h.HeaderBytes = commonHeaderBytes + h.SignalCount*signalHeaderBytes

	var buf bytes.Buffer
	buf.Grow(h.HeaderBytes)

	// The version field is written verbatim, BDF's leading 0xFF included.
	buf.WriteString(padField(h.Format.Version, 8))
	buf.WriteString(textField(h.PatientID, 80))
	buf.WriteString(textField(h.RecordingID, 80))
	buf.WriteString(textField(h.StartDate, 8))
	buf.WriteString(textField(h.StartTime, 8))
	buf.WriteString(intField(h.HeaderBytes, 8))
	buf.WriteString(textField(h.Reserved, 44))
	buf.WriteString(intField(h.DataRecords, 8))
	buf.WriteString(numberField(h.DataRecordDuration, recordDurationWidth))
	buf.WriteString(intField(h.SignalCount, 4))

	for _, signal := range h.Signals {
		buf.WriteString(textField(signal.Label, 16))
	}
	for _, signal := range h.Signals {
		buf.WriteString(textField(signal.TransducerType, 80))
	}
	for _, signal := range h.Signals {
		buf.WriteString(textField(signal.PhysicalDimension, 8))
	}
	for _, signal := range h.Signals {
		buf.WriteString(numberField(signal.PhysicalMin, 8))
	}
	for _, signal := range h.Signals {
		buf.WriteString(numberField(signal.PhysicalMax, 8))
	}
	for _, signal := range h.Signals {
		buf.WriteString(intField(signal.DigitalMin, 8))
	}
	for _, signal := range h.Signals {
		buf.WriteString(intField(signal.DigitalMax, 8))
	}
	for _, signal := range h.Signals {
		buf.WriteString(textField(signal.Prefiltering, 80))
	}
	for _, signal := range h.Signals {
		buf.WriteString(intField(signal.SamplesPerRecord, 8))
	}
	for _, signal := range h.Signals {
		buf.WriteString(textField(signal.Reserved, 32))
	}

	return buf.Bytes(), nil
}

// padField space pads or truncates s to exactly width bytes.
func padField(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// textField restricts s to printable ASCII before padding it.
func textField(s string, width int) string {
	return padField(asciiText(s), width)
}

func intField(v, width int) string {
	return padField(strconv.Itoa(v), width)
}

func numberField(v float64, width int) string {
	return padField(formatHeaderNumber(v, width), width)
}

// formatHeaderNumber formats v to fit in width characters, reducing the
// number of decimals from six down to zero before falling back to an integer
// that is truncated to fit.
func formatHeaderNumber(v float64, width int) string {
	for decimals := 6; decimals >= 0; decimals-- {
		s := strconv.FormatFloat(v, 'f', decimals, 64)
		if strings.Contains(s, ".") {
			s = strings.TrimRight(s, "0")
			s = strings.TrimSuffix(s, ".")
		}
		if s == "-0" {
			s = "0"
		}
		if len(s) <= width {
			return s
		}
	}

	s := strconv.FormatInt(int64(math.Round(v)), 10)
	if len(s) > width {
		s = s[:width]
	}
	return s
}

func parseFloat(b []byte) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	if err != nil {
		return 0.0
	}
	return f
}

func parseInt(b []byte) int {
	i, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		// Some exporters write integral fields with a decimal point.
		f, ferr := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
		if ferr != nil {
			return 0
		}
		return int(math.Round(f))
	}
	return i
}

// asciiText replaces control bytes with a space and every byte outside ASCII
// with '?', so a two byte UTF-8 character becomes "??".
func asciiText(s string) string {
	b := []byte(s)
	for i, c := range b {
		switch {
		case c < 0x20 || c == 0x7f:
			b[i] = ' '
		case c > 0x7f:
			b[i] = '?'
		}
	}
	return string(b)
}
