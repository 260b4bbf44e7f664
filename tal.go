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
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Time-stamped Annotation List (TAL) delimiters.
const (
	talFieldSep    = 0x14
	talDurationSep = 0x15
)

// ParseTALRecord decodes the annotation signal bytes of one data record. The
// timekeeping entry and any other entry without text yields no events.
// Entries with an unparsable onset are skipped. The result is sorted by onset,
// duration and text, all ascending.
func ParseTALRecord(b []byte) []AnnotationEvent {
	events, _, _ := parseTAL(b)
	return events
}

// parseTAL decodes a TAL record, additionally returning the onset of the first
// entry (the record's timekeeping onset) and the number of skipped entries.
func parseTAL(b []byte) (events []AnnotationEvent, recordOnset *float64, skipped int) {
	end := bytes.LastIndexByte(b, talFieldSep)
	if end < 0 {
		return nil, nil, 0
	}
	b = b[:end+1]

	var starts []int
	for i, c := range b {
		if c != '+' && c != '-' {
			continue
		}
		if i == 0 || b[i-1] == talFieldSep || b[i-1] == 0x00 {
			starts = append(starts, i)
		}
	}

	for n, start := range starts {
		stop := len(b)
		if n+1 < len(starts) {
			stop = starts[n+1]
		}

		fields := strings.Split(string(b[start:stop]), string(rune(talFieldSep)))
		onsetField, durationField, hasDuration := strings.Cut(fields[0], string(rune(talDurationSep)))

		onset, err := strconv.ParseFloat(strings.TrimPrefix(onsetField, "+"), 64)
		if err != nil || math.IsNaN(onset) || math.IsInf(onset, 0) {
			skipped++
			continue
		}
		if recordOnset == nil {
			recordOnset = &onset
		}

		var duration float64
		if hasDuration {
			if d, err := strconv.ParseFloat(durationField, 64); err == nil && d > 0 && !math.IsInf(d, 0) {
				duration = d
			}
		}

		for _, text := range fields[1:] {
			text = strings.TrimRight(text, "\x00")
			if text == "" {
				continue
			}
			events = append(events, AnnotationEvent{Onset: onset, Duration: duration, Text: text})
		}
	}

	slices.SortStableFunc(events, compareTAL)
	return events, recordOnset, skipped
}

// compareTAL orders by onset, duration and text, all ascending.
func compareTAL(a, b AnnotationEvent) int {
	if c := cmp.Compare(a.Onset, b.Onset); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Duration, b.Duration); c != 0 {
		return c
	}
	return strings.Compare(a.Text, b.Text)
}

// BuildTALRecord encodes a timekeeping entry at recordOnset followed by the
// given events. When budget is positive the result is zero padded to exactly
// budget bytes, and an *AnnotationOverflowError is returned if the encoded
// entries do not fit.
func BuildTALRecord(recordOnset float64, events []AnnotationEvent, budget int) ([]byte, error) {
	b := appendTAL(nil, recordOnset, events)
	if budget <= 0 {
		return b, nil
	}
	if len(b) > budget {
		return nil, &AnnotationOverflowError{Record: -1, Required: len(b), Available: budget}
	}
	out := make([]byte, budget)
	copy(out, b)
	return out, nil
}

// talSize returns the encoded size of a TAL record without padding.
func talSize(recordOnset float64, events []AnnotationEvent) int {
	return len(appendTAL(nil, recordOnset, events))
}

func appendTAL(b []byte, recordOnset float64, events []AnnotationEvent) []byte {
	b = appendOnset(b, recordOnset)
	b = append(b, talFieldSep, talFieldSep)

	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, compareTAL)

	for _, ev := range sorted {
		text := sanitizeTALText(ev.Text)
		if text == "" {
			continue
		}
		b = appendOnset(b, ev.Onset)
		if ev.Duration > 0 {
			b = append(b, talDurationSep)
			b = append(b, formatTALNumber(ev.Duration)...)
		}
		b = append(b, talFieldSep)
		b = append(b, text...)
		b = append(b, talFieldSep)
	}
	return b
}

func appendOnset(b []byte, onset float64) []byte {
	s := formatTALNumber(onset)
	if !strings.HasPrefix(s, "-") {
		b = append(b, '+')
	}
	return append(b, s...)
}

// formatTALNumber formats v with at most six decimals, stripping trailing
// zeros and a trailing decimal point.
func formatTALNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', 6, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		s = "0"
	}
	return s
}

// sanitizeTALText replaces control bytes and TAL delimiters with spaces and
// non-ASCII bytes with '?', then trims surrounding whitespace.
func sanitizeTALText(text string) string {
	return strings.TrimSpace(asciiText(text))
}
