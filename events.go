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
	"cmp"
	"math"
	"slices"
	"strings"
)

// quantize rounds a time in seconds to the nearest microsecond.
func quantize(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// NormalizeEvents returns the canonical form of a list of events: text is
// trimmed, onset and duration are quantized to microseconds, negative
// durations become point events, and events with empty text or a non-finite
// onset are dropped. The result is sorted with SortEvents. The input is not
// modified.
func NormalizeEvents(events []AnnotationEvent) []AnnotationEvent {
	out := make([]AnnotationEvent, 0, len(events))
	for _, ev := range events {
		text := strings.TrimSpace(ev.Text)
		if text == "" || math.IsNaN(ev.Onset) || math.IsInf(ev.Onset, 0) {
			continue
		}
		duration := ev.Duration
		if !(duration > 0) || math.IsInf(duration, 0) {
			duration = 0
		}
		out = append(out, AnnotationEvent{
			Onset:    quantize(ev.Onset),
			Duration: quantize(duration),
			Text:     text,
		})
	}
	SortEvents(out)
	return out
}

// compareEvents orders by onset ascending, then duration descending, then
// text ascending.
func compareEvents(a, b AnnotationEvent) int {
	if c := cmp.Compare(a.Onset, b.Onset); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Duration, a.Duration); c != 0 {
		return c
	}
	return strings.Compare(a.Text, b.Text)
}

// SortEvents sorts events in place by onset ascending, then duration
// descending (longer events first), then text ascending. The sort is stable.
func SortEvents(events []AnnotationEvent) {
	slices.SortStableFunc(events, compareEvents)
}

// DeduplicateEvents normalizes events and removes duplicates. Two events are
// duplicates when their microsecond-quantized onset and duration and their
// trimmed text are equal.
func DeduplicateEvents(events []AnnotationEvent) []AnnotationEvent {
	out := NormalizeEvents(events)
	return slices.Compact(out)
}

// MergeEvents combines several event lists into a single deduplicated,
// sorted list.
func MergeEvents(lists ...[]AnnotationEvent) []AnnotationEvent {
	var all []AnnotationEvent
	for _, events := range lists {
		all = append(all, events...)
	}
	return DeduplicateEvents(all)
}

// ShiftEvents returns a copy of events with offset seconds added to every
// onset.
func ShiftEvents(events []AnnotationEvent, offset float64) []AnnotationEvent {
	out := make([]AnnotationEvent, len(events))
	for i, ev := range events {
		ev.Onset += offset
		out[i] = ev
	}
	return out
}
