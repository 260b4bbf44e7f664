// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf_test

import (
	"math"
	"testing"

	"github.com/OpenPSG/edf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortEvents(t *testing.T) {
	events := []edf.AnnotationEvent{
		{Onset: 1, Text: "b"},
		{Onset: 1, Duration: 2, Text: "a"},
		{Onset: 0, Text: "z"},
		{Onset: 1, Text: "a"},
	}

	edf.SortEvents(events)

	assert.Equal(t, []edf.AnnotationEvent{
		{Onset: 0, Text: "z"},
		{Onset: 1, Duration: 2, Text: "a"},
		{Onset: 1, Text: "a"},
		{Onset: 1, Text: "b"},
	}, events)
}

func TestNormalizeEvents(t *testing.T) {
	events := []edf.AnnotationEvent{
		{Onset: 2.0000004, Duration: -1, Text: "  Spindle "},
		{Onset: 1, Text: "   "},
		{Onset: math.NaN(), Text: "bad"},
		{Onset: 0.5, Duration: 1.25, Text: "K-complex"},
	}

	got := edf.NormalizeEvents(events)

	assert.Equal(t, []edf.AnnotationEvent{
		{Onset: 0.5, Duration: 1.25, Text: "K-complex"},
		{Onset: 2, Duration: 0, Text: "Spindle"},
	}, got)

	// The input is left untouched.
	assert.Equal(t, "  Spindle ", events[0].Text)
}

func TestDeduplicateEvents(t *testing.T) {
	events := []edf.AnnotationEvent{
		{Onset: 1.0000001, Text: " A "},
		{Onset: 1.0, Text: "A"},
		{Onset: 1.0, Duration: 0.5, Text: "A"},
		{Onset: 3, Text: "B"},
		{Onset: 3, Text: "B"},
	}

	got := edf.DeduplicateEvents(events)

	assert.Equal(t, []edf.AnnotationEvent{
		{Onset: 1, Duration: 0.5, Text: "A"},
		{Onset: 1, Text: "A"},
		{Onset: 3, Text: "B"},
	}, got)
}

func TestEventUtilitiesIdempotent(t *testing.T) {
	events := []edf.AnnotationEvent{
		{Onset: 5, Text: "x"},
		{Onset: 5.0000002, Text: "x "},
		{Onset: -1, Duration: 2, Text: "pre"},
		{Onset: 4, Text: ""},
		{Onset: 4, Duration: -3, Text: "neg"},
	}

	assert.Equal(t,
		edf.DeduplicateEvents(edf.NormalizeEvents(events)),
		edf.DeduplicateEvents(edf.DeduplicateEvents(events)))

	normalized := edf.NormalizeEvents(events)
	assert.Equal(t, normalized, edf.NormalizeEvents(normalized))
}

func TestMergeEvents(t *testing.T) {
	a := []edf.AnnotationEvent{{Onset: 2, Text: "Apnea"}, {Onset: 1, Text: "Arousal"}}
	b := []edf.AnnotationEvent{{Onset: 2, Text: "Apnea"}, {Onset: 0, Text: "Start"}}

	merged := edf.MergeEvents(a, b)
	require.Len(t, merged, 3)
	assert.Equal(t, "Start", merged[0].Text)
	assert.Equal(t, "Arousal", merged[1].Text)
	assert.Equal(t, "Apnea", merged[2].Text)
}

func TestShiftEvents(t *testing.T) {
	events := []edf.AnnotationEvent{{Onset: 1.5, Duration: 1, Text: "a"}}

	shifted := edf.ShiftEvents(events, -0.5)

	assert.Equal(t, 1.0, shifted[0].Onset)
	assert.Equal(t, 1.5, events[0].Onset)
}
