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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanLayout(t *testing.T) {
	t.Run("SingleRecord", func(t *testing.T) {
		l, err := planLayout(1000, 256, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, l.numRecords)
		assert.Equal(t, 1000, l.samplesPerRecord)
		assert.Equal(t, 1000.0/256, l.duration)
	})

	t.Run("Padded", func(t *testing.T) {
		l, err := planLayout(1000, 256, 1)
		require.NoError(t, err)
		assert.Equal(t, 4, l.numRecords)
		assert.Equal(t, 256, l.samplesPerRecord)
		assert.Equal(t, 1.0, l.duration)
	})

	t.Run("Exact", func(t *testing.T) {
		l, err := planLayout(1024, 256, 0.5)
		require.NoError(t, err)
		assert.Equal(t, 8, l.numRecords)
		assert.Equal(t, 128, l.samplesPerRecord)
	})

	t.Run("NonIntegral", func(t *testing.T) {
		_, err := planLayout(100, 256, 0.3)
		require.ErrorIs(t, err, ErrConfig)
	})

	t.Run("TooShort", func(t *testing.T) {
		_, err := planLayout(100, 10, 0.01)
		require.ErrorIs(t, err, ErrConfig)
	})
}

func TestStoredRate(t *testing.T) {
	l, err := planLayout(3, 256, 0)
	require.NoError(t, err)
	assert.Equal(t, 256.0, l.storedRate())

	// Two samples at 2047 Hz share their header duration with 2048 Hz.
	l, err = planLayout(2, 2047, 0)
	require.NoError(t, err)
	assert.Equal(t, 2048.0, l.storedRate())
}

func TestRecordSizeLimit(t *testing.T) {
	l := recordLayout{duration: 1, samplesPerRecord: 1_000_000, numRecords: 1}
	require.ErrorIs(t, l.checkSize(8, EDF), ErrConfig)
	require.NoError(t, l.checkSize(7, EDF))
}

func TestEventsByRecord(t *testing.T) {
	l := recordLayout{duration: 1, samplesPerRecord: 256, numRecords: 4}

	buckets := l.eventsByRecord([]AnnotationEvent{
		{Onset: -1, Text: "early"},
		{Onset: 1, Text: "one"},
		{Onset: 3.5, Text: "three"},
		{Onset: 10, Text: "late"},
	})

	require.Len(t, buckets, 4)
	assert.Equal(t, "early", buckets[0][0].Text)
	assert.Equal(t, "one", buckets[1][0].Text)
	assert.Empty(t, buckets[2])
	require.Len(t, buckets[3], 2)
	assert.Equal(t, "three", buckets[3][0].Text)
	assert.Equal(t, "late", buckets[3][1].Text)
}

func TestPlanAnnotationSamples(t *testing.T) {
	l := recordLayout{duration: 1, samplesPerRecord: 256, numRecords: 2}

	t.Run("MinimumFloor", func(t *testing.T) {
		samples, err := planAnnotationSamples(l, l.eventsByRecord(nil), EDF, 0)
		require.NoError(t, err)
		assert.Equal(t, 80, samples)
	})

	t.Run("Aligned", func(t *testing.T) {
		events := []AnnotationEvent{{Onset: 1, Text: strings.Repeat("x", 300)}}
		// "+1" 0x14 text 0x14 after the "+1" 0x14 0x14 timekeeping entry.
		require.Equal(t, 308, talSize(1, events))

		samples, err := planAnnotationSamples(l, l.eventsByRecord(events), EDF, 0)
		require.NoError(t, err)
		assert.Equal(t, 160, samples)

		samples, err = planAnnotationSamples(l, l.eventsByRecord(events), BDF, 0)
		require.NoError(t, err)
		assert.Equal(t, 112, samples)
	})

	t.Run("Override", func(t *testing.T) {
		events := []AnnotationEvent{{Onset: 1, Text: "Arousal"}}
		samples, err := planAnnotationSamples(l, l.eventsByRecord(events), EDF, 12)
		require.NoError(t, err)
		assert.Equal(t, 12, samples)
	})

	t.Run("OverrideTooSmall", func(t *testing.T) {
		events := []AnnotationEvent{{Onset: 1, Text: strings.Repeat("x", 300)}}
		_, err := planAnnotationSamples(l, l.eventsByRecord(events), EDF, 10)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrAnnotationOverflow))

		var overflow *AnnotationOverflowError
		require.ErrorAs(t, err, &overflow)
		assert.Equal(t, 1, overflow.Record)
		assert.Equal(t, 308, overflow.Required)
		assert.Equal(t, 20, overflow.Available)
		assert.Contains(t, err.Error(), "annotation_samples_per_record too small for events")
	})
}

func TestInferRecordCount(t *testing.T) {
	assert.Equal(t, 10, inferRecordCount(768+1000+50, 768, 100))
	assert.Equal(t, 0, inferRecordCount(500, 768, 100))
	assert.Equal(t, 0, inferRecordCount(2000, 768, 0))
}
