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
	"bytes"
	"errors"
	"testing"

	"github.com/OpenPSG/edf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTALRecord(t *testing.T) {
	t.Run("Timekeeping", func(t *testing.T) {
		events := edf.ParseTALRecord([]byte("+0\x14\x14"))
		assert.Empty(t, events)
	})

	t.Run("Single", func(t *testing.T) {
		events := edf.ParseTALRecord([]byte("+12.5\x151.0\x14Stim\x14"))
		require.Len(t, events, 1)
		assert.Equal(t, edf.AnnotationEvent{Onset: 12.5, Duration: 1.0, Text: "Stim"}, events[0])
	})

	t.Run("SharedOnset", func(t *testing.T) {
		events := edf.ParseTALRecord([]byte("+5\x152\x14A\x14B\x14"))
		require.Len(t, events, 2)
		assert.Equal(t, edf.AnnotationEvent{Onset: 5, Duration: 2, Text: "A"}, events[0])
		assert.Equal(t, edf.AnnotationEvent{Onset: 5, Duration: 2, Text: "B"}, events[1])
	})

	t.Run("NullSeparated", func(t *testing.T) {
		events := edf.ParseTALRecord([]byte("+0\x14\x14\x00+3\x14X\x14\x00\x00\x00"))
		require.Len(t, events, 1)
		assert.Equal(t, edf.AnnotationEvent{Onset: 3, Text: "X"}, events[0])
	})

	t.Run("NegativeOnset", func(t *testing.T) {
		events := edf.ParseTALRecord([]byte("+0\x14\x14-1.25\x14Before\x14"))
		require.Len(t, events, 1)
		assert.Equal(t, -1.25, events[0].Onset)
	})

	t.Run("SkipsUnparsableOnset", func(t *testing.T) {
		events := edf.ParseTALRecord([]byte("+0\x14\x14+abc\x14X\x14+4\x14Y\x14"))
		require.Len(t, events, 1)
		assert.Equal(t, edf.AnnotationEvent{Onset: 4, Text: "Y"}, events[0])
	})

	t.Run("LenientDuration", func(t *testing.T) {
		events := edf.ParseTALRecord([]byte("+1\x15zz\x14Q\x14"))
		require.Len(t, events, 1)
		assert.Equal(t, 0.0, events[0].Duration)
	})

	t.Run("NoDelimiter", func(t *testing.T) {
		assert.Empty(t, edf.ParseTALRecord([]byte("+1 garbage")))
		assert.Empty(t, edf.ParseTALRecord(nil))
	})

	t.Run("KeepsBlankText", func(t *testing.T) {
		events := edf.ParseTALRecord([]byte("+0\x14\x14+2\x14 \x14\x14"))
		require.Len(t, events, 1)
		assert.Equal(t, edf.AnnotationEvent{Onset: 2, Text: " "}, events[0])
	})

	t.Run("Sorted", func(t *testing.T) {
		events := edf.ParseTALRecord([]byte("+9\x14Late\x14+2\x153\x14Long\x14+2\x14Point\x14"))
		require.Len(t, events, 3)
		assert.Equal(t, "Point", events[0].Text)
		assert.Equal(t, "Long", events[1].Text)
		assert.Equal(t, "Late", events[2].Text)
	})
}

func TestBuildTALRecord(t *testing.T) {
	t.Run("Format", func(t *testing.T) {
		b, err := edf.BuildTALRecord(0, []edf.AnnotationEvent{
			{Onset: 1.5, Text: "Stim"},
			{Onset: 0.25, Duration: 1, Text: "A"},
			{Onset: -2, Text: "pre"},
		}, 0)
		require.NoError(t, err)
		assert.Equal(t, "+0\x14\x14-2\x14pre\x14+0.25\x151\x14A\x14+1.5\x14Stim\x14", string(b))
	})

	t.Run("RecordOnset", func(t *testing.T) {
		b, err := edf.BuildTALRecord(30, nil, 0)
		require.NoError(t, err)
		assert.Equal(t, "+30\x14\x14", string(b))
	})

	t.Run("Precision", func(t *testing.T) {
		b, err := edf.BuildTALRecord(0, []edf.AnnotationEvent{
			{Onset: 1.00000049, Duration: 0.1234567, Text: "x"},
		}, 0)
		require.NoError(t, err)
		assert.Equal(t, "+0\x14\x14+1\x150.123457\x14x\x14", string(b))
	})

	t.Run("Sanitize", func(t *testing.T) {
		b, err := edf.BuildTALRecord(0, []edf.AnnotationEvent{
			{Onset: 1, Text: " a\x14b\x15cé "},
			{Onset: 2, Text: " \x01 "},
		}, 0)
		require.NoError(t, err)
		assert.Equal(t, "+0\x14\x14+1\x14a b c??\x14", string(b))
	})

	t.Run("SanitizeBytes", func(t *testing.T) {
		b, err := edf.BuildTALRecord(0, []edf.AnnotationEvent{
			{Onset: 1, Text: "Caf\u00e9\x7fbar"},
			{Onset: 2, Text: "\u00b5V"},
		}, 0)
		require.NoError(t, err)
		assert.Equal(t, "+0\x14\x14+1\x14Caf?? bar\x14+2\x14??V\x14", string(b))
	})

	t.Run("Padded", func(t *testing.T) {
		events := []edf.AnnotationEvent{{Onset: 3, Duration: 0.5, Text: "Arousal"}}
		b, err := edf.BuildTALRecord(0, events, 40)
		require.NoError(t, err)
		require.Len(t, b, 40)
		assert.Equal(t, byte(0), b[39])
		assert.Equal(t, events, edf.ParseTALRecord(b))
	})

	t.Run("Overflow", func(t *testing.T) {
		_, err := edf.BuildTALRecord(0, []edf.AnnotationEvent{{Onset: 3, Text: "Arousal"}}, 8)
		require.Error(t, err)
		assert.True(t, errors.Is(err, edf.ErrAnnotationOverflow))

		var overflow *edf.AnnotationOverflowError
		require.ErrorAs(t, err, &overflow)
		assert.Equal(t, 8, overflow.Available)
		assert.Greater(t, overflow.Required, 8)
	})
}

func TestTALRoundTrip(t *testing.T) {
	events := []edf.AnnotationEvent{
		{Onset: 0, Text: "Lights off"},
		{Onset: 12.345678, Duration: 30, Text: "Sleep stage W"},
		{Onset: 12.345678, Duration: 30, Text: "Sleep stage 1"},
		{Onset: 99.5, Text: "Lights on"},
	}

	b, err := edf.BuildTALRecord(0, events, 256)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("+0\x14\x14")))

	got := edf.ParseTALRecord(b)
	require.Len(t, got, len(events))
	assert.ElementsMatch(t, events, got)
}
