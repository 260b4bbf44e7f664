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
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldResample(t *testing.T) {
	assert.Equal(t, []float64{0, 0, 5, 5}, HoldResample([]float64{0, 5}, 4))
	assert.Equal(t, []float64{1, 1, 1, 2, 2, 3, 3}, HoldResample([]float64{1, 2, 3}, 7))
	assert.Equal(t, []float64{0, 0, 0}, HoldResample(nil, 3))

	same := []float64{1, 2}
	assert.Equal(t, same, HoldResample(same, 2))
}

func TestReconcileRates(t *testing.T) {
	data := [][]float64{
		{1, 2, 3, 4, 5, 6, 7, 8},
		{0, 5, 0, 7},
		{9, 8},
	}

	out, target := reconcileRates(data, []int{4, 2, 1}, 2)

	assert.Equal(t, 4, target)
	assert.Equal(t, data[0], out[0])
	assert.Equal(t, []float64{0, 0, 5, 5, 0, 0, 7, 7}, out[1])
	assert.Equal(t, []float64{9, 9, 9, 9, 8, 8, 8, 8}, out[2])
}

func TestSampleRate(t *testing.T) {
	assert.Equal(t, 256.0, sampleRate(256, 1))
	assert.Equal(t, 3.0, sampleRate(10, 3.333333))
	assert.Equal(t, 250.5, sampleRate(1000, 3.992016))
	assert.Equal(t, 1.0/30, sampleRate(1, 30))
}

func TestSampleRateFromHeaderText(t *testing.T) {
	for _, fs := range []float64{100, 250, 256, 500, 512, 1000, 2048, 4096, 250.5} {
		for n := 1; n <= 2000; n++ {
			l, err := planLayout(n, fs, 0)
			require.NoError(t, err)

			duration, err := strconv.ParseFloat(formatHeaderNumber(l.duration, recordDurationWidth), 64)
			require.NoError(t, err)
			require.Equal(t, fs, sampleRate(l.samplesPerRecord, duration), "%d samples at %g Hz", n, fs)
		}
	}
}
