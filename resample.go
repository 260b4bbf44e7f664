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
	"strconv"
)

// HoldResample stretches samples to n values using sample-and-hold: each
// output sample repeats the most recent input sample at or before its time.
// An empty input yields n zeros.
func HoldResample(samples []float64, n int) []float64 {
	if len(samples) == n {
		return samples
	}

	out := make([]float64, n)
	if len(samples) == 0 {
		return out
	}
	for i := range out {
		src := i * len(samples) / n
		if src >= len(samples) {
			src = len(samples) - 1
		}
		out[i] = samples[src]
	}
	return out
}

// reconcileRates brings signals sampled at different rates onto the highest
// rate. samplesPerRecord gives each signal's rate as samples per data record;
// signals below the maximum are stretched with HoldResample. It returns the
// common samples per record.
func reconcileRates(data [][]float64, samplesPerRecord []int, numRecords int) ([][]float64, int) {
	target := 0
	for _, spr := range samplesPerRecord {
		target = max(target, spr)
	}

	n := target * numRecords
	out := make([][]float64, len(data))
	for i, samples := range data {
		if samplesPerRecord[i] == target {
			out[i] = samples
			continue
		}
		out[i] = HoldResample(samples, n)
	}
	return out, target
}

// sampleRate converts samples per record into Hz. Record durations are stored
// in eight characters and lose precision, so the roundest rate whose duration
// formats to the same header text is preferred. Failing that, a rate within
// 10 ppm of a whole millihertz is snapped to it.
func sampleRate(samplesPerRecord int, recordDuration float64) float64 {
	rate := float64(samplesPerRecord) / recordDuration
	if r, ok := headerRate(samplesPerRecord, recordDuration); ok {
		return r
	}
	snapped := math.Round(rate*1000) / 1000
	if math.Abs(rate-snapped) <= rate*1e-5 {
		return snapped
	}
	return rate
}

// rateSteps lists rate granularities in Hz, coarsest first.
var rateSteps = func() []float64 {
	var steps []float64
	for k := 30; k >= -10; k-- {
		steps = append(steps, math.Ldexp(1, k))
	}
	for e := 9; e >= -3; e-- {
		p := math.Pow10(e)
		steps = append(steps, p, 5*p, 25*p)
	}
	steps = slices.DeleteFunc(steps, func(step float64) bool { return step < 0.001 })
	slices.SortFunc(steps, func(a, b float64) int { return cmp.Compare(b, a) })
	return slices.Compact(steps)
}()

// headerRate searches rateSteps for the coarsest step with a multiple r such
// that samplesPerRecord/r is written as the same header text as
// recordDuration. Among multiples of that step the one nearest the measured
// rate wins.
func headerRate(samplesPerRecord int, recordDuration float64) (float64, bool) {
	if samplesPerRecord <= 0 || !(recordDuration > 0) {
		return 0, false
	}

	text := formatHeaderNumber(recordDuration, recordDurationWidth)
	intDigits := len(strconv.FormatInt(int64(recordDuration), 10))
	decimals := max(0, min(6, recordDurationWidth-1-intDigits))
	half := 0.5 * math.Pow10(-decimals) * (1 + 1e-6)
	if recordDuration <= half {
		return 0, false
	}

	spr := float64(samplesPerRecord)
	rate := spr / recordDuration
	lo, hi := spr/(recordDuration+half), spr/(recordDuration-half)

	for _, step := range rateSteps {
		first, last := math.Ceil(lo/step), math.Floor(hi/step)
		best, found := 0.0, false
		for k := first; k <= last && k < first+64; k++ {
			candidate := math.Round(k*step*1e9) / 1e9
			if candidate <= 0 || formatHeaderNumber(spr/candidate, recordDurationWidth) != text {
				continue
			}
			if !found || math.Abs(candidate-rate) < math.Abs(best-rate) {
				best, found = candidate, true
			}
		}
		if found {
			return best, true
		}
	}
	return 0, false
}
