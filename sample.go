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
	"slices"
)

// scaling is the affine map between stored digital values and physical
// values of a signal.
type scaling struct {
	scale  float64
	offset float64
	dmin   int
	dmax   int
}

func newScaling(sig Signal) scaling {
	s := scaling{dmin: sig.DigitalMin, dmax: sig.DigitalMax}
	if sig.DigitalMax == sig.DigitalMin {
		return s // Always-zero signal, avoid division by zero
	}
	s.scale = (sig.PhysicalMax - sig.PhysicalMin) / float64(sig.DigitalMax-sig.DigitalMin)
	s.offset = sig.PhysicalMin - float64(sig.DigitalMin)*s.scale
	return s
}

// physical converts a digital value to a physical value.
func (s scaling) physical(digital int) float64 {
	return float64(digital)*s.scale + s.offset
}

// digital converts a physical value to the nearest digital value, rounding
// half away from zero and clamping to the digital range. The second return
// value reports whether the sample was clamped.
func (s scaling) digital(physical float64) (int, bool) {
	if s.scale == 0 {
		return 0, false
	}
	d := math.Round((physical - s.offset) / s.scale)
	switch {
	case math.IsNaN(d):
		return 0, true
	case d < float64(s.dmin):
		return s.dmin, true
	case d > float64(s.dmax):
		return s.dmax, true
	}
	return int(d), false
}

// packSample stores v as a little-endian two's complement integer of
// len(b) bytes (2 or 3).
func packSample(b []byte, v int) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	if len(b) > 2 {
		b[2] = byte(v >> 16)
	}
}

// unpackSample reads a little-endian two's complement integer of len(b)
// bytes (2 or 3), sign extending it.
func unpackSample(b []byte) int {
	if len(b) == 2 {
		return int(int16(uint16(b[0]) | uint16(b[1])<<8))
	}
	v := int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16)
	return int(v<<8) >> 8
}

// physicalRange returns the padded physical range of data. A constant signal
// gets a window of one unit either side of its value.
func physicalRange(data []float64, padding float64) (float64, float64) {
	var lo, hi float64
	finite := false
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if !finite {
			lo, hi, finite = v, v, true
			continue
		}
		lo = min(lo, v)
		hi = max(hi, v)
	}

	if hi == lo {
		return lo - 1, hi + 1
	}

	span := hi - lo
	return lo - span*padding, hi + span*padding
}

// dataSignal builds the descriptor for a data channel. The physical bounds are
// rounded outward to values that fit the 8 character header fields, so the
// writer's scaling matches the reader's exactly and no sample is narrowed out
// of range by formatting.
func dataSignal(label, dimension string, data []float64, padding float64, format Format, samplesPerRecord int) (Signal, error) {
	lo, hi := physicalRange(data, padding)
	pmin, okMin := headerBound(lo, 8, math.Floor)
	pmax, okMax := headerBound(hi, 8, math.Ceil)
	if !okMin || !okMax || !(pmax > pmin) {
		return Signal{}, fmt.Errorf("%w: cannot derive a physical range for channel %q from [%g, %g]",
			ErrConfig, label, lo, hi)
	}

	return Signal{
		Label:             label,
		PhysicalDimension: dimension,
		PhysicalMin:       pmin,
		PhysicalMax:       pmax,
		DigitalMin:        format.DigitalMin,
		DigitalMax:        format.DigitalMax,
		SamplesPerRecord:  samplesPerRecord,
	}, nil
}

// headerBound rounds v with round at the largest number of decimals (at most
// six) whose formatting fits in width characters.
func headerBound(v float64, width int, round func(float64) float64) (float64, bool) {
	for decimals := 6; decimals >= 0; decimals-- {
		p := math.Pow10(decimals)
		r := round(v*p) / p
		s := formatHeaderNumber(r, width)
		if f := parseFloat([]byte(s)); len(s) <= width && f == r {
			return f, true
		}
	}
	return 0, false
}

// annotationSignal builds the descriptor for the TAL signal.
func annotationSignal(format Format, samplesPerRecord int) Signal {
	dmin, dmax := format.annotationRange()
	return Signal{
		Label:            format.AnnotationLabel,
		PhysicalMin:      float64(dmin),
		PhysicalMax:      float64(dmax),
		DigitalMin:       dmin,
		DigitalMax:       dmax,
		SamplesPerRecord: samplesPerRecord,
	}
}

// decodeSamples appends the physical values of the packed samples in b.
func decodeSamples(dst []float64, b []byte, width int, s scaling) []float64 {
	dst = slices.Grow(dst, len(b)/width)
	for i := 0; i+width <= len(b); i += width {
		dst = append(dst, s.physical(unpackSample(b[i:i+width])))
	}
	return dst
}
