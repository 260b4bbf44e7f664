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
	"fmt"
)

var (
	// ErrFormat is returned when a file header or data section is malformed.
	ErrFormat = errors.New("malformed file")
	// ErrValidation is returned when a recording cannot be written as given.
	ErrValidation = errors.New("invalid recording")
	// ErrConfig is returned when writer options cannot produce a valid layout.
	ErrConfig = errors.New("invalid writer configuration")
	// ErrAnnotationOverflow is returned when annotations do not fit in the
	// annotation signal of a data record.
	ErrAnnotationOverflow = errors.New("annotation record overflow")
)

// AnnotationOverflowError describes a data record whose encoded annotations
// exceed the annotation signal's capacity.
type AnnotationOverflowError struct {
	Record    int // Index of the offending data record, -1 if unknown
	Required  int // Bytes needed to encode the record's annotations
	Available int // Bytes available in the annotation signal
}

func (e *AnnotationOverflowError) Error() string {
	if e.Record < 0 {
		return fmt.Sprintf("annotation_samples_per_record too small for events: need %d bytes, have %d",
			e.Required, e.Available)
	}
	return fmt.Sprintf("annotation_samples_per_record too small for events in record %d: need %d bytes, have %d",
		e.Record, e.Required, e.Available)
}

func (e *AnnotationOverflowError) Is(target error) bool {
	return target == ErrAnnotationOverflow
}
