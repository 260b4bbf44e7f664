// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package fileio reads and writes whole files, transparently handling
// compressed containers selected by file extension.
package fileio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Container identifies the compression wrapped around a file.
type Container uint8

const (
	ContainerNone Container = iota
	ContainerGzip
	ContainerZstd
	ContainerLZ4
)

// String returns the human-readable name of a container.
func (c Container) String() string {
	switch c {
	case ContainerNone:
		return "none"
	case ContainerGzip:
		return "gzip"
	case ContainerZstd:
		return "zstd"
	case ContainerLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// ContainerFor selects the container from the file extension.
func ContainerFor(path string) Container {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return ContainerGzip
	case ".zst", ".zstd":
		return ContainerZstd
	case ".lz4":
		return ContainerLZ4
	default:
		return ContainerNone
	}
}

// ReadFile reads and, if needed, decompresses the whole file at path.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	switch ContainerFor(path) {
	case ContainerGzip:
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip open: %w", err)
		}
		defer gr.Close()
		r = gr
	case ContainerZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd open: %w", err)
		}
		defer zr.Close()
		r = zr
	case ContainerLZ4:
		r = lz4.NewReader(f)
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return b, nil
}

// Create creates or truncates the file at path and returns a writer that
// compresses according to the file extension. Closing the writer flushes the
// compressor and closes the file.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	var w io.WriteCloser
	switch ContainerFor(path) {
	case ContainerNone:
		return f, nil
	case ContainerGzip:
		w = gzip.NewWriter(f)
	case ContainerZstd:
		zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("zstd create: %w", err)
		}
		w = zw
	case ContainerLZ4:
		w = lz4.NewWriter(f)
	}

	return &compressedFile{WriteCloser: w, file: f}, nil
}

type compressedFile struct {
	io.WriteCloser
	file *os.File
}

func (c *compressedFile) Close() error {
	if err := c.WriteCloser.Close(); err != nil {
		_ = c.file.Close()
		return fmt.Errorf("failed to flush compressor: %w", err)
	}
	return c.file.Close()
}
