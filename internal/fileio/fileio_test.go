// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package fileio_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/OpenPSG/edf/v2/internal/fileio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainerFor(t *testing.T) {
	assert.Equal(t, fileio.ContainerNone, fileio.ContainerFor("sleep.edf"))
	assert.Equal(t, fileio.ContainerGzip, fileio.ContainerFor("sleep.edf.gz"))
	assert.Equal(t, fileio.ContainerZstd, fileio.ContainerFor("sleep.BDF.ZST"))
	assert.Equal(t, fileio.ContainerLZ4, fileio.ContainerFor("sleep.bdf.lz4"))
	assert.Equal(t, "zstd", fileio.ContainerZstd.String())
}

func TestRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("0       EDF payload "), 512)

	for _, name := range []string{"plain.edf", "file.edf.gz", "file.edf.zst", "file.edf.lz4"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			w, err := fileio.Create(path)
			require.NoError(t, err)
			_, err = w.Write(payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			got, err := fileio.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, payload, got)

			if fileio.ContainerFor(path) != fileio.ContainerNone {
				info, err := os.Stat(path)
				require.NoError(t, err)
				assert.Less(t, info.Size(), int64(len(payload)))
			}
		})
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := fileio.ReadFile(filepath.Join(t.TempDir(), "missing.edf"))
	require.Error(t, err)
}
