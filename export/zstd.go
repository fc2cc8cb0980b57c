// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package export

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// NewZstdWriter wraps w in a zstd stream. level ranges from 1 (fastest) to
// 4 (best compression), anything else selects the default. The returned
// writer must be closed to flush the stream.
func NewZstdWriter(w io.Writer, level int) (io.WriteCloser, error) {
	encLevel := zstd.SpeedDefault
	switch level {
	case 1:
		encLevel = zstd.SpeedFastest
	case 3:
		encLevel = zstd.SpeedBetterCompression
	case 4:
		encLevel = zstd.SpeedBestCompression
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(encLevel))
	if err != nil {
		return nil, fmt.Errorf("error creating zstd encoder: %w", err)
	}
	return enc, nil
}

// NewZstdReader returns a reader decompressing a zstd stream.
func NewZstdReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("error creating zstd decoder: %w", err)
	}
	return dec.IOReadCloser(), nil
}
