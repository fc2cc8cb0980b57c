// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/OpenPSG/rectable/export"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCSV(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(),
		[]string{"-demo", "-channels", "Sine,Cosine", "-start", "1.5", "-end", "2"},
		&stdout, &stderr)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(stdout.String(), "\n"), "\n")
	require.Len(t, lines, 1+5001)
	assert.Equal(t, "time,Sine,Cosine", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1.5,"))
	assert.Contains(t, stderr.String(), "read table")
}

func TestRunParquetZstd(t *testing.T) {
	out := filepath.Join(t.TempDir(), "table.parquet.zst")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(),
		[]string{"-demo", "-channels", "Sine", "-end", "1.0005", "-format", "utc", "-export", "parquet", "-zstd", "-o", out},
		&stdout, &stderr)
	require.NoError(t, err)
	assert.Empty(t, stdout.String())

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	zr, err := export.NewZstdReader(f)
	require.NoError(t, err)
	defer zr.Close()
	data, err := io.ReadAll(zr)
	require.NoError(t, err)

	rows, err := export.ReadParquet(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, "Sine", rows[0].Channel)
	assert.Equal(t, 1.0, rows[0].Seconds)
	assert.NotZero(t, rows[0].TimeUnixNano)
}

func TestRunConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rectable.yaml")
	require.NoError(t, os.WriteFile(path, []byte("query:\n  format: none\n  channels: [Cosine]\n"), 0o644))

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-config", path, "-demo", "-end", "1.0002"}, &stdout, &stderr))
	lines := strings.Split(strings.TrimSuffix(stdout.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "time,Cosine", lines[0])
	for i, line := range lines[1:] {
		assert.True(t, strings.HasPrefix(line, strconv.Itoa(i)+","), line)
	}
}

func TestRunErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	ctx := context.Background()

	require.Error(t, run(ctx, nil, &stdout, &stderr))
	require.Error(t, run(ctx, []string{"-demo", "extra.edf"}, &stdout, &stderr))
	require.Error(t, run(ctx, []string{"-demo", "-format", "julian"}, &stdout, &stderr))
	require.Error(t, run(ctx, []string{"-demo", "-channels", "Nope"}, &stdout, &stderr))
	require.Error(t, run(ctx, []string{"-demo", "-start", "x"}, &stdout, &stderr))
	require.Error(t, run(ctx, []string{filepath.Join(t.TempDir(), "missing.edf")}, &stdout, &stderr))
}
