// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package rectable_test

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/OpenPSG/rectable"
	"github.com/OpenPSG/rectable/memstore"
	"github.com/stretchr/testify/require"
)

// simpleStart is the first sample of the simple recording, 0.2708 s after
// the whole second the acquisition clock was read at.
var simpleStart = time.Date(2021, time.August, 5, 10, 21, 27, 270800000, time.UTC)

// simpleRecording has one sweep covering [0, 0.633] at 10 kHz on three
// channels, recorded in UTC+02:00.
func simpleRecording(t *testing.T) *memstore.Recording {
	t.Helper()

	r := memstore.New(simpleStart, 120)
	for _, name := range []string{"AI 1", "AI 2", "AI 3"} {
		require.NoError(t, r.AddSync(name, "V", 10000,
			memstore.SyncSweep{Start: 0, Values: memstore.Wave(math.Sin, 0, 6331, 10000)}))
	}
	return r
}

// syncAsyncRecording has a 10 kHz sync channel and an async channel averaged
// at 100 Hz.
func syncAsyncRecording(t *testing.T) *memstore.Recording {
	t.Helper()

	r := memstore.New(simpleStart, 0)
	require.NoError(t, r.AddSync("Sync", "V", 10000,
		memstore.SyncSweep{Start: 0, Values: memstore.Wave(math.Sin, 0, 29315, 10000)}))

	offsets := make([]float64, 293)
	values := make([]float64, 293)
	for i := range offsets {
		offsets[i] = float64(i+1) / 100
		values[i] = float64(i)
	}
	require.NoError(t, r.AddAsync("Async", "V",
		memstore.AsyncSweep{Start: 0, Offsets: offsets, Values: values}))
	return r
}

// alignRecording has a driving channel over [0, 1] at 100 Hz, a second sync
// channel only covering [0.5, 1] and a sparse async channel.
func alignRecording(t *testing.T) *memstore.Recording {
	t.Helper()

	r := memstore.New(simpleStart, 0)

	a := make([]float64, 101)
	for i := range a {
		a[i] = float64(i)
	}
	require.NoError(t, r.AddSync("A", "V", 100, memstore.SyncSweep{Start: 0, Values: a}))

	b := make([]float64, 51)
	for i := range b {
		b[i] = float64(1000 + i)
	}
	require.NoError(t, r.AddSync("B", "V", 100, memstore.SyncSweep{Start: 0.5, Values: b}))

	require.NoError(t, r.AddAsync("E", "",
		memstore.AsyncSweep{Start: 0, Offsets: []float64{0.25, 0.333, 0.5}, Values: []float64{-1, -2, -3}}))
	return r
}

func readTable(t *testing.T, s rectable.Store, channels []string, w rectable.Window, f rectable.TimestampFormat) *rectable.Table {
	t.Helper()

	tbl, err := rectable.NewReader(s).ReadTable(rectable.Query{Channels: channels, Window: w, Format: f})
	require.NoError(t, err)
	return tbl
}

// gappedAsyncRecording has an async channel with sweeps covering [1, 2] and
// [5, 8]. Sample values equal their times.
func gappedAsyncRecording(t *testing.T) *memstore.Recording {
	t.Helper()

	r := memstore.New(simpleStart, 0)
	require.NoError(t, r.AddAsync("Events", "",
		memstore.AsyncSweep{Start: 1, Offsets: []float64{0, 0.5, 1}, Values: []float64{1, 1.5, 2}},
		memstore.AsyncSweep{Start: 5, Offsets: []float64{0, 1, 3}, Values: []float64{5, 6, 8}}))
	return r
}

// countingStore records how many samples are read per channel.
type countingStore struct {
	*memstore.Recording
	mu   sync.Mutex
	read map[string]int
}

func (s *countingStore) ReadSamples(name string, sweep, first, last int) ([]rectable.Sample, error) {
	samples, err := s.Recording.ReadSamples(name, sweep, first, last)
	s.mu.Lock()
	s.read[name] += len(samples)
	s.mu.Unlock()
	return samples, err
}
