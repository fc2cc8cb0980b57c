// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package memstore_test

import (
	"testing"
	"time"

	"github.com/OpenPSG/rectable"
	"github.com/OpenPSG/rectable/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecording(t *testing.T) {
	start := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)
	r := memstore.New(start, 60)

	require.NoError(t, r.AddSync("Flow", "L/s", 4,
		memstore.SyncSweep{Start: 0, Values: []float64{1, 2, 3}},
		memstore.SyncSweep{Start: 2, Values: []float64{4, 5}},
	))
	require.NoError(t, r.AddAsync("Events", "",
		memstore.AsyncSweep{Start: 1, Offsets: []float64{0, 0.1, 0.7}, Values: []float64{7, 8, 9}},
	))

	names, err := r.Channels()
	require.NoError(t, err)
	assert.Equal(t, []string{"Flow", "Events"}, names)

	info, err := r.ChannelInfo("Events")
	require.NoError(t, err)
	assert.Equal(t, rectable.Async, info.Discipline)

	sweeps, err := r.Sweeps("Flow")
	require.NoError(t, err)
	assert.Equal(t, []rectable.Sweep{{Start: 0, Samples: 3}, {Start: 2, Samples: 2}}, sweeps)

	samples, err := r.ReadSamples("Flow", 0, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []rectable.Sample{{Offset: 0.25, Value: 2}, {Offset: 0.5, Value: 3}}, samples)

	samples, err = r.ReadSamples("Events", 0, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []rectable.Sample{{Offset: 0.7, Value: 9}}, samples)

	_, err = r.ReadSamples("Flow", 1, 0, 2)
	require.Error(t, err)
	_, err = r.ReadSamples("Flow", 2, 0, 0)
	require.Error(t, err)

	_, err = r.ChannelInfo("Pressure")
	require.ErrorIs(t, err, rectable.ErrNotFound)

	acq, err := r.AcquisitionStart()
	require.NoError(t, err)
	assert.True(t, start.Equal(acq))

	offset, err := r.TimezoneOffset()
	require.NoError(t, err)
	assert.Equal(t, 60, offset)
}

func TestRecordingValidation(t *testing.T) {
	r := memstore.New(time.Now(), 0)

	err := r.AddSync("Overlap", "", 10,
		memstore.SyncSweep{Start: 0, Values: make([]float64, 11)},
		memstore.SyncSweep{Start: 1, Values: make([]float64, 5)},
	)
	require.ErrorIs(t, err, memstore.ErrInvalidSweep)

	require.ErrorIs(t, r.AddSync("Rate", "", 0), memstore.ErrInvalidSweep)

	err = r.AddAsync("Unordered", "", memstore.AsyncSweep{Offsets: []float64{1, 0}, Values: []float64{1, 2}})
	require.ErrorIs(t, err, memstore.ErrInvalidSweep)

	err = r.AddAsync("Mismatch", "", memstore.AsyncSweep{Offsets: []float64{1}, Values: []float64{1, 2}})
	require.ErrorIs(t, err, memstore.ErrInvalidSweep)

	require.NoError(t, r.AddSync("Twice", "", 10))
	require.ErrorIs(t, r.AddSync("Twice", "", 10), memstore.ErrExists)
}

func TestDemo(t *testing.T) {
	r := memstore.Demo()

	for _, name := range []string{"Sine", "Cosine"} {
		sweeps, err := r.Sweeps(name)
		require.NoError(t, err)
		assert.Equal(t, []rectable.Sweep{{Start: 1, Samples: 10001}, {Start: 5, Samples: 30001}}, sweeps)
	}

	samples, err := r.ReadSamples("Cosine", 1, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, samples[0].Value, 1e-9)
}
