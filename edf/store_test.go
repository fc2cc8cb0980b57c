// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf_test

import (
	"testing"
	"time"

	"github.com/OpenPSG/rectable"
	"github.com/OpenPSG/rectable/edf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDiscontinuousStore(t *testing.T) *edf.Store {
	t.Helper()

	er, err := edf.Open(writeDiscontinuous(t))
	require.NoError(t, err)

	s, err := edf.NewStore(er, edf.WithTimezoneOffset(120))
	require.NoError(t, err)
	return s
}

func TestStoreMetadata(t *testing.T) {
	s := openDiscontinuousStore(t)

	names, err := s.Channels()
	require.NoError(t, err)
	assert.Equal(t, []string{"Flow", "Pressure"}, names)

	info, err := s.ChannelInfo("Pressure")
	require.NoError(t, err)
	assert.Equal(t, rectable.ChannelInfo{Name: "Pressure", Unit: "cmH2O", Discipline: rectable.Sync, Rate: 50}, info)

	sweeps, err := s.Sweeps("Flow")
	require.NoError(t, err)
	assert.Equal(t, []rectable.Sweep{{Start: 1, Samples: 200}, {Start: 5, Samples: 300}}, sweeps)

	_, err = s.ChannelInfo(edf.AnnotationsLabel)
	require.ErrorIs(t, err, rectable.ErrNotFound)

	start, err := s.AcquisitionStart()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, time.August, 5, 10, 21, 27, 0, time.UTC), start)
}

func TestStoreReadSamples(t *testing.T) {
	s := openDiscontinuousStore(t)

	// Sample 10 of the second sweep is sample 10 of the third record.
	samples, err := s.ReadSamples("Flow", 1, 10, 12)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.InDelta(t, 0.1, samples[0].Offset, 1e-12)
	for i, sample := range samples {
		assert.InDelta(t, flowValue(210+i), sample.Value, 0.5)
	}

	_, err = s.ReadSamples("Flow", 1, 0, 300)
	require.Error(t, err)
	_, err = s.ReadSamples("Flow", 2, 0, 0)
	require.Error(t, err)
}

func TestStoreReadTable(t *testing.T) {
	r := rectable.NewReader(openDiscontinuousStore(t), rectable.WithConcurrency(2))

	tbl, err := r.ReadTable(rectable.Query{Channels: []string{"Flow"}, Window: rectable.From(3)})
	require.NoError(t, err)
	require.Equal(t, 300, tbl.Rows())
	assert.Equal(t, 5.0, tbl.Index[0].Seconds)
	assert.InDelta(t, 7.99, tbl.Index[299].Seconds, 1e-9)

	tbl, err = r.ReadTable(rectable.Query{Channels: []string{"Flow"}, Window: rectable.Until(3)})
	require.NoError(t, err)
	require.Equal(t, 200, tbl.Rows())

	tbl, err = r.ReadTable(rectable.Query{Channels: []string{"Flow", "Pressure"}, Window: rectable.Between(1.5, 5.5)})
	require.NoError(t, err)
	require.Equal(t, 150+51, tbl.Rows())

	pressure, ok := tbl.Column("Pressure")
	require.True(t, ok)
	valid := 0
	for i := range pressure.Valid {
		if pressure.Valid[i] {
			valid++
		}
	}
	assert.Equal(t, 75+26, valid)

	tbl, err = r.ReadTable(rectable.Query{Channels: []string{"Flow"}, Format: rectable.TimestampLocal})
	require.NoError(t, err)
	require.Equal(t, 500, tbl.Rows())
	assert.Equal(t, "2021-08-05T12:21:28+02:00", tbl.Index[0].Time.Format(time.RFC3339Nano))

	duration, err := r.MeasurementDuration()
	require.NoError(t, err)
	assert.InDelta(t, 7.99, duration, 1e-9)
}
