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
	"testing"

	"github.com/OpenPSG/rectable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepIndexIntersecting(t *testing.T) {
	idx, err := rectable.NewSweepIndex([]rectable.Span{
		{Sweep: 0, Start: 1, End: 2},
		{Sweep: 2, Start: 5, End: 8},
		{Sweep: 3, Start: 10, End: 10},
	})
	require.NoError(t, err)
	require.Equal(t, 3, idx.Len())

	sweeps := func(spans []rectable.Span) []int {
		out := []int{}
		for _, s := range spans {
			out = append(out, s.Sweep)
		}
		return out
	}

	assert.Equal(t, []int{0, 2, 3}, sweeps(idx.Intersecting(rectable.All())))
	assert.Equal(t, []int{2, 3}, sweeps(idx.Intersecting(rectable.From(3))))
	assert.Equal(t, []int{0}, sweeps(idx.Intersecting(rectable.Until(3))))
	assert.Equal(t, []int{0, 2}, sweeps(idx.Intersecting(rectable.Between(2, 5))))
	assert.Equal(t, []int{2}, sweeps(idx.Intersecting(rectable.Between(6, 7))))
	assert.Equal(t, []int{3}, sweeps(idx.Intersecting(rectable.Between(10, 10))))
	assert.Empty(t, idx.Intersecting(rectable.Between(2.5, 4.5)))
	assert.Empty(t, idx.Intersecting(rectable.Until(0.5)))
	assert.Empty(t, idx.Intersecting(rectable.From(10.5)))
}

func TestSweepIndexExtent(t *testing.T) {
	idx, err := rectable.NewSweepIndex([]rectable.Span{
		{Sweep: 0, Start: 1, End: 2},
		{Sweep: 1, Start: 5, End: 8},
	})
	require.NoError(t, err)

	min, max, ok := idx.Extent()
	require.True(t, ok)
	assert.Equal(t, 1.0, min)
	assert.Equal(t, 8.0, max)

	empty, err := rectable.NewSweepIndex(nil)
	require.NoError(t, err)
	_, _, ok = empty.Extent()
	assert.False(t, ok)
	assert.Empty(t, empty.Intersecting(rectable.All()))
}

func TestSweepIndexRejectsOverlap(t *testing.T) {
	_, err := rectable.NewSweepIndex([]rectable.Span{
		{Sweep: 0, Start: 1, End: 5},
		{Sweep: 1, Start: 4, End: 8},
	})
	require.Error(t, err)

	_, err = rectable.NewSweepIndex([]rectable.Span{{Sweep: 0, Start: 2, End: 1}})
	require.Error(t, err)
}
