// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package memstore

import (
	"math"
	"time"
)

// DemoRate is the sample rate of the demo recording.
const DemoRate = 10000

// Demo returns the built-in demo recording. It holds two sync channels, Sine
// and Cosine, each with sweeps covering [1, 2] and [5, 8] seconds at
// DemoRate, 40002 samples in total.
func Demo() *Recording {
	start := time.Date(2021, time.August, 5, 10, 21, 27, 0, time.UTC)
	r := New(start, 120)

	// Both channels are well formed, so errors are impossible here.
	_ = r.AddSync("Sine", "V", DemoRate,
		SyncSweep{Start: 1, Values: Wave(math.Sin, 1, 10001, DemoRate)},
		SyncSweep{Start: 5, Values: Wave(math.Sin, 5, 30001, DemoRate)},
	)
	_ = r.AddSync("Cosine", "V", DemoRate,
		SyncSweep{Start: 1, Values: Wave(math.Cos, 1, 10001, DemoRate)},
		SyncSweep{Start: 5, Values: Wave(math.Cos, 5, 30001, DemoRate)},
	)

	return r
}

// Wave samples a 1 Hz waveform f for n samples at rate, starting at start
// seconds.
func Wave(f func(float64) float64, start float64, n int, rate float64) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = f(2 * math.Pi * (start + float64(i)/rate))
	}
	return values
}
