// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package rectable extracts time-windowed tables from multi-channel
// measurement recordings.
//
// A recording is exposed through a Store. Each channel is split into one or
// more sweeps (contiguous runs of samples) that may be separated by gaps.
// Reader.ReadTable resolves a window in seconds since acquisition start
// against those sweeps, reads the selected samples and joins the requested
// channels into a single Table keyed on the first channel's timestamps.
package rectable

import (
	"fmt"
	"math"
	"time"
)

// Discipline is the sampling discipline of a channel.
type Discipline int

const (
	// Sync channels are sampled at a fixed, known rate.
	Sync Discipline = iota
	// Async channels store an explicit timestamp for every sample.
	Async
)

func (d Discipline) String() string {
	switch d {
	case Sync:
		return "sync"
	case Async:
		return "async"
	default:
		return fmt.Sprintf("Discipline(%d)", int(d))
	}
}

// ChannelInfo describes a channel of an open recording.
type ChannelInfo struct {
	Name       string     // Unique channel name
	Unit       string     // Physical unit (e.g. V, uV), may be empty
	Discipline Discipline // Sampling discipline
	Rate       float64    // Samples per second, sync channels only
}

// Sweep is a contiguous run of samples of one channel.
type Sweep struct {
	Start   float64 // Seconds since acquisition start of the first sample
	Samples int     // Number of samples in the sweep
}

// Sample is a single value read from a Store.
type Sample struct {
	Offset float64 // Seconds since the start of the owning sweep (async channels)
	Value  float64 // Physical value
}

// Store is the read-only view of an open recording that the table reader
// consumes. Implementations must be safe for concurrent reads if the Reader
// is used concurrently or with a concurrency limit above one.
type Store interface {
	// Channels returns the channel names in recording order.
	Channels() ([]string, error)
	// ChannelInfo returns the metadata of the named channel.
	ChannelInfo(name string) (ChannelInfo, error)
	// Sweeps returns the sweeps of the named channel ordered by start time.
	Sweeps(name string) ([]Sweep, error)
	// ReadSamples returns the samples first..last (inclusive) of a sweep.
	ReadSamples(name string, sweep, first, last int) ([]Sample, error)
	// AcquisitionStart returns the wall clock instant of time zero.
	AcquisitionStart() (time.Time, error)
	// TimezoneOffset returns the recording's local zone offset in minutes east of UTC.
	TimezoneOffset() (int, error)
}

// Window is a closed interval in seconds since acquisition start. A side
// that is not set is unbounded.
type Window struct {
	Start    float64
	End      float64
	HasStart bool
	HasEnd   bool
}

// All returns an unbounded window.
func All() Window { return Window{} }

// From returns a window starting at start.
func From(start float64) Window { return Window{Start: start, HasStart: true} }

// Until returns a window ending at end.
func Until(end float64) Window { return Window{End: end, HasEnd: true} }

// Between returns the window [start, end].
func Between(start, end float64) Window {
	return Window{Start: start, End: end, HasStart: true, HasEnd: true}
}

// Validate reports inverted or non-numeric bounds.
func (w Window) Validate() error {
	if w.HasStart && math.IsNaN(w.Start) {
		return fmt.Errorf("%w: start time is NaN", ErrConfiguration)
	}
	if w.HasEnd && math.IsNaN(w.End) {
		return fmt.Errorf("%w: end time is NaN", ErrConfiguration)
	}
	if w.HasStart && w.HasEnd && w.End < w.Start {
		return fmt.Errorf("%w: end time %g is before start time %g", ErrConfiguration, w.End, w.Start)
	}
	return nil
}

// lower returns the effective lower bound of the window.
func (w Window) lower() float64 {
	if w.HasStart {
		return w.Start
	}
	return math.Inf(-1)
}

// upper returns the effective upper bound of the window.
func (w Window) upper() float64 {
	if w.HasEnd {
		return w.End
	}
	return math.Inf(1)
}

// widen moves the set bounds of w outward by d seconds.
func (w Window) widen(d float64) Window {
	w.Start -= d
	w.End += d
	return w
}

func (w Window) String() string {
	lo, hi := "-inf", "+inf"
	if w.HasStart {
		lo = fmt.Sprintf("%g", w.Start)
	}
	if w.HasEnd {
		hi = fmt.Sprintf("%g", w.End)
	}
	return "[" + lo + ", " + hi + "]"
}
