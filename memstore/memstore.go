// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package memstore holds recordings in memory and serves them as a
// rectable.Store.
package memstore

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/OpenPSG/rectable"
)

var (
	// ErrExists is returned when a channel name is added twice.
	ErrExists = errors.New("channel already exists")
	// ErrInvalidSweep is returned for malformed or overlapping sweeps.
	ErrInvalidSweep = errors.New("invalid sweep")
)

// SyncSweep is a sweep of a fixed rate channel.
type SyncSweep struct {
	Start  float64   // Seconds since acquisition start of the first sample
	Values []float64 // Sample values
}

// AsyncSweep is a sweep of a channel with explicit sample times.
type AsyncSweep struct {
	Start   float64   // Seconds since acquisition start the offsets are relative to
	Offsets []float64 // Non-decreasing sample times relative to Start
	Values  []float64 // Sample values, one per offset
}

type sweep struct {
	start   float64
	offsets []float64 // nil for sync channels
	values  []float64
}

type channel struct {
	info   rectable.ChannelInfo
	sweeps []sweep
}

// Recording is an in-memory recording. It is safe for concurrent use.
type Recording struct {
	mu       sync.RWMutex
	start    time.Time
	tzOffset int
	order    []string
	channels map[string]*channel
}

// New returns an empty recording acquired at start with the given local zone
// offset in minutes east of UTC.
func New(start time.Time, tzOffset int) *Recording {
	return &Recording{
		start:    start.UTC(),
		tzOffset: tzOffset,
		channels: make(map[string]*channel),
	}
}

// AddSync adds a fixed rate channel.
func (r *Recording) AddSync(name, unit string, rate float64, sweeps ...SyncSweep) error {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return fmt.Errorf("%w: channel %q has sample rate %g", ErrInvalidSweep, name, rate)
	}

	ch := &channel{info: rectable.ChannelInfo{Name: name, Unit: unit, Discipline: rectable.Sync, Rate: rate}}
	prevEnd := math.Inf(-1)
	for i, s := range sweeps {
		if len(s.Values) == 0 {
			ch.sweeps = append(ch.sweeps, sweep{start: s.Start})
			continue
		}
		if s.Start <= prevEnd {
			return fmt.Errorf("%w: sweep %d of %q starts at %g before previous end %g", ErrInvalidSweep, i, name, s.Start, prevEnd)
		}
		prevEnd = s.Start + float64(len(s.Values)-1)/rate
		ch.sweeps = append(ch.sweeps, sweep{start: s.Start, values: s.Values})
	}

	return r.add(ch)
}

// AddAsync adds a channel with explicit sample times.
func (r *Recording) AddAsync(name, unit string, sweeps ...AsyncSweep) error {
	ch := &channel{info: rectable.ChannelInfo{Name: name, Unit: unit, Discipline: rectable.Async}}
	prevEnd := math.Inf(-1)
	for i, s := range sweeps {
		if len(s.Offsets) != len(s.Values) {
			return fmt.Errorf("%w: sweep %d of %q has %d offsets and %d values", ErrInvalidSweep, i, name, len(s.Offsets), len(s.Values))
		}
		for j := 1; j < len(s.Offsets); j++ {
			if s.Offsets[j] < s.Offsets[j-1] {
				return fmt.Errorf("%w: sweep %d of %q has unordered offsets at %d", ErrInvalidSweep, i, name, j)
			}
		}
		if len(s.Offsets) > 0 {
			first := s.Start + s.Offsets[0]
			if first <= prevEnd {
				return fmt.Errorf("%w: sweep %d of %q starts at %g before previous end %g", ErrInvalidSweep, i, name, first, prevEnd)
			}
			prevEnd = s.Start + s.Offsets[len(s.Offsets)-1]
		}
		ch.sweeps = append(ch.sweeps, sweep{start: s.Start, offsets: s.Offsets, values: s.Values})
	}

	return r.add(ch)
}

func (r *Recording) add(ch *channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.channels[ch.info.Name]; ok {
		return fmt.Errorf("%w: %q", ErrExists, ch.info.Name)
	}
	r.channels[ch.info.Name] = ch
	r.order = append(r.order, ch.info.Name)
	return nil
}

// Channels implements rectable.Store.
func (r *Recording) Channels() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...), nil
}

// ChannelInfo implements rectable.Store.
func (r *Recording) ChannelInfo(name string) (rectable.ChannelInfo, error) {
	ch, err := r.channel(name)
	if err != nil {
		return rectable.ChannelInfo{}, err
	}
	return ch.info, nil
}

// Sweeps implements rectable.Store.
func (r *Recording) Sweeps(name string) ([]rectable.Sweep, error) {
	ch, err := r.channel(name)
	if err != nil {
		return nil, err
	}

	out := make([]rectable.Sweep, len(ch.sweeps))
	for i, s := range ch.sweeps {
		out[i] = rectable.Sweep{Start: s.start, Samples: len(s.values)}
	}
	return out, nil
}

// ReadSamples implements rectable.Store.
func (r *Recording) ReadSamples(name string, sweepIndex, first, last int) ([]rectable.Sample, error) {
	ch, err := r.channel(name)
	if err != nil {
		return nil, err
	}
	if sweepIndex < 0 || sweepIndex >= len(ch.sweeps) {
		return nil, fmt.Errorf("sweep index %d out of range", sweepIndex)
	}

	s := ch.sweeps[sweepIndex]
	if first < 0 || last >= len(s.values) || first > last+1 {
		return nil, fmt.Errorf("sample range %d..%d out of range", first, last)
	}

	out := make([]rectable.Sample, 0, last-first+1)
	for i := first; i <= last; i++ {
		sample := rectable.Sample{Value: s.values[i]}
		if s.offsets != nil {
			sample.Offset = s.offsets[i]
		} else {
			sample.Offset = float64(i) / ch.info.Rate
		}
		out = append(out, sample)
	}
	return out, nil
}

// AcquisitionStart implements rectable.Store.
func (r *Recording) AcquisitionStart() (time.Time, error) {
	return r.start, nil
}

// TimezoneOffset implements rectable.Store.
func (r *Recording) TimezoneOffset() (int, error) {
	return r.tzOffset, nil
}

func (r *Recording) channel(name string) (*channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", rectable.ErrNotFound, name)
	}
	return ch, nil
}
