// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package rectable

import (
	"fmt"
	"math"
	"sort"
)

const (
	// syncTolerance is the slack, in sample periods, applied when mapping
	// window bounds onto sync sample indices.
	syncTolerance = 1e-6
	// asyncTolerance is the slack, in seconds, applied when comparing window
	// bounds with stored async sample times.
	asyncTolerance = 1e-9
)

// Range selects the samples First..Last (inclusive) of one sweep.
type Range struct {
	Sweep int     // Index of the sweep in the channel's sweep list
	Start float64 // Start time of the sweep
	First int     // First selected sample
	Last  int     // Last selected sample
}

// Len returns the number of samples in the range.
func (r Range) Len() int { return r.Last - r.First + 1 }

// timeline is the sampling discipline specific part of a channel.
type timeline interface {
	// span returns the time covered by a non-empty sweep.
	span(sweep int) (Span, error)
	// resolveRange returns the samples of a sweep inside w; first > last when none are.
	resolveRange(sweep int, w Window) (first, last int, err error)
	// readRange reads a resolved range as points.
	readRange(r Range, conv Converter) ([]point, error)
	// slack returns the boundary tolerance in seconds.
	slack() float64
}

// channel is a channel bound to its sweep index for the duration of a query.
type channel struct {
	info   ChannelInfo
	sweeps []Sweep
	tl     timeline
	index  *SweepIndex
}

// openChannel loads the sweeps of a channel and indexes them.
func openChannel(s Store, info ChannelInfo) (*channel, error) {
	sweeps, err := s.Sweeps(info.Name)
	if err != nil {
		return nil, fmt.Errorf("error reading sweeps of %q: %w", info.Name, err)
	}

	var tl timeline
	switch info.Discipline {
	case Sync:
		if info.Rate <= 0 || math.IsNaN(info.Rate) || math.IsInf(info.Rate, 0) {
			return nil, fmt.Errorf("channel %q has invalid sample rate %g", info.Name, info.Rate)
		}
		tl = &syncTimeline{store: s, name: info.Name, rate: info.Rate, sweeps: sweeps}
	case Async:
		tl = &asyncTimeline{store: s, name: info.Name, sweeps: sweeps, resolved: make(map[int][]Sample)}
	default:
		return nil, fmt.Errorf("channel %q has unknown discipline %s", info.Name, info.Discipline)
	}

	spans := make([]Span, 0, len(sweeps))
	for i, sw := range sweeps {
		if sw.Samples < 0 {
			return nil, fmt.Errorf("sweep %d of %q has negative sample count %d", i, info.Name, sw.Samples)
		}
		if sw.Samples == 0 {
			continue
		}
		sp, err := tl.span(i)
		if err != nil {
			return nil, err
		}
		spans = append(spans, sp)
	}

	index, err := NewSweepIndex(spans)
	if err != nil {
		return nil, fmt.Errorf("error indexing sweeps of %q: %w", info.Name, err)
	}

	return &channel{info: info, sweeps: sweeps, tl: tl, index: index}, nil
}

// resolve returns the ranges of samples inside w in time order. Bounds that
// fall into a gap between sweeps snap to the nearest sweep boundary inside w.
func (c *channel) resolve(w Window) ([]Range, error) {
	var ranges []Range
	for _, sp := range c.index.Intersecting(w.widen(c.tl.slack())) {
		first, last, err := c.tl.resolveRange(sp.Sweep, w)
		if err != nil {
			return nil, err
		}
		if first > last {
			continue
		}
		ranges = append(ranges, Range{
			Sweep: sp.Sweep,
			Start: c.sweeps[sp.Sweep].Start,
			First: first,
			Last:  last,
		})
	}
	return ranges, nil
}

type syncTimeline struct {
	store  Store
	name   string
	rate   float64
	sweeps []Sweep
}

func (t *syncTimeline) span(sweep int) (Span, error) {
	sw := t.sweeps[sweep]
	return Span{
		Sweep: sweep,
		Start: sw.Start,
		End:   sw.Start + float64(sw.Samples-1)/t.rate,
	}, nil
}

func (t *syncTimeline) slack() float64 { return syncTolerance / t.rate }

func (t *syncTimeline) resolveRange(sweep int, w Window) (int, int, error) {
	sw := t.sweeps[sweep]

	first, last := 0, sw.Samples-1
	if w.HasStart {
		// Round toward the window so a sample sitting on the bound is kept.
		i := math.Ceil((w.Start-sw.Start)*t.rate - syncTolerance)
		if i > float64(first) {
			first = int(math.Min(i, float64(sw.Samples)))
		}
	}
	if w.HasEnd {
		i := math.Floor((w.End-sw.Start)*t.rate + syncTolerance)
		if i < float64(last) {
			last = int(math.Max(i, -1))
		}
	}
	return first, last, nil
}

func (t *syncTimeline) readRange(r Range, conv Converter) ([]point, error) {
	samples, err := readChecked(t.store, t.name, r)
	if err != nil {
		return nil, err
	}

	points := make([]point, len(samples))
	for i, s := range samples {
		offset := float64(r.First+i) / t.rate
		points[i] = point{
			at:    conv.Convert(r.Start, offset),
			key:   joinKey(r.Start + offset),
			value: s.Value,
		}
	}
	return points, nil
}

type asyncTimeline struct {
	store  Store
	name   string
	sweeps []Sweep

	// resolved holds the sweeps read by resolveRange until readRange
	// consumes them.
	resolved map[int][]Sample
}

func (t *asyncTimeline) slack() float64 { return asyncTolerance }

func (t *asyncTimeline) span(sweep int) (Span, error) {
	sw := t.sweeps[sweep]

	first, err := t.store.ReadSamples(t.name, sweep, 0, 0)
	if err != nil {
		return Span{}, fmt.Errorf("error reading samples of %q: %w", t.name, err)
	}
	last, err := t.store.ReadSamples(t.name, sweep, sw.Samples-1, sw.Samples-1)
	if err != nil {
		return Span{}, fmt.Errorf("error reading samples of %q: %w", t.name, err)
	}
	if len(first) != 1 || len(last) != 1 {
		return Span{}, fmt.Errorf("error reading samples of %q sweep %d: %w", t.name, sweep, ErrShortRead)
	}

	return Span{
		Sweep: sweep,
		Start: sw.Start + first[0].Offset,
		End:   sw.Start + last[0].Offset,
	}, nil
}

func (t *asyncTimeline) resolveRange(sweep int, w Window) (int, int, error) {
	sw := t.sweeps[sweep]

	samples, err := readChecked(t.store, t.name, Range{Sweep: sweep, Start: sw.Start, First: 0, Last: sw.Samples - 1})
	if err != nil {
		return 0, -1, err
	}
	t.resolved[sweep] = samples

	first := 0
	if w.HasStart {
		first = sort.Search(len(samples), func(i int) bool {
			return sw.Start+samples[i].Offset >= w.Start-asyncTolerance
		})
	}
	last := len(samples) - 1
	if w.HasEnd {
		last = sort.Search(len(samples), func(i int) bool {
			return sw.Start+samples[i].Offset > w.End+asyncTolerance
		}) - 1
	}
	return first, last, nil
}

func (t *asyncTimeline) readRange(r Range, conv Converter) ([]point, error) {
	var samples []Sample
	if all, ok := t.resolved[r.Sweep]; ok {
		delete(t.resolved, r.Sweep)
		samples = all[r.First : r.Last+1]
	} else {
		var err error
		if samples, err = readChecked(t.store, t.name, r); err != nil {
			return nil, err
		}
	}

	points := make([]point, len(samples))
	for i, s := range samples {
		points[i] = point{
			at:    conv.Convert(r.Start, s.Offset),
			key:   joinKey(r.Start + s.Offset),
			value: s.Value,
		}
	}
	return points, nil
}

// readChecked reads a range and verifies the store returned all of it.
func readChecked(s Store, name string, r Range) ([]Sample, error) {
	samples, err := s.ReadSamples(name, r.Sweep, r.First, r.Last)
	if err != nil {
		return nil, fmt.Errorf("error reading samples of %q: %w", name, err)
	}
	if len(samples) != r.Len() {
		return nil, fmt.Errorf("error reading samples of %q sweep %d: got %d of %d: %w",
			name, r.Sweep, len(samples), r.Len(), ErrShortRead)
	}
	return samples, nil
}
