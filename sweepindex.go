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
	"sort"
)

// Span is the time covered by one non-empty sweep, from its first to its last
// sample.
type Span struct {
	Sweep int     // Index of the sweep in the channel's sweep list
	Start float64 // Time of the first sample
	End   float64 // Time of the last sample
}

// SweepIndex answers interval queries over the sweeps of one channel.
type SweepIndex struct {
	spans []Span
}

// NewSweepIndex builds an index over spans ordered by start time. Spans must
// not overlap.
func NewSweepIndex(spans []Span) (*SweepIndex, error) {
	for i, s := range spans {
		if s.End < s.Start {
			return nil, fmt.Errorf("sweep %d ends at %g before it starts at %g", s.Sweep, s.End, s.Start)
		}
		if i > 0 && s.Start <= spans[i-1].End {
			return nil, fmt.Errorf("sweep %d at %g overlaps sweep %d ending at %g",
				s.Sweep, s.Start, spans[i-1].Sweep, spans[i-1].End)
		}
	}

	return &SweepIndex{spans: spans}, nil
}

// Len returns the number of indexed sweeps.
func (idx *SweepIndex) Len() int { return len(idx.spans) }

// Intersecting returns the spans overlapping w in time order. Both ends are
// inclusive.
func (idx *SweepIndex) Intersecting(w Window) []Span {
	lo, hi := w.lower(), w.upper()

	i := sort.Search(len(idx.spans), func(i int) bool {
		return idx.spans[i].End >= lo
	})

	var out []Span
	for ; i < len(idx.spans) && idx.spans[i].Start <= hi; i++ {
		out = append(out, idx.spans[i])
	}
	return out
}

// Extent returns the first and last sample time of the channel. ok is false
// when the channel holds no samples.
func (idx *SweepIndex) Extent() (min, max float64, ok bool) {
	if len(idx.spans) == 0 {
		return 0, 0, false
	}
	return idx.spans[0].Start, idx.spans[len(idx.spans)-1].End, true
}
