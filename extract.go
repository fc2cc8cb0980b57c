// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package rectable

// point is one extracted sample.
type point struct {
	at    Timestamp // Converted timestamp
	key   int64     // Nanoseconds since acquisition start, used for alignment
	value float64
}

// series is the ordered output of one channel.
type series struct {
	info   ChannelInfo
	points []point
}

// extract reads every range of c in order. Sweeps never overlap, so plain
// concatenation keeps the points ordered by time.
func extract(c *channel, ranges []Range, conv Converter) (series, error) {
	n := 0
	for _, r := range ranges {
		n += r.Len()
	}

	out := series{info: c.info, points: make([]point, 0, n)}
	for _, r := range ranges {
		points, err := c.tl.readRange(r, conv)
		if err != nil {
			return series{}, err
		}
		out.points = append(out.points, points...)
	}
	return out, nil
}
