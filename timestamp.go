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
	"strings"
	"time"
)

// TimestampFormat selects the representation of the table index.
type TimestampFormat int

const (
	// TimestampSeconds indexes rows by seconds since acquisition start.
	TimestampSeconds TimestampFormat = iota
	// TimestampNone indexes rows by their ordinal position.
	TimestampNone
	// TimestampUTC indexes rows by absolute UTC time.
	TimestampUTC
	// TimestampLocal indexes rows by absolute time in the recording's zone.
	TimestampLocal
)

func (f TimestampFormat) String() string {
	switch f {
	case TimestampSeconds:
		return "seconds"
	case TimestampNone:
		return "none"
	case TimestampUTC:
		return "utc"
	case TimestampLocal:
		return "local"
	default:
		return fmt.Sprintf("TimestampFormat(%d)", int(f))
	}
}

// Valid reports whether f is a known format.
func (f TimestampFormat) Valid() bool {
	return f >= TimestampSeconds && f <= TimestampLocal
}

// ParseTimestampFormat parses the names returned by TimestampFormat.String.
func ParseTimestampFormat(s string) (TimestampFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "seconds", "seconds_since_start", "":
		return TimestampSeconds, nil
	case "none":
		return TimestampNone, nil
	case "utc", "absolute_utc_time":
		return TimestampUTC, nil
	case "local", "absolute_local_time":
		return TimestampLocal, nil
	default:
		return 0, fmt.Errorf("%w: unknown timestamp format %q", ErrConfiguration, s)
	}
}

// Timestamp is one converted index value. Which fields are set depends on the
// format: Index for TimestampNone, Seconds for every other format and Time for
// the absolute formats.
type Timestamp struct {
	Index   int       // Row ordinal
	Seconds float64   // Seconds since acquisition start
	Time    time.Time // Absolute instant
}

// Converter maps sample times onto a TimestampFormat.
type Converter struct {
	format TimestampFormat
	start  time.Time
	zone   *time.Location
}

// NewConverter returns a converter for the given format. start is the wall
// clock instant of acquisition start and tzOffset the recording's zone offset
// in minutes east of UTC.
func NewConverter(format TimestampFormat, start time.Time, tzOffset int) (Converter, error) {
	if !format.Valid() {
		return Converter{}, fmt.Errorf("%w: unknown timestamp format %d", ErrConfiguration, int(format))
	}

	return Converter{
		format: format,
		start:  start.UTC(),
		zone:   fixedZone(tzOffset),
	}, nil
}

// Format returns the format the converter produces.
func (c Converter) Format() TimestampFormat { return c.format }

// Convert returns the timestamp of a sample located offset seconds into a
// sweep starting at sweepStart.
func (c Converter) Convert(sweepStart, offset float64) Timestamp {
	s := sweepStart + offset

	switch c.format {
	case TimestampNone:
		return Timestamp{}
	case TimestampUTC:
		return Timestamp{Seconds: s, Time: c.start.Add(secondsToDuration(s))}
	case TimestampLocal:
		// Same instant as UTC, only the zone annotation differs.
		return Timestamp{Seconds: s, Time: c.start.Add(secondsToDuration(s)).In(c.zone)}
	default:
		return Timestamp{Seconds: s}
	}
}

func fixedZone(offsetMinutes int) *time.Location {
	sign := '+'
	m := offsetMinutes
	if m < 0 {
		sign = '-'
		m = -m
	}
	return time.FixedZone(fmt.Sprintf("UTC%c%02d:%02d", sign, m/60, m%60), offsetMinutes*60)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// joinKey is the alignment key of a sample time, nanoseconds since
// acquisition start.
func joinKey(s float64) int64 {
	return int64(math.Round(s * float64(time.Second)))
}
