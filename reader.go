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
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Query describes one table request.
type Query struct {
	Channels []string        // Requested channels, the first one drives the rows
	Window   Window          // Time window in seconds since acquisition start
	Format   TimestampFormat // Representation of the table index
}

// Reader reads tables from a Store. It holds no per-query state and is safe
// for concurrent use when the Store is.
type Reader struct {
	store       Store
	log         *slog.Logger
	concurrency int
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.log = l
		}
	}
}

// WithConcurrency sets how many channels are extracted in parallel.
func WithConcurrency(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewReader returns a Reader over s.
func NewReader(s Store, opts ...Option) *Reader {
	r := &Reader{
		store:       s,
		log:         slog.New(slog.DiscardHandler),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Channels returns the channel names of the recording.
func (r *Reader) Channels() ([]string, error) {
	names, err := r.store.Channels()
	if err != nil {
		return nil, fmt.Errorf("error listing channels: %w", err)
	}
	return names, nil
}

// ChannelInfo returns the metadata of a channel.
func (r *Reader) ChannelInfo(name string) (ChannelInfo, error) {
	infos, err := r.lookup([]string{name})
	if err != nil {
		return ChannelInfo{}, err
	}
	return infos[0], nil
}

// Sweeps returns the sweeps of a channel.
func (r *Reader) Sweeps(name string) ([]Sweep, error) {
	if _, err := r.lookup([]string{name}); err != nil {
		return nil, err
	}
	sweeps, err := r.store.Sweeps(name)
	if err != nil {
		return nil, fmt.Errorf("error reading sweeps of %q: %w", name, err)
	}
	return sweeps, nil
}

// Extent returns the first and last sample time of a channel. ok is false
// when the channel holds no samples.
func (r *Reader) Extent(name string) (min, max float64, ok bool, err error) {
	infos, err := r.lookup([]string{name})
	if err != nil {
		return 0, 0, false, err
	}
	c, err := openChannel(r.store, infos[0])
	if err != nil {
		return 0, 0, false, err
	}
	min, max, ok = c.index.Extent()
	return min, max, ok, nil
}

// MeasurementDuration returns the time of the last sample of any channel.
func (r *Reader) MeasurementDuration() (float64, error) {
	names, err := r.Channels()
	if err != nil {
		return 0, err
	}

	var duration float64
	for _, name := range names {
		_, max, ok, err := r.Extent(name)
		if err != nil {
			return 0, err
		}
		if ok && max > duration {
			duration = max
		}
	}
	return duration, nil
}

// ReadTable reads the requested channels over a window and joins them into
// a table. Unknown channels fail with a *NotFoundError before any sample is
// read. A window without data yields an empty table.
func (r *Reader) ReadTable(q Query) (*Table, error) {
	if len(q.Channels) == 0 {
		return nil, fmt.Errorf("%w: no channels requested", ErrConfiguration)
	}
	if err := q.Window.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(q.Channels))
	for _, name := range q.Channels {
		if seen[name] {
			return nil, fmt.Errorf("%w: channel %q requested twice", ErrConfiguration, name)
		}
		seen[name] = true
	}

	infos, err := r.lookup(q.Channels)
	if err != nil {
		return nil, err
	}

	conv, err := r.converter(q.Format)
	if err != nil {
		return nil, err
	}

	all := make([]series, len(infos))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, info := range infos {
		g.Go(func() error {
			c, err := openChannel(r.store, info)
			if err != nil {
				return err
			}

			ranges, err := c.resolve(q.Window)
			if err != nil {
				return err
			}

			s, err := extract(c, ranges, conv)
			if err != nil {
				return err
			}

			r.log.Debug("extracted channel",
				"channel", info.Name, "window", q.Window.String(),
				"ranges", len(ranges), "samples", len(s.points))

			all[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	t := assemble(all, q.Format)
	r.log.Debug("assembled table",
		"channels", len(t.Columns), "rows", t.Rows(), "format", q.Format.String())

	return t, nil
}

// lookup validates all names in one pass and returns their metadata.
func (r *Reader) lookup(names []string) ([]ChannelInfo, error) {
	known, err := r.Channels()
	if err != nil {
		return nil, err
	}

	exists := make(map[string]bool, len(known))
	for _, name := range known {
		exists[name] = true
	}

	var missing []string
	for _, name := range names {
		if !exists[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &NotFoundError{Names: missing}
	}

	infos := make([]ChannelInfo, len(names))
	for i, name := range names {
		info, err := r.store.ChannelInfo(name)
		if err != nil {
			return nil, fmt.Errorf("error reading channel info of %q: %w", name, err)
		}
		info.Name = name
		infos[i] = info
	}
	return infos, nil
}

// converter builds the timestamp converter for a format. The store is only
// asked for wall clock metadata when an absolute format needs it.
func (r *Reader) converter(format TimestampFormat) (Converter, error) {
	if !format.Valid() {
		return Converter{}, fmt.Errorf("%w: unknown timestamp format %d", ErrConfiguration, int(format))
	}
	if format != TimestampUTC && format != TimestampLocal {
		return NewConverter(format, time.Time{}, 0)
	}

	start, err := r.store.AcquisitionStart()
	if err != nil {
		return Converter{}, fmt.Errorf("error reading acquisition start: %w", err)
	}
	offset, err := r.store.TimezoneOffset()
	if err != nil {
		return Converter{}, fmt.Errorf("error reading timezone offset: %w", err)
	}
	return NewConverter(format, start, offset)
}
