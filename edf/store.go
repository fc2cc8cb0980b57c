// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/OpenPSG/rectable"
)

// recordTolerance is the largest difference, in seconds, between the onset of
// a record and the end of the previous one for both to belong to one sweep.
const recordTolerance = 1e-6

// sweep is a run of contiguous data records.
type sweep struct {
	start       float64 // Onset of the first record
	firstRecord int
	records     int
}

// Store serves the ordinary signals of an EDF/EDF+ file as sync channels.
// All channels share the sweeps formed by contiguous data records.
type Store struct {
	rd       *Reader
	hdr      Header
	tzOffset int
	names    []string
	signals  map[string]int
	sweeps   []sweep
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTimezoneOffset sets the offset, in minutes east of UTC, of the wall
// clock the header start time was recorded in. EDF does not store it.
func WithTimezoneOffset(minutes int) StoreOption {
	return func(s *Store) {
		s.tzOffset = minutes
	}
}

// NewStore indexes the data records of an opened file.
func NewStore(rd *Reader, opts ...StoreOption) (*Store, error) {
	s := &Store{rd: rd, hdr: rd.Header(), signals: make(map[string]int)}
	for _, opt := range opts {
		opt(s)
	}

	if s.hdr.DataRecordDuration <= 0 {
		return nil, fmt.Errorf("invalid data record duration: %s", s.hdr.DataRecordDuration)
	}

	for i, sig := range s.hdr.Signals {
		if sig.IsAnnotations() || sig.SamplesPerRecord == 0 {
			continue
		}
		name := sig.Label
		if name == "" {
			name = fmt.Sprintf("Signal %d", i)
		}
		if _, ok := s.signals[name]; ok {
			name = fmt.Sprintf("%s #%d", name, i)
		}
		s.signals[name] = i
		s.names = append(s.names, name)
	}

	onsets, err := rd.RecordOnsets()
	if err != nil {
		return nil, fmt.Errorf("error reading record onsets: %w", err)
	}

	duration := s.hdr.DataRecordDuration.Seconds()
	for i, onset := range onsets {
		if n := len(s.sweeps); n > 0 {
			last := &s.sweeps[n-1]
			end := last.start + float64(last.records)*duration
			if onset < end-recordTolerance {
				return nil, fmt.Errorf("data record %d at %gs overlaps previous record", i, onset)
			}
			if math.Abs(onset-end) <= recordTolerance {
				last.records++
				continue
			}
		}
		s.sweeps = append(s.sweeps, sweep{start: onset, firstRecord: i, records: 1})
	}

	return s, nil
}

// Channels implements rectable.Store.
func (s *Store) Channels() ([]string, error) {
	return append([]string(nil), s.names...), nil
}

// ChannelInfo implements rectable.Store.
func (s *Store) ChannelInfo(name string) (rectable.ChannelInfo, error) {
	sig, err := s.signal(name)
	if err != nil {
		return rectable.ChannelInfo{}, err
	}

	return rectable.ChannelInfo{
		Name:       name,
		Unit:       sig.PhysicalDimension,
		Discipline: rectable.Sync,
		Rate:       float64(sig.SamplesPerRecord) / s.hdr.DataRecordDuration.Seconds(),
	}, nil
}

// Sweeps implements rectable.Store.
func (s *Store) Sweeps(name string) ([]rectable.Sweep, error) {
	sig, err := s.signal(name)
	if err != nil {
		return nil, err
	}

	out := make([]rectable.Sweep, len(s.sweeps))
	for i, sw := range s.sweeps {
		out[i] = rectable.Sweep{Start: sw.start, Samples: sw.records * sig.SamplesPerRecord}
	}
	return out, nil
}

// ReadSamples implements rectable.Store.
func (s *Store) ReadSamples(name string, sweepIndex, first, last int) ([]rectable.Sample, error) {
	sig, err := s.signal(name)
	if err != nil {
		return nil, err
	}
	if sweepIndex < 0 || sweepIndex >= len(s.sweeps) {
		return nil, fmt.Errorf("sweep index %d out of range", sweepIndex)
	}

	sw := s.sweeps[sweepIndex]
	spr := sig.SamplesPerRecord
	if first < 0 || last >= sw.records*spr {
		return nil, fmt.Errorf("sample range %d..%d out of range", first, last)
	}

	base := sw.firstRecord * spr
	values, err := s.rd.ReadSamples(s.signals[name], base+first, base+last)
	if err != nil {
		return nil, err
	}

	rate := float64(spr) / s.hdr.DataRecordDuration.Seconds()
	samples := make([]rectable.Sample, len(values))
	for i, v := range values {
		samples[i] = rectable.Sample{Offset: float64(first+i) / rate, Value: v}
	}
	return samples, nil
}

// AcquisitionStart implements rectable.Store. The header start time is read
// as wall clock time in the configured zone.
func (s *Store) AcquisitionStart() (time.Time, error) {
	st := s.hdr.StartTime
	zone := time.FixedZone("", s.tzOffset*60)
	return time.Date(st.Year(), st.Month(), st.Day(), st.Hour(), st.Minute(), st.Second(), st.Nanosecond(), zone).UTC(), nil
}

// TimezoneOffset implements rectable.Store.
func (s *Store) TimezoneOffset() (int, error) {
	return s.tzOffset, nil
}

func (s *Store) signal(name string) (Signal, error) {
	i, ok := s.signals[name]
	if !ok {
		return Signal{}, fmt.Errorf("%w: %q", rectable.ErrNotFound, name)
	}
	return s.hdr.Signals[i], nil
}

// File is a Store backed by an open file.
type File struct {
	*Store
	f *os.File
}

// OpenFile opens an EDF/EDF+ file from disk.
func OpenFile(name string, opts ...StoreOption) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	rd, err := Open(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	s, err := NewStore(rd, opts...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &File{Store: s, f: f}, nil
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.f.Close()
}
