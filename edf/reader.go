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
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Reader reads EDF/EDF+ files. Reads go through io.ReaderAt, so a Reader is
// safe for concurrent use.
type Reader struct {
	r            io.ReaderAt
	hdr          *Header
	recordSize   int   // Total size of one data record in bytes
	signalOffset []int // Byte offset of each signal in a record
}

// Open opens an EDF/EDF+ file for reading.
func Open(r io.ReaderAt) (*Reader, error) {
	reader := bufio.NewReader(io.NewSectionReader(r, 0, 1<<62))

	b := make([]byte, 256)
	if _, err := io.ReadFull(reader, b); err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	// Parse fields based on EDF/EDF+ specifications
	hdr := &Header{}
	hdr.Version = Version(strings.TrimSpace(string(b[0:8])))
	hdr.PatientID = strings.TrimSpace(string(b[8:88]))
	hdr.RecordingID = strings.TrimSpace(string(b[88:168]))
	dateStr := strings.TrimSpace(string(b[168:176]))
	timeStr := strings.TrimSpace(string(b[176:184]))

	startDate, err := time.Parse("02.01.06", dateStr)
	if err != nil {
		return nil, fmt.Errorf("error parsing start date: %w", err)
	}
	startTime, err := time.Parse("15.04.05", timeStr)
	if err != nil {
		return nil, fmt.Errorf("error parsing start time: %w", err)
	}
	hdr.StartTime = time.Date(startDate.Year(), startDate.Month(), startDate.Day(),
		startTime.Hour(), startTime.Minute(), startTime.Second(), 0, time.UTC)

	if hdr.HeaderBytes, err = strconv.Atoi(strings.TrimSpace(string(b[184:192]))); err != nil {
		return nil, fmt.Errorf("error parsing header bytes: %w", err)
	}

	hdr.Reserved = strings.TrimSpace(string(b[192:236]))

	if hdr.DataRecords, err = strconv.Atoi(strings.TrimSpace(string(b[236:244]))); err != nil {
		return nil, fmt.Errorf("error parsing number of data records: %w", err)
	}

	hdr.DataRecordDuration, err = time.ParseDuration(fmt.Sprintf("%ss", strings.TrimSpace(string(b[244:252]))))
	if err != nil {
		return nil, fmt.Errorf("error parsing data record duration: %w", err)
	}

	if hdr.SignalCount, err = strconv.Atoi(strings.TrimSpace(string(b[252:256]))); err != nil {
		return nil, fmt.Errorf("error parsing signal count: %w", err)
	}
	if hdr.SignalCount < 0 {
		return nil, fmt.Errorf("invalid signal count: %d", hdr.SignalCount)
	}

	// Signal headers are stored field by field, each field repeated for every signal.
	hdr.Signals = make([]Signal, hdr.SignalCount)
	fields := []struct {
		width int
		set   func(s *Signal, v []byte)
	}{
		{16, func(s *Signal, v []byte) { s.Label = trim(v) }},
		{80, func(s *Signal, v []byte) { s.TransducerType = trim(v) }},
		{8, func(s *Signal, v []byte) { s.PhysicalDimension = trim(v) }},
		{8, func(s *Signal, v []byte) { s.PhysicalMin = parseFloat(v) }},
		{8, func(s *Signal, v []byte) { s.PhysicalMax = parseFloat(v) }},
		{8, func(s *Signal, v []byte) { s.DigitalMin = parseInt(v) }},
		{8, func(s *Signal, v []byte) { s.DigitalMax = parseInt(v) }},
		{80, func(s *Signal, v []byte) { s.Prefiltering = trim(v) }},
		{8, func(s *Signal, v []byte) { s.SamplesPerRecord = parseInt(v) }},
		{32, func(s *Signal, v []byte) { s.Reserved = trim(v) }},
	}
	for _, field := range fields {
		b := make([]byte, field.width)
		for i := range hdr.Signals {
			if _, err := io.ReadFull(reader, b); err != nil {
				return nil, fmt.Errorf("error reading signal headers: %w", err)
			}
			field.set(&hdr.Signals[i], b)
		}
	}

	er := &Reader{r: r, hdr: hdr, signalOffset: make([]int, hdr.SignalCount)}
	for i, sig := range hdr.Signals {
		if sig.SamplesPerRecord < 0 {
			return nil, fmt.Errorf("signal %d has negative samples per record", i)
		}
		er.signalOffset[i] = er.recordSize
		er.recordSize += sig.SamplesPerRecord * 2
	}

	return er, nil
}

// Header returns the parsed file header.
func (er *Reader) Header() Header {
	hdr := *er.hdr
	hdr.Signals = append([]Signal(nil), er.hdr.Signals...)
	return hdr
}

// ReadSamples returns the physical values of samples first..last (inclusive)
// of a signal, counted across data records.
func (er *Reader) ReadSamples(signalIndex, first, last int) ([]float64, error) {
	if signalIndex < 0 || signalIndex >= len(er.hdr.Signals) {
		return nil, fmt.Errorf("signal index out of range")
	}

	signal := er.hdr.Signals[signalIndex]
	spr := signal.SamplesPerRecord
	if first < 0 || last < first-1 || last >= er.hdr.DataRecords*spr {
		return nil, fmt.Errorf("sample range %d..%d out of range", first, last)
	}

	data := make([]float64, 0, last-first+1)
	buf := make([]byte, spr*2)
	for sample := first; sample <= last; {
		record, offset := sample/spr, sample%spr
		n := min(spr-offset, last-sample+1)

		block := buf[:n*2]
		if err := er.readRecordBlock(record, signalIndex, offset, block); err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			digitalValue := int16(binary.LittleEndian.Uint16(block[i*2:]))
			data = append(data, convertDigitalToPhysical(digitalValue, signal.DigitalMin, signal.DigitalMax, signal.PhysicalMin, signal.PhysicalMax))
		}

		sample += n
	}

	return data, nil
}

// ReadAnnotations returns the annotations stored in one data record.
func (er *Reader) ReadAnnotations(record int) ([]Annotation, error) {
	signalIndex := er.hdr.AnnotationSignal()
	if signalIndex < 0 {
		return nil, fmt.Errorf("file has no %s signal", AnnotationsLabel)
	}
	if record < 0 || record >= er.hdr.DataRecords {
		return nil, fmt.Errorf("data record %d out of range", record)
	}

	block := make([]byte, er.hdr.Signals[signalIndex].SamplesPerRecord*2)
	if err := er.readRecordBlock(record, signalIndex, 0, block); err != nil {
		return nil, err
	}

	return parseAnnotations(block)
}

// RecordOnsets returns the start of every data record in seconds since the
// header start time. EDF+ files take it from the time-keeping annotation of
// each record, plain EDF files are contiguous.
func (er *Reader) RecordOnsets() ([]float64, error) {
	if er.hdr.DataRecords < 0 {
		return nil, fmt.Errorf("unknown number of data records")
	}

	onsets := make([]float64, er.hdr.DataRecords)
	duration := er.hdr.DataRecordDuration.Seconds()
	if !er.hdr.IsPlus() || er.hdr.AnnotationSignal() < 0 {
		for i := range onsets {
			onsets[i] = float64(i) * duration
		}
		return onsets, nil
	}

	for i := range onsets {
		annotations, err := er.ReadAnnotations(i)
		if err != nil {
			return nil, err
		}
		if len(annotations) == 0 {
			return nil, fmt.Errorf("data record %d has no time-keeping annotation", i)
		}
		onsets[i] = annotations[0].Onset
	}
	return onsets, nil
}

func (er *Reader) readRecordBlock(record, signalIndex, sampleOffset int, block []byte) error {
	pos := int64(er.hdr.HeaderBytes) + int64(record)*int64(er.recordSize) + int64(er.signalOffset[signalIndex]) + int64(sampleOffset*2)
	n, err := er.r.ReadAt(block, pos)
	if n == len(block) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("error reading sample data: %w", err)
}

// parseAnnotations decodes the time-stamped annotation lists of one record.
// Each TAL is "+onset[\x15duration]\x14text\x14...\x14\x00".
func parseAnnotations(block []byte) ([]Annotation, error) {
	var annotations []Annotation
	for _, tal := range bytes.Split(block, []byte{0}) {
		if len(tal) == 0 {
			continue
		}

		parts := bytes.Split(tal, []byte{0x14})
		timing := bytes.SplitN(parts[0], []byte{0x15}, 2)

		var a Annotation
		var err error
		if a.Onset, err = strconv.ParseFloat(string(timing[0]), 64); err != nil {
			return nil, fmt.Errorf("error parsing annotation onset: %w", err)
		}
		if len(timing) == 2 && len(timing[1]) > 0 {
			if a.Duration, err = strconv.ParseFloat(string(timing[1]), 64); err != nil {
				return nil, fmt.Errorf("error parsing annotation duration: %w", err)
			}
		}
		for _, text := range parts[1:] {
			if len(text) > 0 {
				a.Texts = append(a.Texts, string(text))
			}
		}

		annotations = append(annotations, a)
	}
	return annotations, nil
}

// convertDigitalToPhysical converts a digital value from the data record to a physical value using the calibration factors.
func convertDigitalToPhysical(digital int16, dmin, dmax int, pmin, pmax float64) float64 {
	if dmax == dmin {
		return 0 // Avoid division by zero
	}
	return pmin + (float64(digital)-float64(dmin))*(pmax-pmin)/float64(dmax-dmin)
}

func trim(b []byte) string {
	return strings.TrimSpace(string(b))
}

func parseFloat(b []byte) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	if err != nil {
		return 0.0
	}
	return f
}

func parseInt(b []byte) int {
	i, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0
	}
	return i
}
