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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// ErrDiscontinuous is returned when a record with a gap is written to a file
// that cannot represent it.
var ErrDiscontinuous = errors.New("discontinuous data records require an EDF+D file with an annotations signal")

// Writer writes EDF and EDF+ files.
type Writer struct {
	w           io.WriteSeeker
	hdr         *Header
	annotations int     // Index of the annotations signal, -1 if none
	dataRecords int     // Number of data records written so far
	nextOnset   float64 // Onset of the next contiguous record
}

// Create creates a new EDF writer that writes to the given writer. EDF+ files
// must include a signal labelled AnnotationsLabel, its data is generated by
// the writer.
func Create(w io.WriteSeeker, hdr Header) (*Writer, error) {
	if hdr.SignalCount != len(hdr.Signals) {
		return nil, fmt.Errorf("signal count %d does not match %d signals", hdr.SignalCount, len(hdr.Signals))
	}
	if hdr.DataRecordDuration <= 0 {
		return nil, fmt.Errorf("invalid data record duration: %s", hdr.DataRecordDuration)
	}

	hdr.DataRecords = -1 // Unknown number of data records (at this time).
	hdr.Signals = append([]Signal(nil), hdr.Signals...)

	ew := &Writer{w: w, hdr: &hdr, annotations: hdr.AnnotationSignal()}
	if hdr.IsPlus() && ew.annotations < 0 {
		return nil, fmt.Errorf("%s file requires an %s signal", hdr.Reserved, AnnotationsLabel)
	}

	// Write the initial header
	if err := ew.writeHeader(); err != nil {
		return nil, fmt.Errorf("error writing header: %w", err)
	}

	return ew, nil
}

// Close finalizes the EDF file by updating the header with the total number of data records.
func (ew *Writer) Close() error {
	// Finalize the header with the actual number of data records
	ew.hdr.DataRecords = ew.dataRecords
	if err := ew.writeHeader(); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	return nil
}

// WriteRecord writes a data record directly after the previous one.
func (ew *Writer) WriteRecord(signals [][]float64) error {
	return ew.WriteRecordAt(ew.nextOnset, signals)
}

// WriteRecordAt writes a data record starting onset seconds after the header
// start time. The slot of the annotations signal is ignored and filled with
// the record's time-keeping annotation.
func (ew *Writer) WriteRecordAt(onset float64, signals [][]float64) error {
	if len(signals) != ew.hdr.SignalCount {
		return fmt.Errorf("expected %d signals, got %d", ew.hdr.SignalCount, len(signals))
	}
	if onset < ew.nextOnset-1e-9 {
		return fmt.Errorf("record onset %g overlaps previous record ending at %g", onset, ew.nextOnset)
	}
	// Only EDF+ can shift the first record, only EDF+D can leave gaps after it.
	if gap := math.Abs(onset-ew.nextOnset) > 1e-9; gap {
		if ew.annotations < 0 || (ew.dataRecords > 0 && ew.hdr.Reserved != ReservedDiscontinuous) {
			return ErrDiscontinuous
		}
	}

	var totalSamples int
	for i, signal := range ew.hdr.Signals {
		if i != ew.annotations && len(signals[i]) != signal.SamplesPerRecord {
			return fmt.Errorf("signal %d: expected %d samples, got %d", i, signal.SamplesPerRecord, len(signals[i]))
		}
		totalSamples += signal.SamplesPerRecord
	}

	// As recommended by the EDF standard.
	if totalSamples*2 > 61440 {
		return fmt.Errorf("data record too large: %d bytes, max is 61440 bytes", totalSamples*2)
	}

	writer := bufio.NewWriter(ew.w)

	// Write each signal's data
	for i, signal := range ew.hdr.Signals {
		if i == ew.annotations {
			tal, err := timeKeepingTAL(onset, signal.SamplesPerRecord*2)
			if err != nil {
				return err
			}
			if _, err := writer.Write(tal); err != nil {
				return err
			}
			continue
		}

		for _, sample := range signals[i] {
			digitalValue := convertPhysicalToDigital(sample, signal.PhysicalMin, signal.PhysicalMax, signal.DigitalMin, signal.DigitalMax)
			if err := binary.Write(writer, binary.LittleEndian, digitalValue); err != nil {
				return err
			}
		}
	}

	// Ensure all data is flushed to the underlying writer
	if err := writer.Flush(); err != nil {
		return err
	}

	ew.dataRecords++
	ew.nextOnset = onset + ew.hdr.DataRecordDuration.Seconds()
	return nil
}

// writeHeader writes the EDF header at the start of the file.
func (ew *Writer) writeHeader() error {
	// Rewind to the beginning of the file.
	if _, err := ew.w.Seek(0, io.SeekStart); err != nil {
		return err
	}

	ew.hdr.HeaderBytes = 256 + (ew.hdr.SignalCount * 256)

	writer := bufio.NewWriter(ew.w)
	fmt.Fprintf(writer, "%-8s", ew.hdr.Version)
	fmt.Fprintf(writer, "%-80s", ew.hdr.PatientID)
	fmt.Fprintf(writer, "%-80s", ew.hdr.RecordingID)
	fmt.Fprintf(writer, "%-8s", ew.hdr.StartTime.Format("02.01.06"))
	fmt.Fprintf(writer, "%-8s", ew.hdr.StartTime.Format("15.04.05"))
	fmt.Fprintf(writer, "%-8d", ew.hdr.HeaderBytes)
	fmt.Fprintf(writer, "%-44s", ew.hdr.Reserved)
	fmt.Fprintf(writer, "%-8d", ew.hdr.DataRecords)
	fmt.Fprintf(writer, "%-8s", formatDuration(ew.hdr.DataRecordDuration.Seconds()))
	fmt.Fprintf(writer, "%-4d", ew.hdr.SignalCount)

	fields := []func(s Signal) string{
		func(s Signal) string { return fmt.Sprintf("%-16s", s.Label) },
		func(s Signal) string { return fmt.Sprintf("%-80s", s.TransducerType) },
		func(s Signal) string { return fmt.Sprintf("%-8s", s.PhysicalDimension) },
		func(s Signal) string { return formatPhysicalValue(s.PhysicalMin) },
		func(s Signal) string { return formatPhysicalValue(s.PhysicalMax) },
		func(s Signal) string { return fmt.Sprintf("%-8d", s.DigitalMin) },
		func(s Signal) string { return fmt.Sprintf("%-8d", s.DigitalMax) },
		func(s Signal) string { return fmt.Sprintf("%-80s", s.Prefiltering) },
		func(s Signal) string { return fmt.Sprintf("%-8d", s.SamplesPerRecord) },
		func(s Signal) string { return fmt.Sprintf("%-32s", "") }, // Reserved for future use
	}
	for _, field := range fields {
		for _, signal := range ew.hdr.Signals {
			if _, err := writer.WriteString(field(signal)); err != nil {
				return err
			}
		}
	}

	// Ensure all data is flushed to the underlying writer
	return writer.Flush()
}

// timeKeepingTAL encodes the time-keeping annotation of a record padded to size bytes.
func timeKeepingTAL(onset float64, size int) ([]byte, error) {
	tal := strconv.AppendFloat([]byte{'+'}, onset, 'f', -1, 64)
	tal = append(tal, 0x14, 0x14, 0x00)
	if len(tal) > size {
		return nil, fmt.Errorf("annotations signal too small for onset %g: need %d bytes, have %d", onset, len(tal), size)
	}
	return append(tal, make([]byte, size-len(tal))...), nil
}

// convertPhysicalToDigital converts a physical value to a digital value using the calibration factors.
func convertPhysicalToDigital(physical float64, pmin, pmax float64, dmin, dmax int) int16 {
	if pmax == pmin {
		return 0 // Avoid division by zero
	}
	digital := math.Round(((physical - pmin) * (float64(dmax - dmin)) / (pmax - pmin)) + float64(dmin))
	return int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, digital)))
}

func formatPhysicalValue(val float64) string {
	// Try with 2 decimal places
	s := fmt.Sprintf("%.2f", val)
	if len(s) > 8 {
		// Fall back to no decimal
		s = fmt.Sprintf("%.0f", val)
	}
	return fmt.Sprintf("%-8s", s)
}

func formatDuration(seconds float64) string {
	s := strconv.FormatFloat(seconds, 'f', -1, 64)
	if len(s) > 8 {
		s = s[:8]
	}
	return s
}
