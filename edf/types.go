// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package edf reads and writes EDF/EDF+ recordings and exposes them as a
// rectable.Store.
package edf

import "time"

type Version string

const (
	// Version0 represents the version of the EDF/EDF+ standard.
	Version0 Version = "0"
)

const (
	// ReservedContinuous marks an EDF+ file whose data records are contiguous.
	ReservedContinuous = "EDF+C"
	// ReservedDiscontinuous marks an EDF+ file whose data records may have gaps.
	ReservedDiscontinuous = "EDF+D"
	// AnnotationsLabel is the label of the EDF+ annotations signal.
	AnnotationsLabel = "EDF Annotations"
)

// Header represents the EDF/EDF+ file header.
type Header struct {
	Version            Version       // Version of the EDF/EDF+ standard (usually "0")
	PatientID          string        // Identification of the patient
	RecordingID        string        // Identification of the recording session
	StartTime          time.Time     // Start date and time of the recording (local wall clock)
	HeaderBytes        int           // Number of bytes in the header
	Reserved           string        // "EDF+C", "EDF+D" or empty for plain EDF
	DataRecordDuration time.Duration // Duration of a single data record
	DataRecords        int           // Number of data records, -1 if unknown
	SignalCount        int           // Number of signals in each data record
	Signals            []Signal      // Details of each signal
}

// Signal represents the characteristics of each signal in the EDF/EDF+ file.
type Signal struct {
	Label             string  // Label of the signal (e.g., EEG Fpz-Cz)
	TransducerType    string  // Type of transducer used
	PhysicalDimension string  // Physical dimension (e.g., uV, mV)
	PhysicalMin       float64 // Minimum physical value
	PhysicalMax       float64 // Maximum physical value
	DigitalMin        int     // Minimum digital value
	DigitalMax        int     // Maximum digital value
	Prefiltering      string  // Pre-filtering information
	SamplesPerRecord  int     // Number of samples in each data record for this signal
	Reserved          string  // Reserved for future use
}

// Annotation is one time-stamped annotation list (TAL) entry.
type Annotation struct {
	Onset    float64  // Seconds since the header start time
	Duration float64  // Seconds, zero if not given
	Texts    []string // Annotation texts, empty for time-keeping entries
}

// IsPlus reports whether the file is EDF+.
func (h *Header) IsPlus() bool {
	return h.Reserved == ReservedContinuous || h.Reserved == ReservedDiscontinuous
}

// AnnotationSignal returns the index of the first EDF+ annotations signal, or
// -1 if there is none.
func (h *Header) AnnotationSignal() int {
	for i, s := range h.Signals {
		if s.IsAnnotations() {
			return i
		}
	}
	return -1
}

// IsAnnotations reports whether the signal carries EDF+ annotations.
func (s Signal) IsAnnotations() bool {
	return s.Label == AnnotationsLabel
}
