// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package edf decodes European Data Format Plus (EDF+C) biosignal
// recordings: the fixed-layout ASCII header, the signal descriptor
// block, interleaved data records, and the embedded Time-stamped
// Annotations Lists (TAL).
package edf

import "time"

const (
	// TUnit is the fixed-point time resolution used for all onsets and
	// durations: 10,000,000 ticks per second (100ns units).
	TUnit int64 = 10_000_000

	// MaxSignals bounds the signal count accepted from a header, matching
	// the limit enforced by the format's reference implementations.
	MaxSignals = 640

	annotationLabel = "EDF Annotations "
)

// Header describes an EDF+ recording. It is built once by Open and never
// mutated afterwards.
type Header struct {
	Version string

	// Patient sub-fields (EDF+ patient identification field).
	PatientCode       string
	Sex               string
	Birthdate         string
	PatientName       string
	PatientAdditional string

	// Recording sub-fields (EDF+ recording identification field).
	AdminCode           string
	Technician          string
	Equipment           string
	RecordingAdditional string

	// StartTime is the recording's whole-second start date and time, UTC.
	StartTime time.Time

	// StartTimeSubsecond is the fractional-second part of the recording's
	// effective start time, in TUnit ticks, derived from the first TAL
	// record's timestamp annotation. Zero if the file carries no
	// annotation signal.
	StartTimeSubsecond int64

	// HeaderBytes is the total size, in bytes, of the main header plus
	// the signal descriptor block: (signalCountOnDisk+1) * 256.
	HeaderBytes int

	// DataRecords is the number of data records in the file.
	DataRecords int64

	// DataRecordDuration is the duration of one data record, in TUnit ticks.
	DataRecordDuration int64

	// FileDuration is DataRecordDuration * DataRecords, in TUnit ticks.
	FileDuration int64

	// AnnotationsInFile is an estimate of the annotation count, derived
	// from at most the first 100 data records (see Reader.Annotations
	// for the fully-scanned list, which may be longer).
	AnnotationsInFile int64

	// Signals holds the user-visible (non-annotation) signal descriptors,
	// in declared order.
	Signals []Signal
}

// Signal describes one user-visible (non-annotation) signal.
type Signal struct {
	Label             string
	Transducer        string
	PhysicalDimension string
	PhysicalMin       float64
	PhysicalMax       float64
	DigitalMin        int
	DigitalMax        int
	Prefilter         string
	SamplesPerRecord  int

	// SamplesInFile is SamplesPerRecord * the file's data-record count.
	SamplesInFile int64

	// bitValue and digitalOffset are the precomputed affine-calibration
	// terms used by toPhysical; see Reader.ReadPhysical.
	bitValue      float64
	digitalOffset float64
}

// toPhysical converts a clamped digital sample to its physical value
// using the signal's precomputed affine calibration.
func (s *Signal) toPhysical(digital int32) float64 {
	return (float64(digital) - s.digitalOffset) * s.bitValue
}

// signalSlot locates one on-disk signal's bytes within a data record.
// Unlike Signal, a slot exists for annotation signals too; it is never
// exposed to callers.
type signalSlot struct {
	bufferOffset     int
	samplesPerRecord int
	isAnnotation     bool
}

// Annotation is a single entry from a file's Time-stamped Annotations
// List: an onset, an optional duration, and a (possibly empty)
// description.
type Annotation struct {
	// Onset is signed, in TUnit ticks, relative to the recording's
	// whole-second start time (StartTime); it may be negative near the
	// start of the recording once the sub-second offset is subtracted.
	Onset int64

	// Duration is in TUnit ticks, or -1 if the TAL carried no duration
	// field.
	Duration int64

	Description string
}
