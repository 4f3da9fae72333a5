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
	"encoding/binary"
	"io"
	"os"
)

// Reader provides random-access sample and annotation retrieval over an
// EDF+C recording. A Reader is not safe for concurrent use by multiple
// goroutines; each Reader owns independent per-signal read cursors.
type Reader struct {
	r     io.ReadSeeker
	hdr   *Header
	slots []signalSlot

	// userSlot[i] is the index into slots for the i-th user-visible signal.
	userSlot []int

	headerBytes int
	recordSize  int

	cursors []int64

	annotations []Annotation
}

// Open parses the header, signal descriptors, and annotation streams of
// an EDF+C recording from r, returning a Reader ready for sample access.
// r is not closed by Open or by the returned Reader; callers that opened
// an *os.File retain responsibility for closing it.
func Open(r io.ReadSeeker) (*Reader, error) {
	hdr, slots, recordSize, err := decodeHeader(r)
	if err != nil {
		return nil, err
	}

	headerBytes := hdr.HeaderBytes

	count, subsecond := firstPassAnnotations(r, slots, headerBytes, recordSize, hdr.DataRecords)
	hdr.AnnotationsInFile = count
	hdr.StartTimeSubsecond = subsecond

	anns, err := secondPassAnnotations(r, slots, headerBytes, recordSize, hdr.DataRecords, hdr.DataRecordDuration, subsecond)
	if err != nil {
		return nil, err
	}

	userSlot := make([]int, 0, len(hdr.Signals))
	for i, s := range slots {
		if !s.isAnnotation {
			userSlot = append(userSlot, i)
		}
	}

	return &Reader{
		r:           r,
		hdr:         hdr,
		slots:       slots,
		userSlot:    userSlot,
		headerBytes: headerBytes,
		recordSize:  recordSize,
		cursors:     make([]int64, len(hdr.Signals)),
		annotations: anns,
	}, nil
}

// OpenFile opens the file at path and parses it as an EDF+C recording.
// The returned Reader's lifetime owns the underlying *os.File: closing
// the Reader is not exposed separately, so callers needing explicit
// teardown should use Open with their own *os.File instead.
func OpenFile(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Kind: KindFileNotFound, Path: path, Err: err}
	}
	return Open(f)
}

// Header returns the recording's immutable header.
func (rd *Reader) Header() *Header {
	return rd.hdr
}

// Annotations returns the full, sorted (ascending onset) annotation
// list. The record-start timestamp annotations are never included.
func (rd *Reader) Annotations() []Annotation {
	return rd.annotations
}

func (rd *Reader) checkSignal(signal int) error {
	if signal < 0 || signal >= len(rd.hdr.Signals) {
		return &Error{Kind: KindInvalidSignalIndex, Index: signal}
	}
	return nil
}

// Seek sets signal's cursor to position, clamped to
// [0, samples-in-file], and returns the clamped value.
func (rd *Reader) Seek(signal int, position int64) (int64, error) {
	if err := rd.checkSignal(signal); err != nil {
		return 0, err
	}

	max := rd.hdr.Signals[signal].SamplesInFile
	if position < 0 {
		position = 0
	} else if position > max {
		position = max
	}

	rd.cursors[signal] = position
	return position, nil
}

// Tell returns signal's current cursor.
func (rd *Reader) Tell(signal int) (int64, error) {
	if err := rd.checkSignal(signal); err != nil {
		return 0, err
	}
	return rd.cursors[signal], nil
}

// Rewind resets signal's cursor to 0.
func (rd *Reader) Rewind(signal int) error {
	_, err := rd.Seek(signal, 0)
	return err
}

// ReadDigital reads up to n raw digital samples from signal starting at
// its cursor, advancing the cursor by the number of samples actually
// returned. It returns fewer than n samples only at end-of-signal.
func (rd *Reader) ReadDigital(signal int, n int) ([]int32, error) {
	if err := rd.checkSignal(signal); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	sig := &rd.hdr.Signals[signal]
	slot := rd.slots[rd.userSlot[signal]]

	start := rd.cursors[signal]
	available := sig.SamplesInFile - start
	if available < 0 {
		available = 0
	}
	toRead := int64(n)
	if toRead > available {
		toRead = available
	}
	if toRead == 0 {
		return nil, nil
	}

	out := make([]int32, 0, toRead)
	pos := start
	samplesPerRecord := int64(slot.samplesPerRecord)
	buf := make([]byte, 0, 4096)

	for int64(len(out)) < toRead {
		recordIndex := pos / samplesPerRecord
		sampleInRecord := pos % samplesPerRecord

		runLen := samplesPerRecord - sampleInRecord
		remaining := toRead - int64(len(out))
		if runLen > remaining {
			runLen = remaining
		}

		offset := int64(rd.headerBytes) + recordIndex*int64(rd.recordSize) + int64(slot.bufferOffset) + sampleInRecord*2
		if _, err := rd.r.Seek(offset, io.SeekStart); err != nil {
			rd.cursors[signal] = pos
			return out, &Error{Kind: KindFileReadError, Err: err}
		}

		need := int(runLen) * 2
		if cap(buf) < need {
			buf = make([]byte, need)
		} else {
			buf = buf[:need]
		}
		if _, err := io.ReadFull(rd.r, buf); err != nil {
			rd.cursors[signal] = pos
			return out, &Error{Kind: KindFileReadError, Err: err}
		}

		for i := 0; i < int(runLen); i++ {
			raw := int32(int16(binary.LittleEndian.Uint16(buf[i*2 : i*2+2])))
			if raw < int32(sig.DigitalMin) {
				raw = int32(sig.DigitalMin)
			} else if raw > int32(sig.DigitalMax) {
				raw = int32(sig.DigitalMax)
			}
			out = append(out, raw)
		}

		pos += runLen
	}

	rd.cursors[signal] = pos
	return out, nil
}

// ReadPhysical behaves as ReadDigital, but converts each sample to its
// physical value via the signal's affine calibration.
func (rd *Reader) ReadPhysical(signal int, n int) ([]float64, error) {
	digital, err := rd.ReadDigital(signal, n)
	if err != nil {
		return nil, err
	}
	if len(digital) == 0 {
		return nil, nil
	}

	sig := &rd.hdr.Signals[signal]
	out := make([]float64, len(digital))
	for i, d := range digital {
		out[i] = sig.toPhysical(d)
	}
	return out, nil
}
