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
	"io"
	"strings"
	"time"
)

// decodeHeader reads and validates the 256-byte main header and the
// N*256-byte signal descriptor block, returning the user-visible Header,
// the full (including annotation) signal slot list in declared order,
// and the data-record size in bytes.
func decodeHeader(r io.ReadSeeker) (*Header, []signalSlot, int, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, nil, 0, newError(KindFileReadError, "", err)
	}

	br := bufio.NewReader(r)

	main := make([]byte, 256)
	if _, err := io.ReadFull(br, main); err != nil {
		return nil, nil, 0, newError(KindFileReadError, "main header", err)
	}

	version := strings.TrimSpace(string(main[0:8]))
	if !strings.HasPrefix(version, "0") {
		return nil, nil, 0, newError(KindUnsupportedFileType, "version", nil)
	}

	signalCount := int(parseInt(main[252:256]))
	if signalCount < 1 || signalCount > MaxSignals {
		return nil, nil, 0, &Error{Kind: KindInvalidSignalCount, Field: "signal count", Index: signalCount}
	}

	expectedHeaderBytes := (signalCount + 1) * 256
	headerBytes := int(parseInt(main[184:192]))
	if headerBytes != expectedHeaderBytes {
		return nil, nil, 0, newError(KindInvalidHeader, "header size", nil)
	}

	reserved := string(main[192:236])
	if !strings.HasPrefix(reserved, "EDF+C") {
		return nil, nil, 0, newError(KindUnsupportedFileType, "reserved", nil)
	}

	dateStr := strings.TrimSpace(string(main[168:176]))
	timeStr := strings.TrimSpace(string(main[176:184]))
	startTime, err := parseStartDateTime(dateStr, timeStr)
	if err != nil {
		return nil, nil, 0, err
	}

	dataRecords := parseInt(main[236:244])
	recordDuration := parseDuration(main[244:252])

	patientCode, sex, birthdate, patientName, patientAdditional := splitPatientField(string(main[8:88]))
	adminCode, technician, equipment, recordingAdditional := splitRecordingField(string(main[88:168]))

	signalHeader := make([]byte, signalCount*256)
	if _, err := io.ReadFull(br, signalHeader); err != nil {
		return nil, nil, 0, newError(KindFileReadError, "signal header", err)
	}

	signals, slots, recordSize, err := decodeSignals(signalHeader, signalCount, dataRecords)
	if err != nil {
		return nil, nil, 0, err
	}

	hdr := &Header{
		Version:             version,
		PatientCode:         patientCode,
		Sex:                 sex,
		Birthdate:           birthdate,
		PatientName:         patientName,
		PatientAdditional:   patientAdditional,
		AdminCode:           adminCode,
		Technician:          technician,
		Equipment:           equipment,
		RecordingAdditional: recordingAdditional,
		StartTime:           startTime,
		HeaderBytes:         headerBytes,
		DataRecords:         dataRecords,
		DataRecordDuration:  recordDuration,
		FileDuration:        recordDuration * dataRecords,
		Signals:             signals,
	}

	return hdr, slots, recordSize, nil
}

// decodeSignals parses the column-major signal descriptor block: each
// field is stored contiguously for all N signals before the next field
// begins (label x N, transducer x N, ...). This walks the block in that
// same column order, matching the on-disk layout exactly.
func decodeSignals(b []byte, n int, dataRecords int64) ([]Signal, []signalSlot, int, error) {
	labels := make([]string, n)
	rawLabels := make([][]byte, n)
	off := 0
	for i := 0; i < n; i++ {
		rawLabels[i] = b[off : off+16]
		labels[i] = strings.TrimSpace(string(b[off : off+16]))
		off += 16
	}

	transducers := make([]string, n)
	for i := 0; i < n; i++ {
		transducers[i] = strings.TrimSpace(string(b[off : off+80]))
		off += 80
	}

	dims := make([]string, n)
	for i := 0; i < n; i++ {
		dims[i] = strings.TrimSpace(string(b[off : off+8]))
		off += 8
	}

	physMins := make([]float64, n)
	for i := 0; i < n; i++ {
		physMins[i] = parseFloat(b[off : off+8])
		off += 8
	}

	physMaxs := make([]float64, n)
	for i := 0; i < n; i++ {
		physMaxs[i] = parseFloat(b[off : off+8])
		off += 8
	}

	digMins := make([]int, n)
	for i := 0; i < n; i++ {
		digMins[i] = int(parseInt(b[off : off+8]))
		off += 8
	}

	digMaxs := make([]int, n)
	for i := 0; i < n; i++ {
		digMaxs[i] = int(parseInt(b[off : off+8]))
		off += 8
	}

	prefilters := make([]string, n)
	for i := 0; i < n; i++ {
		prefilters[i] = strings.TrimSpace(string(b[off : off+80]))
		off += 80
	}

	samplesPerRecord := make([]int, n)
	for i := 0; i < n; i++ {
		samplesPerRecord[i] = int(parseInt(b[off : off+8]))
		off += 8
	}
	// Reserved (32 bytes/signal) is skipped entirely; it carries no
	// semantics this reader exposes.

	signals := make([]Signal, 0, n)
	slots := make([]signalSlot, n)
	bufferOffset := 0

	for i := 0; i < n; i++ {
		isAnnotation := bytes.Equal(rawLabels[i], []byte(annotationLabel))

		slots[i] = signalSlot{
			bufferOffset:     bufferOffset,
			samplesPerRecord: samplesPerRecord[i],
			isAnnotation:     isAnnotation,
		}
		bufferOffset += samplesPerRecord[i] * 2

		if isAnnotation {
			continue
		}

		if physMins[i] == physMaxs[i] {
			return nil, nil, 0, &Error{Kind: KindPhysicalMinEqualsMax, Field: labels[i]}
		}
		if digMins[i] == digMaxs[i] {
			return nil, nil, 0, &Error{Kind: KindDigitalMinEqualsMax, Field: labels[i]}
		}

		sig := Signal{
			Label:             labels[i],
			Transducer:        transducers[i],
			PhysicalDimension: dims[i],
			PhysicalMin:       physMins[i],
			PhysicalMax:       physMaxs[i],
			DigitalMin:        digMins[i],
			DigitalMax:        digMaxs[i],
			Prefilter:         prefilters[i],
			SamplesPerRecord:  samplesPerRecord[i],
			SamplesInFile:     int64(samplesPerRecord[i]) * dataRecords,
		}
		sig.bitValue = (sig.PhysicalMax - sig.PhysicalMin) / float64(sig.DigitalMax-sig.DigitalMin)
		sig.digitalOffset = sig.PhysicalMax/sig.bitValue - float64(sig.DigitalMax)

		signals = append(signals, sig)
	}

	return signals, slots, bufferOffset, nil
}

// parseStartDateTime parses the "dd.mm.yy" and "hh.mm.ss" fields into a
// single UTC time.Time, applying the EDF+ two-digit-year century rule
// and rejecting calendar values time.Date would otherwise silently
// normalize (e.g. day 32, month 13).
func parseStartDateTime(dateStr, timeStr string) (time.Time, error) {
	dateParts := strings.Split(dateStr, ".")
	timeParts := strings.Split(timeStr, ".")
	if len(dateParts) != 3 || len(timeParts) != 3 {
		return time.Time{}, newError(KindFormatError, "start date/time", nil)
	}

	day := int(parseInt([]byte(dateParts[0])))
	month := int(parseInt([]byte(dateParts[1])))
	yy := int(parseInt([]byte(dateParts[2])))
	year := 2000 + yy
	if yy > 84 {
		year = 1900 + yy
	}

	hour := int(parseInt([]byte(timeParts[0])))
	minute := int(parseInt([]byte(timeParts[1])))
	second := int(parseInt([]byte(timeParts[2])))

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day ||
		t.Hour() != hour || t.Minute() != minute || t.Second() != second {
		return time.Time{}, newError(KindFormatError, "start date/time", nil)
	}

	return t, nil
}

// splitPatientField splits the EDF+ patient identification field into
// its five whitespace-separated sub-fields: code, sex, birthdate, name,
// and the remainder rejoined with single spaces as "additional".
// Missing trailing tokens default to empty.
func splitPatientField(field string) (code, sex, birthdate, name, additional string) {
	parts := strings.Fields(field)
	return tokenAt(parts, 0), tokenAt(parts, 1), tokenAt(parts, 2), tokenAt(parts, 3), joinFrom(parts, 4)
}

// splitRecordingField splits the EDF+ recording identification field.
// Token 0 (the redundant start-date) is ignored; tokens 1-3 become
// admin code, technician, and equipment; the remainder from token 4 is
// "additional".
func splitRecordingField(field string) (adminCode, technician, equipment, additional string) {
	parts := strings.Fields(field)
	return tokenAt(parts, 1), tokenAt(parts, 2), tokenAt(parts, 3), joinFrom(parts, 4)
}

func tokenAt(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

func joinFrom(parts []string, i int) string {
	if i >= len(parts) {
		return ""
	}
	return strings.Join(parts[i:], " ")
}
