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
	"io"
	"sort"
)

// TAL delimiter alphabet.
const (
	talFieldDelim = 0x14 // '\x14': onset/duration -> description, and description terminator
	talTimeDelim  = 0x15 // '\x15': onset -> duration separator
)

// talState is the TAL parser's state.
type talState int

const (
	talWaitingForOnset talState = iota
	talCollectingOnset
	talCollectingDuration
	talCollectingDescription
)

// rawAnnotation is a single parsed TAL, before subsecond adjustment and
// before the record-start timestamp has been filtered out.
type rawAnnotation struct {
	onset       int64
	duration    int64
	description string
	isTimestamp bool
}

// parseTAL decodes every TAL in one annotation signal's per-record byte
// slice. isFirstAnnotationSignal selects whether the slice's first TAL
// (if it has an empty description) is classified as the record-start
// timestamp annotation: only the first TAL of the first annotation
// signal in a record, with an empty description, is a timestamp.
//
// A malformed TAL (anything the grammar doesn't allow) truncates parsing
// at that point; everything decoded before the error is kept. The slice
// must end in a NUL byte or it is rejected outright.
func parseTAL(data []byte, isFirstAnnotationSignal bool) []rawAnnotation {
	max := len(data)
	if max == 0 || data[max-1] != 0 {
		return nil
	}

	var out []rawAnnotation
	state := talWaitingForOnset
	scratch := make([]byte, 0, max)
	var onsetText, durationText string
	haveDuration := false
	zeroRun := 0

	for k := 0; k < max-1; k++ {
		b := data[k]

		if b == 0 {
			if zeroRun == 0 {
				if k > 0 && data[k-1] != talFieldDelim {
					break
				}
				state = talWaitingForOnset
				scratch = scratch[:0]
				haveDuration = false
			}
			zeroRun++
			if zeroRun > 1 {
				break
			}
			continue
		}
		zeroRun = 0

		switch state {
		case talWaitingForOnset:
			switch {
			case b == '+' || b == '-':
				scratch = append(scratch[:0], b)
				state = talCollectingOnset
			case b == talFieldDelim || b == talTimeDelim:
				return out
			default:
				// ignore stray printable bytes before onset begins
			}

		case talCollectingOnset:
			switch b {
			case talFieldDelim:
				if !isValidNumberToken(string(scratch), true) {
					return out
				}
				onsetText = string(scratch)
				scratch = scratch[:0]
				state = talCollectingDescription
			case talTimeDelim:
				if !isValidNumberToken(string(scratch), true) {
					return out
				}
				onsetText = string(scratch)
				scratch = scratch[:0]
				state = talCollectingDuration
			default:
				scratch = append(scratch, b)
			}

		case talCollectingDuration:
			switch b {
			case talFieldDelim:
				if !isValidNumberToken(string(scratch), false) {
					return out
				}
				durationText = string(scratch)
				haveDuration = true
				scratch = scratch[:0]
				state = talCollectingDescription
			case talTimeDelim:
				return out
			default:
				scratch = append(scratch, b)
			}

		case talCollectingDescription:
			switch b {
			case talFieldDelim:
				description := string(scratch)
				scratch = scratch[:0]

				isTimestamp := isFirstAnnotationSignal && len(out) == 0 && description == ""

				onset := int64(parseFloat([]byte(onsetText)) * float64(TUnit))
				duration := int64(-1)
				if haveDuration {
					duration = int64(parseFloat([]byte(durationText)) * float64(TUnit))
				}

				out = append(out, rawAnnotation{
					onset:       onset,
					duration:    duration,
					description: description,
					isTimestamp: isTimestamp,
				})

				haveDuration = false
				state = talWaitingForOnset
			case talTimeDelim:
				return out
			default:
				scratch = append(scratch, b)
			}
		}
	}

	return out
}

// isValidNumberToken checks the onset/duration syntactic validity rule:
// non-empty, not starting or ending in '.', and every remaining
// character a digit except at most one '.'. When allowSign is true a
// single leading '+'/'-' is stripped first (onsets may be signed;
// durations never carry a sign character of their own).
func isValidNumberToken(s string, allowSign bool) bool {
	if len(s) == 0 {
		return false
	}
	if allowSign && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if len(s) == 0 {
		return false
	}
	if s[0] == '.' || s[len(s)-1] == '.' {
		return false
	}

	dotSeen := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '.' {
			if dotSeen {
				return false
			}
			dotSeen = true
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// annotationSignal names one annotation slot together with its position
// among annotation slots only (0 = first annotation signal).
type annotationSignal struct {
	slotIndex int
	ordinal   int
}

func annotationSignals(slots []signalSlot) []annotationSignal {
	var out []annotationSignal
	for i, s := range slots {
		if s.isAnnotation {
			out = append(out, annotationSignal{slotIndex: i, ordinal: len(out)})
		}
	}
	return out
}

// readAnnotationSlice seeks to and reads one annotation slot's bytes
// within one data record.
func readAnnotationSlice(r io.ReadSeeker, headerBytes, recordSize int, record int64, slot signalSlot) ([]byte, error) {
	off := int64(headerBytes) + record*int64(recordSize) + int64(slot.bufferOffset)
	if _, err := r.Seek(off, io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, slot.samplesPerRecord*2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// firstPassAnnotations bounds itself to the first min(dataRecords, 100)
// records to estimate the annotation count and derive the sub-second
// start-time offset. All errors are swallowed: a failure here yields
// (0, 0), exactly as Open's contract promises for the TAL phase.
func firstPassAnnotations(r io.ReadSeeker, slots []signalSlot, headerBytes, recordSize int, dataRecords int64) (count int64, subsecond int64) {
	annSlots := annotationSignals(slots)
	if len(annSlots) == 0 {
		return 0, 0
	}

	limit := dataRecords
	if limit > 100 {
		limit = 100
	}

	for rec := int64(0); rec < limit; rec++ {
		for _, as := range annSlots {
			data, err := readAnnotationSlice(r, headerBytes, recordSize, rec, slots[as.slotIndex])
			if err != nil {
				return 0, 0
			}

			raws := parseTAL(data, as.ordinal == 0)

			if as.ordinal == 0 && rec == 0 && len(raws) > 0 {
				subsecond = ((raws[0].onset % TUnit) + TUnit) % TUnit
			}

			for _, a := range raws {
				if !a.isTimestamp {
					count++
				}
			}
		}
	}

	return count, subsecond
}

// secondPassAnnotations scans every data record to build the final,
// sorted annotation list. A continuity violation between consecutive
// record-start timestamps is the one fatal TAL error and is returned;
// any other I/O failure discards all annotations gathered so far and
// returns (nil, nil) rather than failing Open.
func secondPassAnnotations(r io.ReadSeeker, slots []signalSlot, headerBytes, recordSize int, dataRecords int64, recordDuration int64, subsecond int64) ([]Annotation, error) {
	annSlots := annotationSignals(slots)
	if len(annSlots) == 0 {
		return nil, nil
	}

	var out []Annotation
	var elapsed int64
	haveElapsed := false

	for rec := int64(0); rec < dataRecords; rec++ {
		for _, as := range annSlots {
			data, err := readAnnotationSlice(r, headerBytes, recordSize, rec, slots[as.slotIndex])
			if err != nil {
				return nil, nil
			}

			raws := parseTAL(data, as.ordinal == 0)

			if as.ordinal == 0 && len(raws) > 0 {
				ts := raws[0].onset
				if haveElapsed {
					expected := elapsed + recordDuration
					diff := ts - expected
					if diff < 0 {
						diff = -diff
					}
					if diff > TUnit/1000 {
						return nil, newError(KindInvalidHeader, "annotation continuity", nil)
					}
				}
				elapsed = ts
				haveElapsed = true
			}

			for _, a := range raws {
				if a.isTimestamp {
					continue
				}
				out = append(out, Annotation{
					Onset:       a.onset - subsecond,
					Duration:    a.duration,
					Description: a.description,
				})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Onset < out[j].Onset })

	return out, nil
}
