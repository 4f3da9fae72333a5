// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf_test

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// slotSpec describes one on-disk signal (data or annotation) for the
// synthetic EDF+C builder below. Tests build byte-exact files in-memory
// rather than relying on a checked-in binary fixture, which also gives
// full control over edge cases a single recording can't exercise
// (negative onsets, discontinuities, truncated TAL slices).
type slotSpec struct {
	label            string
	transducer       string
	dimension        string
	physMin, physMax float64
	digMin, digMax   int
	prefilter        string
	samplesPerRecord int
	isAnnotation     bool
}

// buildConfig parameterizes a full synthetic EDF+C file.
type buildConfig struct {
	patientField   string
	recordingField string
	startDate      string // "dd.mm.yy"
	startTime      string // "hh.mm.ss"
	dataRecords    int
	recordDuration string // raw 8-byte field text, e.g. "1" or "0.040000"
	slots          []slotSpec

	// records[r][s] is the raw on-disk bytes for slot s in data record
	// r, already exactly slots[s].samplesPerRecord*2 bytes long.
	records [][][]byte
}

func fixedWidth(s string, width int) string {
	if len(s) > width {
		return s[:width]
	}
	return fmt.Sprintf("%-*s", width, s)
}

func int16LEBytes(values []int16) []byte {
	buf := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(buf[i*2:i*2+2], uint16(v))
	}
	return buf
}

// talToken builds one TAL's raw bytes: "+<onset>[\x15<duration>]\x14<description>\x14".
func talToken(onset string, duration string, hasDuration bool, description string) []byte {
	var buf bytes.Buffer
	buf.WriteString(onset)
	if hasDuration {
		buf.WriteByte(0x15)
		buf.WriteString(duration)
	}
	buf.WriteByte(0x14)
	buf.WriteString(description)
	buf.WriteByte(0x14)
	return buf.Bytes()
}

// talRecord concatenates TAL tokens and NUL-pads to size.
func talRecord(t *testing.T, tokens [][]byte, size int) []byte {
	var buf bytes.Buffer
	for _, tok := range tokens {
		buf.Write(tok)
	}
	require.LessOrEqualf(t, buf.Len(), size, "TAL tokens exceed annotation slot size")
	out := make([]byte, size)
	copy(out, buf.Bytes())
	return out
}

// buildEDF renders cfg into a complete EDF+C byte buffer.
func buildEDF(t *testing.T, cfg buildConfig) []byte {
	t.Helper()

	n := len(cfg.slots)
	require.Greater(t, n, 0)

	var buf bytes.Buffer

	buf.WriteString(fixedWidth("0", 8))
	buf.WriteString(fixedWidth(cfg.patientField, 80))
	buf.WriteString(fixedWidth(cfg.recordingField, 80))
	buf.WriteString(fixedWidth(cfg.startDate, 8))
	buf.WriteString(fixedWidth(cfg.startTime, 8))
	buf.WriteString(fixedWidth(fmt.Sprintf("%d", (n+1)*256), 8))
	buf.WriteString(fixedWidth("EDF+C", 44))
	buf.WriteString(fixedWidth(fmt.Sprintf("%d", cfg.dataRecords), 8))
	buf.WriteString(fixedWidth(cfg.recordDuration, 8))
	buf.WriteString(fixedWidth(fmt.Sprintf("%d", n), 4))

	require.Equal(t, 256, buf.Len())

	writeCol := func(f func(s slotSpec) string, width int) {
		for _, s := range cfg.slots {
			buf.WriteString(fixedWidth(f(s), width))
		}
	}

	writeCol(func(s slotSpec) string { return s.label }, 16)
	writeCol(func(s slotSpec) string { return s.transducer }, 80)
	writeCol(func(s slotSpec) string { return s.dimension }, 8)
	writeCol(func(s slotSpec) string { return fmt.Sprintf("%g", s.physMin) }, 8)
	writeCol(func(s slotSpec) string { return fmt.Sprintf("%g", s.physMax) }, 8)
	writeCol(func(s slotSpec) string { return fmt.Sprintf("%d", s.digMin) }, 8)
	writeCol(func(s slotSpec) string { return fmt.Sprintf("%d", s.digMax) }, 8)
	writeCol(func(s slotSpec) string { return s.prefilter }, 80)
	writeCol(func(s slotSpec) string { return fmt.Sprintf("%d", s.samplesPerRecord) }, 8)
	writeCol(func(s slotSpec) string { return "" }, 32)

	require.Equal(t, (n+1)*256, buf.Len())

	require.Len(t, cfg.records, cfg.dataRecords)
	for r := 0; r < cfg.dataRecords; r++ {
		require.Len(t, cfg.records[r], n)
		for s := 0; s < n; s++ {
			require.Len(t, cfg.records[r][s], cfg.slots[s].samplesPerRecord*2)
			buf.Write(cfg.records[r][s])
		}
	}

	return buf.Bytes()
}
