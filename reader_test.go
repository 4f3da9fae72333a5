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
	"errors"
	"testing"

	"github.com/psgkit/edfplus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rampConfig builds a single-signal file whose digital samples are a
// strictly increasing ramp, so cross-record reads and seeks can be
// checked against known values.
func rampConfig(dataRecords, samplesPerRecord int) buildConfig {
	slots := []slotSpec{
		{label: "EEG", dimension: "uV", physMin: -1000, physMax: 1000, digMin: -2000, digMax: 2000, samplesPerRecord: samplesPerRecord},
	}
	records := make([][][]byte, dataRecords)
	sample := 0
	for r := 0; r < dataRecords; r++ {
		values := make([]int16, samplesPerRecord)
		for i := range values {
			values[i] = int16(sample)
			sample++
		}
		records[r] = [][]byte{int16LEBytes(values)}
	}
	return buildConfig{
		patientField:   "P001 M 02-MAY-1980 Doe_John",
		recordingField: "Startdate 02-MAY-2024 A B C",
		startDate:      "02.05.24",
		startTime:      "10.30.00",
		dataRecords:    dataRecords,
		recordDuration: "1",
		slots:          slots,
		records:        records,
	}
}

// A single read that crosses a data-record boundary.
func TestReadCrossesRecordBoundary(t *testing.T) {
	data := buildEDF(t, rampConfig(10, 256))
	r, err := edf.Open(bytes.NewReader(data))
	require.NoError(t, err)

	all, err := r.ReadDigital(0, 300)
	require.NoError(t, err)
	require.Len(t, all, 300)
	for i, v := range all {
		assert.Equal(t, int32(i), v)
	}
	pos, err := r.Tell(0)
	require.NoError(t, err)
	assert.Equal(t, int64(300), pos)

	r2, err := edf.Open(bytes.NewReader(data))
	require.NoError(t, err)
	first, err := r2.ReadDigital(0, 256)
	require.NoError(t, err)
	second, err := r2.ReadDigital(0, 44)
	require.NoError(t, err)
	assert.Equal(t, all, append(first, second...))
}

// Digital samples are clamped into [digitalMin, digitalMax].
func TestDigitalClamping(t *testing.T) {
	cfg := rampConfig(1, 4)
	cfg.slots[0].digMin = -32000
	cfg.slots[0].digMax = 32000
	// 0x00 0x80 little-endian -> int16(-32768), below digMin -32000.
	cfg.records[0][0] = []byte{0x00, 0x80, 0, 0, 0, 0, 0, 0}

	data := buildEDF(t, cfg)
	r, err := edf.Open(bytes.NewReader(data))
	require.NoError(t, err)

	samples, err := r.ReadDigital(0, 1)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, int32(-32000), samples[0])
}

func TestReadPhysicalConversion(t *testing.T) {
	cfg := rampConfig(1, 1)
	cfg.slots[0].physMin = -100
	cfg.slots[0].physMax = 100
	cfg.slots[0].digMin = -200
	cfg.slots[0].digMax = 200
	cfg.records[0][0] = int16LEBytes([]int16{100})

	data := buildEDF(t, cfg)
	r, err := edf.Open(bytes.NewReader(data))
	require.NoError(t, err)

	phys, err := r.ReadPhysical(0, 1)
	require.NoError(t, err)
	require.Len(t, phys, 1)
	assert.InDelta(t, 50.0, phys[0], 1e-9)
}

func TestSeekClampsAndTellAgrees(t *testing.T) {
	data := buildEDF(t, rampConfig(10, 256))
	r, err := edf.Open(bytes.NewReader(data))
	require.NoError(t, err)

	pos, err := r.Seek(0, -100)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos)

	pos, err = r.Seek(0, 999999)
	require.NoError(t, err)
	assert.Equal(t, int64(2560), pos)

	pos, err = r.Seek(0, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), pos)

	tell, err := r.Tell(0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), tell)
}

func TestRewind(t *testing.T) {
	data := buildEDF(t, rampConfig(10, 256))
	r, err := edf.Open(bytes.NewReader(data))
	require.NoError(t, err)

	_, err = r.ReadDigital(0, 50)
	require.NoError(t, err)
	require.NoError(t, r.Rewind(0))

	tell, err := r.Tell(0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), tell)
}

func TestReadZeroSamplesIsNoop(t *testing.T) {
	data := buildEDF(t, rampConfig(10, 256))
	r, err := edf.Open(bytes.NewReader(data))
	require.NoError(t, err)

	samples, err := r.ReadDigital(0, 0)
	require.NoError(t, err)
	assert.Empty(t, samples)

	tell, err := r.Tell(0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), tell)
}

func TestReadPastEndReturnsAvailableSuffix(t *testing.T) {
	data := buildEDF(t, rampConfig(10, 256))
	r, err := edf.Open(bytes.NewReader(data))
	require.NoError(t, err)

	_, err = r.Seek(0, 2550)
	require.NoError(t, err)

	samples, err := r.ReadDigital(0, 100)
	require.NoError(t, err)
	assert.Len(t, samples, 10)

	tell, err := r.Tell(0)
	require.NoError(t, err)
	assert.Equal(t, int64(2560), tell)
}

func TestInvalidSignalIndex(t *testing.T) {
	data := buildEDF(t, rampConfig(1, 4))
	r, err := edf.Open(bytes.NewReader(data))
	require.NoError(t, err)

	_, err = r.ReadDigital(5, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, edf.ErrInvalidSignalIndex))

	_, err = r.Seek(-1, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, edf.ErrInvalidSignalIndex))

	_, err = r.Tell(99)
	require.Error(t, err)
	assert.True(t, errors.Is(err, edf.ErrInvalidSignalIndex))
}

func TestCursorIndependence(t *testing.T) {
	cfg := rampConfig(4, 64)
	cfg.slots = append(cfg.slots, slotSpec{label: "ECG", dimension: "mV", physMin: -5, physMax: 5, digMin: -100, digMax: 100, samplesPerRecord: 64})
	for r := range cfg.records {
		cfg.records[r] = append(cfg.records[r], int16LEBytes(make([]int16, 64)))
	}

	data := buildEDF(t, cfg)
	r, err := edf.Open(bytes.NewReader(data))
	require.NoError(t, err)

	_, err = r.ReadDigital(0, 10)
	require.NoError(t, err)

	tell0, err := r.Tell(0)
	require.NoError(t, err)
	assert.Equal(t, int64(10), tell0)

	tell1, err := r.Tell(1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), tell1, "reading signal 0 must not move signal 1's cursor")
}
