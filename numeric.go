// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

// parseInt parses a fixed-width ASCII integer field: leading spaces are
// skipped, an optional leading '+'/'-' is accepted, then digits are
// consumed until a non-digit or the end of the slice. An empty result
// (no digits found) yields 0. This is locale-independent and never
// fails, matching the lenient contract the EDF+ header fields require.
func parseInt(b []byte) int64 {
	i := 0
	for i < len(b) && b[i] == ' ' {
		i++
	}

	neg := false
	if i < len(b) && (b[i] == '+' || b[i] == '-') {
		neg = b[i] == '-'
		i++
	}

	var v int64
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		v = v*10 + int64(b[i]-'0')
		i++
	}

	if neg {
		v = -v
	}
	return v
}

// parseFloat parses a fixed-width ASCII floating-point field: as
// parseInt, but also accepts a single '.' and an optional 'e'/'E'
// exponent (itself optionally signed). An empty result yields 0.0.
func parseFloat(b []byte) float64 {
	i := 0
	for i < len(b) && b[i] == ' ' {
		i++
	}

	neg := false
	if i < len(b) && (b[i] == '+' || b[i] == '-') {
		neg = b[i] == '-'
		i++
	}

	var intPart float64
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		intPart = intPart*10 + float64(b[i]-'0')
		i++
	}

	var fracPart float64
	var fracDiv float64 = 1
	if i < len(b) && b[i] == '.' {
		i++
		for i < len(b) && b[i] >= '0' && b[i] <= '9' {
			fracPart = fracPart*10 + float64(b[i]-'0')
			fracDiv *= 10
			i++
		}
	}

	v := intPart + fracPart/fracDiv
	if neg {
		v = -v
	}

	if i < len(b) && (b[i] == 'e' || b[i] == 'E') {
		i++
		expNeg := false
		if i < len(b) && (b[i] == '+' || b[i] == '-') {
			expNeg = b[i] == '-'
			i++
		}
		var exp int
		for i < len(b) && b[i] >= '0' && b[i] <= '9' {
			exp = exp*10 + int(b[i]-'0')
			i++
		}
		if expNeg {
			exp = -exp
		}
		v *= pow10(exp)
	}

	return v
}

func pow10(exp int) float64 {
	neg := exp < 0
	if neg {
		exp = -exp
	}
	r := 1.0
	for i := 0; i < exp; i++ {
		r *= 10
	}
	if neg {
		return 1 / r
	}
	return r
}

// parseDuration parses the 8-byte record-duration field. A trimmed value
// of exactly "1" is defined to be exactly TUnit (avoiding float
// round-off on the overwhelmingly common case); otherwise the field is
// interpreted as float seconds and scaled to TUnit ticks.
func parseDuration(b []byte) int64 {
	trimmed := trimSpace(b)
	if len(trimmed) == 1 && trimmed[0] == '1' {
		return TUnit
	}
	return int64(parseFloat(b) * float64(TUnit))
}

func trimSpace(b []byte) []byte {
	i, j := 0, len(b)
	for i < j && b[i] == ' ' {
		i++
	}
	for j > i && b[j-1] == ' ' {
		j--
	}
	return b[i:j]
}
