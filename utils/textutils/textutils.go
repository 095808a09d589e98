// Copyright 2026 The MunhwaMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package textutils normalizes free-text strings coming from the Seoul
// open-data API so they can be compared and used as cache keys.
package textutils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldKey normalizes a string for use as a lookup key: NFC-composed
// (venue names arrive in both composed and decomposed Hangul), lowercased,
// trimmed, with runs of whitespace collapsed to a single space.
func FoldKey(s string) string {
	s, _, _ = transform.String(norm.NFC, strings.TrimSpace(strings.ToLower(s)))

	return strings.Join(strings.Fields(s), " ")
}

// StripMarks removes combining marks after decomposition. Venue names
// occasionally embed Latin words with diacritics (café, atelier) that the
// keyword search matches better without them.
func StripMarks(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		s,
	)

	return s
}
