// Copyright (c) 2026 The PQR Platform Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// spanishMonths is the fixed lexicon used by institutional remission tables.
var spanishMonths = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

var spanishDateRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s+de\s+([a-záéíóúñ]+)\s+de\s+(\d{4})\b`)

// isoLayouts are tried in order when the Spanish pattern does not match.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseSpanishDate parses dates of the form "11 de diciembre de 2025",
// falling back to ISO-8601. Returns false when the text matches neither —
// never an error, since absent dates are resolved by the caller's fallback
// chain.
func ParseSpanishDate(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)

	if m := spanishDateRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, ok := spanishMonths[strings.ToLower(m[2])]
		if ok && day >= 1 && day <= 31 {
			return time.Date(mustAtoi(m[3]), month, day, 0, 0, 0, 0, time.UTC), true
		}
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

var (
	// labelledRadicadoRe matches the explicit "Radicado No: XXXX" form used
	// in remission letters and reply subjects.
	labelledRadicadoRe = regexp.MustCompile(`(?i)radicado\s+no[.:\-]?\s*([A-Za-z0-9][A-Za-z0-9-]*)`)
	// bareRadicadoRe matches a generated identifier (date prefix + sequence)
	// appearing anywhere in free text.
	bareRadicadoRe = regexp.MustCompile(`\b\d{8}-\d{4}\b`)
)

// ExtractRadicado pulls a case identifier out of free text. The labelled
// "Radicado No" form wins over a bare DDDDDDDD-DDDD pattern; returns empty
// when neither is present.
func ExtractRadicado(text string) string {
	if m := labelledRadicadoRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := bareRadicadoRe.FindString(text); m != "" {
		return m
	}
	return ""
}
