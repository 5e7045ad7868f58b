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

// Package radicado generates fallback case identifiers when no radicado
// can be extracted from an inbound message: an 8-digit date prefix plus a
// per-day sequence zero-padded to 4 digits.
package radicado

import (
	"fmt"
	"strconv"
	"time"
)

// Prefix formats the date portion of an identifier (YYYYMMDD).
func Prefix(day time.Time) string {
	return day.Format("20060102")
}

// Next produces the identifier following last for the given day. last is
// the lexicographically greatest existing identifier sharing the day's
// prefix, or empty when the day has none yet. A malformed trailing
// sequence restarts the day at 1.
//
// Next is a pure function over a read-then-write cycle: the caller must
// treat a uniqueness collision on insert as retryable, because two
// overlapping runs can both observe the same last value.
func Next(day time.Time, last string) string {
	seq := 1
	if len(last) >= 4 {
		if n, err := strconv.Atoi(last[len(last)-4:]); err == nil {
			seq = n + 1
		}
	}
	return fmt.Sprintf("%s-%04d", Prefix(day), seq)
}
