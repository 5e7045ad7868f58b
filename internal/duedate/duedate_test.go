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

package duedate

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TestAddBusinessDays verifies weekend skipping and the statutory window.
func TestAddBusinessDays(t *testing.T) {
	cases := []struct {
		name  string
		start time.Time
		n     int
		want  time.Time
	}{
		// 2026-08-31 is a Monday.
		{"monday plus five", date(2026, time.August, 31), 5, date(2026, time.September, 7)},
		{"friday plus one", date(2026, time.September, 4), 1, date(2026, time.September, 7)},
		{"saturday plus one", date(2026, time.September, 5), 1, date(2026, time.September, 7)},
		{"midweek plus two", date(2026, time.September, 1), 2, date(2026, time.September, 3)},
		{"zero days", date(2026, time.September, 1), 0, date(2026, time.September, 1)},
		{"negative days", date(2026, time.September, 1), -3, date(2026, time.September, 1)},
	}
	for _, tc := range cases {
		got := AddBusinessDays(tc.start, tc.n)
		if !got.Equal(tc.want) {
			t.Errorf("%s: AddBusinessDays(%v, %d) = %v, want %v",
				tc.name, tc.start, tc.n, got, tc.want)
		}
	}
}

// TestAddBusinessDays_LandsOnWeekday verifies the result is never a weekend
// day regardless of start.
func TestAddBusinessDays_LandsOnWeekday(t *testing.T) {
	start := date(2026, time.August, 30) // Sunday
	for n := 1; n <= 10; n++ {
		got := AddBusinessDays(start, n)
		if wd := got.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Errorf("AddBusinessDays(+%d) landed on %v", n, wd)
		}
	}
}

// TestBusinessDaysUntil verifies the tier-selection counter.
func TestBusinessDaysUntil(t *testing.T) {
	cases := []struct {
		name  string
		from  time.Time
		until time.Time
		want  int
	}{
		{"same day", date(2026, time.September, 1), date(2026, time.September, 1), 0},
		{"past deadline", date(2026, time.September, 7), date(2026, time.September, 1), 0},
		{"next day", date(2026, time.September, 1), date(2026, time.September, 2), 1},
		{"over a weekend", date(2026, time.September, 4), date(2026, time.September, 7), 1},
		{"full week", date(2026, time.August, 31), date(2026, time.September, 7), 5},
	}
	for _, tc := range cases {
		if got := BusinessDaysUntil(tc.from, tc.until); got != tc.want {
			t.Errorf("%s: BusinessDaysUntil = %d, want %d", tc.name, got, tc.want)
		}
	}
}

// TestRoundTrip verifies that AddBusinessDays and BusinessDaysUntil agree.
func TestRoundTrip(t *testing.T) {
	start := date(2026, time.September, 1) // Tuesday
	for n := 1; n <= 8; n++ {
		due := AddBusinessDays(start, n)
		if got := BusinessDaysUntil(start, due); got != n {
			t.Errorf("BusinessDaysUntil(start, AddBusinessDays(start, %d)) = %d", n, got)
		}
	}
}
