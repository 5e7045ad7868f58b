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

// Package duedate computes regulatory response deadlines counted in
// business days (Monday to Friday).
package duedate

import "time"

// DefaultBusinessDays is the statutory response window applied when the
// remission table does not carry an explicit due date.
const DefaultBusinessDays = 5

// AddBusinessDays advances start one calendar day at a time, counting only
// weekdays, until n business days have elapsed. Weekend days are skipped
// entirely, so the result always lands on a weekday. n <= 0 returns start
// unchanged.
func AddBusinessDays(start time.Time, n int) time.Time {
	d := start
	for counted := 0; counted < n; {
		d = d.AddDate(0, 0, 1)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			counted++
		}
	}
	return d
}

// BusinessDaysUntil counts the business days between from and until,
// exclusive of from. Returns 0 when until is not after from. Used to pick
// the urgency tier for a case from its time-to-deadline.
func BusinessDaysUntil(from, until time.Time) int {
	if !until.After(from) {
		return 0
	}
	days := 0
	for d := from.AddDate(0, 0, 1); !d.After(until); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days++
		}
	}
	return days
}
