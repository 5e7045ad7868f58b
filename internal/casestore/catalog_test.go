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

package casestore

import "testing"

func intPtr(n int) *int { return &n }

// seededCatalog mirrors the tiers installed by schema seeding.
func seededCatalog() *Catalog {
	return NewCatalog(
		map[string]int{
			StateReceived:  1,
			StateInProcess: 2,
			StateEscalated: 3,
			StateClosed:    4,
		},
		[]SemaforoTier{
			{ID: 1, Code: "ROJO", ColorHex: "#D32F2F", DaysMin: 0, DaysMax: intPtr(2)},
			{ID: 2, Code: "AMARILLO", ColorHex: "#F9A825", DaysMin: 3, DaysMax: intPtr(5)},
			{ID: 3, Code: "VERDE", ColorHex: "#2E7D32", DaysMin: 6, DaysMax: nil},
		},
	)
}

// TestCatalog_StatusID verifies code resolution and the unknown-code error.
func TestCatalog_StatusID(t *testing.T) {
	cat := seededCatalog()

	id, err := cat.StatusID(StateReceived)
	if err != nil {
		t.Fatalf("StatusID(RECIBIDO) failed: %v", err)
	}
	if id != 1 {
		t.Errorf("StatusID(RECIBIDO) = %d, want 1", id)
	}

	if _, err := cat.StatusID("ARCHIVADO"); err == nil {
		t.Error("expected error for unknown state code")
	}
}

// TestCatalog_SemaforoFor verifies tier band edges, the open-ended top band,
// and the overdue clamp.
func TestCatalog_SemaforoFor(t *testing.T) {
	cat := seededCatalog()

	cases := []struct {
		days int
		want int
	}{
		{-3, 1}, // overdue clamps into the most urgent band
		{0, 1},
		{2, 1},
		{3, 2},
		{5, 2},
		{6, 3},
		{90, 3}, // open-ended upward
	}
	for _, tc := range cases {
		got, err := cat.SemaforoFor(tc.days)
		if err != nil {
			t.Errorf("SemaforoFor(%d) failed: %v", tc.days, err)
			continue
		}
		if got != tc.want {
			t.Errorf("SemaforoFor(%d) = %d, want %d", tc.days, got, tc.want)
		}
	}
}

// TestCatalog_SemaforoGap verifies the loud failure when no band covers the
// value.
func TestCatalog_SemaforoGap(t *testing.T) {
	cat := NewCatalog(map[string]int{StateReceived: 1}, []SemaforoTier{
		{ID: 1, Code: "ROJO", DaysMin: 0, DaysMax: intPtr(2)},
	})
	if _, err := cat.SemaforoFor(10); err == nil {
		t.Error("expected error when no tier covers the value")
	}
}
