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

import (
	"context"
	"fmt"
	"time"
)

// Run log statuses.
const (
	RunStatusRunning = "running"
	RunStatusDone    = "done"
	RunStatusError   = "error"
)

// RunCounts summarises a finished ingestion run for the durable log.
type RunCounts struct {
	Processed int
	Created   int
	Skipped   int
	Errors    int
}

// BeginRun opens a durable log row for an ingestion run and returns its id.
// triggerType is "scheduled" or "manual".
func (s *Store) BeginRun(ctx context.Context, triggerType string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO ingestion_runs (trigger_type) VALUES ($1) RETURNING id
	`, triggerType).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("begin ingestion run: %w", err)
	}
	return id, nil
}

// BeginBackfillRun opens a run log row for a historical backfill, recording
// the requested message window alongside the usual counters.
func (s *Store) BeginBackfillRun(ctx context.Context, from, until time.Time) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO ingestion_runs (trigger_type, backfill_from, backfill_until)
		VALUES ('backfill', $1, $2) RETURNING id
	`, from, until).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("begin backfill run: %w", err)
	}
	return id, nil
}

// FinishRun closes a run log row with its final counts and status.
func (s *Store) FinishRun(ctx context.Context, runID int64, counts RunCounts, status, errorDetail string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE ingestion_runs
		SET finished_at = NOW(),
		    messages_processed = $1,
		    cases_created = $2,
		    cases_skipped = $3,
		    errors = $4,
		    error_detail = NULLIF($5, ''),
		    status = $6
		WHERE id = $7
	`, counts.Processed, counts.Created, counts.Skipped, counts.Errors,
		errorDetail, status, runID)
	if err != nil {
		return fmt.Errorf("finish ingestion run %d: %w", runID, err)
	}
	return nil
}
