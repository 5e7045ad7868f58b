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

package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/pqrplatform/ingestion/internal/casestore"
	"github.com/pqrplatform/ingestion/internal/extract"
	"github.com/pqrplatform/ingestion/internal/radicado"
)

// CaseIndex is the slice of the case store the resolver needs.
// Implemented by casestore.Store.
type CaseIndex interface {
	FindCaseByThread(ctx context.Context, threadID string) (*casestore.Case, error)
	FindCaseByRadicado(ctx context.Context, rad string) (*casestore.Case, error)
	LatestRadicadoWithPrefix(ctx context.Context, prefix string) (string, error)
}

// Resolver decides whether an inbound message maps to an existing case.
type Resolver struct {
	index CaseIndex
	now   func() time.Time
}

// NewResolver creates a resolver over the given case index.
func NewResolver(index CaseIndex) *Resolver {
	return &Resolver{index: index, now: time.Now}
}

// Resolve applies the deduplication rules for one message:
//
//  1. A case already tied to the thread id wins outright — follow-ups on a
//     known conversation never create a second case.
//  2. Otherwise the radicado is settled: the extracted one, else one found
//     in the cleaned body text, else a freshly generated identifier.
//  3. A case already carrying that radicado is a duplicate submission from
//     a different thread — also returned as existing, not an error.
//
// When the returned case is nil, the returned radicado is final and the
// caller should create the case with it.
func (r *Resolver) Resolve(ctx context.Context, threadID, extractedRadicado, bodyText string) (string, *casestore.Case, error) {
	existing, err := r.index.FindCaseByThread(ctx, threadID)
	if err != nil {
		return "", nil, fmt.Errorf("lookup case by thread: %w", err)
	}
	if existing != nil {
		return existing.Radicado, existing, nil
	}

	rad := extractedRadicado
	if rad == "" {
		rad = extract.ExtractRadicado(bodyText)
	}
	if rad == "" {
		rad, err = r.Generate(ctx)
		if err != nil {
			return "", nil, err
		}
	}

	existing, err = r.index.FindCaseByRadicado(ctx, rad)
	if err != nil {
		return "", nil, fmt.Errorf("lookup case by radicado: %w", err)
	}
	return rad, existing, nil
}

// Generate produces a fresh identifier for today from the latest persisted
// one sharing today's prefix. Read-then-write: the insert's unique
// constraint catches the race between overlapping runs.
func (r *Resolver) Generate(ctx context.Context) (string, error) {
	today := r.now().UTC()
	last, err := r.index.LatestRadicadoWithPrefix(ctx, radicado.Prefix(today))
	if err != nil {
		return "", fmt.Errorf("lookup latest radicado: %w", err)
	}
	return radicado.Next(today, last), nil
}
