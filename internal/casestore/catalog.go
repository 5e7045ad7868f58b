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
)

// Well-known case state codes.
const (
	StateReceived  = "RECIBIDO"
	StateInProcess = "EN_PROCESO"
	StateEscalated = "ESCALADO"
	StateClosed    = "CERRADO"
)

// SemaforoTier is one urgency band of the deadline traffic light. A nil
// DaysMax means the band is open-ended upward.
type SemaforoTier struct {
	ID       int
	Code     string
	ColorHex string
	DaysMin  int
	DaysMax  *int
}

// Catalog holds the id mappings loaded once at startup. Lookups fail
// loudly on unknown codes instead of falling back to a magic number.
type Catalog struct {
	states    map[string]int
	semaforos []SemaforoTier
}

// StatusID resolves a case state code to its catalog id.
func (c *Catalog) StatusID(code string) (int, error) {
	id, ok := c.states[code]
	if !ok {
		return 0, fmt.Errorf("unknown case state code %q", code)
	}
	return id, nil
}

// SemaforoFor picks the urgency tier covering the given number of business
// days until the deadline. Overdue cases (negative days) fall into the
// most urgent band.
func (c *Catalog) SemaforoFor(businessDaysLeft int) (int, error) {
	if businessDaysLeft < 0 {
		businessDaysLeft = 0
	}
	for _, t := range c.semaforos {
		if businessDaysLeft < t.DaysMin {
			continue
		}
		if t.DaysMax == nil || businessDaysLeft <= *t.DaysMax {
			return t.ID, nil
		}
	}
	return 0, fmt.Errorf("no semaforo tier covers %d days", businessDaysLeft)
}

// LoadCatalog reads the catalog tables into memory. Called once at startup;
// the ingestion pipeline never queries catalogs per message.
func (s *Store) LoadCatalog(ctx context.Context) (*Catalog, error) {
	cat := &Catalog{states: make(map[string]int)}

	rows, err := s.pool.Query(ctx, `SELECT id, code FROM case_states WHERE active`)
	if err != nil {
		return nil, fmt.Errorf("load case states: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int
		var code string
		if err := rows.Scan(&id, &code); err != nil {
			return nil, err
		}
		cat.states[code] = id
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tierRows, err := s.pool.Query(ctx, `
		SELECT id, code, color_hex, days_min, days_max
		FROM semaforos ORDER BY sort, days_min
	`)
	if err != nil {
		return nil, fmt.Errorf("load semaforos: %w", err)
	}
	defer tierRows.Close()
	for tierRows.Next() {
		var t SemaforoTier
		if err := tierRows.Scan(&t.ID, &t.Code, &t.ColorHex, &t.DaysMin, &t.DaysMax); err != nil {
			return nil, err
		}
		cat.semaforos = append(cat.semaforos, t)
	}
	if err := tierRows.Err(); err != nil {
		return nil, err
	}

	if len(cat.states) == 0 || len(cat.semaforos) == 0 {
		return nil, fmt.Errorf("catalog tables are empty — schema seeding failed")
	}
	return cat, nil
}

// NewCatalog builds a catalog directly from values, bypassing the database.
// Useful for tests and for callers that manage catalogs elsewhere.
func NewCatalog(states map[string]int, tiers []SemaforoTier) *Catalog {
	return &Catalog{states: states, semaforos: tiers}
}

func (s *Store) seedCatalogs(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO case_states (code, description) VALUES
			('RECIBIDO',   'Caso recibido'),
			('EN_PROCESO', 'Caso en proceso'),
			('ESCALADO',   'Caso escalado'),
			('CERRADO',    'Caso cerrado')
		ON CONFLICT (code) DO NOTHING;
	`)
	if err != nil {
		return fmt.Errorf("seed case states: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO semaforos (code, color_hex, days_min, days_max, sort) VALUES
			('ROJO',     '#D32F2F', 0, 2,    1),
			('AMARILLO', '#F9A825', 3, 5,    2),
			('VERDE',    '#2E7D32', 6, NULL, 3)
		ON CONFLICT (code) DO NOTHING;
	`)
	if err != nil {
		return fmt.Errorf("seed semaforos: %w", err)
	}
	return nil
}
