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

// Package casestore provides the Postgres-backed persistence layer for PQR
// cases, their attachments, catalog lookups, ingestion run logs, and audit
// events. Uniqueness of radicado and thread id is enforced here with
// unique indexes — the ingestion pipeline relies on that invariant to stay
// correct under overlapping runs.
package casestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicate signals a unique-constraint violation on insert (duplicate
// radicado or thread id). Callers treat it as retryable once with a fresh
// identifier.
var ErrDuplicate = errors.New("duplicate case key")

// Case is a persisted PQR case. The radicado is the human-facing unique
// identifier; the thread id ties the case to its originating mail
// conversation. Both are unique across all cases.
type Case struct {
	ID              uuid.UUID
	Radicado        string
	ThreadID        string
	ReceptionAt     time.Time
	DueAt           time.Time
	PetitionerName  string
	PetitionerEmail string
	Detail          string
	ProcedureType   string
	StatusID        int
	SemaforoID      int
	AssigneeID      *int
	RecipientEmail  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Attachment is a file persisted alongside a case during ingestion.
type Attachment struct {
	ID          uuid.UUID
	CaseID      uuid.UUID
	MessageID   string
	FileName    string
	MimeType    string
	SizeBytes   int64
	StoragePath string
	CreatedAt   time.Time
}

// Store provides CRUD operations for cases in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a case store backed by the given Postgres pool.
// It ensures the schema exists and seeds the catalog tables on creation.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure case schema: %w", err)
	}
	slog.Info("case store initialised")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS case_states (
			id          SERIAL PRIMARY KEY,
			code        TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL,
			active      BOOLEAN NOT NULL DEFAULT TRUE
		);
		CREATE TABLE IF NOT EXISTS semaforos (
			id        SERIAL PRIMARY KEY,
			code      TEXT NOT NULL UNIQUE,
			color_hex TEXT NOT NULL,
			days_min  INT NOT NULL,
			days_max  INT,
			sort      INT NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS cases (
			id               UUID PRIMARY KEY,
			radicado         TEXT NOT NULL UNIQUE,
			thread_id        TEXT NOT NULL UNIQUE,
			reception_at     TIMESTAMPTZ NOT NULL,
			due_at           TIMESTAMPTZ NOT NULL,
			petitioner_name  TEXT NOT NULL,
			petitioner_email TEXT NOT NULL,
			detail           TEXT NOT NULL,
			procedure_type   TEXT NOT NULL,
			status_id        INT NOT NULL REFERENCES case_states(id),
			semaforo_id      INT NOT NULL REFERENCES semaforos(id),
			assignee_id      INT,
			recipient_email  TEXT NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_cases_due ON cases(due_at);
		CREATE INDEX IF NOT EXISTS idx_cases_radicado ON cases(radicado);
		CREATE TABLE IF NOT EXISTS case_attachments (
			id           UUID PRIMARY KEY,
			case_id      UUID NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
			message_id   TEXT NOT NULL DEFAULT '',
			file_name    TEXT NOT NULL,
			mime_type    TEXT NOT NULL,
			size_bytes   BIGINT NOT NULL DEFAULT 0,
			storage_path TEXT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_attachments_case ON case_attachments(case_id);
		CREATE TABLE IF NOT EXISTS ingestion_runs (
			id                 BIGSERIAL PRIMARY KEY,
			started_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			finished_at        TIMESTAMPTZ,
			trigger_type       TEXT NOT NULL DEFAULT 'scheduled',
			messages_processed INT NOT NULL DEFAULT 0,
			cases_created      INT NOT NULL DEFAULT 0,
			cases_skipped      INT NOT NULL DEFAULT 0,
			errors             INT NOT NULL DEFAULT 0,
			error_detail       TEXT,
			status             TEXT NOT NULL DEFAULT 'running',
			backfill_from      TIMESTAMPTZ,
			backfill_until     TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS audit_events (
			id         BIGSERIAL PRIMARY KEY,
			case_id    UUID,
			action     TEXT NOT NULL,
			detail     TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	return s.seedCatalogs(ctx)
}

const caseColumns = `
	id, radicado, thread_id, reception_at, due_at,
	petitioner_name, petitioner_email, detail, procedure_type,
	status_id, semaforo_id, assignee_id, recipient_email,
	created_at, updated_at`

// FindCaseByThread looks up the case created for a mail conversation.
// Returns nil without error when no case exists for the thread.
func (s *Store) FindCaseByThread(ctx context.Context, threadID string) (*Case, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE thread_id = $1`, threadID)
	return scanCase(row)
}

// FindCaseByRadicado looks up a case by its human-facing identifier.
// Returns nil without error when absent.
func (s *Store) FindCaseByRadicado(ctx context.Context, radicado string) (*Case, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE radicado = $1`, radicado)
	return scanCase(row)
}

// LatestRadicadoWithPrefix returns the lexicographically greatest radicado
// sharing the given date prefix, or empty when the day has none.
func (s *Store) LatestRadicadoWithPrefix(ctx context.Context, prefix string) (string, error) {
	var radicado string
	err := s.pool.QueryRow(ctx, `
		SELECT radicado FROM cases
		WHERE radicado LIKE $1 || '-%'
		ORDER BY radicado DESC
		LIMIT 1
	`, prefix).Scan(&radicado)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return radicado, nil
}

// InsertCase persists a new case. A missing ID is filled with a fresh
// UUID. A unique-constraint violation on radicado or thread id is
// reported as ErrDuplicate so the caller can regenerate and retry.
func (s *Store) InsertCase(ctx context.Context, c *Case) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO cases
			(id, radicado, thread_id, reception_at, due_at,
			 petitioner_name, petitioner_email, detail, procedure_type,
			 status_id, semaforo_id, assignee_id, recipient_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, c.ID, c.Radicado, c.ThreadID, c.ReceptionAt, c.DueAt,
		c.PetitionerName, c.PetitionerEmail, c.Detail, c.ProcedureType,
		c.StatusID, c.SemaforoID, c.AssigneeID, c.RecipientEmail)
	if isUniqueViolation(err) {
		return fmt.Errorf("insert case %s: %w", c.Radicado, ErrDuplicate)
	}
	return err
}

// InsertAttachment persists an attachment record for an already-committed
// case. A missing ID is filled with a fresh UUID.
func (s *Store) InsertAttachment(ctx context.Context, a *Attachment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO case_attachments
			(id, case_id, message_id, file_name, mime_type, size_bytes, storage_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.CaseID, a.MessageID, a.FileName, a.MimeType, a.SizeBytes, a.StoragePath)
	return err
}

// InsertAuditEvent records a case audit entry. Failures here are expected
// to be ignored by callers — audit writes never block the primary
// operation.
func (s *Store) InsertAuditEvent(ctx context.Context, caseID *uuid.UUID, action, detail string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_events (case_id, action, detail) VALUES ($1, $2, $3)
	`, caseID, action, detail)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// scanCase scans a single row into a Case.
func scanCase(row pgx.Row) (*Case, error) {
	var c Case
	err := row.Scan(
		&c.ID, &c.Radicado, &c.ThreadID, &c.ReceptionAt, &c.DueAt,
		&c.PetitionerName, &c.PetitionerEmail, &c.Detail, &c.ProcedureType,
		&c.StatusID, &c.SemaforoID, &c.AssigneeID, &c.RecipientEmail,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
