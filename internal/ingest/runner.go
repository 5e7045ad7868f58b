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

// Package ingest orchestrates one batch run of the email-to-case pipeline:
// fetch unread messages, resolve duplicates, create cases with their
// attachments, mark sources read, and aggregate per-message outcomes.
//
// Nothing in here propagates a per-message failure to the caller. A run
// always returns a RunResult; only the initial unread listing is fatal,
// and even that is reported inside the result rather than raised.
package ingest

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pqrplatform/ingestion/internal/casestore"
	"github.com/pqrplatform/ingestion/internal/dedup"
	"github.com/pqrplatform/ingestion/internal/duedate"
	"github.com/pqrplatform/ingestion/internal/extract"
	"github.com/pqrplatform/ingestion/internal/models"
	"github.com/pqrplatform/ingestion/internal/queue"
)

// Trigger types recorded in the run log.
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
	TriggerBackfill  = "backfill"
)

// MailboxGateway is the slice of the Graph client the runner needs.
type MailboxGateway interface {
	ListUnread(ctx context.Context, folder string, limit int) ([]models.InboundMessage, error)
	ListRange(ctx context.Context, folder string, since, until time.Time, limit int) ([]models.InboundMessage, error)
	GetAttachments(ctx context.Context, messageID string) ([]models.AttachmentFile, error)
	MarkRead(ctx context.Context, messageID string) error
}

// CaseStore is the slice of the persistence layer the runner needs.
// Implemented by casestore.Store.
type CaseStore interface {
	dedup.CaseIndex
	InsertCase(ctx context.Context, c *casestore.Case) error
	InsertAttachment(ctx context.Context, a *casestore.Attachment) error
	InsertAuditEvent(ctx context.Context, caseID *uuid.UUID, action, detail string) error
	BeginRun(ctx context.Context, triggerType string) (int64, error)
	BeginBackfillRun(ctx context.Context, from, until time.Time) (int64, error)
	FinishRun(ctx context.Context, runID int64, counts casestore.RunCounts, status, errorDetail string) error
}

// FileStore persists decoded attachment payloads.
type FileStore interface {
	SaveAttachment(caseID uuid.UUID, name string, content []byte) (string, error)
}

// SeenFilter is the optional Redis fast path in front of the database
// dedup lookups.
type SeenFilter interface {
	Seen(ctx context.Context, messageID string) (bool, error)
	MarkSeen(ctx context.Context, messageID string) error
}

// EventPublisher emits case lifecycle events for notification workers.
type EventPublisher interface {
	PublishCaseCreated(ctx context.Context, ev queue.CaseCreatedEvent) error
}

// RunResult aggregates the outcomes of one ingestion run.
type RunResult struct {
	Processed int      `json:"processed"`
	Created   int      `json:"created"`
	Skipped   int      `json:"skipped"`
	Errors    int      `json:"errors"`
	Messages  []string `json:"messages"`
}

// Config holds the tunables of the runner.
type Config struct {
	Folder       string // mailbox folder to poll, usually "inbox"
	BatchSize    int    // max unread messages per run
	BusinessDays int    // default response window when none is extracted
}

// Runner executes ingestion runs.
type Runner struct {
	gateway   MailboxGateway
	store     CaseStore
	resolver  *dedup.Resolver
	catalog   *casestore.Catalog
	files     FileStore
	seen      SeenFilter     // optional
	publisher EventPublisher // optional
	cfg       Config
	now       func() time.Time
}

// NewRunner wires an ingestion runner. seen and publisher may be nil.
func NewRunner(gateway MailboxGateway, store CaseStore, catalog *casestore.Catalog, files FileStore, seen SeenFilter, publisher EventPublisher, cfg Config) *Runner {
	if cfg.Folder == "" {
		cfg.Folder = "inbox"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.BusinessDays <= 0 {
		cfg.BusinessDays = duedate.DefaultBusinessDays
	}
	return &Runner{
		gateway:   gateway,
		store:     store,
		resolver:  dedup.NewResolver(store),
		catalog:   catalog,
		files:     files,
		seen:      seen,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeSkipped
)

// Run executes one ingestion run. Per-message failures are isolated: the
// run continues with the next message and the failure lands in the result.
// Only a failed unread listing aborts the run, with zero processed and a
// single aggregate error.
func (r *Runner) Run(ctx context.Context, triggerType string) *RunResult {
	start := r.now()
	result := &RunResult{}

	runID, err := r.store.BeginRun(ctx, triggerType)
	if err != nil {
		// The run log is observability, not a gate.
		slog.Warn("could not open ingestion run log", "error", err)
	}

	messages, err := r.gateway.ListUnread(ctx, r.cfg.Folder, r.cfg.BatchSize)
	if err != nil {
		result.Errors = 1
		result.Messages = append(result.Messages, fmt.Sprintf("error listando buzón: %v", err))
		r.finishRun(ctx, runID, result, casestore.RunStatusError)
		slog.Error("ingestion run aborted: unread listing failed", "error", err)
		return result
	}

	r.processBatch(ctx, messages, result)
	r.finishRun(ctx, runID, result, casestore.RunStatusDone)

	slog.Info("ingestion run complete",
		"trigger", triggerType,
		"processed", result.Processed,
		"created", result.Created,
		"skipped", result.Skipped,
		"errors", result.Errors,
		"elapsed", r.now().Sub(start),
	)
	return result
}

// RunBackfill ingests every message received within [from, until), read or
// not. Deduplication makes overlapping windows safe to replay: messages
// whose thread or radicado already has a case are skipped, not duplicated.
func (r *Runner) RunBackfill(ctx context.Context, from, until time.Time, limit int) *RunResult {
	start := r.now()
	result := &RunResult{}
	if limit <= 0 {
		limit = r.cfg.BatchSize
	}

	runID, err := r.store.BeginBackfillRun(ctx, from, until)
	if err != nil {
		slog.Warn("could not open ingestion run log", "error", err)
	}

	messages, err := r.gateway.ListRange(ctx, r.cfg.Folder, from, until, limit)
	if err != nil {
		result.Errors = 1
		result.Messages = append(result.Messages, fmt.Sprintf("error listando buzón: %v", err))
		r.finishRun(ctx, runID, result, casestore.RunStatusError)
		slog.Error("backfill aborted: range listing failed", "error", err)
		return result
	}

	r.processBatch(ctx, messages, result)
	r.finishRun(ctx, runID, result, casestore.RunStatusDone)

	slog.Info("backfill complete",
		"from", from,
		"until", until,
		"processed", result.Processed,
		"created", result.Created,
		"skipped", result.Skipped,
		"errors", result.Errors,
		"elapsed", r.now().Sub(start),
	)
	return result
}

func (r *Runner) processBatch(ctx context.Context, messages []models.InboundMessage, result *RunResult) {
	result.Processed = len(messages)

	for _, msg := range messages {
		out, err := r.processMessage(ctx, msg)
		if err != nil {
			result.Errors++
			result.Messages = append(result.Messages,
				fmt.Sprintf("error procesando mensaje %s: %v", msg.ID, err))
			slog.Warn("message processing failed",
				"message_id", msg.ID,
				"thread_id", msg.ConversationID,
				"error", err,
			)
			continue
		}
		switch out {
		case outcomeCreated:
			result.Created++
		case outcomeSkipped:
			result.Skipped++
		}
	}
}

func (r *Runner) finishRun(ctx context.Context, runID int64, result *RunResult, status string) {
	if runID == 0 {
		return
	}
	counts := casestore.RunCounts{
		Processed: result.Processed,
		Created:   result.Created,
		Skipped:   result.Skipped,
		Errors:    result.Errors,
	}
	detail := ""
	if len(result.Messages) > 0 {
		for i, m := range result.Messages {
			if i > 0 {
				detail += "\n"
			}
			detail += m
		}
	}
	if err := r.store.FinishRun(ctx, runID, counts, status, detail); err != nil {
		slog.Warn("could not close ingestion run log", "run_id", runID, "error", err)
	}
}

// processMessage handles a single unread message through to a terminal
// outcome. An error return means ERRORED; the run records it and moves on.
func (r *Runner) processMessage(ctx context.Context, msg models.InboundMessage) (outcome, error) {
	if r.seen != nil {
		seen, err := r.seen.Seen(ctx, msg.ID)
		if err != nil {
			slog.Warn("seen filter unavailable, falling through to store", "error", err)
		} else if seen {
			return outcomeSkipped, nil
		}
	}

	fields := extract.ParseFields(msg.Body.Content)
	cleaned := extract.CleanHTML(msg.Body.Content)

	rad, existing, err := r.resolver.Resolve(ctx, msg.ConversationID, fields.Radicado, cleaned)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		// Duplicate thread or duplicate radicado: the case already exists.
		// Mark the source read anyway so the next unread listing is clean.
		if !msg.IsRead {
			if err := r.gateway.MarkRead(ctx, msg.ID); err != nil {
				slog.Warn("could not mark duplicate read", "message_id", msg.ID, "error", err)
			}
		}
		r.markSeen(ctx, msg.ID)
		slog.Info("message skipped, case already exists",
			"message_id", msg.ID,
			"radicado", existing.Radicado,
		)
		return outcomeSkipped, nil
	}

	c, err := r.buildCase(msg, fields, cleaned, rad)
	if err != nil {
		return 0, err
	}

	if err := r.insertWithRetry(ctx, c); err != nil {
		return 0, err
	}

	// The case is committed from here on. Attachment or mark-read failures
	// are recorded against the message but never roll the case back.
	var partial error
	if msg.HasAttachments {
		partial = r.persistAttachments(ctx, c.ID, msg.ID)
	}

	// Backfilled messages may already be read; skip the redundant PATCH.
	if !msg.IsRead {
		if err := r.gateway.MarkRead(ctx, msg.ID); err != nil {
			partial = errors.Join(partial, fmt.Errorf("marcar leído: %w", err))
		}
	}

	r.markSeen(ctx, msg.ID)
	r.audit(ctx, c)
	r.publish(ctx, c)

	if partial != nil {
		return 0, fmt.Errorf("caso %s creado con errores parciales: %w", c.Radicado, partial)
	}

	slog.Info("case created",
		"radicado", c.Radicado,
		"thread_id", c.ThreadID,
		"type", c.ProcedureType,
		"due_at", c.DueAt,
	)
	return outcomeCreated, nil
}

// buildCase applies the extracted-or-fallback chain for every case field.
func (r *Runner) buildCase(msg models.InboundMessage, fields extract.Fields, cleaned, rad string) (*casestore.Case, error) {
	now := r.now().UTC()

	reception := fields.ReceptionDate
	if reception.IsZero() {
		reception = msg.ReceivedAt
	}
	if reception.IsZero() {
		reception = now
	}

	due := fields.DueDate
	if due.IsZero() {
		due = duedate.AddBusinessDays(reception, r.cfg.BusinessDays)
	}

	name := fields.PetitionerName
	if name == "" {
		name = msg.From.Name
	}
	if name == "" {
		name = msg.From.Address
	}

	email := fields.PetitionerEmail
	if email == "" {
		email = msg.From.Address
	}

	detail := fields.Detail
	if detail == "" {
		detail = cleaned
	}
	if detail == "" {
		detail = msg.Subject
	}

	procedureType := fields.ProcedureType
	if procedureType == "" {
		procedureType = extract.ClassifySubject(msg.Subject)
	}

	recipient := msg.From.Address
	if len(msg.To) > 0 {
		recipient = msg.To[0].Address
	}

	statusID, err := r.catalog.StatusID(casestore.StateReceived)
	if err != nil {
		return nil, err
	}
	semaforoID, err := r.catalog.SemaforoFor(duedate.BusinessDaysUntil(now, due))
	if err != nil {
		return nil, err
	}

	return &casestore.Case{
		Radicado:        rad,
		ThreadID:        msg.ConversationID,
		ReceptionAt:     reception,
		DueAt:           due,
		PetitionerName:  name,
		PetitionerEmail: email,
		Detail:          detail,
		ProcedureType:   procedureType,
		StatusID:        statusID,
		SemaforoID:      semaforoID,
		RecipientEmail:  recipient,
	}, nil
}

// insertWithRetry persists the case, retrying exactly once with a fresh
// identifier when the insert collides with a concurrent run. A second
// collision surfaces as the message's error.
func (r *Runner) insertWithRetry(ctx context.Context, c *casestore.Case) error {
	err := r.store.InsertCase(ctx, c)
	if err == nil {
		return nil
	}
	if !errors.Is(err, casestore.ErrDuplicate) {
		return err
	}

	slog.Warn("case insert collided, regenerating radicado",
		"radicado", c.Radicado,
		"thread_id", c.ThreadID,
	)
	rad, genErr := r.resolver.Generate(ctx)
	if genErr != nil {
		return genErr
	}
	c.Radicado = rad
	if retryErr := r.store.InsertCase(ctx, c); retryErr != nil {
		return fmt.Errorf("retry after collision: %w", retryErr)
	}
	return nil
}

// persistAttachments fetches, decodes, stores, and records every file
// attachment. Individual failures are collected so one bad attachment
// does not prevent the rest from being saved.
func (r *Runner) persistAttachments(ctx context.Context, caseID uuid.UUID, messageID string) error {
	files, err := r.gateway.GetAttachments(ctx, messageID)
	if err != nil {
		return fmt.Errorf("obtener adjuntos: %w", err)
	}

	var failures error
	for _, f := range files {
		content, err := base64.StdEncoding.DecodeString(f.ContentBytes)
		if err != nil {
			failures = errors.Join(failures, fmt.Errorf("adjunto %s: decodificar: %w", f.Name, err))
			continue
		}

		path, err := r.files.SaveAttachment(caseID, f.Name, content)
		if err != nil {
			failures = errors.Join(failures, fmt.Errorf("adjunto %s: %w", f.Name, err))
			continue
		}

		att := &casestore.Attachment{
			CaseID:      caseID,
			MessageID:   messageID,
			FileName:    f.Name,
			MimeType:    f.ContentType,
			SizeBytes:   f.Size,
			StoragePath: path,
		}
		if err := r.store.InsertAttachment(ctx, att); err != nil {
			failures = errors.Join(failures, fmt.Errorf("adjunto %s: registrar: %w", f.Name, err))
		}
	}
	return failures
}

// markSeen, audit, and publish are fire-and-forget side effects: their
// failure is logged and never changes the message's outcome.

func (r *Runner) markSeen(ctx context.Context, messageID string) {
	if r.seen == nil {
		return
	}
	if err := r.seen.MarkSeen(ctx, messageID); err != nil {
		slog.Warn("could not mark message seen", "message_id", messageID, "error", err)
	}
}

func (r *Runner) audit(ctx context.Context, c *casestore.Case) {
	detail := fmt.Sprintf(`{"radicado":%q,"tipo":%q}`, c.Radicado, c.ProcedureType)
	if err := r.store.InsertAuditEvent(ctx, &c.ID, "CASO_CREADO", detail); err != nil {
		slog.Warn("audit write failed", "radicado", c.Radicado, "error", err)
	}
}

func (r *Runner) publish(ctx context.Context, c *casestore.Case) {
	if r.publisher == nil {
		return
	}
	ev := queue.CaseCreatedEvent{
		CaseID:          c.ID.String(),
		Radicado:        c.Radicado,
		ProcedureType:   c.ProcedureType,
		PetitionerEmail: c.PetitionerEmail,
		DueAt:           c.DueAt,
	}
	if err := r.publisher.PublishCaseCreated(ctx, ev); err != nil {
		slog.Warn("case event publish failed", "radicado", c.Radicado, "error", err)
	}
}
