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

// Package queue publishes case lifecycle events to a Redis list consumed
// by the notification workers. Publishing is fire-and-forget from the
// ingestion pipeline's point of view: a failed publish is logged and never
// blocks case creation.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Publisher sends case events to Redis.
type Publisher struct {
	rdb       *redis.Client
	queueName string
}

// NewPublisher creates a new Redis publisher targeting the specified queue.
func NewPublisher(rdb *redis.Client, queueName string) *Publisher {
	return &Publisher{
		rdb:       rdb,
		queueName: queueName,
	}
}

// CaseCreatedEvent is the payload notification workers consume to send the
// acknowledgement email for a newly radicated case.
type CaseCreatedEvent struct {
	EventID         string    `json:"event_id"`
	Event           string    `json:"event"`
	CaseID          string    `json:"case_id"`
	Radicado        string    `json:"radicado"`
	ProcedureType   string    `json:"procedure_type"`
	PetitionerEmail string    `json:"petitioner_email"`
	DueAt           time.Time `json:"due_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// PublishCaseCreated serialises the event and pushes it onto the queue.
func (p *Publisher) PublishCaseCreated(ctx context.Context, ev CaseCreatedEvent) error {
	ev.Event = "case_created"
	if ev.EventID == "" {
		ev.EventID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal case event: %w", err)
	}

	if err := p.rdb.LPush(ctx, p.queueName, payload).Err(); err != nil {
		return fmt.Errorf("redis LPUSH: %w", err)
	}

	slog.Info("published case event",
		"event_id", ev.EventID,
		"radicado", ev.Radicado,
		"queue", p.queueName,
	)
	return nil
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
