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

// Package dedup decides whether an inbound message corresponds to an
// existing case. The authoritative keys are the mail thread id and the
// radicado, both unique in Postgres; a Redis SETNX filter in front of them
// shortcuts messages already handled by an overlapping run.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long a handled message id is remembered. Unread
	// state plus the database constraints make longer memory unnecessary.
	DefaultTTL = 24 * time.Hour

	// keyPrefix namespaces seen-message keys in Redis.
	keyPrefix = "pqr:ingest:seen:"
)

// SeenFilter tracks which message IDs have already reached a terminal
// outcome (created or skipped). It is advisory only: a Redis miss or error
// falls through to the database lookups.
type SeenFilter struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSeenFilter creates a seen-message filter backed by Redis.
func NewSeenFilter(rdb *redis.Client) *SeenFilter {
	return &SeenFilter{
		rdb: rdb,
		ttl: DefaultTTL,
	}
}

// Seen reports whether the message ID was already marked handled.
func (f *SeenFilter) Seen(ctx context.Context, messageID string) (bool, error) {
	n, err := f.rdb.Exists(ctx, keyPrefix+messageID).Result()
	if err != nil {
		return false, fmt.Errorf("dedup EXISTS: %w", err)
	}
	return n > 0, nil
}

// MarkSeen records a message ID as handled. SETNX keeps the first writer's
// TTL when overlapping runs race on the same message.
func (f *SeenFilter) MarkSeen(ctx context.Context, messageID string) error {
	if err := f.rdb.SetNX(ctx, keyPrefix+messageID, 1, f.ttl).Err(); err != nil {
		return fmt.Errorf("dedup SETNX: %w", err)
	}
	return nil
}
