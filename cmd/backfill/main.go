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

// PQR Platform — Historical Backfill Command
//
// Replays a window of mailbox history through the ingestion pipeline,
// read and unread messages alike. Deduplication keeps replays idempotent:
// messages that already produced a case are counted as skipped.
//
// Usage:
//
//	go run ./cmd/backfill/ --from 2026-08-01 [--until 2026-09-01] [--limit 500] [--skip-events]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/pqrplatform/ingestion/internal/casestore"
	"github.com/pqrplatform/ingestion/internal/config"
	"github.com/pqrplatform/ingestion/internal/dedup"
	"github.com/pqrplatform/ingestion/internal/graph"
	"github.com/pqrplatform/ingestion/internal/ingest"
	"github.com/pqrplatform/ingestion/internal/queue"
	"github.com/pqrplatform/ingestion/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// --- CLI Flags ---
	fromFlag := flag.String("from", "", "Start of the backfill window (RFC3339 or YYYY-MM-DD, required)")
	untilFlag := flag.String("until", "", "End of the backfill window, exclusive (default: now)")
	limit := flag.Int("limit", 500, "Maximum messages to replay")
	skipEvents := flag.Bool("skip-events", false, "Do not publish case events to the notification queue")
	flag.Parse()

	if *fromFlag == "" {
		fmt.Fprintln(os.Stderr, "usage: backfill --from 2026-08-01 [--until 2026-09-01]")
		os.Exit(2)
	}
	from, err := parseWhen(*fromFlag)
	if err != nil {
		slog.Error("invalid --from", "value", *fromFlag, "error", err)
		os.Exit(2)
	}
	until := time.Now().UTC()
	if *untilFlag != "" {
		if until, err = parseWhen(*untilFlag); err != nil {
			slog.Error("invalid --until", "value", *untilFlag, "error", err)
			os.Exit(2)
		}
	}
	if !until.After(from) {
		slog.Error("--until must be after --from", "from", from, "until", until)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- PostgreSQL ---
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create Postgres pool", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	store, err := casestore.NewStore(ctx, pgPool)
	if err != nil {
		slog.Error("failed to initialise case store", "error", err)
		os.Exit(1)
	}
	catalog, err := store.LoadCatalog(ctx)
	if err != nil {
		slog.Error("failed to load catalogs", "error", err)
		os.Exit(1)
	}

	// --- Redis ---
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	var publisher ingest.EventPublisher
	if !*skipEvents {
		publisher = queue.NewPublisher(rdb, cfg.EventsQueue)
	}
	seen := dedup.NewSeenFilter(rdb)

	// --- Attachment storage ---
	files, err := storage.NewFiles(cfg.UploadDir)
	if err != nil {
		slog.Error("failed to initialise upload storage", "error", err)
		os.Exit(1)
	}

	// --- Graph client ---
	creds := &clientcredentials.Config{
		ClientID:     cfg.Graph.ClientID,
		ClientSecret: cfg.Graph.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.Graph.TenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}
	mailbox := graph.NewClient(creds.Client(ctx), cfg.Graph.BaseURL, cfg.Graph.Mailbox, cfg.Ingestion.RequestTimeout)

	runner := ingest.NewRunner(mailbox, store, catalog, files, seen, publisher, ingest.Config{
		Folder:       cfg.Ingestion.Folder,
		BatchSize:    cfg.Ingestion.BatchSize,
		BusinessDays: cfg.Ingestion.BusinessDays,
	})

	slog.Info("starting backfill", "from", from, "until", until, "limit", *limit)
	result := runner.RunBackfill(ctx, from, until, *limit)

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))

	if result.Processed == 0 && result.Errors > 0 {
		os.Exit(1)
	}
}

func parseWhen(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
