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

// PQR Platform — Email Ingestion Service
//
// Entry point for the case ingestion service. It:
//  1. Loads configuration from config.yaml
//  2. Connects to PostgreSQL and Redis
//  3. Builds an OAuth2 client for the Microsoft Graph mailbox
//  4. Schedules periodic ingestion runs (cron, default every 15 minutes)
//  5. Serves HTTP endpoints for on-demand ingestion and health checks
//  6. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
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
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting PQR ingestion service")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"mailbox", cfg.Graph.Mailbox,
		"schedule", cfg.Ingestion.Schedule,
		"batch_size", cfg.Ingestion.BatchSize,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Connect to PostgreSQL ---
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create Postgres pool", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	if err := pgPool.Ping(ctx); err != nil {
		slog.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to PostgreSQL")

	// --- Case Store + Catalogs ---
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

	// --- Connect to Redis ---
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opt)

	publisher := queue.NewPublisher(rdb, cfg.EventsQueue)
	if err := publisher.Ping(ctx); err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to Redis")

	seen := dedup.NewSeenFilter(rdb)

	// --- Attachment File Store ---
	files, err := storage.NewFiles(cfg.UploadDir)
	if err != nil {
		slog.Error("failed to initialise upload storage", "error", err)
		os.Exit(1)
	}

	// --- Graph OAuth2 client ---
	creds := &clientcredentials.Config{
		ClientID:     cfg.Graph.ClientID,
		ClientSecret: cfg.Graph.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.Graph.TenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}
	mailbox := graph.NewClient(creds.Client(ctx), cfg.Graph.BaseURL, cfg.Graph.Mailbox, cfg.Ingestion.RequestTimeout)

	// --- Ingestion Runner ---
	runner := ingest.NewRunner(mailbox, store, catalog, files, seen, publisher, ingest.Config{
		Folder:       cfg.Ingestion.Folder,
		BatchSize:    cfg.Ingestion.BatchSize,
		BusinessDays: cfg.Ingestion.BusinessDays,
	})

	// --- Scheduled runs ---
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.Ingestion.Schedule, func() {
		runner.Run(ctx, ingest.TriggerScheduled)
	})
	if err != nil {
		slog.Error("invalid ingestion schedule", "schedule", cfg.Ingestion.Schedule, "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	slog.Info("ingestion schedule active", "schedule", cfg.Ingestion.Schedule)

	// --- HTTP API ---
	mux := http.NewServeMux()

	// On-demand synchronous run. Always 200: partial failure is reported
	// in the payload, not as an HTTP error.
	mux.HandleFunc("POST /api/v1/ingestion/process", func(w http.ResponseWriter, r *http.Request) {
		result := runner.Run(r.Context(), ingest.TriggerManual)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "completed",
			"result": result,
		})
	})

	// Detached run: fires in the background, result observable via logs
	// and the ingestion_runs table.
	mux.HandleFunc("POST /api/v1/ingestion/process-background", func(w http.ResponseWriter, r *http.Request) {
		go runner.Run(ctx, ingest.TriggerManual)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "processing",
		})
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := publisher.Ping(r.Context()); err != nil {
			http.Error(w, "redis unhealthy", http.StatusServiceUnavailable)
			return
		}
		if err := pgPool.Ping(r.Context()); err != nil {
			http.Error(w, "postgres unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // synchronous runs can be slow on large batches
	}

	// --- Graceful Shutdown ---
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh

		slog.Info("received shutdown signal", "signal", sig)
		cancel()

		cronCtx := scheduler.Stop()
		<-cronCtx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}

		rdb.Close()
		pgPool.Close()
	}()

	slog.Info("ingestion service listening", "addr", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("ingestion service stopped")
}
