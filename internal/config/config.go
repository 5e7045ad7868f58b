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

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GraphConfig holds the Microsoft Graph credentials for the PQR mailbox.
type GraphConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Mailbox      string
	BaseURL      string
}

// IngestionConfig holds the pipeline tunables.
type IngestionConfig struct {
	Folder         string
	BatchSize      int
	BusinessDays   int
	RequestTimeout time.Duration
	Schedule       string // cron expression for the background trigger
}

// Config holds all configuration for the ingestion service.
type Config struct {
	Graph     GraphConfig
	Ingestion IngestionConfig

	DatabaseURL string
	RedisURL    string
	EventsQueue string
	UploadDir   string

	Port int
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Graph struct {
		TenantID     string `yaml:"tenant_id"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		Mailbox      string `yaml:"mailbox"`
		BaseURL      string `yaml:"base_url"`
	} `yaml:"graph"`
	Ingestion struct {
		Folder         string `yaml:"folder"`
		BatchSize      int    `yaml:"batch_size"`
		BusinessDays   int    `yaml:"business_days"`
		RequestTimeout string `yaml:"request_timeout"`
		Schedule       string `yaml:"schedule"`
	} `yaml:"ingestion"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		URL    string `yaml:"url"`
		Queues struct {
			Events string `yaml:"events"`
		} `yaml:"queues"`
	} `yaml:"redis"`
	Storage struct {
		UploadDir string `yaml:"upload_dir"`
	} `yaml:"storage"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables for overrides.
func Load() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "/app/config/config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	// Expand ${VAR} references in the YAML
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	cfg := &Config{
		Graph: GraphConfig{
			TenantID:     firstNonEmpty(raw.Graph.TenantID, os.Getenv("GRAPH_TENANT_ID")),
			ClientID:     firstNonEmpty(raw.Graph.ClientID, os.Getenv("GRAPH_CLIENT_ID")),
			ClientSecret: firstNonEmpty(raw.Graph.ClientSecret, os.Getenv("GRAPH_CLIENT_SECRET")),
			Mailbox:      firstNonEmpty(raw.Graph.Mailbox, os.Getenv("MAILBOX_ADDRESS")),
			BaseURL:      firstNonEmpty(raw.Graph.BaseURL, "https://graph.microsoft.com/v1.0"),
		},
		Ingestion: IngestionConfig{
			Folder:         firstNonEmpty(raw.Ingestion.Folder, "inbox"),
			BatchSize:      intOrDefault(raw.Ingestion.BatchSize, 50),
			BusinessDays:   intOrDefault(raw.Ingestion.BusinessDays, 5),
			RequestTimeout: durationOrDefault(raw.Ingestion.RequestTimeout, 30*time.Second),
			Schedule:       firstNonEmpty(raw.Ingestion.Schedule, "*/15 * * * *"),
		},
		DatabaseURL: firstNonEmpty(raw.Database.URL, envOrDefault("DATABASE_URL", "")),
		RedisURL:    firstNonEmpty(raw.Redis.URL, envOrDefault("REDIS_URL", "redis://localhost:6379/0")),
		EventsQueue: firstNonEmpty(raw.Redis.Queues.Events, envOrDefault("EVENTS_QUEUE", "pqr:events")),
		UploadDir:   firstNonEmpty(raw.Storage.UploadDir, envOrDefault("UPLOAD_DIR", "./uploads")),
		Port:        envOrDefaultInt("PORT", 8080),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required — set database.url or DATABASE_URL")
	}
	if cfg.Graph.TenantID == "" || cfg.Graph.ClientID == "" || cfg.Graph.ClientSecret == "" {
		return nil, fmt.Errorf("graph credentials are required — check config.yaml and environment variables")
	}
	if cfg.Graph.Mailbox == "" {
		return nil, fmt.Errorf("mailbox address is required — set graph.mailbox or MAILBOX_ADDRESS")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func intOrDefault(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func durationOrDefault(v string, fallback time.Duration) time.Duration {
	if v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
