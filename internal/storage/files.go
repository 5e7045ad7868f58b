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

// Package storage writes decoded attachment payloads to per-case
// directories under a configured upload root.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Files stores attachment payloads on the local filesystem.
type Files struct {
	root string
}

// NewFiles creates a file store rooted at dir, creating it if needed.
func NewFiles(dir string) (*Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root %s: %w", dir, err)
	}
	return &Files{root: dir}, nil
}

// SaveAttachment writes content into the case's directory under a unique
// file name and returns the stored path.
func (f *Files) SaveAttachment(caseID uuid.UUID, originalName string, content []byte) (string, error) {
	caseDir := filepath.Join(f.root, "caso_"+caseID.String())
	if err := os.MkdirAll(caseDir, 0o755); err != nil {
		return "", fmt.Errorf("create case dir: %w", err)
	}

	path := filepath.Join(caseDir, uniqueName(originalName))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write attachment %s: %w", originalName, err)
	}
	return path, nil
}

// uniqueName builds a collision-free file name preserving the original
// extension: <clean>_<YYYYMMDD_HHMMSS>_<uuid8><ext>.
func uniqueName(originalName string) string {
	ext := filepath.Ext(originalName)
	base := strings.TrimSuffix(filepath.Base(originalName), ext)

	var clean strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			clean.WriteRune(r)
		case r == ' ':
			clean.WriteRune('_')
		}
	}
	name := clean.String()
	if name == "" {
		name = "adjunto"
	}

	stamp := time.Now().Format("20060102_150405")
	return fmt.Sprintf("%s_%s_%s%s", name, stamp, uuid.New().String()[:8], ext)
}
