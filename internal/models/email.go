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

// Package models defines the data structures shared across the ingestion service.
package models

import "time"

// EmailAddress represents a sender or recipient with an address and optional name.
type EmailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// EmailBody represents the message body content.
type EmailBody struct {
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
}

// AttachmentFile represents a file attached to an email, with its
// base64-encoded payload as delivered by the mailbox provider.
type AttachmentFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContentType  string `json:"content_type"`
	Size         int64  `json:"size"`
	ContentBytes string `json:"content_bytes,omitempty"`
}

// InboundMessage represents an unread mailbox message as returned by the
// mailbox gateway. Read-only to the ingestion pipeline: the only mutation
// ever issued against it is marking it read.
type InboundMessage struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Subject        string         `json:"subject"`
	From           EmailAddress   `json:"from"`
	To             []EmailAddress `json:"to"`
	Body           EmailBody      `json:"body"`
	ReceivedAt     time.Time      `json:"received_at"`
	HasAttachments bool           `json:"has_attachments"`
	IsRead         bool           `json:"is_read"`
}
