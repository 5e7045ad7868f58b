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

// Package graph implements the mailbox gateway over the Microsoft Graph
// API for a single shared PQR mailbox. The http.Client is expected to come
// from an oauth2 client-credentials config, which caches the bearer token
// and refreshes it on expiry; concurrent refreshes are idempotent.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pqrplatform/ingestion/internal/models"
)

// DefaultTimeout bounds every outbound Graph call so a hung remote never
// stalls an ingestion run.
const DefaultTimeout = 30 * time.Second

// Client talks to the Graph API on behalf of one mailbox.
type Client struct {
	httpClient *http.Client
	baseURL    string
	mailbox    string
	timeout    time.Duration
}

// NewClient creates a mailbox gateway client. mailbox is the shared PQR
// inbox address (or user id). A zero timeout falls back to DefaultTimeout.
func NewClient(httpClient *http.Client, baseURL, mailbox string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		mailbox:    mailbox,
		timeout:    timeout,
	}
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

const messageSelect = "id,conversationId,subject,from,toRecipients,body,receivedDateTime,hasAttachments,isRead"

// ListUnread returns up to limit unread messages from the given folder,
// oldest first, with full bodies included.
func (c *Client) ListUnread(ctx context.Context, folder string, limit int) ([]models.InboundMessage, error) {
	params := url.Values{}
	params.Set("$filter", "isRead eq false")
	params.Set("$top", strconv.Itoa(limit))
	params.Set("$select", messageSelect)
	params.Set("$orderby", "receivedDateTime asc")

	u := fmt.Sprintf("%s/users/%s/mailFolders/%s/messages?%s",
		c.baseURL, c.mailbox, folder, params.Encode())

	messages, _, err := c.getMessagePage(ctx, u)
	return messages, err
}

// ListRange returns messages received within [since, until), read or not,
// oldest first, following continuation links until limit is reached. It
// serves historical backfills; regular runs use ListUnread.
func (c *Client) ListRange(ctx context.Context, folder string, since, until time.Time, limit int) ([]models.InboundMessage, error) {
	params := url.Values{}
	params.Set("$filter", fmt.Sprintf("receivedDateTime ge %s and receivedDateTime lt %s",
		since.UTC().Format(time.RFC3339), until.UTC().Format(time.RFC3339)))
	params.Set("$top", strconv.Itoa(min(limit, 50)))
	params.Set("$select", messageSelect)
	params.Set("$orderby", "receivedDateTime asc")

	u := fmt.Sprintf("%s/users/%s/mailFolders/%s/messages?%s",
		c.baseURL, c.mailbox, folder, params.Encode())

	var all []models.InboundMessage
	for u != "" && len(all) < limit {
		page, next, err := c.getMessagePage(ctx, u)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		u = next
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// getMessagePage fetches one page of a messages collection. Each page gets
// its own timeout so long paginated backfills never trip the per-call bound.
func (c *Client) getMessagePage(ctx context.Context, u string) ([]models.InboundMessage, string, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build list request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("list messages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		slog.Error("messages list error", "status", resp.StatusCode, "body", string(body))
		return nil, "", fmt.Errorf("messages list returned HTTP %d", resp.StatusCode)
	}

	return parseMessagePage(resp.Body)
}

// GetAttachments retrieves the file attachments of a message. Reference
// and item attachments (links, nested messages) are filtered out — only
// payload-bearing file attachments become case adjuntos.
func (c *Client) GetAttachments(ctx context.Context, messageID string) ([]models.AttachmentFile, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	u := fmt.Sprintf("%s/users/%s/messages/%s/attachments", c.baseURL, c.mailbox, messageID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build attachments request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch attachments: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		slog.Error("attachments error", "status", resp.StatusCode, "message_id", messageID, "body", string(body))
		return nil, fmt.Errorf("attachments returned HTTP %d for message %s", resp.StatusCode, messageID)
	}

	return parseAttachmentList(resp.Body)
}

// MarkRead flags a message as read so the next run's unread listing skips it.
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	u := fmt.Sprintf("%s/users/%s/messages/%s", c.baseURL, c.mailbox, messageID)

	payload := []byte(`{"isRead": true}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build mark-read request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mark read returned HTTP %d for message %s", resp.StatusCode, messageID)
	}
	return nil
}

// unmarshalValue decodes a Graph collection response envelope.
func unmarshalValue(r io.Reader, out interface{}) error {
	var envelope struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.NewDecoder(r).Decode(&envelope); err != nil {
		return fmt.Errorf("decode graph response: %w", err)
	}
	if len(envelope.Value) == 0 {
		return nil
	}
	return json.Unmarshal(envelope.Value, out)
}
