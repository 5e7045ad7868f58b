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

package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pqrplatform/ingestion/internal/models"
)

// graphRecipient is the Graph API address wrapper.
type graphRecipient struct {
	EmailAddress struct {
		Address string `json:"address"`
		Name    string `json:"name"`
	} `json:"emailAddress"`
}

// graphMessage represents the relevant fields from a Graph API message.
type graphMessage struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversationId"`
	Subject        string           `json:"subject"`
	From           graphRecipient   `json:"from"`
	ToRecipients   []graphRecipient `json:"toRecipients"`
	Body           struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	ReceivedDateTime string `json:"receivedDateTime"`
	HasAttachments   bool   `json:"hasAttachments"`
	IsRead           bool   `json:"isRead"`
}

// graphAttachment represents one entry of the /attachments collection.
type graphAttachment struct {
	ODataType    string `json:"@odata.type"`
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	Size         int64  `json:"size"`
	ContentBytes string `json:"contentBytes"`
}

// fileAttachmentType is the only attachment kind carrying an inline payload.
const fileAttachmentType = "#microsoft.graph.fileAttachment"

// messagePage is one page of a Graph messages collection. NextLink is the
// opaque continuation URL Graph returns when more pages remain.
type messagePage struct {
	Value    []graphMessage `json:"value"`
	NextLink string         `json:"@odata.nextLink"`
}

// parseMessagePage converts a Graph messages collection into the canonical
// InboundMessage slice plus the continuation link, if any.
func parseMessagePage(body io.Reader) ([]models.InboundMessage, string, error) {
	var page messagePage
	if err := json.NewDecoder(body).Decode(&page); err != nil {
		return nil, "", fmt.Errorf("parse message list: %w", err)
	}

	messages := make([]models.InboundMessage, 0, len(page.Value))
	for _, m := range page.Value {
		messages = append(messages, toInboundMessage(m))
	}
	return messages, page.NextLink, nil
}

func toInboundMessage(m graphMessage) models.InboundMessage {
	to := make([]models.EmailAddress, 0, len(m.ToRecipients))
	for _, r := range m.ToRecipients {
		to = append(to, models.EmailAddress{
			Address: r.EmailAddress.Address,
			Name:    r.EmailAddress.Name,
		})
	}

	// A missing or malformed timestamp leaves ReceivedAt zero; the
	// pipeline substitutes "now" when building the case.
	received, _ := time.Parse(time.RFC3339, m.ReceivedDateTime)

	return models.InboundMessage{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Subject:        m.Subject,
		From: models.EmailAddress{
			Address: m.From.EmailAddress.Address,
			Name:    m.From.EmailAddress.Name,
		},
		To: to,
		Body: models.EmailBody{
			ContentType: m.Body.ContentType,
			Content:     m.Body.Content,
		},
		ReceivedAt:     received,
		HasAttachments: m.HasAttachments,
		IsRead:         m.IsRead,
	}
}

// parseAttachmentList converts a Graph attachments collection, keeping
// only file attachments.
func parseAttachmentList(body io.Reader) ([]models.AttachmentFile, error) {
	var raw []graphAttachment
	if err := unmarshalValue(body, &raw); err != nil {
		return nil, fmt.Errorf("parse attachment list: %w", err)
	}

	files := make([]models.AttachmentFile, 0, len(raw))
	for _, a := range raw {
		if a.ODataType != fileAttachmentType {
			continue
		}
		files = append(files, models.AttachmentFile{
			ID:           a.ID,
			Name:         a.Name,
			ContentType:  a.ContentType,
			Size:         a.Size,
			ContentBytes: a.ContentBytes,
		})
	}
	return files, nil
}
