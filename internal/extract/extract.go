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

// Package extract derives structured case fields from semi-structured
// HTML email bodies. Institutional senders embed a key-value table in the
// body; free-form senders get heuristic fallbacks (subject classification,
// radicado regex, cleaned body text).
package extract

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Fields holds everything the extractor could derive from a message body.
// Every field is independently optional: the zero value means "absent" and
// the ingestion pipeline applies its own fallback per field.
type Fields struct {
	Radicado        string
	ReceptionDate   time.Time
	DueDate         time.Time
	PetitionerName  string
	PetitionerEmail string
	Detail          string
	ProcedureType   string
}

// ParseFields scans the first HTML table in the body and maps labelled rows
// to case fields. A body without a table yields an empty Fields — that is
// the normal path for free-form citizen emails, not an error.
func ParseFields(htmlBody string) Fields {
	var f Fields

	doc, err := html.Parse(strings.NewReader(htmlBody))
	if err != nil {
		return f
	}

	table := findFirst(doc, "table")
	if table == nil {
		return f
	}

	for _, row := range findAll(table, "tr") {
		cells := rowCells(row)
		if len(cells) < 2 {
			continue
		}
		applyRow(&f, foldLabel(cells[0]), strings.TrimSpace(cells[1]))
	}

	return f
}

// applyRow matches a folded label against the known row rules. First
// matching rule wins for the row; unmatched rows are ignored.
func applyRow(f *Fields, label, value string) {
	switch {
	case strings.Contains(label, "radicado"):
		f.Radicado = value
	case strings.Contains(label, "fecha") && strings.Contains(label, "remisi"):
		if d, ok := ParseSpanishDate(value); ok {
			f.ReceptionDate = d
		}
	case strings.Contains(label, "fecha") && strings.Contains(label, "vencimiento"):
		if d, ok := ParseSpanishDate(value); ok {
			f.DueDate = d
		}
	case strings.Contains(label, "nombre") && strings.Contains(label, "peticionario"):
		f.PetitionerName = value
	case strings.Contains(label, "correo") && strings.Contains(label, "peticionario"):
		f.PetitionerEmail = value
	case strings.Contains(label, "detalle") && strings.Contains(label, "solicitud"):
		f.Detail = value
	case strings.Contains(label, "tipo") && strings.Contains(label, "tramite"):
		f.ProcedureType = strings.ToLower(value)
	}
}

// accentFolder maps the accented vowels that show up in Spanish form labels
// so that "Tipo de Trámite" matches the "tramite" rule.
var accentFolder = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u",
)

func foldLabel(s string) string {
	return accentFolder.Replace(strings.ToLower(strings.TrimSpace(s)))
}

var blankLines = regexp.MustCompile(`\n\s*\n`)

// CleanHTML strips all markup from an HTML fragment, collapsing runs of
// blank lines into a single blank line and trimming the result. Used as the
// request-detail fallback when the body carries no structured table.
func CleanHTML(htmlBody string) string {
	doc, err := html.Parse(strings.NewReader(htmlBody))
	if err != nil {
		return strings.TrimSpace(htmlBody)
	}

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			parts = append(parts, n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	text := strings.Join(parts, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// ClassifySubject buckets a subject line into a PQR type. Queja keywords
// are checked before reclamo ones, so a subject naming both classifies as
// queja. Anything else is a peticion.
func ClassifySubject(subject string) string {
	s := strings.ToLower(subject)

	for _, w := range []string{"queja", "inconformidad", "problema"} {
		if strings.Contains(s, w) {
			return "queja"
		}
	}
	for _, w := range []string{"reclamo", "reclamación", "devolucion"} {
		if strings.Contains(s, w) {
			return "reclamo"
		}
	}
	return "peticion"
}

// findFirst returns the first element with the given tag in document order.
func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// findAll collects every element with the given tag under n.
func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return out
}

// rowCells returns the text content of each td/th cell in a table row.
func rowCells(row *html.Node) []string {
	var cells []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "td" || n.Data == "th") {
			cells = append(cells, nodeText(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return cells
}

// nodeText concatenates all text nodes under n.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
