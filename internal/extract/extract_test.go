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

package extract

import (
	"strings"
	"testing"
	"time"
)

const remissionTable = `
<html><body>
<p>Se remite la siguiente solicitud:</p>
<table>
  <tr><td>Radicado No</td><td>20251211-0042</td></tr>
  <tr><td>Fecha de Remisión</td><td>11 de diciembre de 2025</td></tr>
  <tr><td>Fecha de Vencimiento</td><td>18 de diciembre de 2025</td></tr>
  <tr><td>Nombre del Peticionario</td><td>María Rodríguez</td></tr>
  <tr><td>Correo del Peticionario</td><td>maria@example.com</td></tr>
  <tr><td>Detalle de la Solicitud</td><td>Solicito copia de mi historial.</td></tr>
  <tr><td>Tipo de Trámite</td><td>Reclamo</td></tr>
</table>
</body></html>`

// TestParseFields_RemissionTable verifies the full labelled-table happy path.
func TestParseFields_RemissionTable(t *testing.T) {
	f := ParseFields(remissionTable)

	if f.Radicado != "20251211-0042" {
		t.Errorf("Radicado = %q, want 20251211-0042", f.Radicado)
	}
	wantReception := time.Date(2025, time.December, 11, 0, 0, 0, 0, time.UTC)
	if !f.ReceptionDate.Equal(wantReception) {
		t.Errorf("ReceptionDate = %v, want %v", f.ReceptionDate, wantReception)
	}
	wantDue := time.Date(2025, time.December, 18, 0, 0, 0, 0, time.UTC)
	if !f.DueDate.Equal(wantDue) {
		t.Errorf("DueDate = %v, want %v", f.DueDate, wantDue)
	}
	if f.PetitionerName != "María Rodríguez" {
		t.Errorf("PetitionerName = %q", f.PetitionerName)
	}
	if f.PetitionerEmail != "maria@example.com" {
		t.Errorf("PetitionerEmail = %q", f.PetitionerEmail)
	}
	if f.Detail != "Solicito copia de mi historial." {
		t.Errorf("Detail = %q", f.Detail)
	}
	if f.ProcedureType != "reclamo" {
		t.Errorf("ProcedureType = %q, want lowercased reclamo", f.ProcedureType)
	}
}

// TestParseFields_NoTable verifies that free-form bodies yield empty Fields
// rather than an error.
func TestParseFields_NoTable(t *testing.T) {
	f := ParseFields("<p>Buenos días, quiero presentar una petición.</p>")
	if f != (Fields{}) {
		t.Errorf("expected zero Fields, got %+v", f)
	}
}

// TestParseFields_PartialTable verifies that missing rows simply leave their
// fields absent.
func TestParseFields_PartialTable(t *testing.T) {
	body := `<table>
		<tr><td>Radicado No</td><td>20260815-0003</td></tr>
		<tr><td>Observaciones</td><td>ninguna</td></tr>
	</table>`
	f := ParseFields(body)

	if f.Radicado != "20260815-0003" {
		t.Errorf("Radicado = %q", f.Radicado)
	}
	if f.PetitionerName != "" || !f.DueDate.IsZero() {
		t.Errorf("unmatched rows leaked into fields: %+v", f)
	}
}

// TestParseFields_UnparseableDate verifies that a date cell the parser cannot
// read leaves the field zero instead of failing the extraction.
func TestParseFields_UnparseableDate(t *testing.T) {
	body := `<table>
		<tr><td>Fecha de Remisión</td><td>el martes pasado</td></tr>
		<tr><td>Nombre del Peticionario</td><td>Juan</td></tr>
	</table>`
	f := ParseFields(body)

	if !f.ReceptionDate.IsZero() {
		t.Errorf("ReceptionDate = %v, want zero", f.ReceptionDate)
	}
	if f.PetitionerName != "Juan" {
		t.Errorf("PetitionerName = %q", f.PetitionerName)
	}
}

// TestParseFields_SingleCellRows verifies rows with fewer than two cells are
// skipped.
func TestParseFields_SingleCellRows(t *testing.T) {
	body := `<table>
		<tr><td>Radicado No</td></tr>
		<tr><th colspan="2">Datos del peticionario</th></tr>
	</table>`
	if f := ParseFields(body); f != (Fields{}) {
		t.Errorf("expected zero Fields, got %+v", f)
	}
}

// TestParseFields_OnlyFirstTable verifies that a second table in the body is
// ignored.
func TestParseFields_OnlyFirstTable(t *testing.T) {
	body := `
	<table><tr><td>Radicado No</td><td>AAA-111</td></tr></table>
	<table><tr><td>Radicado No</td><td>BBB-222</td></tr></table>`
	f := ParseFields(body)
	if f.Radicado != "AAA-111" {
		t.Errorf("Radicado = %q, want AAA-111 from the first table", f.Radicado)
	}
}

// TestCleanHTML verifies markup stripping and blank-line collapsing.
func TestCleanHTML(t *testing.T) {
	body := `<html><body>
		<style>p { color: red }</style>
		<p>Primera línea</p>


		<p>Segunda línea</p>
		<script>alert("x")</script>
	</body></html>`

	got := CleanHTML(body)

	if strings.Contains(got, "color: red") || strings.Contains(got, "alert") {
		t.Errorf("script/style content leaked: %q", got)
	}
	if !strings.Contains(got, "Primera línea") || !strings.Contains(got, "Segunda línea") {
		t.Errorf("text content missing: %q", got)
	}
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("blank-line runs not collapsed: %q", got)
	}
	if got != strings.TrimSpace(got) {
		t.Errorf("result not trimmed: %q", got)
	}
}

// TestCleanHTML_PlainText verifies that text without markup passes through.
func TestCleanHTML_PlainText(t *testing.T) {
	if got := CleanHTML("hola mundo"); got != "hola mundo" {
		t.Errorf("CleanHTML = %q, want %q", got, "hola mundo")
	}
}

// TestClassifySubject verifies keyword buckets and the queja-over-reclamo
// priority.
func TestClassifySubject(t *testing.T) {
	cases := []struct {
		subject string
		want    string
	}{
		{"Queja por mal servicio", "queja"},
		{"INCONFORMIDAD con la factura", "queja"},
		{"Tengo un problema con mi cuenta", "queja"},
		{"Reclamo por cobro indebido", "reclamo"},
		{"Solicitud de devolucion", "reclamo"},
		{"Queja y reclamo a la vez", "queja"},
		{"Solicitud de información", "peticion"},
		{"", "peticion"},
	}
	for _, tc := range cases {
		if got := ClassifySubject(tc.subject); got != tc.want {
			t.Errorf("ClassifySubject(%q) = %q, want %q", tc.subject, got, tc.want)
		}
	}
}
