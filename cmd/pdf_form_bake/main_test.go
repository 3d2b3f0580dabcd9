package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-forms/internal/pdf/extraction"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/interchange"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/testpdf"
)

const invoiceLayout = `{"fields": [
	{"name": "customer", "type": "text", "page": 1, "x": 100, "y": 700, "width": 200, "height": 20, "fontSize": 10},
	{"name": "paid", "type": "checkbox", "page": 2, "x": 50, "y": 50, "width": 16, "height": 16}
]}`

func runBake(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_BakeLayout(t *testing.T) {
	dir := t.TempDir()
	input := testpdf.WriteFile(t, dir, "invoice.pdf", testpdf.Pages(testpdf.Letter, testpdf.A4))
	layout := writeFile(t, dir, "fields.json", invoiceLayout)

	code, stdout, stderr := runBake(t, "--layout", layout, input)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Imported 2 field(s)")
	assert.Contains(t, stdout, "invoice_form.pdf")

	data, err := os.ReadFile(filepath.Join(dir, "invoice_form.pdf"))
	require.NoError(t, err)
	inspection, err := extraction.NewFormExtractor(false).Inspect(context.Background(), data)
	require.NoError(t, err)

	names := make([]string, 0, len(inspection.Fields))
	for _, f := range inspection.Fields {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"customer", "paid"}, names)
}

func TestRun_JSONOutput(t *testing.T) {
	dir := t.TempDir()
	input := testpdf.WriteFile(t, dir, "invoice.pdf", testpdf.Pages(testpdf.Letter, testpdf.A4))
	layout := writeFile(t, dir, "fields.json", `{"fields": [
		{"name": "customer", "type": "text", "page": 1, "x": 100, "y": 700},
		{"name": "ghost", "type": "text", "page": 9, "x": 100, "y": 700}
	]}`)
	out := filepath.Join(dir, "out", "..", "baked.pdf")

	code, stdout, stderr := runBake(t, "--layout", layout, "--out", out, "--library", "pdfcpu", "--format", "json", input)
	require.Equal(t, 0, code, stderr)

	var result BakeResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, "pdfcpu", result.Library)
	assert.Equal(t, 2, result.Pages)
	assert.Equal(t, filepath.Join(dir, "baked.pdf"), result.Output)
	assert.Equal(t, 1, result.Imported)
	require.Len(t, result.Widgets, 1)
	assert.Equal(t, "customer", result.Widgets[0].Name)
	assert.Len(t, result.Skipped, 1)
}

func TestRun_ExportTemplate(t *testing.T) {
	dir := t.TempDir()
	input := testpdf.WriteFile(t, dir, "w9.pdf", testpdf.Build(testpdf.Options{
		Pages: []testpdf.Page{testpdf.Letter},
		Fields: []testpdf.FormField{
			{Name: "total", Type: "Tx", Page: 1, Rect: [4]float64{100, 100, 250, 120}},
			{Name: "agree", Type: "Btn", Page: 1, Rect: [4]float64{300, 100, 316, 116}},
		},
	}))
	template := filepath.Join(dir, "w9_fields.json")

	code, stdout, stderr := runBake(t, "--export-template", template, input)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Wrote layout with 2 field(s)")

	data, err := os.ReadFile(template)
	require.NoError(t, err)
	var doc interchange.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Fields, 2)

	byName := map[string]interchange.FieldEntry{}
	for _, f := range doc.Fields {
		byName[f.Name] = f
	}
	total := byName["total"]
	assert.Equal(t, "text", total.Type)
	assert.Equal(t, 1, total.Page)
	assert.InDelta(t, 100, total.X, 1e-9)
	assert.InDelta(t, 150, total.Width, 1e-9)
	assert.InDelta(t, 20, total.Height, 1e-9)
	assert.Equal(t, "checkbox", byName["agree"].Type)

	// the template bakes back into an equivalent form
	code, _, stderr = runBake(t, "--layout", template, "--out", filepath.Join(dir, "copy.pdf"), input)
	require.Equal(t, 0, code, stderr)
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	input := testpdf.WriteFile(t, dir, "invoice.pdf", testpdf.Minimal())
	layout := writeFile(t, dir, "fields.json", invoiceLayout)
	empty := writeFile(t, dir, "empty.json", `{"fields": []}`)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{name: "no input", args: []string{"--layout", layout}, code: 2},
		{name: "no action", args: []string{input}, code: 2},
		{name: "unknown flag", args: []string{"--bogus", input}, code: 2},
		{name: "bad format", args: []string{"--layout", layout, "--format", "xml", input}, code: 2},
		{name: "unknown library", args: []string{"--layout", layout, "--library", "mupdf", input}, code: 1},
		{name: "missing input", args: []string{"--layout", layout, filepath.Join(dir, "nope.pdf")}, code: 1},
		{name: "missing layout", args: []string{"--layout", filepath.Join(dir, "nope.json"), input}, code: 1},
		{name: "overwrite input", args: []string{"--layout", layout, "--out", input, input}, code: 1},
		{name: "no fields", args: []string{"--layout", empty, input}, code: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := runBake(t, tt.args...)
			assert.Equal(t, tt.code, code)
		})
	}

	code, _, _ := runBake(t, "--help")
	assert.Equal(t, 0, code)
}
