// Package interchange reads and writes the JSON field layout format:
//
//	{
//	  "fields": [{"name", "type", "page", "x", "y", "width", "height", "fontSize"?}],
//	  "pdfDimensions": [{"width", "height"}],
//	  "exportedAt": "2006-01-02T15:04:05.000Z"
//	}
//
// Import only requires "fields"; the other members are ignored because an
// import always targets the document that is currently open.
package interchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/a3tai/mcp-pdf-forms/internal/pdf/fields"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/geometry"
)

// TimestampLayout is the ISO-8601 layout of exportedAt
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Document is the exported JSON document
type Document struct {
	Fields        []FieldEntry    `json:"fields"`
	PDFDimensions []geometry.Size `json:"pdfDimensions"`
	ExportedAt    string          `json:"exportedAt"`
}

// FieldEntry is one exported field
type FieldEntry struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Page     int      `json:"page"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	FontSize *float64 `json:"fontSize,omitempty"`
}

// Exporter encodes field snapshots
type Exporter struct {
	now    func() time.Time
	indent bool
}

// NewExporter creates an exporter that stamps documents with the current time
func NewExporter(indent bool) *Exporter {
	return &Exporter{now: time.Now, indent: indent}
}

// Build converts a snapshot into an exportable document
func (e *Exporter) Build(snap fields.Snapshot) Document {
	doc := Document{
		Fields:        make([]FieldEntry, 0, len(snap.Fields)),
		PDFDimensions: make([]geometry.Size, len(snap.Metadata.PageDimensions)),
		ExportedAt:    e.now().UTC().Format(TimestampLayout),
	}
	copy(doc.PDFDimensions, snap.Metadata.PageDimensions)

	for _, f := range snap.Fields {
		entry := FieldEntry{
			Name:   f.Name,
			Type:   string(f.Kind),
			Page:   f.Page,
			X:      f.X,
			Y:      f.Y,
			Width:  f.Width,
			Height: f.Height,
		}
		if f.Kind.HasFontSize() {
			size := f.FontSize
			entry.FontSize = &size
		}
		doc.Fields = append(doc.Fields, entry)
	}
	return doc
}

// Export writes snap as JSON to w. The snapshot is taken by value before the
// call, so edits made while the write is in flight never reach the output.
func (e *Exporter) Export(ctx context.Context, w io.Writer, snap fields.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := e.Marshal(snap)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write field layout: %w", err)
	}
	return nil
}

// Marshal encodes snap as JSON
func (e *Exporter) Marshal(snap fields.Snapshot) ([]byte, error) {
	doc := e.Build(snap)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if e.indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode field layout: %w", err)
	}
	return buf.Bytes(), nil
}
