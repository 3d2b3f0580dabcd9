// Package session holds one open document and the fields placed on it,
// together with the view state that pointer placement depends on.
//
// A Session is not safe for concurrent use; the service serializes access.
package session

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	pdferrors "github.com/a3tai/mcp-pdf-forms/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/fields"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/geometry"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/interchange"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/synthesis"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/wrapper"
)

// View is the editing view state
type View struct {
	Zoom        float64 `json:"zoom"`
	GridSize    float64 `json:"grid_size"`
	SnapEnabled bool    `json:"snap_enabled"`
	CurrentPage int     `json:"current_page"`
}

// ViewUpdate changes part of the view; nil members are left as is
type ViewUpdate struct {
	Zoom        *float64
	GridSize    *float64
	SnapEnabled *bool
	Page        *int
}

// Options configures a new session
type Options struct {
	Zoom            float64
	GridSize        float64
	SnapEnabled     bool
	DefaultFontSize float64
	IndentJSON      bool
	DebugMode       bool
}

// DefaultOptions returns the view defaults of a fresh editor
func DefaultOptions() Options {
	return Options{
		Zoom:            1,
		GridSize:        10,
		SnapEnabled:     true,
		DefaultFontSize: fields.DefaultFontSize,
		IndentJSON:      true,
	}
}

// Placement places a field from a pointer position in scaled editing space
// (top-left origin). Zero Page means the current page; zero sizes mean the
// kind's default size.
type Placement struct {
	Kind     fields.Kind
	Name     string
	Page     int
	Pointer  geometry.Point
	Width    float64
	Height   float64
	FontSize float64
}

// Session is one open document with its field model
type Session struct {
	ID         string
	SourceName string
	CreatedAt  time.Time

	source    []byte
	library   wrapper.LibraryType
	model     *fields.Model
	view      View
	opts      Options
	exporter  *interchange.Exporter
	importer  *interchange.Importer
	synth     *synthesis.Synthesizer
	lastTouch time.Time
}

// New opens a session on source. The bytes are copied.
func New(sourceName string, source []byte, info *wrapper.DocumentInfo, opts Options) (*Session, error) {
	if info == nil {
		return nil, pdferrors.New(pdferrors.ErrorTypeInvalidDocument, "no document information")
	}
	if opts.Zoom <= 0 {
		return nil, pdferrors.Newf(pdferrors.ErrorTypeOutOfRange, "zoom %g must be positive", opts.Zoom)
	}
	if opts.DefaultFontSize <= 0 {
		opts.DefaultFontSize = fields.DefaultFontSize
	}

	model := fields.NewModel()
	if err := model.SetDocumentMetadata(info.PageCount, info.PageDimensions); err != nil {
		return nil, err
	}

	now := time.Now()
	s := &Session{
		ID:         uuid.NewString(),
		SourceName: sourceName,
		CreatedAt:  now,
		source:     bytes.Clone(source),
		library:    info.Library,
		model:      model,
		view: View{
			Zoom:        opts.Zoom,
			GridSize:    opts.GridSize,
			SnapEnabled: opts.SnapEnabled,
			CurrentPage: 1,
		},
		opts:      opts,
		exporter:  interchange.NewExporter(opts.IndentJSON),
		importer:  interchange.NewImporter(opts.DebugMode),
		synth:     synthesis.NewSynthesizer(opts.DebugMode),
		lastTouch: now,
	}

	if opts.DebugMode {
		log.Printf("Opened session %s for %s (%d pages)", s.ID, sourceName, info.PageCount)
	}
	return s, nil
}

// Metadata returns the page information of the document
func (s *Session) Metadata() fields.Metadata {
	return s.model.Metadata()
}

// Library returns the library that loaded the document
func (s *Session) Library() wrapper.LibraryType {
	return s.library
}

// View returns the current view state
func (s *Session) View() View {
	return s.view
}

// LastTouched returns when the session was last used
func (s *Session) LastTouched() time.Time {
	return s.lastTouch
}

func (s *Session) touch() {
	s.lastTouch = time.Now()
}

// SetView applies upd. The page is clamped to the document; zoom and grid
// size must be positive.
func (s *Session) SetView(upd ViewUpdate) (View, error) {
	s.touch()
	next := s.view

	if upd.Zoom != nil {
		if *upd.Zoom <= 0 {
			return s.view, pdferrors.Newf(pdferrors.ErrorTypeOutOfRange, "zoom %g must be positive", *upd.Zoom)
		}
		next.Zoom = *upd.Zoom
	}
	if upd.GridSize != nil {
		if *upd.GridSize <= 0 {
			return s.view, pdferrors.Newf(pdferrors.ErrorTypeOutOfRange, "grid size %g must be positive", *upd.GridSize)
		}
		next.GridSize = *upd.GridSize
	}
	if upd.SnapEnabled != nil {
		next.SnapEnabled = *upd.SnapEnabled
	}
	if upd.Page != nil {
		next.CurrentPage = geometry.ClampPage(*upd.Page, s.model.Metadata().TotalPages)
	}

	s.view = next
	return s.view, nil
}

// PlaceField converts a pointer position to field space and adds a field.
// The pointer is unscaled by the zoom, snapped to the grid in editing space
// and then flipped to the PDF's bottom-left origin.
func (s *Session) PlaceField(p Placement) (fields.Field, error) {
	s.touch()

	kind := p.Kind
	if kind == "" {
		kind = fields.KindText
	}
	if _, err := fields.ParseKind(string(kind)); err != nil {
		return fields.Field{}, err
	}

	page := p.Page
	if page == 0 {
		page = s.view.CurrentPage
	}

	size := kind.DefaultSize()
	if p.Width != 0 {
		size.Width = p.Width
	}
	if p.Height != 0 {
		size.Height = p.Height
	}

	origin, err := s.fieldOrigin(p.Pointer, page, size.Height)
	if err != nil {
		return fields.Field{}, err
	}

	name := p.Name
	if name == "" {
		name = s.defaultName(kind)
	}

	spec := fields.Spec{
		Name:     name,
		Kind:     kind,
		Page:     page,
		X:        origin.X,
		Y:        origin.Y,
		Width:    size.Width,
		Height:   size.Height,
		FontSize: p.FontSize,
	}
	if kind.HasFontSize() && spec.FontSize == 0 {
		spec.FontSize = s.opts.DefaultFontSize
	}
	return s.model.AddField(spec)
}

// MoveField places an existing field at a pointer position, optionally on
// another page (zero keeps the field's page)
func (s *Session) MoveField(id string, pointer geometry.Point, page int) (fields.Field, error) {
	s.touch()

	f, ok := s.model.Field(id)
	if !ok {
		return fields.Field{}, pdferrors.Newf(pdferrors.ErrorTypeFieldNotFound, "no field with id %s", id).WithField(id, "")
	}
	if page == 0 {
		page = f.Page
	}

	origin, err := s.fieldOrigin(pointer, page, f.Height)
	if err != nil {
		return fields.Field{}, err
	}
	return s.model.UpdateField(id, fields.Update{Page: &page, X: &origin.X, Y: &origin.Y})
}

// fieldOrigin maps a scaled pointer position to the stored field origin
func (s *Session) fieldOrigin(pointer geometry.Point, page int, height float64) (geometry.Point, error) {
	dims := s.model.Metadata().PageDimensions
	if page < 1 || page > len(dims) {
		cause := pdferrors.Newf(pdferrors.ErrorTypeOutOfRange,
			"page %d outside document (1-%d)", page, len(dims)).WithPage(page)
		return geometry.Point{}, pdferrors.Wrap(pdferrors.ErrorTypeInvalidField, "field references a missing page", cause).WithPage(page)
	}

	editing, err := geometry.Unscale(pointer, s.view.Zoom)
	if err != nil {
		return geometry.Point{}, err
	}
	editing = geometry.SnapPoint(editing, s.view.GridSize, s.view.SnapEnabled)

	return geometry.Point{
		X: editing.X,
		Y: geometry.FlipY(editing.Y, dims[page-1].Height, height),
	}, nil
}

// ScreenPosition returns where the field's top-left corner is drawn at the
// current zoom
func (s *Session) ScreenPosition(f fields.Field) (geometry.Point, error) {
	return geometry.ToScreenSpace(geometry.Point{X: f.X, Y: f.Y}, f.Page, s.view.Zoom,
		s.model.Metadata().PageDimensions, f.Height)
}

// defaultName returns the lowest numbered <kind>_<n> no field is using
func (s *Session) defaultName(kind fields.Kind) string {
	used := make(map[string]bool)
	for _, f := range s.model.ListFields() {
		used[f.Name] = true
	}
	for n := 1; ; n++ {
		name := fmt.Sprintf("%s_%d", kind, n)
		if !used[name] {
			return name
		}
	}
}

// AddField adds a field given directly in field space
func (s *Session) AddField(spec fields.Spec) (fields.Field, error) {
	s.touch()
	if spec.Kind.HasFontSize() && spec.FontSize == 0 {
		spec.FontSize = s.opts.DefaultFontSize
	}
	return s.model.AddField(spec)
}

// UpdateField changes a field in place
func (s *Session) UpdateField(id string, upd fields.Update) (fields.Field, error) {
	s.touch()
	return s.model.UpdateField(id, upd)
}

// RemoveField deletes a field
func (s *Session) RemoveField(id string) error {
	s.touch()
	return s.model.RemoveField(id)
}

// Field returns one field
func (s *Session) Field(id string) (fields.Field, bool) {
	return s.model.Field(id)
}

// ListFields returns all fields in insertion order
func (s *Session) ListFields() []fields.Field {
	return s.model.ListFields()
}

// ClearFields removes every field
func (s *Session) ClearFields() {
	s.touch()
	s.model.Reset()
}

// Snapshot copies the field model
func (s *Session) Snapshot() fields.Snapshot {
	return s.model.Snapshot()
}

// ExportJSON encodes the current layout
func (s *Session) ExportJSON(ctx context.Context) ([]byte, error) {
	s.touch()
	var buf bytes.Buffer
	if err := s.exporter.Export(ctx, &buf, s.model.Snapshot()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ImportJSON adds the fields of a layout to the session
func (s *Session) ImportJSON(ctx context.Context, data []byte) (*interchange.ImportResult, error) {
	s.touch()
	return s.importer.Import(ctx, data, s.model)
}

// Synthesize bakes the current fields into the source document. A session
// without fields has nothing to bake and fails with NoFields.
func (s *Session) Synthesize(ctx context.Context) (*synthesis.Result, error) {
	s.touch()
	snap := s.model.Snapshot()
	if len(snap.Fields) == 0 {
		return nil, pdferrors.New(pdferrors.ErrorTypeNoFields, "place at least one field before creating a form PDF")
	}
	return s.synth.Synthesize(ctx, s.source, snap.Fields)
}

// JSONFilename is the suggested name of an exported layout
func (s *Session) JSONFilename() string {
	return baseName(s.SourceName) + "_fields.json"
}

// PDFFilename is the suggested name of a synthesized form
func (s *Session) PDFFilename() string {
	return baseName(s.SourceName) + "_form.pdf"
}

func baseName(sourceName string) string {
	base := filepath.Base(sourceName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "document"
	}
	return base
}
