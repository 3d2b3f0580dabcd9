package fields

import (
	"math"

	"github.com/google/uuid"

	pdferrors "github.com/a3tai/mcp-pdf-forms/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/geometry"
)

// Model is the canonical store of placed fields for one document
type Model struct {
	fields   []Field
	index    map[string]int
	metadata Metadata
	newID    func() string
}

// NewModel creates an empty model with no document attached
func NewModel() *Model {
	return &Model{
		index: make(map[string]int),
		newID: uuid.NewString,
	}
}

// SetDocumentMetadata attaches page information. Existing fields must still
// reference valid pages; otherwise the model is left unchanged.
func (m *Model) SetDocumentMetadata(totalPages int, pageDimensions []geometry.Size) error {
	if totalPages < 1 {
		return pdferrors.Newf(pdferrors.ErrorTypeInvalidDocument, "document must have at least one page, got %d", totalPages)
	}
	if len(pageDimensions) != totalPages {
		return pdferrors.Newf(pdferrors.ErrorTypeInvalidDocument,
			"expected %d page dimensions, got %d", totalPages, len(pageDimensions))
	}
	for i, d := range pageDimensions {
		if !positive(d.Width) || !positive(d.Height) {
			return pdferrors.Newf(pdferrors.ErrorTypeInvalidDocument,
				"page %d has invalid dimensions %gx%g", i+1, d.Width, d.Height).WithPage(i + 1)
		}
	}
	for _, f := range m.fields {
		if f.Page > totalPages {
			return pdferrors.Newf(pdferrors.ErrorTypeOutOfRange,
				"field %q is on page %d but the document has %d pages", f.Name, f.Page, totalPages).
				WithField(f.ID, f.Name).WithPage(f.Page)
		}
	}

	dims := make([]geometry.Size, len(pageDimensions))
	copy(dims, pageDimensions)
	m.metadata = Metadata{TotalPages: totalPages, PageDimensions: dims}
	return nil
}

// Metadata returns a copy of the document metadata
func (m *Model) Metadata() Metadata {
	dims := make([]geometry.Size, len(m.metadata.PageDimensions))
	copy(dims, m.metadata.PageDimensions)
	return Metadata{TotalPages: m.metadata.TotalPages, PageDimensions: dims}
}

// AddField validates spec and appends a new field with a fresh id
func (m *Model) AddField(spec Spec) (Field, error) {
	f := Field{
		Name:     spec.Name,
		Kind:     spec.Kind,
		Page:     spec.Page,
		X:        spec.X,
		Y:        spec.Y,
		Width:    spec.Width,
		Height:   spec.Height,
		FontSize: spec.FontSize,
	}
	normalizeFontSize(&f)

	if err := m.validate(f); err != nil {
		return Field{}, err
	}

	f.ID = m.freshID()
	m.index[f.ID] = len(m.fields)
	m.fields = append(m.fields, f)
	return f, nil
}

// UpdateField merges upd into the field with the given id. The merged field
// is validated before anything is written.
func (m *Model) UpdateField(id string, upd Update) (Field, error) {
	i, ok := m.index[id]
	if !ok {
		return Field{}, pdferrors.Newf(pdferrors.ErrorTypeFieldNotFound, "no field with id %s", id).WithField(id, "")
	}

	merged := m.fields[i]
	if upd.Name != nil {
		merged.Name = *upd.Name
	}
	if upd.Kind != nil {
		merged.Kind = *upd.Kind
	}
	if upd.Page != nil {
		merged.Page = *upd.Page
	}
	if upd.X != nil {
		merged.X = *upd.X
	}
	if upd.Y != nil {
		merged.Y = *upd.Y
	}
	if upd.Width != nil {
		merged.Width = *upd.Width
	}
	if upd.Height != nil {
		merged.Height = *upd.Height
	}
	if upd.FontSize != nil {
		merged.FontSize = *upd.FontSize
	}
	if upd.FontSize == nil || !merged.Kind.HasFontSize() {
		normalizeFontSize(&merged)
	}

	if err := m.validate(merged); err != nil {
		if fe, ok := err.(*pdferrors.FormError); ok {
			fe.WithField(id, merged.Name)
		}
		return Field{}, err
	}

	m.fields[i] = merged
	return merged, nil
}

// RemoveField deletes the field with the given id
func (m *Model) RemoveField(id string) error {
	i, ok := m.index[id]
	if !ok {
		return pdferrors.Newf(pdferrors.ErrorTypeFieldNotFound, "no field with id %s", id).WithField(id, "")
	}

	m.fields = append(m.fields[:i], m.fields[i+1:]...)
	delete(m.index, id)
	for j := i; j < len(m.fields); j++ {
		m.index[m.fields[j].ID] = j
	}
	return nil
}

// Field returns the field with the given id
func (m *Model) Field(id string) (Field, bool) {
	i, ok := m.index[id]
	if !ok {
		return Field{}, false
	}
	return m.fields[i], true
}

// ListFields returns a copy of all fields in insertion order
func (m *Model) ListFields() []Field {
	out := make([]Field, len(m.fields))
	copy(out, m.fields)
	return out
}

// Len returns the number of fields
func (m *Model) Len() int {
	return len(m.fields)
}

// Reset removes every field. Document metadata is kept.
func (m *Model) Reset() {
	m.fields = nil
	m.index = make(map[string]int)
}

// Snapshot copies the model by value
func (m *Model) Snapshot() Snapshot {
	return Snapshot{
		Fields:   m.ListFields(),
		Metadata: m.Metadata(),
	}
}

// Validate checks a field against the model invariants without storing it
func (m *Model) Validate(f Field) error {
	return m.validate(f)
}

func (m *Model) validate(f Field) error {
	if _, err := ParseKind(string(f.Kind)); err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeInvalidField, "invalid field kind", err).WithField(f.ID, f.Name)
	}

	if m.metadata.TotalPages < 1 {
		return pdferrors.New(pdferrors.ErrorTypeInvalidField, "no document is open").WithField(f.ID, f.Name)
	}
	if f.Page < 1 || f.Page > m.metadata.TotalPages {
		cause := pdferrors.Newf(pdferrors.ErrorTypeOutOfRange,
			"page %d outside document (1-%d)", f.Page, m.metadata.TotalPages).WithPage(f.Page)
		return pdferrors.Wrap(pdferrors.ErrorTypeInvalidField, "field references a missing page", cause).
			WithField(f.ID, f.Name).WithPage(f.Page)
	}

	if !finite(f.X) || !finite(f.Y) {
		return pdferrors.Newf(pdferrors.ErrorTypeInvalidField, "position (%g, %g) is not finite", f.X, f.Y).
			WithField(f.ID, f.Name)
	}
	if !positive(f.Width) || !positive(f.Height) {
		return pdferrors.Newf(pdferrors.ErrorTypeInvalidField, "size %gx%g must be positive", f.Width, f.Height).
			WithField(f.ID, f.Name)
	}
	if f.Kind.HasFontSize() && !positive(f.FontSize) {
		return pdferrors.Newf(pdferrors.ErrorTypeInvalidField, "font size %g must be positive", f.FontSize).
			WithField(f.ID, f.Name)
	}

	return nil
}

func (m *Model) freshID() string {
	for {
		id := m.newID()
		if _, taken := m.index[id]; !taken {
			return id
		}
	}
}

// normalizeFontSize clears the font size of kinds that have none and applies
// the default to text fields that omit it.
func normalizeFontSize(f *Field) {
	if !f.Kind.HasFontSize() {
		f.FontSize = 0
		return
	}
	if f.FontSize == 0 {
		f.FontSize = DefaultFontSize
	}
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
