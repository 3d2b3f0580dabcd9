// Package fields holds the in-memory model of form fields placed on a PDF
// document. Geometry is stored in unscaled PDF points so that view zoom never
// mutates it.
//
// A Model is owned by a single editing session. It performs no locking;
// callers must serialize mutations.
package fields

import (
	"fmt"

	pdferrors "github.com/a3tai/mcp-pdf-forms/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/geometry"
)

// Kind is the variant of an interactive field
type Kind string

const (
	KindText     Kind = "text"
	KindCheckbox Kind = "checkbox"
)

// Defaults applied when a placement or import omits a value
const (
	DefaultFontSize       = 12.0
	DefaultTextWidth      = 150.0
	DefaultTextHeight     = 20.0
	DefaultCheckboxWidth  = 16.0
	DefaultCheckboxHeight = 16.0
)

// Kinds lists every supported kind in a stable order
var Kinds = []Kind{KindText, KindCheckbox}

// ParseKind maps a stored type string onto a Kind
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", pdferrors.Newf(pdferrors.ErrorTypeUnknownFieldKind, "unsupported field type %q", s)
}

// HasFontSize reports whether fields of this kind carry a font size
func (k Kind) HasFontSize() bool {
	return k == KindText
}

// DefaultSize returns the extent used when a field of this kind is created
// without an explicit width or height.
func (k Kind) DefaultSize() geometry.Size {
	if k == KindCheckbox {
		return geometry.Size{Width: DefaultCheckboxWidth, Height: DefaultCheckboxHeight}
	}
	return geometry.Size{Width: DefaultTextWidth, Height: DefaultTextHeight}
}

// Field is one interactive element placed on a page. X and Y are the
// PDF-space origin of the widget rectangle (bottom-left origin); the
// rectangle spans [X, X+Width] x [Y, Y+Height].
type Field struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Kind     Kind    `json:"kind"`
	Page     int     `json:"page"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	FontSize float64 `json:"font_size,omitempty"` // text fields only
}

// Rect returns the field rectangle as lower-left and upper-right corners
func (f Field) Rect() (ll, ur geometry.Point) {
	return geometry.Point{X: f.X, Y: f.Y}, geometry.Point{X: f.X + f.Width, Y: f.Y + f.Height}
}

// String returns a short description of the field
func (f Field) String() string {
	return fmt.Sprintf("%s %q page %d at (%g, %g) %gx%g", f.Kind, f.Name, f.Page, f.X, f.Y, f.Width, f.Height)
}

// Spec describes a field to add. FontSize zero on a text field means the
// default size.
type Spec struct {
	Name     string
	Kind     Kind
	Page     int
	X        float64
	Y        float64
	Width    float64
	Height   float64
	FontSize float64
}

// Update carries a partial change to a field; nil members are left as is
type Update struct {
	Name     *string
	Kind     *Kind
	Page     *int
	X        *float64
	Y        *float64
	Width    *float64
	Height   *float64
	FontSize *float64
}

// Metadata describes the document the fields are placed on
type Metadata struct {
	TotalPages     int             `json:"total_pages"`
	PageDimensions []geometry.Size `json:"page_dimensions"`
}

// PageSize returns the dimensions of a 1-based page
func (m Metadata) PageSize(page int) (geometry.Size, bool) {
	if page < 1 || page > len(m.PageDimensions) {
		return geometry.Size{}, false
	}
	return m.PageDimensions[page-1], true
}

// Snapshot is a by-value copy of a model taken at one instant
type Snapshot struct {
	Fields   []Field
	Metadata Metadata
}
