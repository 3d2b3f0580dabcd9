package interchange

import (
	"context"
	"encoding/json"
	"log"

	pdferrors "github.com/a3tai/mcp-pdf-forms/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/fields"
)

// ImportResult lists the committed fields and one error per rejected entry
type ImportResult struct {
	Imported []fields.Field         `json:"imported"`
	Errors   []*pdferrors.FormError `json:"errors,omitempty"`
}

// FieldAdder is the part of the field model an import writes to
type FieldAdder interface {
	AddField(spec fields.Spec) (fields.Field, error)
}

// importDocument is the accepted shape; only fields is read
type importDocument struct {
	Fields *[]json.RawMessage `json:"fields"`
}

// importEntry uses pointers so absent members can be defaulted
type importEntry struct {
	Name     *string  `json:"name"`
	Type     *string  `json:"type"`
	Page     *int     `json:"page"`
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
	Width    *float64 `json:"width"`
	Height   *float64 `json:"height"`
	FontSize *float64 `json:"fontSize"`
}

// Importer decodes layouts and commits them entry by entry
type Importer struct {
	debugMode bool
}

// NewImporter creates an importer
func NewImporter(debugMode bool) *Importer {
	return &Importer{debugMode: debugMode}
}

// Import decodes data and adds every well-formed entry to model. A document
// that is not JSON or has no fields array fails as a whole with
// InvalidDocument. Entries are otherwise independent: rejected entries are
// reported in the result and the rest are committed. If ctx is cancelled the
// loop stops and already committed entries stay in the model.
func (im *Importer) Import(ctx context.Context, data []byte, model FieldAdder) (*ImportResult, error) {
	var doc importDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidDocument, "field layout is not a JSON object", err)
	}
	if doc.Fields == nil {
		return nil, pdferrors.New(pdferrors.ErrorTypeInvalidDocument, "field layout has no fields array")
	}

	result := &ImportResult{
		Imported: make([]fields.Field, 0, len(*doc.Fields)),
	}

	for i, raw := range *doc.Fields {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		spec, ferr := decodeEntry(raw)
		if ferr != nil {
			result.Errors = append(result.Errors, ferr.WithIndex(i))
			continue
		}

		f, err := model.AddField(spec)
		if err != nil {
			fe := pdferrors.AsFormError(err)
			if fe.FieldName == "" {
				fe.FieldName = spec.Name
			}
			result.Errors = append(result.Errors, fe.WithIndex(i))
			continue
		}
		result.Imported = append(result.Imported, f)
	}

	if im.debugMode {
		log.Printf("Imported %d field(s), rejected %d", len(result.Imported), len(result.Errors))
	}

	return result, nil
}

// decodeEntry validates the presence and types of one entry and applies
// defaults. Model invariants are checked later by AddField.
func decodeEntry(raw json.RawMessage) (fields.Spec, *pdferrors.FormError) {
	var e importEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return fields.Spec{}, pdferrors.Wrap(pdferrors.ErrorTypeInvalidField, "malformed field entry", err)
	}

	if e.Name == nil {
		return fields.Spec{}, pdferrors.New(pdferrors.ErrorTypeInvalidField, "field entry has no name")
	}
	if e.Type == nil {
		return fields.Spec{}, pdferrors.New(pdferrors.ErrorTypeInvalidField, "field entry has no type").
			WithField("", *e.Name)
	}

	kind, err := fields.ParseKind(*e.Type)
	if err != nil {
		fe := pdferrors.AsFormError(err)
		return fields.Spec{}, fe.WithField("", *e.Name)
	}

	size := kind.DefaultSize()
	spec := fields.Spec{
		Name:   *e.Name,
		Kind:   kind,
		Page:   1,
		Width:  size.Width,
		Height: size.Height,
	}
	if e.Page != nil {
		spec.Page = *e.Page
	}
	if e.X != nil {
		spec.X = *e.X
	}
	if e.Y != nil {
		spec.Y = *e.Y
	}
	if e.Width != nil {
		spec.Width = *e.Width
	}
	if e.Height != nil {
		spec.Height = *e.Height
	}
	if kind.HasFontSize() {
		spec.FontSize = fields.DefaultFontSize
		if e.FontSize != nil {
			if *e.FontSize <= 0 {
				return fields.Spec{}, pdferrors.Newf(pdferrors.ErrorTypeInvalidField,
					"font size %g must be positive", *e.FontSize).WithField("", *e.Name)
			}
			spec.FontSize = *e.FontSize
		}
	}

	return spec, nil
}
