// Package synthesis bakes placed fields into a PDF as AcroForm widgets.
//
// Each field becomes a widget annotation on its page. Fields that share a
// name become a single terminal field whose widgets are its /Kids, so they
// share one value in a viewer.
package synthesis

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	pdferrors "github.com/a3tai/mcp-pdf-forms/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/fields"
)

// annotation flag bit 3
const flagPrint = 1 << 2

// Widget describes one widget annotation written to the output
type Widget struct {
	FieldID string      `json:"field_id"`
	Name    string      `json:"name"`
	Kind    fields.Kind `json:"kind"`
	Page    int         `json:"page"`
	Rect    [4]float64  `json:"rect"`
	// Twin is set when the widget is one of several sharing its name
	Twin bool `json:"twin,omitempty"`
}

// Result is the outcome of a synthesis. Report.Errors lists skipped fields;
// Report.Warnings lists fields written with a rectangle that leaves the page.
type Result struct {
	PDF     []byte                     `json:"-"`
	Widgets []Widget                   `json:"widgets"`
	Report  *pdferrors.ErrorCollection `json:"report"`
}

// Synthesizer writes AcroForm widgets with pdfcpu
type Synthesizer struct {
	debugMode bool
}

// NewSynthesizer creates a synthesizer
func NewSynthesizer(debugMode bool) *Synthesizer {
	return &Synthesizer{debugMode: debugMode}
}

// group is the set of accepted fields sharing one name
type group struct {
	name    string
	kind    fields.Kind
	members []fields.Field
}

// Synthesize returns source with list added as form fields. The source is
// never modified. An unreadable source fails with InvalidDocument and no
// output; individual fields that cannot be placed are skipped and reported.
func (s *Synthesizer) Synthesize(ctx context.Context, source []byte, list []fields.Field) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pctx, err := api.ReadContext(bytes.NewReader(source), conf)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidDocument, "failed to read source PDF", err)
	}
	if err := pctx.EnsurePageCount(); err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidDocument, "failed to determine page count", err)
	}

	result := &Result{
		Widgets: make([]Widget, 0, len(list)),
		Report:  pdferrors.NewErrorCollection(),
	}

	groups, err := s.accept(ctx, pctx, list, result.Report)
	if err != nil {
		return nil, err
	}

	acroForm, err := s.ensureAcroForm(pctx)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidDocument, "failed to prepare AcroForm", err)
	}

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		widgets, err := s.writeGroup(pctx, acroForm, g)
		if err != nil {
			return nil, fmt.Errorf("failed to write field %q: %w", g.name, err)
		}
		result.Widgets = append(result.Widgets, widgets...)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := api.WriteContext(pctx, &out); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	result.PDF = out.Bytes()

	if s.debugMode {
		log.Printf("Synthesized %d widget(s) in %d field(s), skipped %d, %d warning(s)",
			len(result.Widgets), len(groups), len(result.Report.Errors), len(result.Report.Warnings))
	}

	return result, nil
}

// accept filters list into name groups in first-seen order, reporting fields
// on missing pages and same-name fields of a conflicting kind.
func (s *Synthesizer) accept(ctx context.Context, pctx *model.Context, list []fields.Field, report *pdferrors.ErrorCollection) ([]*group, error) {
	var groups []*group
	byName := make(map[string]*group)

	for i, f := range list {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if f.Page < 1 || f.Page > pctx.PageCount {
			report.Add(pdferrors.Newf(pdferrors.ErrorTypeOutOfRange,
				"page %d outside document (1-%d)", f.Page, pctx.PageCount).
				WithField(f.ID, f.Name).WithPage(f.Page).WithIndex(i))
			continue
		}

		g, seen := byName[f.Name]
		if seen && g.kind != f.Kind {
			report.Add(pdferrors.Newf(pdferrors.ErrorTypeInvalidField,
				"name %q is already used by a %s field", f.Name, g.kind).
				WithField(f.ID, f.Name).WithPage(f.Page).WithIndex(i))
			continue
		}
		if !seen {
			g = &group{name: f.Name, kind: f.Kind}
			byName[f.Name] = g
			groups = append(groups, g)
		}
		g.members = append(g.members, f)

		if warn := s.overflow(pctx, f); warn != nil {
			report.Warn(warn.WithIndex(i))
		}
	}

	return groups, nil
}

// overflow reports a field whose rectangle leaves the page's media box
func (s *Synthesizer) overflow(pctx *model.Context, f fields.Field) *pdferrors.FormError {
	_, _, inh, err := pctx.PageDict(f.Page, true)
	if err != nil || inh == nil || inh.MediaBox == nil {
		return nil
	}
	mb := inh.MediaBox
	r := bounds(f)
	if r[0] >= mb.LL.X && r[1] >= mb.LL.Y && r[2] <= mb.UR.X && r[3] <= mb.UR.Y {
		return nil
	}
	return pdferrors.Newf(pdferrors.ErrorTypeOutOfRange,
		"field rectangle [%g %g %g %g] extends beyond page %d", r[0], r[1], r[2], r[3], f.Page).
		WithField(f.ID, f.Name).WithPage(f.Page)
}

// ensureAcroForm returns the catalog's AcroForm, creating it if missing, and
// makes sure it carries the fonts and flags the new widgets rely on.
func (s *Synthesizer) ensureAcroForm(pctx *model.Context) (types.Dict, error) {
	root, err := pctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}

	var acroForm types.Dict
	if obj, found := root.Find("AcroForm"); found {
		acroForm, err = pctx.DereferenceDict(obj)
		if err != nil {
			return nil, fmt.Errorf("failed to dereference AcroForm: %w", err)
		}
		if s.debugMode && acroForm != nil {
			log.Printf("Reusing existing AcroForm")
		}
	}
	if acroForm == nil {
		acroForm = types.Dict{"Fields": types.Array{}}
		ref, err := pctx.IndRefForNewObject(acroForm)
		if err != nil {
			return nil, fmt.Errorf("failed to add AcroForm: %w", err)
		}
		root["AcroForm"] = *ref
	}

	if _, found := acroForm.Find("Fields"); !found {
		acroForm["Fields"] = types.Array{}
	}

	dr := types.Dict{}
	if obj, found := acroForm.Find("DR"); found {
		if d, err := pctx.DereferenceDict(obj); err == nil && d != nil {
			dr = d
		}
	}
	fonts := types.Dict{}
	if obj, found := dr.Find("Font"); found {
		if d, err := pctx.DereferenceDict(obj); err == nil && d != nil {
			fonts = d
		}
	}
	if _, found := fonts.Find(textFontName); !found {
		fonts[textFontName] = helveticaFont()
	}
	if _, found := fonts.Find(checkFontName); !found {
		fonts[checkFontName] = zapfDingbatsFont()
	}
	dr["Font"] = fonts
	acroForm["DR"] = dr

	if _, found := acroForm.Find("DA"); !found {
		acroForm["DA"] = types.StringLiteral(fmt.Sprintf("/%s 0 Tf 0 g", textFontName))
	}
	acroForm["NeedAppearances"] = types.Boolean(true)

	return acroForm, nil
}

// writeGroup adds one terminal field for g to the AcroForm. A single member
// is written as a merged field and widget dictionary; several members hang
// off a parent as /Kids.
func (s *Synthesizer) writeGroup(pctx *model.Context, acroForm types.Dict, g *group) ([]Widget, error) {
	if len(g.members) == 1 {
		f := g.members[0]
		d, err := s.widgetDict(pctx, f)
		if err != nil {
			return nil, err
		}
		for k, v := range s.fieldEntries(g) {
			d[k] = v
		}
		ref, err := pctx.IndRefForNewObject(d)
		if err != nil {
			return nil, err
		}
		if err := s.appendAnnot(pctx, f.Page, *ref); err != nil {
			return nil, err
		}
		if err := s.appendField(pctx, acroForm, *ref); err != nil {
			return nil, err
		}
		return []Widget{newWidget(f, false)}, nil
	}

	parent := s.fieldEntries(g)
	parentRef, err := pctx.IndRefForNewObject(parent)
	if err != nil {
		return nil, err
	}

	kids := make(types.Array, 0, len(g.members))
	widgets := make([]Widget, 0, len(g.members))
	for _, f := range g.members {
		d, err := s.widgetDict(pctx, f)
		if err != nil {
			return nil, err
		}
		d["Parent"] = *parentRef
		ref, err := pctx.IndRefForNewObject(d)
		if err != nil {
			return nil, err
		}
		if err := s.appendAnnot(pctx, f.Page, *ref); err != nil {
			return nil, err
		}
		kids = append(kids, *ref)
		widgets = append(widgets, newWidget(f, true))
	}
	parent["Kids"] = kids

	if err := s.appendField(pctx, acroForm, *parentRef); err != nil {
		return nil, err
	}
	return widgets, nil
}

// fieldEntries holds the field-level keys shared by every widget of g
func (s *Synthesizer) fieldEntries(g *group) types.Dict {
	d := types.Dict{"T": textString(g.name)}
	switch g.kind {
	case fields.KindText:
		d["FT"] = types.Name("Tx")
		d["Ff"] = types.Integer(0)
		d["DA"] = textDA(g.members[0].FontSize)
	case fields.KindCheckbox:
		d["FT"] = types.Name("Btn")
		d["V"] = types.Name(offState)
	}
	return d
}

// widgetDict builds the annotation keys of one widget, with its appearance
func (s *Synthesizer) widgetDict(pctx *model.Context, f fields.Field) (types.Dict, error) {
	_, pageRef, _, err := pctx.PageDict(f.Page, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get page %d: %w", f.Page, err)
	}

	d := types.Dict{
		"Type":    types.Name("Annot"),
		"Subtype": types.Name("Widget"),
		"Rect":    rectArray(bounds(f)),
		"F":       types.Integer(flagPrint),
	}
	if pageRef != nil {
		d["P"] = *pageRef
	}

	switch f.Kind {
	case fields.KindText:
		ap, err := formXObject(pctx, textAppearance(), f.Width, f.Height,
			types.Dict{textFontName: helveticaFont()})
		if err != nil {
			return nil, err
		}
		d["DA"] = textDA(f.FontSize)
		d["AP"] = types.Dict{"N": *ap}

	case fields.KindCheckbox:
		fonts := types.Dict{checkFontName: zapfDingbatsFont()}
		on, err := formXObject(pctx, checkboxAppearance(f.Width, f.Height, true), f.Width, f.Height, fonts)
		if err != nil {
			return nil, err
		}
		off, err := formXObject(pctx, checkboxAppearance(f.Width, f.Height, false), f.Width, f.Height, fonts)
		if err != nil {
			return nil, err
		}
		d["AS"] = types.Name(offState)
		d["AP"] = types.Dict{"N": types.Dict{onState: *on, offState: *off}}
		d["MK"] = types.Dict{"CA": types.StringLiteral(checkGlyph)}

	default:
		return nil, pdferrors.Newf(pdferrors.ErrorTypeUnknownFieldKind, "unknown field kind %q", f.Kind).
			WithField(f.ID, f.Name)
	}

	return d, nil
}

// appendAnnot adds ref to the page's /Annots, resolving an indirect array
func (s *Synthesizer) appendAnnot(pctx *model.Context, page int, ref types.IndirectRef) error {
	pageDict, _, _, err := pctx.PageDict(page, false)
	if err != nil {
		return fmt.Errorf("failed to get page %d: %w", page, err)
	}

	var annots types.Array
	if obj, found := pageDict.Find("Annots"); found {
		annots, err = pctx.DereferenceArray(obj)
		if err != nil {
			return fmt.Errorf("failed to dereference annotations of page %d: %w", page, err)
		}
	}
	pageDict["Annots"] = append(annots, ref)
	return nil
}

func (s *Synthesizer) appendField(pctx *model.Context, acroForm types.Dict, ref types.IndirectRef) error {
	var list types.Array
	if obj, found := acroForm.Find("Fields"); found {
		var err error
		list, err = pctx.DereferenceArray(obj)
		if err != nil {
			return fmt.Errorf("failed to dereference AcroForm fields: %w", err)
		}
	}
	acroForm["Fields"] = append(list, ref)
	return nil
}

func newWidget(f fields.Field, twin bool) Widget {
	return Widget{
		FieldID: f.ID,
		Name:    f.Name,
		Kind:    f.Kind,
		Page:    f.Page,
		Rect:    bounds(f),
		Twin:    twin,
	}
}

// bounds flattens the field rectangle to [llx lly urx ury]
func bounds(f fields.Field) [4]float64 {
	ll, ur := f.Rect()
	return [4]float64{ll.X, ll.Y, ur.X, ur.Y}
}
