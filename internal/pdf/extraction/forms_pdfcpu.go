package extraction

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	pdferrors "github.com/a3tai/mcp-pdf-forms/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/security"
)

// maxFieldDepth bounds the walk of the field tree
const maxFieldDepth = 32

// PDFCPUFormExtractor reads the AcroForm field tree using the pdfcpu library
type PDFCPUFormExtractor struct {
	debugMode bool
}

// NewPDFCPUFormExtractor creates a new form extractor using pdfcpu
func NewPDFCPUFormExtractor(debugMode bool) *PDFCPUFormExtractor {
	return &PDFCPUFormExtractor{
		debugMode: debugMode,
	}
}

// inherited carries field attributes passed from a parent to its kids
type inherited struct {
	name string
	ft   string
	da   string
	ff   int
}

// pageIndex maps object numbers to 1-based page numbers
type pageIndex struct {
	pages  map[int]int
	annots map[int]int
}

// ExtractForms returns every terminal field of the document's AcroForm, in
// field tree order, with the page count and access permissions
func (fe *PDFCPUFormExtractor) ExtractForms(ctx context.Context, data []byte) (*Inspection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidDocument, "failed to read PDF context", err)
	}
	if err := pctx.EnsurePageCount(); err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidDocument, "failed to ensure page count", err)
	}

	forms, err := fe.extractFormsFromContext(ctx, pctx)
	if err != nil {
		return nil, err
	}

	inspection := &Inspection{
		PageCount:   pctx.PageCount,
		Fields:      forms,
		Permissions: security.NewFullPermissions(),
	}
	if pctx.Encrypt != nil {
		inspection.Encrypted = true
		if encryptDict, err := pctx.DereferenceDict(*pctx.Encrypt); err == nil && encryptDict != nil {
			if p, err := pctx.DereferenceInteger(encryptDict["P"]); err == nil && p != nil {
				inspection.Permissions = security.NewPermissions(int32(*p))
			}
		}
		if fe.debugMode {
			log.Printf("Document is encrypted: %s", inspection.Permissions)
		}
	}
	return inspection, nil
}

// extractFormsFromContext walks /AcroForm /Fields
func (fe *PDFCPUFormExtractor) extractFormsFromContext(ctx context.Context, pctx *model.Context) ([]FormField, error) {
	forms := make([]FormField, 0)

	rootDict, err := pctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}

	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		if fe.debugMode {
			log.Println("No AcroForm dictionary found in document")
		}
		return forms, nil
	}

	acroFormDict, err := pctx.DereferenceDict(acroFormObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference AcroForm: %w", err)
	}
	if acroFormDict == nil {
		return forms, nil
	}

	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		return forms, nil
	}
	fieldsArray, err := pctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference Fields array: %w", err)
	}

	idx := fe.indexPages(pctx)
	base := inherited{}
	if daObj, found := acroFormDict.Find("DA"); found {
		if da, err := pctx.DereferenceStringOrHexLiteral(daObj, model.V10, nil); err == nil {
			base.da = da
		}
	}

	for i, fieldObj := range fieldsArray {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		collected, err := fe.processField(pctx, idx, fieldObj, base, 0)
		if err != nil {
			if fe.debugMode {
				log.Printf("Error processing field %d: %v", i, err)
			}
			continue
		}
		forms = append(forms, collected...)
	}

	if fe.debugMode {
		log.Printf("Extracted %d field(s) using pdfcpu", len(forms))
	}

	return forms, nil
}

// indexPages records page object numbers and the annotations listed on each
// page, so widgets without /P can still be located
func (fe *PDFCPUFormExtractor) indexPages(pctx *model.Context) pageIndex {
	idx := pageIndex{pages: make(map[int]int), annots: make(map[int]int)}
	for p := 1; p <= pctx.PageCount; p++ {
		pageDict, ref, _, err := pctx.PageDict(p, false)
		if err != nil {
			continue
		}
		if ref != nil {
			idx.pages[int(ref.ObjectNumber)] = p
		}
		annotsObj, found := pageDict.Find("Annots")
		if !found {
			continue
		}
		annots, err := pctx.DereferenceArray(annotsObj)
		if err != nil {
			continue
		}
		for _, a := range annots {
			if r, ok := a.(types.IndirectRef); ok {
				idx.annots[int(r.ObjectNumber)] = p
			}
		}
	}
	return idx
}

// processField returns the terminal fields below fieldObj. A node whose kids
// carry /T is a non-terminal field; kids without /T are its widgets.
func (fe *PDFCPUFormExtractor) processField(pctx *model.Context, idx pageIndex, fieldObj types.Object, parent inherited, depth int) ([]FormField, error) {
	if depth > maxFieldDepth {
		return nil, fmt.Errorf("field tree deeper than %d levels", maxFieldDepth)
	}

	fieldDict, err := pctx.DereferenceDict(fieldObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference field: %w", err)
	}
	if fieldDict == nil {
		return nil, nil
	}

	attrs := fe.inherit(pctx, fieldDict, parent)

	var kids types.Array
	if kidsObj, found := fieldDict.Find("Kids"); found {
		kids, _ = pctx.DereferenceArray(kidsObj)
	}

	var terminalKids bool
	for _, kid := range kids {
		kd, err := pctx.DereferenceDict(kid)
		if err == nil && kd != nil {
			if _, named := kd.Find("T"); named {
				terminalKids = true
				break
			}
		}
	}

	if terminalKids {
		var out []FormField
		for _, kid := range kids {
			collected, err := fe.processField(pctx, idx, kid, attrs, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, collected...)
		}
		return out, nil
	}

	field := FormField{
		Name:     attrs.name,
		Type:     fieldType(attrs.ft, attrs.ff),
		FontSize: daFontSize(attrs.da),
		ReadOnly: attrs.ff&1 != 0,
		Required: attrs.ff&2 != 0,
	}

	if len(kids) == 0 {
		if w, ok := fe.widget(pctx, idx, fieldObj, fieldDict); ok {
			field.Widgets = append(field.Widgets, w)
		}
	}
	for _, kid := range kids {
		kd, err := pctx.DereferenceDict(kid)
		if err != nil || kd == nil {
			continue
		}
		if w, ok := fe.widget(pctx, idx, kid, kd); ok {
			field.Widgets = append(field.Widgets, w)
		}
	}

	if fe.debugMode {
		log.Printf("Extracted field: %s (type: %s, widgets: %d)", field.Name, field.Type, len(field.Widgets))
	}

	return []FormField{field}, nil
}

// inherit applies the inheritable attributes of fieldDict over parent
func (fe *PDFCPUFormExtractor) inherit(pctx *model.Context, fieldDict types.Dict, parent inherited) inherited {
	attrs := parent

	if nameObj, found := fieldDict.Find("T"); found {
		if name, err := pctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil {
			if attrs.name != "" {
				attrs.name += "." + name
			} else {
				attrs.name = name
			}
		}
	}
	if ftObj, found := fieldDict.Find("FT"); found {
		if ft, err := pctx.DereferenceName(ftObj, model.V10, nil); err == nil {
			attrs.ft = string(ft)
		}
	}
	if daObj, found := fieldDict.Find("DA"); found {
		if da, err := pctx.DereferenceStringOrHexLiteral(daObj, model.V10, nil); err == nil {
			attrs.da = da
		}
	}
	if ffObj, found := fieldDict.Find("Ff"); found {
		if ff, err := pctx.DereferenceInteger(ffObj); err == nil && ff != nil {
			attrs.ff = int(*ff)
		}
	}

	return attrs
}

// widget reads the rectangle and page of one widget annotation
func (fe *PDFCPUFormExtractor) widget(pctx *model.Context, idx pageIndex, obj types.Object, annotDict types.Dict) (Widget, bool) {
	rectObj, found := annotDict.Find("Rect")
	if !found {
		return Widget{}, false
	}
	rectArray, err := pctx.DereferenceArray(rectObj)
	if err != nil || len(rectArray) != 4 {
		return Widget{}, false
	}

	var w Widget
	for i, coord := range rectArray {
		if f, err := pctx.DereferenceNumber(coord); err == nil {
			w.Rect[i] = f
		}
	}

	if pObj, found := annotDict.Find("P"); found {
		if r, ok := pObj.(types.IndirectRef); ok {
			w.Page = idx.pages[int(r.ObjectNumber)]
		}
	}
	if w.Page == 0 {
		if r, ok := obj.(types.IndirectRef); ok {
			w.Page = idx.annots[int(r.ObjectNumber)]
		}
	}

	return w, true
}

// fieldType maps /FT and the button flags to a FormFieldType
func fieldType(ft string, ff int) FormFieldType {
	switch ft {
	case "Btn":
		if ff&(1<<15) != 0 { // Bit 16: Radio
			return FormFieldTypeRadio
		} else if ff&(1<<16) != 0 { // Bit 17: Pushbutton
			return FormFieldTypeButton
		}
		return FormFieldTypeCheckbox
	case "Tx":
		return FormFieldTypeText
	case "Ch":
		return FormFieldTypeSelect
	case "Sig":
		return FormFieldTypeSignature
	default:
		return FormFieldTypeUnknown
	}
}

// daFontSize returns the size operand of the Tf operator in a default
// appearance string, or zero
func daFontSize(da string) float64 {
	parts := strings.Fields(da)
	for i := 2; i < len(parts); i++ {
		if parts[i] == "Tf" {
			if size, err := strconv.ParseFloat(parts[i-1], 64); err == nil {
				return size
			}
		}
	}
	return 0
}
