package synthesis

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/form"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdferrors "github.com/a3tai/mcp-pdf-forms/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/fields"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/testpdf"
)

// bakedField is a terminal field read back from a synthesized PDF
type bakedField struct {
	FT   string
	DA   string
	Kids int
}

func readContext(t *testing.T, data []byte) *model.Context {
	t.Helper()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pctx, err := api.ReadContext(bytes.NewReader(data), conf)
	require.NoError(t, err)
	require.NoError(t, pctx.EnsurePageCount())
	return pctx
}

func readBack(t *testing.T, data []byte) map[string]bakedField {
	t.Helper()
	pctx := readContext(t, data)

	root, err := pctx.Catalog()
	require.NoError(t, err)
	obj, found := root.Find("AcroForm")
	require.True(t, found, "output has no AcroForm")
	acroForm, err := pctx.DereferenceDict(obj)
	require.NoError(t, err)

	list, err := pctx.DereferenceArray(acroForm["Fields"])
	require.NoError(t, err)

	out := make(map[string]bakedField)
	for _, ref := range list {
		d, err := pctx.DereferenceDict(ref)
		require.NoError(t, err)

		name, err := pctx.DereferenceStringOrHexLiteral(d["T"], model.V10, nil)
		require.NoError(t, err)

		var f bakedField
		if ft, err := pctx.DereferenceName(d["FT"], model.V10, nil); err == nil {
			f.FT = string(ft)
		}
		if da, found := d.Find("DA"); found {
			if s, err := pctx.DereferenceStringOrHexLiteral(da, model.V10, nil); err == nil {
				f.DA = s
			}
		}
		if kids, found := d.Find("Kids"); found {
			arr, err := pctx.DereferenceArray(kids)
			require.NoError(t, err)
			f.Kids = len(arr)
		}
		out[name] = f
	}
	return out
}

func annotCount(t *testing.T, data []byte, page int) int {
	t.Helper()
	pctx := readContext(t, data)
	pageDict, _, _, err := pctx.PageDict(page, false)
	require.NoError(t, err)
	obj, found := pageDict.Find("Annots")
	if !found {
		return 0
	}
	arr, err := pctx.DereferenceArray(obj)
	require.NoError(t, err)
	return len(arr)
}

func textField(name string, page int, x, y float64) fields.Field {
	return fields.Field{ID: name + "-id", Name: name, Kind: fields.KindText, Page: page, X: x, Y: y, Width: 150, Height: 20, FontSize: 12}
}

func checkField(name string, page int, x, y float64) fields.Field {
	return fields.Field{ID: name + "-id", Name: name, Kind: fields.KindCheckbox, Page: page, X: x, Y: y, Width: 16, Height: 16}
}

func TestSynthesize_TextAndCheckbox(t *testing.T) {
	source := testpdf.Minimal()
	original := append([]byte(nil), source...)

	list := []fields.Field{
		textField("form_text", 1, 100, 600),
		checkField("form_check", 1, 100, 560),
	}

	res, err := NewSynthesizer(false).Synthesize(context.Background(), source, list)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, original, source, "source bytes must not change")
	assert.Empty(t, res.Report.Errors)
	assert.Empty(t, res.Report.Warnings)
	require.Len(t, res.Widgets, 2)
	assert.Equal(t, [4]float64{100, 600, 250, 620}, res.Widgets[0].Rect)
	assert.False(t, res.Widgets[0].Twin)

	baked := readBack(t, res.PDF)
	names := make([]string, 0, len(baked))
	for n := range baked {
		names = append(names, n)
	}
	assert.ElementsMatch(t, []string{"form_text", "form_check"}, names)

	assert.Equal(t, "Tx", baked["form_text"].FT)
	assert.Equal(t, "/Helv 12 Tf 0 g", baked["form_text"].DA)
	assert.Equal(t, "Btn", baked["form_check"].FT)
	assert.Equal(t, 2, annotCount(t, res.PDF, 1))
}

func TestSynthesize_FontSize(t *testing.T) {
	f := textField("big", 1, 10, 10)
	f.FontSize = 18.5

	res, err := NewSynthesizer(false).Synthesize(context.Background(), testpdf.Minimal(), []fields.Field{f})
	require.NoError(t, err)
	assert.Equal(t, "/Helv 18.5 Tf 0 g", readBack(t, res.PDF)["big"].DA)
}

func TestSynthesize_InvalidDocument(t *testing.T) {
	tests := []struct {
		name   string
		source []byte
	}{
		{"empty", nil},
		{"not a pdf", []byte("hello world")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewSynthesizer(false).Synthesize(context.Background(), tt.source,
				[]fields.Field{textField("a", 1, 0, 0)})
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, pdferrors.ErrInvalidDocument), "got %v", err)
		})
	}
}

func TestSynthesize_DuplicateNamesBecomeKids(t *testing.T) {
	source := testpdf.Pages(testpdf.Letter, testpdf.Letter)
	list := []fields.Field{
		textField("twin", 1, 50, 50),
		textField("solo", 1, 50, 100),
		textField("twin", 2, 50, 50),
	}

	res, err := NewSynthesizer(false).Synthesize(context.Background(), source, list)
	require.NoError(t, err)
	require.Len(t, res.Widgets, 3)

	twins := 0
	for _, w := range res.Widgets {
		if w.Name == "twin" {
			assert.True(t, w.Twin)
			twins++
		}
	}
	assert.Equal(t, 2, twins)

	baked := readBack(t, res.PDF)
	require.Len(t, baked, 2)
	assert.Equal(t, 2, baked["twin"].Kids)
	assert.Equal(t, "Tx", baked["twin"].FT)
	assert.Equal(t, 0, baked["solo"].Kids)

	assert.Equal(t, 2, annotCount(t, res.PDF, 1))
	assert.Equal(t, 1, annotCount(t, res.PDF, 2))
}

func TestSynthesize_DuplicateCheckboxesShareOneButton(t *testing.T) {
	source := testpdf.Pages(testpdf.Letter, testpdf.Letter)
	list := []fields.Field{
		checkField("twin", 1, 50, 50),
		checkField("twin", 2, 50, 50),
	}

	res, err := NewSynthesizer(false).Synthesize(context.Background(), source, list)
	require.NoError(t, err)
	require.Len(t, res.Widgets, 2)

	pctx := readContext(t, res.PDF)
	root, err := pctx.Catalog()
	require.NoError(t, err)
	acroForm, err := pctx.DereferenceDict(root["AcroForm"])
	require.NoError(t, err)
	fieldRefs, err := pctx.DereferenceArray(acroForm["Fields"])
	require.NoError(t, err)
	require.Len(t, fieldRefs, 1)

	parent, err := pctx.DereferenceDict(fieldRefs[0])
	require.NoError(t, err)
	assert.Equal(t, types.Name("Btn"), parent["FT"])
	assert.Equal(t, types.Name("Off"), parent["V"])
	if ff := parent.IntEntry("Ff"); ff != nil {
		assert.Zero(t, *ff&(1<<15), "radio flag set")
		assert.Zero(t, *ff&(1<<16), "pushbutton flag set")
	}

	kids, err := pctx.DereferenceArray(parent["Kids"])
	require.NoError(t, err)
	require.Len(t, kids, 2)
	for _, k := range kids {
		kid, err := pctx.DereferenceDict(k)
		require.NoError(t, err)
		assert.Equal(t, types.Name("Off"), kid["AS"])
		ap := kid.DictEntry("AP")
		require.NotNil(t, ap)
		normal := ap.DictEntry("N")
		require.NotNil(t, normal)
		assert.Contains(t, normal, "Yes")
		assert.Contains(t, normal, "Off")
	}

	// pdfcpu's form reader classifies any button with several kids as a
	// radio button group, regardless of the field flags
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	formFields, err := api.FormFields(bytes.NewReader(res.PDF), conf)
	require.NoError(t, err)
	require.Len(t, formFields, 1)
	assert.Equal(t, "twin", formFields[0].Name)
	assert.Equal(t, form.FTRadioButtonGroup, formFields[0].Typ)
	assert.ElementsMatch(t, []int{1, 2}, formFields[0].Pages)
}

func TestSynthesize_OutputValidation(t *testing.T) {
	list := []fields.Field{
		textField("name", 1, 10, 10),
		checkField("agree", 1, 10, 40),
	}
	res, err := NewSynthesizer(false).Synthesize(context.Background(), testpdf.Minimal(), list)
	require.NoError(t, err)

	relaxed := model.NewDefaultConfiguration()
	relaxed.ValidationMode = model.ValidationRelaxed
	assert.NoError(t, api.Validate(bytes.NewReader(res.PDF), relaxed))

	// the standard fonts are referenced without FirstChar, LastChar and
	// Widths, which strict mode rejects
	strict := model.NewDefaultConfiguration()
	strict.ValidationMode = model.ValidationStrict
	assert.Error(t, api.Validate(bytes.NewReader(res.PDF), strict))
}

func TestSynthesize_MixedKindDuplicateSkipped(t *testing.T) {
	list := []fields.Field{
		textField("agree", 1, 10, 10),
		checkField("agree", 1, 10, 40),
	}

	res, err := NewSynthesizer(false).Synthesize(context.Background(), testpdf.Minimal(), list)
	require.NoError(t, err)

	require.Len(t, res.Widgets, 1)
	require.Len(t, res.Report.Errors, 1)
	skipped := res.Report.Errors[0]
	assert.True(t, errors.Is(skipped, pdferrors.ErrInvalidField))
	assert.Equal(t, 1, skipped.Index)
	assert.Equal(t, "agree-id", skipped.FieldID)

	assert.Equal(t, "Tx", readBack(t, res.PDF)["agree"].FT)
}

func TestSynthesize_PageOutOfRangeSkipped(t *testing.T) {
	list := []fields.Field{
		textField("kept", 1, 10, 10),
		textField("lost", 3, 10, 10),
		checkField("zero", 0, 10, 10),
	}

	res, err := NewSynthesizer(false).Synthesize(context.Background(), testpdf.Minimal(), list)
	require.NoError(t, err)

	require.Len(t, res.Widgets, 1)
	require.Len(t, res.Report.Errors, 2)
	for _, e := range res.Report.Errors {
		assert.True(t, errors.Is(e, pdferrors.ErrOutOfRange))
	}
	assert.Equal(t, 3, res.Report.Errors[0].PageNumber)

	baked := readBack(t, res.PDF)
	assert.Contains(t, baked, "kept")
	assert.NotContains(t, baked, "lost")
}

func TestSynthesize_OverflowIsWarning(t *testing.T) {
	list := []fields.Field{
		textField("edge", 1, 500, 780),
		checkField("inside", 1, 10, 10),
	}

	res, err := NewSynthesizer(false).Synthesize(context.Background(), testpdf.Minimal(), list)
	require.NoError(t, err)

	assert.Empty(t, res.Report.Errors)
	require.Len(t, res.Report.Warnings, 1)
	assert.Equal(t, "edge", res.Report.Warnings[0].FieldName)
	assert.Len(t, res.Widgets, 2)
	assert.Contains(t, readBack(t, res.PDF), "edge")
}

func TestSynthesize_ReusesExistingAcroForm(t *testing.T) {
	source := testpdf.Build(testpdf.Options{
		Pages: []testpdf.Page{testpdf.Letter},
		Fields: []testpdf.FormField{
			{Name: "existing", Type: "Tx", Page: 1, Rect: [4]float64{10, 700, 200, 720}},
		},
	})

	res, err := NewSynthesizer(true).Synthesize(context.Background(), source,
		[]fields.Field{checkField("added", 1, 10, 10)})
	require.NoError(t, err)

	baked := readBack(t, res.PDF)
	assert.Len(t, baked, 2)
	assert.Equal(t, "Tx", baked["existing"].FT)
	assert.Equal(t, "Btn", baked["added"].FT)
	assert.Equal(t, 2, annotCount(t, res.PDF, 1))
}

func TestSynthesize_EscapedAndUnicodeNames(t *testing.T) {
	list := []fields.Field{
		textField(`a(b)\c`, 1, 10, 10),
		textField("Größe", 1, 10, 50),
	}

	res, err := NewSynthesizer(false).Synthesize(context.Background(), testpdf.Minimal(), list)
	require.NoError(t, err)

	baked := readBack(t, res.PDF)
	assert.Contains(t, baked, `a(b)\c`)
	assert.Contains(t, baked, "Größe")
}

func TestSynthesize_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewSynthesizer(false).Synthesize(ctx, testpdf.Minimal(), []fields.Field{textField("a", 1, 0, 0)})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSynthesize_EmptyListStillWritesForm(t *testing.T) {
	res, err := NewSynthesizer(false).Synthesize(context.Background(), testpdf.Minimal(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Widgets)
	assert.Empty(t, readBack(t, res.PDF))
}

func TestTextString(t *testing.T) {
	assert.Equal(t, types.StringLiteral(`a\(b\)`), textString("a(b)"))
	assert.Equal(t, types.HexLiteral("FEFF00E9"), textString("é"))
}

func TestCheckboxAppearance(t *testing.T) {
	on := string(checkboxAppearance(16, 16, true))
	off := string(checkboxAppearance(16, 16, false))

	assert.Contains(t, on, "/ZaDb")
	assert.Contains(t, on, "(4) Tj")
	assert.NotContains(t, off, "Tj")
	assert.Contains(t, off, "re\nB\n")
}
