package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdferrors "github.com/a3tai/mcp-pdf-forms/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/extraction"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/fields"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/geometry"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/testpdf"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/wrapper"
)

func twoPageInfo() *wrapper.DocumentInfo {
	return &wrapper.DocumentInfo{
		Library:   wrapper.LibraryPDFCPU,
		PageCount: 2,
		PageDimensions: []geometry.Size{
			{Width: 612, Height: 792},
			{Width: 595.28, Height: 841.89},
		},
	}
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := New("scans/invoice.pdf", testpdf.Pages(testpdf.Letter, testpdf.A4), twoPageInfo(), DefaultOptions())
	require.NoError(t, err)
	return s
}

func ptr[T any](v T) *T { return &v }

func TestNew(t *testing.T) {
	s := newTestSession(t)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, wrapper.LibraryPDFCPU, s.Library())
	assert.Equal(t, 2, s.Metadata().TotalPages)
	assert.Equal(t, View{Zoom: 1, GridSize: 10, SnapEnabled: true, CurrentPage: 1}, s.View())
	assert.Empty(t, s.ListFields())
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		info *wrapper.DocumentInfo
		opts Options
		want error
	}{
		{"no info", nil, DefaultOptions(), pdferrors.ErrInvalidDocument},
		{"zero zoom", twoPageInfo(), Options{Zoom: 0, GridSize: 10}, pdferrors.ErrOutOfRange},
		{"no pages", &wrapper.DocumentInfo{}, DefaultOptions(), pdferrors.ErrInvalidDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New("x.pdf", nil, tt.info, tt.opts)
			assert.Nil(t, s)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestPlaceField_SnapsInEditingSpace(t *testing.T) {
	s := newTestSession(t)
	_, err := s.SetView(ViewUpdate{Zoom: ptr(1.5)})
	require.NoError(t, err)

	// (153, 307.5) / 1.5 = (102, 205), snapped to (100, 210)
	f, err := s.PlaceField(Placement{Pointer: geometry.Point{X: 153, Y: 307.5}})
	require.NoError(t, err)

	assert.Equal(t, "text_1", f.Name)
	assert.Equal(t, fields.KindText, f.Kind)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 100.0, f.X)
	assert.Equal(t, 792.0-210-20, f.Y)
	assert.Equal(t, fields.DefaultTextWidth, f.Width)
	assert.Equal(t, fields.DefaultTextHeight, f.Height)
	assert.Equal(t, fields.DefaultFontSize, f.FontSize)
}

func TestPlaceField_ScreenPositionInverse(t *testing.T) {
	s := newTestSession(t)
	_, err := s.SetView(ViewUpdate{Zoom: ptr(2.0), SnapEnabled: ptr(false)})
	require.NoError(t, err)

	pointer := geometry.Point{X: 200, Y: 300}
	f, err := s.PlaceField(Placement{Kind: fields.KindCheckbox, Pointer: pointer})
	require.NoError(t, err)

	assert.Equal(t, "checkbox_1", f.Name)
	assert.Equal(t, 100.0, f.X)
	assert.Equal(t, 792.0-150-16, f.Y)
	assert.Zero(t, f.FontSize)

	screen, err := s.ScreenPosition(f)
	require.NoError(t, err)
	assert.Equal(t, pointer, screen)
}

func TestPlaceField_CurrentPageAndOverrides(t *testing.T) {
	s := newTestSession(t)
	view, err := s.SetView(ViewUpdate{Page: ptr(5), SnapEnabled: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, 2, view.CurrentPage, "page is clamped to the document")

	f, err := s.PlaceField(Placement{
		Name:     "total",
		Pointer:  geometry.Point{X: 10, Y: 0},
		Width:    80,
		Height:   30,
		FontSize: 9,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, f.Page)
	assert.Equal(t, "total", f.Name)
	assert.Equal(t, 80.0, f.Width)
	assert.InDelta(t, 841.89-30, f.Y, 1e-9)
	assert.Equal(t, 9.0, f.FontSize)
}

func TestPlaceField_Errors(t *testing.T) {
	s := newTestSession(t)

	_, err := s.PlaceField(Placement{Page: 3})
	assert.True(t, errors.Is(err, pdferrors.ErrInvalidField))
	assert.True(t, errors.Is(err, pdferrors.ErrOutOfRange))

	_, err = s.PlaceField(Placement{Kind: "radio"})
	assert.True(t, errors.Is(err, pdferrors.ErrUnknownFieldKind))

	_, err = s.PlaceField(Placement{Width: -5})
	assert.True(t, errors.Is(err, pdferrors.ErrInvalidField))

	assert.Empty(t, s.ListFields())
}

func TestPlaceField_DefaultNamesCountPerKind(t *testing.T) {
	s := newTestSession(t)

	var names []string
	for _, k := range []fields.Kind{fields.KindText, fields.KindCheckbox, fields.KindText} {
		f, err := s.PlaceField(Placement{Kind: k})
		require.NoError(t, err)
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"text_1", "checkbox_1", "text_2"}, names)
}

func TestPlaceField_DefaultNamesSkipNamesInUse(t *testing.T) {
	s := newTestSession(t)

	first, err := s.PlaceField(Placement{})
	require.NoError(t, err)
	second, err := s.PlaceField(Placement{})
	require.NoError(t, err)
	require.Equal(t, "text_2", second.Name)

	require.NoError(t, s.RemoveField(first.ID))
	third, err := s.PlaceField(Placement{})
	require.NoError(t, err)
	assert.Equal(t, "text_1", third.Name)

	fourth, err := s.PlaceField(Placement{})
	require.NoError(t, err)
	assert.Equal(t, "text_3", fourth.Name)

	_, err = s.AddField(fields.Spec{Name: "checkbox_1", Kind: fields.KindText, Page: 1, Width: 10, Height: 10})
	require.NoError(t, err)
	box, err := s.PlaceField(Placement{Kind: fields.KindCheckbox})
	require.NoError(t, err)
	assert.Equal(t, "checkbox_2", box.Name)
}

func TestSetView(t *testing.T) {
	s := newTestSession(t)

	tests := []struct {
		name    string
		upd     ViewUpdate
		want    View
		wantErr bool
	}{
		{"zoom preset", ViewUpdate{Zoom: ptr(1.5)}, View{Zoom: 1.5, GridSize: 10, SnapEnabled: true, CurrentPage: 1}, false},
		{"grid", ViewUpdate{GridSize: ptr(7.5)}, View{Zoom: 1.5, GridSize: 7.5, SnapEnabled: true, CurrentPage: 1}, false},
		{"page below range", ViewUpdate{Page: ptr(-1)}, View{Zoom: 1.5, GridSize: 7.5, SnapEnabled: true, CurrentPage: 1}, false},
		{"page", ViewUpdate{Page: ptr(2)}, View{Zoom: 1.5, GridSize: 7.5, SnapEnabled: true, CurrentPage: 2}, false},
		{"negative zoom", ViewUpdate{Zoom: ptr(-1.0), Page: ptr(1)}, View{Zoom: 1.5, GridSize: 7.5, SnapEnabled: true, CurrentPage: 2}, true},
		{"zero grid", ViewUpdate{GridSize: ptr(0.0)}, View{Zoom: 1.5, GridSize: 7.5, SnapEnabled: true, CurrentPage: 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.SetView(tt.upd)
			if tt.wantErr {
				assert.True(t, errors.Is(err, pdferrors.ErrOutOfRange), "got %v", err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, s.View())
		})
	}
}

func TestMoveField(t *testing.T) {
	s := newTestSession(t)
	f, err := s.PlaceField(Placement{Kind: fields.KindCheckbox, Pointer: geometry.Point{X: 10, Y: 10}})
	require.NoError(t, err)

	moved, err := s.MoveField(f.ID, geometry.Point{X: 52, Y: 48}, 2)
	require.NoError(t, err)
	assert.Equal(t, f.ID, moved.ID)
	assert.Equal(t, 2, moved.Page)
	assert.Equal(t, 50.0, moved.X)
	assert.InDelta(t, 841.89-50-16, moved.Y, 1e-9)

	_, err = s.MoveField("missing", geometry.Point{}, 0)
	assert.True(t, errors.Is(err, pdferrors.ErrFieldNotFound))

	_, err = s.MoveField(f.ID, geometry.Point{}, 9)
	assert.True(t, errors.Is(err, pdferrors.ErrOutOfRange))
	got, _ := s.Field(f.ID)
	assert.Equal(t, moved, got, "failed move leaves the field unchanged")
}

func TestAddUpdateRemove(t *testing.T) {
	s := newTestSession(t)

	f, err := s.AddField(fields.Spec{Name: "a", Kind: fields.KindText, Page: 1, X: 1, Y: 2, Width: 30, Height: 10})
	require.NoError(t, err)
	assert.Equal(t, fields.DefaultFontSize, f.FontSize)

	kind := fields.KindCheckbox
	updated, err := s.UpdateField(f.ID, fields.Update{Kind: &kind})
	require.NoError(t, err)
	assert.Zero(t, updated.FontSize)

	_, err = s.UpdateField(f.ID, fields.Update{Width: ptr(0.0)})
	assert.True(t, errors.Is(err, pdferrors.ErrInvalidField))

	require.NoError(t, s.RemoveField(f.ID))
	assert.True(t, errors.Is(s.RemoveField(f.ID), pdferrors.ErrFieldNotFound))

	_, err = s.AddField(fields.Spec{Name: "b", Kind: fields.KindText, Page: 1, Width: 1, Height: 1})
	require.NoError(t, err)
	s.ClearFields()
	assert.Empty(t, s.ListFields())
}

func TestSessionFontSizeDefault(t *testing.T) {
	opts := DefaultOptions()
	opts.DefaultFontSize = 10
	s, err := New("a.pdf", nil, twoPageInfo(), opts)
	require.NoError(t, err)

	f, err := s.PlaceField(Placement{})
	require.NoError(t, err)
	assert.Equal(t, 10.0, f.FontSize)
}

func TestExportImportAcrossSessions(t *testing.T) {
	ctx := context.Background()
	src := newTestSession(t)

	_, err := src.PlaceField(Placement{Name: "name", Pointer: geometry.Point{X: 100, Y: 100}})
	require.NoError(t, err)
	_, err = src.PlaceField(Placement{Name: "agree", Kind: fields.KindCheckbox, Page: 2, Pointer: geometry.Point{X: 40, Y: 700}})
	require.NoError(t, err)

	data, err := src.ExportJSON(ctx)
	require.NoError(t, err)

	dst := newTestSession(t)
	res, err := dst.ImportJSON(ctx, data)
	require.NoError(t, err)
	assert.Empty(t, res.Errors)

	if diff := cmp.Diff(src.ListFields(), dst.ListFields(), cmpopts.IgnoreFields(fields.Field{}, "ID")); diff != "" {
		t.Errorf("imported fields differ (-exported +imported):\n%s", diff)
	}
}

func TestSynthesize(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	_, err := s.Synthesize(ctx)
	assert.True(t, errors.Is(err, pdferrors.ErrNoFields), "got %v", err)

	_, err = s.PlaceField(Placement{Name: "form_text", Pointer: geometry.Point{X: 100, Y: 100}})
	require.NoError(t, err)
	_, err = s.PlaceField(Placement{Name: "form_check", Kind: fields.KindCheckbox, Pointer: geometry.Point{X: 100, Y: 150}})
	require.NoError(t, err)

	res, err := s.Synthesize(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Widgets, 2)

	inspection, err := extraction.NewFormExtractor(false).Inspect(ctx, res.PDF)
	require.NoError(t, err)
	var names []string
	for _, f := range inspection.Fields {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"form_text", "form_check"}, names)
}

func TestFilenames(t *testing.T) {
	tests := []struct {
		source   string
		wantJSON string
		wantPDF  string
	}{
		{"scans/invoice.pdf", "invoice_fields.json", "invoice_form.pdf"},
		{"report.final.PDF", "report.final_fields.json", "report.final_form.pdf"},
		{"", "document_fields.json", "document_form.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			s, err := New(tt.source, nil, twoPageInfo(), DefaultOptions())
			require.NoError(t, err)
			assert.Equal(t, tt.wantJSON, s.JSONFilename())
			assert.Equal(t, tt.wantPDF, s.PDFFilename())
		})
	}
}
