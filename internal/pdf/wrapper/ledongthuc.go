package wrapper

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/mcp-pdf-forms/internal/pdf/geometry"
)

// LedongthucLoader loads documents with ledongthuc/pdf. The library panics
// on some malformed input; Load recovers and reports InvalidDocument.
type LedongthucLoader struct {
	config FactoryConfig
}

// NewLedongthucLoader creates a new ledongthuc loader
func NewLedongthucLoader(config FactoryConfig) *LedongthucLoader {
	return &LedongthucLoader{config: config}
}

// GetLibraryType returns the library type
func (l *LedongthucLoader) GetLibraryType() LibraryType {
	return LibraryLedongthuc
}

// Load reads the page count and the media box of every page, following
// /Parent links for inherited boxes
func (l *LedongthucLoader) Load(ctx context.Context, data []byte) (info *DocumentInfo, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			info = nil
			err = invalidDocument(LibraryLedongthuc, "load", fmt.Errorf("panic while parsing: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, invalidDocument(LibraryLedongthuc, "load", fmt.Errorf("failed to open PDF: %w", err))
	}

	count := reader.NumPage()
	if count < 1 {
		return nil, invalidDocument(LibraryLedongthuc, "load", fmt.Errorf("document has no pages"))
	}

	dims := make([]geometry.Size, 0, count)
	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		size, ok := mediaBox(reader.Page(i).V)
		if !ok {
			return nil, invalidDocument(LibraryLedongthuc, "page_size", fmt.Errorf("page %d has no media box", i))
		}
		dims = append(dims, size)
	}

	if l.config.DebugMode {
		log.Printf("ledongthuc loaded %d page(s)", len(dims))
	}

	return &DocumentInfo{
		Library:        LibraryLedongthuc,
		PageCount:      count,
		PageDimensions: dims,
	}, nil
}

// mediaBox resolves the page's /MediaBox through the page tree
func mediaBox(page pdf.Value) (geometry.Size, bool) {
	for v, depth := page, 0; !v.IsNull() && depth < 32; v, depth = v.Key("Parent"), depth+1 {
		box := v.Key("MediaBox")
		if box.IsNull() || box.Len() != 4 {
			continue
		}
		llx, lly := box.Index(0).Float64(), box.Index(1).Float64()
		urx, ury := box.Index(2).Float64(), box.Index(3).Float64()
		size := geometry.Size{Width: abs(urx - llx), Height: abs(ury - lly)}
		if size.Width <= 0 || size.Height <= 0 {
			return geometry.Size{}, false
		}
		return size, true
	}
	return geometry.Size{}, false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
