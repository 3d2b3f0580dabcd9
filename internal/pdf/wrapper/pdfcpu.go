package wrapper

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	pdferrors "github.com/a3tai/mcp-pdf-forms/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/geometry"
)

// PDFCPULoader loads documents with pdfcpu in relaxed validation mode
type PDFCPULoader struct {
	config FactoryConfig
}

// NewPDFCPULoader creates a new pdfcpu loader
func NewPDFCPULoader(config FactoryConfig) *PDFCPULoader {
	return &PDFCPULoader{config: config}
}

// GetLibraryType returns the library type
func (p *PDFCPULoader) GetLibraryType() LibraryType {
	return LibraryPDFCPU
}

// Load reads the page count and the media box of every page
func (p *PDFCPULoader) Load(ctx context.Context, data []byte) (info *DocumentInfo, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			info = nil
			err = invalidDocument(LibraryPDFCPU, "load", fmt.Errorf("panic while parsing: %v", r))
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, invalidDocument(LibraryPDFCPU, "load", fmt.Errorf("failed to read PDF context: %w", err))
	}

	if err := pctx.EnsurePageCount(); err != nil {
		return nil, invalidDocument(LibraryPDFCPU, "load", fmt.Errorf("failed to ensure page count: %w", err))
	}
	if pctx.PageCount < 1 {
		return nil, invalidDocument(LibraryPDFCPU, "load", fmt.Errorf("document has no pages"))
	}

	dims := make([]geometry.Size, 0, pctx.PageCount)
	for i := 1; i <= pctx.PageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		_, _, inh, err := pctx.PageDict(i, true)
		if err != nil {
			return nil, invalidDocument(LibraryPDFCPU, "page_size", fmt.Errorf("failed to read page %d: %w", i, err))
		}
		if inh == nil || inh.MediaBox == nil {
			return nil, invalidDocument(LibraryPDFCPU, "page_size", fmt.Errorf("page %d has no media box", i))
		}
		dims = append(dims, geometry.Size{Width: inh.MediaBox.Width(), Height: inh.MediaBox.Height()})
	}

	if p.config.DebugMode {
		log.Printf("pdfcpu loaded %d page(s)", len(dims))
	}

	return &DocumentInfo{
		Library:        LibraryPDFCPU,
		PageCount:      pctx.PageCount,
		PageDimensions: dims,
	}, nil
}

// invalidDocument wraps err so that it matches pdferrors.ErrInvalidDocument
func invalidDocument(lib LibraryType, op string, err error) error {
	return &WrapperError{
		Library: lib,
		Op:      op,
		Err:     pdferrors.Wrap(pdferrors.ErrorTypeInvalidDocument, "cannot load document", err),
	}
}
