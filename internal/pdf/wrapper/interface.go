package wrapper

import (
	"context"
	"fmt"

	"github.com/a3tai/mcp-pdf-forms/internal/pdf/geometry"
)

// DocumentLoader reads the page structure of a PDF. Implementations must not
// retain data after Load returns.
type DocumentLoader interface {
	Load(ctx context.Context, data []byte) (*DocumentInfo, error)
	GetLibraryType() LibraryType
}

// LibraryType represents the underlying PDF library being used
type LibraryType string

const (
	LibraryPDFCPU     LibraryType = "pdfcpu"
	LibraryLedongthuc LibraryType = "ledongthuc"
	LibraryAuto       LibraryType = "auto" // pdfcpu, falling back to ledongthuc
)

// DocumentInfo is what the editor needs to know about a loaded document
type DocumentInfo struct {
	Library        LibraryType     `json:"library"`
	PageCount      int             `json:"page_count"`
	PageDimensions []geometry.Size `json:"page_dimensions"`
}

// WrapperError reports a failure inside one of the PDF libraries
type WrapperError struct {
	Library LibraryType `json:"library"`
	Op      string      `json:"operation"`
	Err     error       `json:"error"`
}

func (e *WrapperError) Error() string {
	return fmt.Sprintf("PDF %s library error in %s: %v", e.Library, e.Op, e.Err)
}

func (e *WrapperError) Unwrap() error {
	return e.Err
}

// ErrUnsupportedLibrary is returned for library names the factory does not know
var ErrUnsupportedLibrary = &WrapperError{Op: "factory", Err: fmt.Errorf("unsupported library type")}
