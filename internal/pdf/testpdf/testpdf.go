// Package testpdf builds small, well-formed PDF documents for tests. Byte
// offsets in the cross-reference table are computed while the objects are
// written, so every parser in the stack accepts the output.
package testpdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// Page is one page of a generated document
type Page struct {
	Width  float64
	Height float64
	Text   string
}

// FormField is a pre-existing AcroForm field placed on a generated document
type FormField struct {
	Name string
	// Type is the /FT value, "Tx" or "Btn"
	Type string
	Page int
	Rect [4]float64
}

// Options describes a generated document
type Options struct {
	Pages  []Page
	Fields []FormField
	// InheritMediaBox puts the MediaBox of the first page on the page tree
	// root instead of on each page
	InheritMediaBox bool
}

// Letter is a US letter page
var Letter = Page{Width: 612, Height: 792}

// A4 is an ISO A4 page
var A4 = Page{Width: 595.28, Height: 841.89}

// Minimal returns a single letter-size page
func Minimal() []byte {
	return Build(Options{Pages: []Page{Letter}})
}

// Pages returns a document with one page per size
func Pages(sizes ...Page) []byte {
	return Build(Options{Pages: sizes})
}

// Build renders opts into PDF bytes. Object layout: 1 catalog, 2 page tree,
// then a page and its content stream per page, then the form fields and
// finally the AcroForm dictionary.
func Build(opts Options) []byte {
	pages := opts.Pages
	if len(pages) == 0 {
		pages = []Page{Letter}
	}

	pageObj := func(i int) int { return 3 + 2*i }
	contentObj := func(i int) int { return 4 + 2*i }
	fieldObj := func(j int) int { return 3 + 2*len(pages) + j }
	acroFormObj := 3 + 2*len(pages) + len(opts.Fields)

	annots := make(map[int][]int)
	for j, f := range opts.Fields {
		if f.Page >= 1 && f.Page <= len(pages) {
			annots[f.Page-1] = append(annots[f.Page-1], fieldObj(j))
		}
	}

	var b strings.Builder
	var offsets []int
	begin := func() { offsets = append(offsets, b.Len()) }

	b.WriteString("%PDF-1.4\n")

	// Object 1 - Catalog
	begin()
	b.WriteString("1 0 obj\n<<\n/Type /Catalog\n/Pages 2 0 R\n")
	if len(opts.Fields) > 0 {
		fmt.Fprintf(&b, "/AcroForm %d 0 R\n", acroFormObj)
	}
	b.WriteString(">>\nendobj\n")

	// Object 2 - Pages
	begin()
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = ref(pageObj(i))
	}
	fmt.Fprintf(&b, "2 0 obj\n<<\n/Type /Pages\n/Kids [%s]\n/Count %d\n", strings.Join(kids, " "), len(pages))
	if opts.InheritMediaBox {
		fmt.Fprintf(&b, "/MediaBox %s\n", box(pages[0]))
	}
	b.WriteString(">>\nendobj\n")

	for i, p := range pages {
		begin()
		fmt.Fprintf(&b, "%d 0 obj\n<<\n/Type /Page\n/Parent 2 0 R\n", pageObj(i))
		if !opts.InheritMediaBox {
			fmt.Fprintf(&b, "/MediaBox %s\n", box(p))
		}
		fmt.Fprintf(&b, "/Contents %s\n", ref(contentObj(i)))
		b.WriteString("/Resources <<\n/Font <<\n/F1 <<\n/Type /Font\n/Subtype /Type1\n/BaseFont /Helvetica\n>>\n>>\n>>\n")
		if refs := annots[i]; len(refs) > 0 {
			parts := make([]string, len(refs))
			for k, r := range refs {
				parts[k] = ref(r)
			}
			fmt.Fprintf(&b, "/Annots [%s]\n", strings.Join(parts, " "))
		}
		b.WriteString(">>\nendobj\n")

		begin()
		text := p.Text
		if text == "" {
			text = fmt.Sprintf("Page %d", i+1)
		}
		content := fmt.Sprintf("BT\n/F1 12 Tf\n72 %s Td\n(%s) Tj\nET\n", num(p.Height-72), escape(text))
		fmt.Fprintf(&b, "%d 0 obj\n<<\n/Length %d\n>>\nstream\n%sendstream\nendobj\n", contentObj(i), len(content), content)
	}

	for j, f := range opts.Fields {
		begin()
		fmt.Fprintf(&b, "%d 0 obj\n<<\n/Type /Annot\n/Subtype /Widget\n/FT /%s\n/T (%s)\n/F 4\n", fieldObj(j), f.Type, escape(f.Name))
		fmt.Fprintf(&b, "/Rect [%s %s %s %s]\n", num(f.Rect[0]), num(f.Rect[1]), num(f.Rect[2]), num(f.Rect[3]))
		if f.Page >= 1 && f.Page <= len(pages) {
			fmt.Fprintf(&b, "/P %s\n", ref(pageObj(f.Page-1)))
		}
		if f.Type == "Btn" {
			b.WriteString("/V /Off\n/AS /Off\n")
		} else {
			b.WriteString("/DA (/Helv 10 Tf 0 g)\n")
		}
		b.WriteString(">>\nendobj\n")
	}

	size := 3 + 2*len(pages) + len(opts.Fields)
	if len(opts.Fields) > 0 {
		begin()
		refs := make([]string, len(opts.Fields))
		for j := range opts.Fields {
			refs[j] = ref(fieldObj(j))
		}
		fmt.Fprintf(&b, "%d 0 obj\n<<\n/Fields [%s]\n/DA (/Helv 0 Tf 0 g)\n", acroFormObj, strings.Join(refs, " "))
		b.WriteString("/DR <<\n/Font <<\n/Helv <<\n/Type /Font\n/Subtype /Type1\n/BaseFont /Helvetica\n>>\n>>\n>>\n>>\nendobj\n")
		size++
	}

	// Cross-reference table
	xrefStart := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", size)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}

	// Trailer
	fmt.Fprintf(&b, "trailer\n<<\n/Size %d\n/Root 1 0 R\n>>\nstartxref\n%d\n%%%%EOF", size, xrefStart)

	return []byte(b.String())
}

// WriteFile stores data under dir and returns the path
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("Failed to write test PDF: %v", err)
	}
	return path
}

func ref(n int) string {
	return strconv.Itoa(n) + " 0 R"
}

func box(p Page) string {
	return fmt.Sprintf("[0 0 %s %s]", num(p.Width), num(p.Height))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return r.Replace(s)
}
