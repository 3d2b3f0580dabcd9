package extraction

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/ledongthuc/pdf"
)

// FormExtractor reads a document's form with pdfcpu and cross-checks the
// field names with ledongthuc/pdf
type FormExtractor struct {
	debugMode bool
	primary   *PDFCPUFormExtractor
}

// NewFormExtractor creates a new form extractor
func NewFormExtractor(debugMode bool) *FormExtractor {
	return &FormExtractor{
		debugMode: debugMode,
		primary:   NewPDFCPUFormExtractor(debugMode),
	}
}

// Inspect reads every terminal field of data. The name cross-check is
// advisory: a failure of the second reader is recorded, never returned.
func (fe *FormExtractor) Inspect(ctx context.Context, data []byte) (*Inspection, error) {
	inspection, err := fe.primary.ExtractForms(ctx, data)
	if err != nil {
		return nil, err
	}

	names, err := ReadFieldNames(data)
	if err != nil {
		if fe.debugMode {
			log.Printf("ledongthuc name check failed: %v", err)
		}
		inspection.NameCheck = &NameCheck{Error: err.Error()}
		return inspection, nil
	}

	primaryNames := make([]string, len(inspection.Fields))
	for i, f := range inspection.Fields {
		primaryNames[i] = f.Name
	}
	inspection.NameCheck = compareNames(primaryNames, names)
	return inspection, nil
}

// ReadFieldNames lists the fully qualified names of the terminal fields in
// /AcroForm /Fields using ledongthuc/pdf
func ReadFieldNames(data []byte) (names []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			names = nil
			err = fmt.Errorf("panic while reading form: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	fieldsValue := reader.Trailer().Key("Root").Key("AcroForm").Key("Fields")
	names = make([]string, 0, fieldsValue.Len())
	for i := 0; i < fieldsValue.Len(); i++ {
		names = collectNames(fieldsValue.Index(i), "", names, 0)
	}
	return names, nil
}

func collectNames(field pdf.Value, prefix string, names []string, depth int) []string {
	if field.IsNull() || depth > maxFieldDepth {
		return names
	}

	name := prefix
	if t := field.Key("T"); !t.IsNull() {
		if name != "" {
			name += "." + t.Text()
		} else {
			name = t.Text()
		}
	}

	kids := field.Key("Kids")
	named := false
	for i := 0; i < kids.Len(); i++ {
		if !kids.Index(i).Key("T").IsNull() {
			named = true
			break
		}
	}
	if !named {
		return append(names, name)
	}

	for i := 0; i < kids.Len(); i++ {
		names = collectNames(kids.Index(i), name, names, depth+1)
	}
	return names
}

// compareNames reports names present in only one of the two lists
func compareNames(a, b []string) *NameCheck {
	count := make(map[string]int)
	for _, n := range a {
		count[n]++
	}
	for _, n := range b {
		count[n]--
	}

	check := &NameCheck{}
	for n, c := range count {
		switch {
		case c > 0:
			check.OnlyPDFCPU = append(check.OnlyPDFCPU, n)
		case c < 0:
			check.OnlyLedongthuc = append(check.OnlyLedongthuc, n)
		}
	}
	sort.Strings(check.OnlyPDFCPU)
	sort.Strings(check.OnlyLedongthuc)
	check.Agree = len(check.OnlyPDFCPU) == 0 && len(check.OnlyLedongthuc) == 0
	return check
}
