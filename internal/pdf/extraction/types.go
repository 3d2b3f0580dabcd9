package extraction

import "github.com/a3tai/mcp-pdf-forms/internal/pdf/security"

// FormFieldType represents the type of a form field
type FormFieldType string

const (
	FormFieldTypeText      FormFieldType = "text"
	FormFieldTypeCheckbox  FormFieldType = "checkbox"
	FormFieldTypeRadio     FormFieldType = "radio"
	FormFieldTypeSelect    FormFieldType = "select"
	FormFieldTypeButton    FormFieldType = "button"
	FormFieldTypeSignature FormFieldType = "signature"
	FormFieldTypeUnknown   FormFieldType = "unknown"
)

// FormField is a terminal AcroForm field with its widgets
type FormField struct {
	Name     string        `json:"name"`
	Type     FormFieldType `json:"type"`
	FontSize float64       `json:"font_size,omitempty"`
	ReadOnly bool          `json:"read_only"`
	Required bool          `json:"required"`
	Widgets  []Widget      `json:"widgets"`
}

// Widget is one annotation of a field. Page is zero when it cannot be
// resolved.
type Widget struct {
	Page int        `json:"page"`
	Rect [4]float64 `json:"rect"`
}

// Page returns the page of the first widget
func (f FormField) Page() int {
	if len(f.Widgets) == 0 {
		return 0
	}
	return f.Widgets[0].Page
}

// Inspection is the result of reading the form of a document
type Inspection struct {
	PageCount   int                  `json:"page_count"`
	Fields      []FormField          `json:"fields"`
	Encrypted   bool                 `json:"encrypted"`
	Permissions security.Permissions `json:"permissions"`
	// NameCheck lists names found by only one of the two readers
	NameCheck *NameCheck `json:"name_check,omitempty"`
}

// NameCheck compares field names read by pdfcpu and by ledongthuc
type NameCheck struct {
	Agree          bool     `json:"agree"`
	OnlyPDFCPU     []string `json:"only_pdfcpu,omitempty"`
	OnlyLedongthuc []string `json:"only_ledongthuc,omitempty"`
	Error          string   `json:"error,omitempty"`
}
