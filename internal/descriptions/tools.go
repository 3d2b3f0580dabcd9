package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	// Session Tools
	FormOpenDocumentDescription = `Open a PDF and start a form design session on it.

**When to use:** First step of every form design task. Every other form_* tool except form_inspect_pdf and form_server_info needs the session_id this returns.

**Why it's useful:** Loads the page count and the size of every page so fields can be placed in the right coordinate space, reports form fields the document already has, and warns when the document's permissions forbid adding fields.

**Examples:**
• Start designing: "Open invoice.pdf so we can add fields for customer name and total"
• Pick a parser: "Open scans/legacy.pdf with library ledongthuc because pdfcpu rejects it"

**Common workflows:**
1. New form: form_open_document → form_place_field (repeat) → form_synthesize
2. Resume work: form_open_document → form_import_json → adjust → form_synthesize

**Best practices:** Paths are relative to the work directory. Keep the session_id; sessions are closed automatically when too many documents are open.`

	FormCloseSessionDescription = `Close a form design session and discard its unsaved fields.

**When to use:** When a document is done, or to abandon a layout.

**Why it's useful:** Frees the session slot. Layouts not exported with form_export_json are lost.

**Examples:**
• Clean up: "Close the session for invoice.pdf, the form has been written"

**Best practices:** Export the layout first if you may need to change the form later.`

	// Field Tools
	FormPlaceFieldDescription = `Place a new field where a user clicked on the rendered page.

**When to use:** The position comes from a rendered image of the page: pixels from the top-left corner at the session's zoom.

**Why it's useful:** Converts the pointer position into PDF coordinates for you. The position is divided by the zoom, snapped to the grid when snapping is on, and flipped to the PDF's bottom-left origin using the field height.

**Examples:**
• Text box: "Place a text field named customer_name at pixel (120, 210) on page 1"
• Checkbox: "Place a checkbox at (48, 400) on page 2 for the 'paid' option"

**Common workflows:**
1. Click-to-place: form_set_view (zoom) → form_place_field → form_list_fields to confirm
2. Fine tuning: form_place_field → form_update_field with new width or height

**Best practices:** Omit name to get text_1, checkbox_1 and so on. Omit page to use the session's current page. Default sizes are 150x20 for text and 16x16 for checkboxes.`

	FormAddFieldDescription = `Add a field at exact PDF coordinates.

**When to use:** You already know the rectangle in PDF points, for example from form_inspect_pdf output or from a measured layout.

**Why it's useful:** No conversion is applied: x and y are the bottom-left corner of the field in points with the origin at the bottom-left corner of the page.

**Examples:**
• Exact box: "Add text field 'zip' on page 1 at x=72, y=640, 80x18"

**Best practices:** Use form_place_field for positions measured on a rendered page image.`

	FormUpdateFieldDescription = `Change the name, kind, size, position or font size of a field.

**When to use:** Adjusting a layout: renaming fields, resizing, moving or switching between text and checkbox.

**Why it's useful:** Only the given members change and the change is rejected as a whole if the result would be invalid. Pass pointer_x and pointer_y to move the field as if it was dragged on the rendered page.

**Examples:**
• Rename: "Rename field f_3 to invoice_number"
• Resize: "Make the address field 300 points wide"
• Drag: "Move field f_2 to pixel (200, 150) on page 2"

**Best practices:** Field ids come from form_place_field, form_add_field or form_list_fields.`

	FormRemoveFieldDescription = `Remove one field, or every field of the session.

**When to use:** Deleting a misplaced field or starting the layout over.

**Examples:**
• Delete one: "Remove field f_4"
• Start over: "Remove all fields from the session"

**Best practices:** Pass all=true instead of field_id to clear the layout.`

	FormListFieldsDescription = `List the fields of a session in placement order.

**When to use:** Reviewing the layout before writing the form, or finding field ids.

**Why it's useful:** Shows PDF coordinates, sizes and font sizes together with the current view settings.

**Examples:**
• Review: "Show me all fields placed so far on the invoice"`

	FormSetViewDescription = `Change the zoom, grid size, snapping or current page of a session.

**When to use:** The page is rendered at a different scale, you need finer or coarser snapping, or you move to another page.

**Why it's useful:** form_place_field and pointer moves interpret pixel positions with these settings. Existing fields keep their PDF coordinates.

**Examples:**
• Zoom: "The page is now shown at 150%, set zoom to 1.5"
• Precision: "Use a 5 point grid" or "Turn snapping off"
• Navigation: "Go to page 3"

**Best practices:** Pages beyond the document are clamped to the last page.`

	// Layout Tools
	FormExportJSONDescription = `Save the field layout of a session as JSON.

**When to use:** Before closing a session, to version a layout, or to apply the same layout to other copies of a document.

**Why it's useful:** The file lists every field with its page and PDF rectangle plus the page sizes and an export timestamp.

**Examples:**
• Save: "Export the layout of invoice.pdf"
• Custom name: "Export the layout to layouts/invoice_v2.json"

**Best practices:** Without output_path the file is written next to the document as <document>_fields.json.`

	FormImportJSONDescription = `Load a saved field layout into a session.

**When to use:** Restoring a layout exported earlier or applying a layout prepared elsewhere.

**Why it's useful:** Entries are checked one by one. Valid entries are added and the others are reported with the reason, so a partly broken file still imports what it can.

**Examples:**
• Restore: "Import invoice_fields.json into the new session"
• Inline: "Import this layout JSON: {"fields": [...]}"

**Common workflows:**
1. Reuse: form_open_document (new copy) → form_import_json → form_synthesize

**Best practices:** Imported fields are added to the existing ones. Use form_remove_field with all=true first to replace the layout.`

	FormSynthesizeDescription = `Write a fillable PDF with the session's fields.

**When to use:** The layout is final and you need the interactive form.

**Why it's useful:** Adds an AcroForm text field or checkbox with a widget on its page for every field, leaving the original document untouched.

**Examples:**
• Finish: "Create the fillable version of invoice.pdf"
• Custom name: "Write the form to out/invoice_fillable.pdf"

**Common workflows:**
1. Verify: form_synthesize → form_inspect_pdf on the output

**Best practices:** Without output_path the form is written as <document>_form.pdf. Fields that cannot be written are listed as skipped; duplicate names are written but reported.`

	FormInspectPDFDescription = `Read the form fields of a PDF.

**When to use:** Checking what a document already contains before designing, or verifying the output of form_synthesize.

**Why it's useful:** Lists field names, types, pages and rectangles, whether the file is encrypted and which permissions it grants. Field names are cross-checked with a second PDF parser.

**Examples:**
• Verify: "Inspect invoice_form.pdf and confirm both fields are there"
• Audit: "Does w9.pdf already have form fields?"`

	FormServerInfoDescription = `Get server information, the documents in the work directory and usage guidance.

**When to use:** At the start of a conversation, or to find documents and saved layouts.

**Why it's useful:** Lists the PDF and JSON files of the work directory, the supported field kinds, zoom and grid presets, the number of open sessions and a guide to the tools.

**Examples:**
• Discovery: "Which PDFs can I turn into forms?"`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"form_open_document": FormOpenDocumentDescription,
	"form_close_session": FormCloseSessionDescription,
	"form_place_field":   FormPlaceFieldDescription,
	"form_add_field":     FormAddFieldDescription,
	"form_update_field":  FormUpdateFieldDescription,
	"form_remove_field":  FormRemoveFieldDescription,
	"form_list_fields":   FormListFieldsDescription,
	"form_set_view":      FormSetViewDescription,
	"form_export_json":   FormExportJSONDescription,
	"form_import_json":   FormImportJSONDescription,
	"form_synthesize":    FormSynthesizeDescription,
	"form_inspect_pdf":   FormInspectPDFDescription,
	"form_server_info":   FormServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the names of all tools in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
