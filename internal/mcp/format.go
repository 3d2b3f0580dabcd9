package mcp

import (
	"fmt"
	"strings"

	"github.com/a3tai/mcp-pdf-forms/internal/pdf"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/fields"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/session"
)

func formatView(v session.View) string {
	snap := "off"
	if v.SnapEnabled {
		snap = fmt.Sprintf("%g pt grid", v.GridSize)
	}
	return fmt.Sprintf("page %d, zoom %g, snap %s", v.CurrentPage, v.Zoom, snap)
}

func formatField(f fields.Field) string {
	text := fmt.Sprintf("%s [%s] %q page %d at (%g, %g) size %gx%g",
		f.ID, f.Kind, f.Name, f.Page, f.X, f.Y, f.Width, f.Height)
	if f.Kind.HasFontSize() {
		text += fmt.Sprintf(" font %g", f.FontSize)
	}
	return text
}

func (s *Server) formatSessionResult(verb string, result *pdf.SessionResult) string {
	text := fmt.Sprintf("%s %s\n", verb, s.pdfService.RelativePath(result.SourcePath))
	text += fmt.Sprintf("Session: %s\n", result.SessionID)
	text += fmt.Sprintf("Library: %s\n", result.Library)
	text += fmt.Sprintf("Pages: %d\n", result.PageCount)
	for i, size := range result.PageDimensions {
		text += fmt.Sprintf("  Page %d: %g x %g pt\n", i+1, size.Width, size.Height)
	}
	text += fmt.Sprintf("View: %s\n", formatView(result.View))
	text += fmt.Sprintf("Fields in session: %d\n", result.FieldCount)
	if result.ExistingFields > 0 {
		text += fmt.Sprintf("Form fields already in the document: %d\n", result.ExistingFields)
	}
	if result.Encrypted {
		text += fmt.Sprintf("Encrypted: %s\n", result.Permissions)
	}
	for _, w := range result.Warnings {
		text += fmt.Sprintf("⚠️  %s\n", w)
	}
	return text
}

func (s *Server) formatFieldResult(verb string, result *pdf.FieldResult) string {
	text := fmt.Sprintf("%s field %s\n", verb, formatField(result.Field))
	text += fmt.Sprintf("Rendered position: (%g, %g) px\n", result.Screen.X, result.Screen.Y)
	if result.Warning != "" {
		text += fmt.Sprintf("⚠️  %s\n", result.Warning)
	}
	return text
}

func (s *Server) formatFieldListResult(result *pdf.FieldListResult) string {
	text := fmt.Sprintf("Session %s: %d field(s), %s\n", result.SessionID, len(result.Fields), formatView(result.View))
	for i, f := range result.Fields {
		text += fmt.Sprintf("%d. %s\n", i+1, formatField(f))
	}
	return text
}

func (s *Server) formatImportResult(result *pdf.ImportResult) string {
	source := result.Source
	if source != "inline" {
		source = s.pdfService.RelativePath(source)
	}
	text := fmt.Sprintf("Imported %d field(s) from %s\n", len(result.Imported), source)
	for _, f := range result.Imported {
		text += fmt.Sprintf("  + %s\n", formatField(f))
	}
	if len(result.Errors) > 0 {
		text += fmt.Sprintf("Rejected %d entr(y/ies):\n", len(result.Errors))
		for _, e := range result.Errors {
			text += fmt.Sprintf("  - %s\n", e)
		}
	}
	return text
}

func (s *Server) formatSynthesizeResult(result *pdf.SynthesizeResult) string {
	text := fmt.Sprintf("Wrote fillable PDF: %s\n", s.pdfService.RelativePath(result.Path))
	text += fmt.Sprintf("Size: %d bytes\n", result.Size)
	text += fmt.Sprintf("Fields written: %d\n", len(result.Widgets))
	for _, w := range result.Widgets {
		text += fmt.Sprintf("  %s %q page %d rect [%g %g %g %g]", w.Kind, w.Name, w.Page, w.Rect[0], w.Rect[1], w.Rect[2], w.Rect[3])
		if w.Twin {
			text += " (shares its name)"
		}
		text += "\n"
	}
	if len(result.Skipped) > 0 {
		text += fmt.Sprintf("Skipped %d field(s):\n", len(result.Skipped))
		for _, e := range result.Skipped {
			text += fmt.Sprintf("  - %s\n", e)
		}
	}
	for _, w := range result.Warnings {
		text += fmt.Sprintf("⚠️  %s\n", w)
	}
	return text
}

func (s *Server) formatInspectResult(result *pdf.InspectResult) string {
	text := fmt.Sprintf("Form of %s\n", s.pdfService.RelativePath(result.Path))
	text += fmt.Sprintf("Pages: %d\n", result.PageCount)
	if result.Encrypted {
		text += fmt.Sprintf("Encrypted: %s\n", result.Permissions)
		if denied := result.Permissions.DeniedOperations(); len(denied) > 0 {
			text += fmt.Sprintf("Denied: %s\n", strings.Join(denied, ", "))
		}
	}

	if len(result.Fields) == 0 {
		text += "No form fields\n"
	} else {
		text += fmt.Sprintf("Fields: %d\n", len(result.Fields))
		for i, f := range result.Fields {
			text += fmt.Sprintf("%d. %s [%s]", i+1, f.Name, f.Type)
			for _, w := range f.Widgets {
				text += fmt.Sprintf(" page %d rect [%g %g %g %g]", w.Page, w.Rect[0], w.Rect[1], w.Rect[2], w.Rect[3])
			}
			if f.ReadOnly {
				text += " read-only"
			}
			if f.Required {
				text += " required"
			}
			text += "\n"
		}
	}

	if check := result.NameCheck; check != nil && !check.Agree {
		switch {
		case check.Error != "":
			text += fmt.Sprintf("⚠️  Second parser could not read the form: %s\n", check.Error)
		default:
			text += "⚠️  Parsers disagree on field names\n"
			if len(check.OnlyPDFCPU) > 0 {
				text += fmt.Sprintf("  only pdfcpu: %s\n", strings.Join(check.OnlyPDFCPU, ", "))
			}
			if len(check.OnlyLedongthuc) > 0 {
				text += fmt.Sprintf("  only ledongthuc: %s\n", strings.Join(check.OnlyLedongthuc, ", "))
			}
		}
	}
	return text
}

func (s *Server) formatServerInfoResult(result *pdf.ServerInfoResult) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("📁 Work Directory: %s\n", result.WorkDirectory)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", result.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("📚 Library: %s\n", result.Library)
	text += fmt.Sprintf("🗂️  Open Sessions: %d\n\n", result.OpenSessions)

	if len(result.DirectoryContents) > 0 {
		text += fmt.Sprintf("📂 Directory Contents (%d PDF and layout files found):\n", len(result.DirectoryContents))
		for i, file := range result.DirectoryContents {
			if i >= 10 {
				text += fmt.Sprintf("   ... and %d more files\n", len(result.DirectoryContents)-10)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, s.pdfService.RelativePath(file.Path), file.Size)
		}
		text += "\n"
	} else {
		text += "📂 Directory Contents: No PDF or layout files found in the work directory\n\n"
	}

	text += "🛠️  Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Usage: %s\n", tool.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	text += "\n" + result.UsageGuidance

	return text
}
