package pdf

import (
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/extraction"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/fields"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/geometry"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/security"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/session"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/synthesis"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/wrapper"
)

// FileInfo represents a PDF or layout file in the work directory
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// Request Types

// OpenDocumentRequest opens a PDF in a new editing session
type OpenDocumentRequest struct {
	Path string `json:"path"`
	// Library overrides the configured loader (auto, pdfcpu, ledongthuc)
	Library string `json:"library,omitempty"`
}

// PlaceFieldRequest places a field from a pointer position at the current
// view zoom. Zero Page means the session's current page.
type PlaceFieldRequest struct {
	SessionID string  `json:"session_id"`
	Kind      string  `json:"kind"`
	Name      string  `json:"name"`
	Page      int     `json:"page"`
	PointerX  float64 `json:"pointer_x"`
	PointerY  float64 `json:"pointer_y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	FontSize  float64 `json:"font_size"`
}

// AddFieldRequest adds a field given in PDF space
type AddFieldRequest struct {
	SessionID string      `json:"session_id"`
	Spec      fields.Spec `json:"spec"`
}

// UpdateFieldRequest changes a field. When Pointer is set the field is
// moved as by a drag at the current zoom and Update.X/Y are ignored.
type UpdateFieldRequest struct {
	SessionID string          `json:"session_id"`
	FieldID   string          `json:"field_id"`
	Update    fields.Update   `json:"update"`
	Pointer   *geometry.Point `json:"pointer,omitempty"`
}

// FieldRequest names one field of a session
type FieldRequest struct {
	SessionID string `json:"session_id"`
	FieldID   string `json:"field_id"`
}

// SessionRequest names a session
type SessionRequest struct {
	SessionID string `json:"session_id"`
}

// SetViewRequest changes the view of a session
type SetViewRequest struct {
	SessionID string             `json:"session_id"`
	View      session.ViewUpdate `json:"view"`
}

// ExportRequest writes the layout or the baked form of a session. An empty
// OutputPath uses the suggested filename in the work directory.
type ExportRequest struct {
	SessionID  string `json:"session_id"`
	OutputPath string `json:"output_path,omitempty"`
}

// ImportRequest adds the fields of a layout to a session, read either from
// Path or from the inline Data
type ImportRequest struct {
	SessionID string `json:"session_id"`
	Path      string `json:"path,omitempty"`
	Data      string `json:"data,omitempty"`
}

// InspectRequest reads the form of a PDF in the work directory
type InspectRequest struct {
	Path string `json:"path"`
}

// Response Types

// SessionResult describes an open session
type SessionResult struct {
	SessionID      string               `json:"session_id"`
	SourcePath     string               `json:"source_path"`
	Library        wrapper.LibraryType  `json:"library"`
	PageCount      int                  `json:"page_count"`
	PageDimensions []geometry.Size      `json:"page_dimensions"`
	View           session.View         `json:"view"`
	FieldCount     int                  `json:"field_count"`
	ExistingFields int                  `json:"existing_fields"`
	Encrypted      bool                 `json:"encrypted"`
	Permissions    security.Permissions `json:"permissions"`
	Warnings       []string             `json:"warnings,omitempty"`
}

// FieldResult is one field after a change, with its drawn position
type FieldResult struct {
	SessionID string         `json:"session_id"`
	Field     fields.Field   `json:"field"`
	Screen    geometry.Point `json:"screen"`
	Warning   string         `json:"warning,omitempty"`
}

// FieldListResult lists the fields of a session
type FieldListResult struct {
	SessionID string         `json:"session_id"`
	View      session.View   `json:"view"`
	Fields    []fields.Field `json:"fields"`
}

// ExportResult reports a layout written to disk
type ExportResult struct {
	SessionID  string `json:"session_id"`
	Path       string `json:"path"`
	Size       int    `json:"size"`
	FieldCount int    `json:"field_count"`
}

// ImportResult reports the outcome of a layout import
type ImportResult struct {
	SessionID string         `json:"session_id"`
	Source    string         `json:"source"`
	Imported  []fields.Field `json:"imported"`
	Errors    []string       `json:"errors,omitempty"`
}

// SynthesizeResult reports a fillable PDF written to disk
type SynthesizeResult struct {
	SessionID string             `json:"session_id"`
	Path      string             `json:"path"`
	Size      int                `json:"size"`
	Widgets   []synthesis.Widget `json:"widgets"`
	Skipped   []string           `json:"skipped,omitempty"`
	Warnings  []string           `json:"warnings,omitempty"`
}

// InspectResult is the form read back from a PDF
type InspectResult struct {
	Path string `json:"path"`
	*extraction.Inspection
}

// ToolInfo describes one MCP tool for server info
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}

// ServerInfoResult is server information and usage guidance
type ServerInfoResult struct {
	ServerName        string                `json:"server_name"`
	Version           string                `json:"version"`
	WorkDirectory     string                `json:"work_directory"`
	MaxFileSize       int64                 `json:"max_file_size"`
	Library           wrapper.LibraryType   `json:"library"`
	Libraries         []wrapper.LibraryType `json:"libraries"`
	FieldKinds        []fields.Kind         `json:"field_kinds"`
	ZoomLevels        []float64             `json:"zoom_levels"`
	GridSizes         []float64             `json:"grid_sizes"`
	OpenSessions      int                   `json:"open_sessions"`
	AvailableTools    []ToolInfo            `json:"available_tools"`
	DirectoryContents []FileInfo            `json:"directory_contents"`
	UsageGuidance     string                `json:"usage_guidance"`
}
