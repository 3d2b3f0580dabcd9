package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-pdf-forms/internal/config"
	"github.com/a3tai/mcp-pdf-forms/internal/descriptions"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/fields"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/session"
)

const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	mcpServer  *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // the tool list never changes at runtime
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		mcpServer:  mcpServer,
	}

	s.registerTools()

	return s, nil
}

func sessionIDParam() mcp.ToolOption {
	return mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("Session id returned by form_open_document"),
	)
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"form_open_document",
		mcp.WithDescription(descriptions.GetToolDescription("form_open_document")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("PDF file, relative to the work directory or absolute inside it"),
		),
		mcp.WithString("library",
			mcp.Description("PDF loader: auto (default), pdfcpu or ledongthuc"),
		),
	), s.handleOpenDocument)

	s.mcpServer.AddTool(mcp.NewTool(
		"form_place_field",
		mcp.WithDescription(descriptions.GetToolDescription("form_place_field")),
		sessionIDParam(),
		mcp.WithNumber("pointer_x",
			mcp.Required(),
			mcp.Description("Horizontal pointer position in rendered pixels from the left edge"),
		),
		mcp.WithNumber("pointer_y",
			mcp.Required(),
			mcp.Description("Vertical pointer position in rendered pixels from the top edge"),
		),
		mcp.WithString("kind", mcp.Description("Field kind: text (default) or checkbox")),
		mcp.WithString("name", mcp.Description("Field name; generated when omitted")),
		mcp.WithNumber("page", mcp.Description("1-based page; the current page when omitted")),
		mcp.WithNumber("width", mcp.Description("Width in points; kind default when omitted")),
		mcp.WithNumber("height", mcp.Description("Height in points; kind default when omitted")),
		mcp.WithNumber("font_size", mcp.Description("Font size of a text field")),
	), s.handlePlaceField)

	s.mcpServer.AddTool(mcp.NewTool(
		"form_add_field",
		mcp.WithDescription(descriptions.GetToolDescription("form_add_field")),
		sessionIDParam(),
		mcp.WithString("name", mcp.Required(), mcp.Description("Field name")),
		mcp.WithNumber("page", mcp.Required(), mcp.Description("1-based page")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Left edge in points from the left of the page")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Bottom edge in points from the bottom of the page")),
		mcp.WithString("kind", mcp.Description("Field kind: text (default) or checkbox")),
		mcp.WithNumber("width", mcp.Description("Width in points; kind default when omitted")),
		mcp.WithNumber("height", mcp.Description("Height in points; kind default when omitted")),
		mcp.WithNumber("font_size", mcp.Description("Font size of a text field")),
	), s.handleAddField)

	s.mcpServer.AddTool(mcp.NewTool(
		"form_update_field",
		mcp.WithDescription(descriptions.GetToolDescription("form_update_field")),
		sessionIDParam(),
		mcp.WithString("field_id", mcp.Required(), mcp.Description("Id of the field to change")),
		mcp.WithString("name", mcp.Description("New name")),
		mcp.WithString("kind", mcp.Description("New kind: text or checkbox")),
		mcp.WithNumber("page", mcp.Description("New 1-based page")),
		mcp.WithNumber("x", mcp.Description("New left edge in points")),
		mcp.WithNumber("y", mcp.Description("New bottom edge in points")),
		mcp.WithNumber("width", mcp.Description("New width in points")),
		mcp.WithNumber("height", mcp.Description("New height in points")),
		mcp.WithNumber("font_size", mcp.Description("New font size")),
		mcp.WithNumber("pointer_x", mcp.Description("Drag target in rendered pixels; requires pointer_y")),
		mcp.WithNumber("pointer_y", mcp.Description("Drag target in rendered pixels; requires pointer_x")),
	), s.handleUpdateField)

	s.mcpServer.AddTool(mcp.NewTool(
		"form_remove_field",
		mcp.WithDescription(descriptions.GetToolDescription("form_remove_field")),
		sessionIDParam(),
		mcp.WithString("field_id", mcp.Description("Id of the field to remove")),
		mcp.WithBoolean("all", mcp.Description("Remove every field of the session")),
	), s.handleRemoveField)

	s.mcpServer.AddTool(mcp.NewTool(
		"form_list_fields",
		mcp.WithDescription(descriptions.GetToolDescription("form_list_fields")),
		sessionIDParam(),
	), s.handleListFields)

	s.mcpServer.AddTool(mcp.NewTool(
		"form_set_view",
		mcp.WithDescription(descriptions.GetToolDescription("form_set_view")),
		sessionIDParam(),
		mcp.WithNumber("zoom", mcp.Description("Scale of the rendered page, e.g. 1, 1.5 or 2")),
		mcp.WithNumber("grid_size", mcp.Description("Snap grid in points")),
		mcp.WithBoolean("snap", mcp.Description("Snap placed fields to the grid")),
		mcp.WithNumber("page", mcp.Description("Current 1-based page")),
	), s.handleSetView)

	s.mcpServer.AddTool(mcp.NewTool(
		"form_export_json",
		mcp.WithDescription(descriptions.GetToolDescription("form_export_json")),
		sessionIDParam(),
		mcp.WithString("output_path", mcp.Description("Layout file; <document>_fields.json when omitted")),
	), s.handleExportJSON)

	s.mcpServer.AddTool(mcp.NewTool(
		"form_import_json",
		mcp.WithDescription(descriptions.GetToolDescription("form_import_json")),
		sessionIDParam(),
		mcp.WithString("path", mcp.Description("Layout file in the work directory")),
		mcp.WithString("data", mcp.Description("Layout JSON given inline instead of a file")),
	), s.handleImportJSON)

	s.mcpServer.AddTool(mcp.NewTool(
		"form_synthesize",
		mcp.WithDescription(descriptions.GetToolDescription("form_synthesize")),
		sessionIDParam(),
		mcp.WithString("output_path", mcp.Description("Output PDF; <document>_form.pdf when omitted")),
	), s.handleSynthesize)

	s.mcpServer.AddTool(mcp.NewTool(
		"form_inspect_pdf",
		mcp.WithDescription(descriptions.GetToolDescription("form_inspect_pdf")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("PDF file, relative to the work directory or absolute inside it"),
		),
	), s.handleInspectPDF)

	s.mcpServer.AddTool(mcp.NewTool(
		"form_close_session",
		mcp.WithDescription(descriptions.GetToolDescription("form_close_session")),
		sessionIDParam(),
	), s.handleCloseSession)

	s.mcpServer.AddTool(mcp.NewTool(
		"form_server_info",
		mcp.WithDescription(descriptions.GetToolDescription("form_server_info")),
	), s.handleServerInfo)
}

// Handler functions

func (s *Server) handleOpenDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := newArguments(request)

	result, err := s.pdfService.OpenDocument(ctx, pdf.OpenDocumentRequest{
		Path:    path,
		Library: args.optString("library"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatSessionResult("Opened", result)), nil
}

func (s *Server) handlePlaceField(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := newArguments(request)

	req := pdf.PlaceFieldRequest{
		SessionID: sessionID,
		Kind:      args.optString("kind"),
		Name:      args.optString("name"),
	}
	if req.PointerX, err = args.requireNumber("pointer_x"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.PointerY, err = args.requireNumber("pointer_y"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := args.fill(
		intArg("page", &req.Page),
		numberArg("width", &req.Width),
		numberArg("height", &req.Height),
		numberArg("font_size", &req.FontSize),
	); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.PlaceField(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatFieldResult("Placed", result)), nil
}

func (s *Server) handleAddField(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := newArguments(request)

	spec := fields.Spec{Name: name, Kind: fields.KindText}
	if kind := args.optString("kind"); kind != "" {
		if spec.Kind, err = fields.ParseKind(kind); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if spec.Page, err = args.requireInt("page"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if spec.X, err = args.requireNumber("x"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if spec.Y, err = args.requireNumber("y"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := args.fill(
		numberArg("width", &spec.Width),
		numberArg("height", &spec.Height),
		numberArg("font_size", &spec.FontSize),
	); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	size := spec.Kind.DefaultSize()
	if spec.Width == 0 {
		spec.Width = size.Width
	}
	if spec.Height == 0 {
		spec.Height = size.Height
	}

	result, err := s.pdfService.AddField(pdf.AddFieldRequest{SessionID: sessionID, Spec: spec})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatFieldResult("Added", result)), nil
}

func (s *Server) handleUpdateField(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fieldID, err := request.RequireString("field_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := newArguments(request)

	var upd fields.Update
	if name, ok := args.lookupString("name"); ok {
		upd.Name = &name
	}
	if kindName, ok := args.lookupString("kind"); ok {
		kind, err := fields.ParseKind(kindName)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		upd.Kind = &kind
	}
	if err := args.fill(
		optionalIntArg("page", &upd.Page),
		optionalNumberArg("x", &upd.X),
		optionalNumberArg("y", &upd.Y),
		optionalNumberArg("width", &upd.Width),
		optionalNumberArg("height", &upd.Height),
		optionalNumberArg("font_size", &upd.FontSize),
	); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	pointer, err := args.pointer()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.UpdateField(pdf.UpdateFieldRequest{
		SessionID: sessionID,
		FieldID:   fieldID,
		Update:    upd,
		Pointer:   pointer,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatFieldResult("Updated", result)), nil
}

func (s *Server) handleRemoveField(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := newArguments(request)

	all, err := args.flag("all")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fieldID := args.optString("field_id")

	switch {
	case all:
		if err := s.pdfService.ClearFields(pdf.SessionRequest{SessionID: sessionID}); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Removed all fields from session %s\n", sessionID)), nil
	case fieldID != "":
		if err := s.pdfService.RemoveField(pdf.FieldRequest{SessionID: sessionID, FieldID: fieldID}); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Removed field %s from session %s\n", fieldID, sessionID)), nil
	default:
		return mcp.NewToolResultError("either field_id or all=true is required"), nil
	}
}

func (s *Server) handleListFields(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.ListFields(pdf.SessionRequest{SessionID: sessionID})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatFieldListResult(result)), nil
}

func (s *Server) handleSetView(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := newArguments(request)

	var upd session.ViewUpdate
	if err := args.fill(
		optionalNumberArg("zoom", &upd.Zoom),
		optionalNumberArg("grid_size", &upd.GridSize),
		optionalIntArg("page", &upd.Page),
	); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, ok := args["snap"]; ok {
		snap, err := args.flag("snap")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		upd.SnapEnabled = &snap
	}

	result, err := s.pdfService.SetView(pdf.SetViewRequest{SessionID: sessionID, View: upd})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatSessionResult("View of", result)), nil
}

func (s *Server) handleExportJSON(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := newArguments(request)

	result, err := s.pdfService.ExportJSON(ctx, pdf.ExportRequest{
		SessionID:  sessionID,
		OutputPath: args.optString("output_path"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Exported %d field(s) to %s\n", result.FieldCount, s.pdfService.RelativePath(result.Path))
	text += fmt.Sprintf("Size: %d bytes\n", result.Size)
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleImportJSON(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := newArguments(request)

	result, err := s.pdfService.ImportJSON(ctx, pdf.ImportRequest{
		SessionID: sessionID,
		Path:      args.optString("path"),
		Data:      args.optString("data"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatImportResult(result)), nil
}

func (s *Server) handleSynthesize(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := newArguments(request)

	result, err := s.pdfService.Synthesize(ctx, pdf.ExportRequest{
		SessionID:  sessionID,
		OutputPath: args.optString("output_path"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatSynthesizeResult(result)), nil
}

func (s *Server) handleInspectPDF(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.InspectPDF(ctx, pdf.InspectRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatInspectResult(result)), nil
}

func (s *Server) handleCloseSession(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.pdfService.CloseSession(pdf.SessionRequest{SessionID: sessionID}); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Closed session %s\n", sessionID)), nil
}

func (s *Server) handleServerInfo(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.pdfService.ServerInfo(ctx, s.config.ServerName, s.config.Version)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatServerInfoResult(result)), nil
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting PDF form MCP server in stdio mode")
		log.Printf("Work directory: %s", s.config.WorkDirectory)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over HTTP with server-sent events until ctx is
// cancelled
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	log.Printf("Starting PDF form MCP server on %s (SSE endpoint /sse)", addr)
	log.Printf("Work directory: %s", s.config.WorkDirectory)

	errCh := make(chan error, 1)
	go func() {
		errCh <- sseServer.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		log.Printf("Server stopped")
		return nil
	}
}
