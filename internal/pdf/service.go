package pdf

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	pdferrors "github.com/a3tai/mcp-pdf-forms/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/extraction"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/fields"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/geometry"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/security"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/session"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/wrapper"
)

const (
	// DefaultMaxSessions bounds the number of documents open at once
	DefaultMaxSessions = 16

	outputFilePerm = 0o644
)

// ServiceConfig configures a Service
type ServiceConfig struct {
	MaxFileSize int64
	Directory   string
	Library     wrapper.LibraryType
	MaxSessions int
	Session     session.Options
	DebugMode   bool
}

// Service owns the editing sessions and every file the tools touch. All
// session access is serialized by one mutex.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*entry

	config        ServiceConfig
	loaders       *wrapper.LoaderFactory
	extractor     *extraction.FormExtractor
	pathValidator *security.PathValidator
	info          *ServerInfo
}

// entry is a session with what the service learned when opening it
type entry struct {
	session     *session.Session
	path        string
	existing    int
	encrypted   bool
	permissions security.Permissions
}

// readOnly reports whether the source forbids adding fields
func (e *entry) readOnly() bool {
	return e.encrypted && !e.permissions.AllowsFieldCreation()
}

// NewService creates a new form service rooted at cfg.Directory
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("maxFileSize must be greater than 0")
	}
	pathValidator, err := security.NewPathValidator(cfg.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}
	if cfg.Library == "" {
		cfg.Library = wrapper.LibraryAuto
	}
	if _, err := wrapper.ParseLibraryType(string(cfg.Library)); err != nil {
		return nil, err
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.Session.Zoom == 0 {
		cfg.Session = session.DefaultOptions()
	}
	cfg.Session.DebugMode = cfg.DebugMode

	s := &Service{
		sessions: make(map[string]*entry),
		config:   cfg,
		loaders: wrapper.NewLoaderFactoryWithConfig(wrapper.FactoryConfig{
			PreferredLibrary: cfg.Library,
			MaxFileSize:      cfg.MaxFileSize,
			DebugMode:        cfg.DebugMode,
		}),
		extractor:     extraction.NewFormExtractor(cfg.DebugMode),
		pathValidator: pathValidator,
	}
	s.info = NewServerInfo(s)
	return s, nil
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.config.MaxFileSize
}

// GetDirectory returns the absolute work directory
func (s *Service) GetDirectory() string {
	return s.pathValidator.GetConfiguredDirectory()
}

// OpenDocument loads a PDF and starts an editing session on it
func (s *Service) OpenDocument(ctx context.Context, req OpenDocumentRequest) (*SessionResult, error) {
	path, err := s.pathValidator.ValidateInput(req.Path, s.config.MaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	info, err := s.load(ctx, req.Library, data)
	if err != nil {
		return nil, err
	}

	var warnings []string
	inspection, err := s.extractor.Inspect(ctx, data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		warnings = append(warnings, fmt.Sprintf("existing form could not be read: %v", err))
		inspection = &extraction.Inspection{Permissions: security.NewFullPermissions()}
	}
	sess, err := session.New(path, data, info, s.config.Session)
	if err != nil {
		return nil, err
	}
	e := &entry{
		session:     sess,
		path:        path,
		existing:    len(inspection.Fields),
		encrypted:   inspection.Encrypted,
		permissions: inspection.Permissions,
	}
	if e.readOnly() {
		warnings = append(warnings, "document permissions do not allow adding form fields")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	s.sessions[sess.ID] = e

	if s.config.DebugMode {
		log.Printf("Session %s: %s via %s, %d page(s), %d existing field(s)",
			sess.ID, path, info.Library, info.PageCount, len(inspection.Fields))
	}

	res := e.result()
	res.Warnings = warnings
	return res, nil
}

func (s *Service) load(ctx context.Context, library string, data []byte) (*wrapper.DocumentInfo, error) {
	if library == "" {
		return s.loaders.Load(ctx, data)
	}
	lib, err := wrapper.ParseLibraryType(library)
	if err != nil {
		return nil, err
	}
	loader, err := s.loaders.Create(lib)
	if err != nil {
		return nil, err
	}
	return loader.Load(ctx, data)
}

// evictLocked closes the least recently used sessions until one more fits
func (s *Service) evictLocked() {
	for len(s.sessions) >= s.config.MaxSessions {
		var oldest string
		for id, e := range s.sessions {
			if oldest == "" || e.session.LastTouched().Before(s.sessions[oldest].session.LastTouched()) {
				oldest = id
			}
		}
		if s.config.DebugMode {
			log.Printf("Closing idle session %s", oldest)
		}
		delete(s.sessions, oldest)
	}
}

// lookupLocked returns the entry for id; s.mu must be held
func (s *Service) lookupLocked(id string) (*entry, error) {
	e, ok := s.sessions[id]
	if !ok {
		return nil, pdferrors.Newf(pdferrors.ErrorTypeSessionNotFound, "no session with id %q", id)
	}
	return e, nil
}

func (e *entry) result() *SessionResult {
	meta := e.session.Metadata()
	return &SessionResult{
		SessionID:      e.session.ID,
		SourcePath:     e.path,
		Library:        e.session.Library(),
		PageCount:      meta.TotalPages,
		PageDimensions: meta.PageDimensions,
		View:           e.session.View(),
		FieldCount:     len(e.session.ListFields()),
		ExistingFields: e.existing,
		Encrypted:      e.encrypted,
		Permissions:    e.permissions,
	}
}

// CloseSession discards a session and its unsaved fields
func (s *Service) CloseSession(req SessionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookupLocked(req.SessionID); err != nil {
		return err
	}
	delete(s.sessions, req.SessionID)
	return nil
}

// ListSessions describes every open session, oldest first
func (s *Service) ListSessions() []*SessionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*SessionResult, 0, len(s.sessions))
	for _, e := range s.sessions {
		out = append(out, e.result())
	}
	sort.Slice(out, func(i, j int) bool {
		return s.sessions[out[i].SessionID].session.CreatedAt.Before(s.sessions[out[j].SessionID].session.CreatedAt)
	})
	return out
}

// PlaceField adds a field from a pointer position
func (s *Service) PlaceField(req PlaceFieldRequest) (*FieldResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookupLocked(req.SessionID)
	if err != nil {
		return nil, err
	}

	kind := fields.KindText
	if req.Kind != "" {
		if kind, err = fields.ParseKind(req.Kind); err != nil {
			return nil, err
		}
	}

	f, err := e.session.PlaceField(session.Placement{
		Kind:     kind,
		Name:     req.Name,
		Page:     req.Page,
		Pointer:  geometry.Point{X: req.PointerX, Y: req.PointerY},
		Width:    req.Width,
		Height:   req.Height,
		FontSize: req.FontSize,
	})
	if err != nil {
		return nil, err
	}
	return s.fieldResult(e.session, f)
}

// AddField adds a field given in PDF space
func (s *Service) AddField(req AddFieldRequest) (*FieldResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookupLocked(req.SessionID)
	if err != nil {
		return nil, err
	}
	f, err := e.session.AddField(req.Spec)
	if err != nil {
		return nil, err
	}
	return s.fieldResult(e.session, f)
}

// UpdateField changes or moves a field
func (s *Service) UpdateField(req UpdateFieldRequest) (*FieldResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookupLocked(req.SessionID)
	if err != nil {
		return nil, err
	}

	if req.Pointer == nil {
		f, err := e.session.UpdateField(req.FieldID, req.Update)
		if err != nil {
			return nil, err
		}
		return s.fieldResult(e.session, f)
	}

	// resize first so the move flips with the new height
	before, ok := e.session.Field(req.FieldID)
	if !ok {
		return nil, pdferrors.Newf(pdferrors.ErrorTypeFieldNotFound, "no field with id %s", req.FieldID).WithField(req.FieldID, "")
	}
	upd := req.Update
	page := 0
	if upd.Page != nil {
		page = *upd.Page
	}
	upd.X, upd.Y, upd.Page = nil, nil, nil

	if _, err := e.session.UpdateField(req.FieldID, upd); err != nil {
		return nil, err
	}
	f, err := e.session.MoveField(req.FieldID, *req.Pointer, page)
	if err != nil {
		if _, restoreErr := e.session.UpdateField(req.FieldID, restore(before)); restoreErr != nil {
			log.Printf("Failed to restore field %s: %v", req.FieldID, restoreErr)
		}
		return nil, err
	}
	return s.fieldResult(e.session, f)
}

// RemoveField deletes a field
func (s *Service) RemoveField(req FieldRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookupLocked(req.SessionID)
	if err != nil {
		return err
	}
	return e.session.RemoveField(req.FieldID)
}

// ClearFields removes every field of a session
func (s *Service) ClearFields(req SessionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookupLocked(req.SessionID)
	if err != nil {
		return err
	}
	e.session.ClearFields()
	return nil
}

// ListFields returns the fields of a session in insertion order
func (s *Service) ListFields(req SessionRequest) (*FieldListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookupLocked(req.SessionID)
	if err != nil {
		return nil, err
	}
	return &FieldListResult{
		SessionID: req.SessionID,
		View:      e.session.View(),
		Fields:    e.session.ListFields(),
	}, nil
}

// SetView changes the zoom, grid or page of a session
func (s *Service) SetView(req SetViewRequest) (*SessionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookupLocked(req.SessionID)
	if err != nil {
		return nil, err
	}
	if _, err := e.session.SetView(req.View); err != nil {
		return nil, err
	}
	return e.result(), nil
}

// ExportJSON writes the layout of a session
func (s *Service) ExportJSON(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookupLocked(req.SessionID)
	if err != nil {
		return nil, err
	}

	out, err := s.pathValidator.ValidateOutput(req.OutputPath, e.session.JSONFilename())
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}

	data, err := e.session.ExportJSON(ctx)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(out, data, outputFilePerm); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", out, err)
	}
	s.info.InvalidateCache()

	return &ExportResult{
		SessionID:  req.SessionID,
		Path:       out,
		Size:       len(data),
		FieldCount: len(e.session.ListFields()),
	}, nil
}

// ImportJSON adds the fields of a layout file or inline layout
func (s *Service) ImportJSON(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	data := []byte(req.Data)
	source := "inline"
	if req.Path != "" {
		path, err := s.pathValidator.ValidateInput(req.Path, s.config.MaxFileSize)
		if err != nil {
			return nil, fmt.Errorf("security validation failed: %w", err)
		}
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		source = path
	}
	if len(data) == 0 {
		return nil, pdferrors.New(pdferrors.ErrorTypeInvalidDocument, "either path or data is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookupLocked(req.SessionID)
	if err != nil {
		return nil, err
	}

	res, err := e.session.ImportJSON(ctx, data)
	if err != nil {
		return nil, err
	}

	out := &ImportResult{SessionID: req.SessionID, Source: source, Imported: res.Imported}
	for _, fe := range res.Errors {
		out.Errors = append(out.Errors, fe.Error())
	}
	return out, nil
}

// Synthesize bakes the fields of a session into a fillable PDF on disk
func (s *Service) Synthesize(ctx context.Context, req ExportRequest) (*SynthesizeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookupLocked(req.SessionID)
	if err != nil {
		return nil, err
	}

	out, err := s.pathValidator.ValidateOutput(req.OutputPath, e.session.PDFFilename())
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	if out == e.path {
		return nil, fmt.Errorf("output would overwrite the source document %s", e.path)
	}

	res, err := e.session.Synthesize(ctx)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(out, res.PDF, outputFilePerm); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", out, err)
	}
	s.info.InvalidateCache()

	result := &SynthesizeResult{
		SessionID: req.SessionID,
		Path:      out,
		Size:      len(res.PDF),
		Widgets:   res.Widgets,
	}
	for _, fe := range res.Report.Errors {
		result.Skipped = append(result.Skipped, fe.Error())
	}
	for _, fe := range res.Report.Warnings {
		result.Warnings = append(result.Warnings, fe.Error())
	}
	if e.readOnly() {
		result.Warnings = append(result.Warnings, "source permissions do not allow adding form fields")
	}

	if s.config.DebugMode {
		log.Printf("Session %s: wrote %s (%s)", req.SessionID, out, res.Report.Summary())
	}
	return result, nil
}

// InspectPDF reads the form fields of a PDF in the work directory
func (s *Service) InspectPDF(ctx context.Context, req InspectRequest) (*InspectResult, error) {
	path, err := s.pathValidator.ValidateInput(req.Path, s.config.MaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	inspection, err := s.extractor.Inspect(ctx, data)
	if err != nil {
		return nil, err
	}
	return &InspectResult{Path: path, Inspection: inspection}, nil
}

// ServerInfo returns server information and usage guidance
func (s *Service) ServerInfo(ctx context.Context, serverName, version string) (*ServerInfoResult, error) {
	return s.info.GetServerInfo(ctx, serverName, version)
}

func (s *Service) openSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Service) fieldResult(sess *session.Session, f fields.Field) (*FieldResult, error) {
	screen, err := sess.ScreenPosition(f)
	if err != nil {
		return nil, err
	}
	res := &FieldResult{SessionID: sess.ID, Field: f, Screen: screen}

	if size, ok := sess.Metadata().PageSize(f.Page); ok {
		ll, ur := f.Rect()
		if ll.X < 0 || ll.Y < 0 || ur.X > size.Width || ur.Y > size.Height {
			res.Warning = fmt.Sprintf("field extends beyond page %d (%gx%g)", f.Page, size.Width, size.Height)
		}
	}
	return res, nil
}

// ValidateConfiguration validates the service configuration
func (s *Service) ValidateConfiguration() error {
	if s.config.MaxFileSize <= 0 {
		return fmt.Errorf("maxFileSize must be greater than 0")
	}
	if s.config.MaxFileSize > 1024*1024*1024 { // 1GB limit
		return fmt.Errorf("maxFileSize cannot exceed 1GB")
	}
	if _, err := os.Stat(s.GetDirectory()); err != nil {
		return fmt.Errorf("cannot access work directory: %w", err)
	}
	return nil
}

// restore is an update that puts every member of f back
func restore(f fields.Field) fields.Update {
	return fields.Update{
		Name:     &f.Name,
		Kind:     &f.Kind,
		Page:     &f.Page,
		X:        &f.X,
		Y:        &f.Y,
		Width:    &f.Width,
		Height:   &f.Height,
		FontSize: &f.FontSize,
	}
}

// RelativePath returns path relative to the work directory when possible
func (s *Service) RelativePath(path string) string {
	if rel, err := filepath.Rel(s.GetDirectory(), path); err == nil {
		return rel
	}
	return path
}
