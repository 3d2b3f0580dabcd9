package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/a3tai/mcp-pdf-forms/internal/descriptions"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/fields"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/geometry"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/wrapper"
)

const (
	directoryCacheTTL = 30 * time.Second
	scanMaxDepth      = 3
	scanFileLimit     = 100
	scanTimeLimit     = 2 * time.Second
)

// DirectoryCache keeps directory listings for a short time
type DirectoryCache struct {
	entries map[string]*CacheEntry
	ttl     time.Duration
	mu      sync.RWMutex
}

// CacheEntry is one cached directory listing
type CacheEntry struct {
	files      []FileInfo
	lastUpdate time.Time
}

// NewDirectoryCache creates a new directory cache with specified TTL
func NewDirectoryCache(ttl time.Duration) *DirectoryCache {
	return &DirectoryCache{
		entries: make(map[string]*CacheEntry),
		ttl:     ttl,
	}
}

// Get returns the cached listing of path if it has not expired
func (c *DirectoryCache) Get(path string) ([]FileInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[path]
	if !exists || time.Since(entry.lastUpdate) > c.ttl {
		return nil, false
	}
	return entry.files, true
}

// Set stores the listing of path
func (c *DirectoryCache) Set(path string, files []FileInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[path] = &CacheEntry{files: files, lastUpdate: time.Now()}
}

// Invalidate drops every cached listing
func (c *DirectoryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*CacheEntry)
}

// DirectoryScanner lists the documents and layouts under a directory with
// depth, count and time limits
type DirectoryScanner struct {
	maxDepth  int
	fileLimit int
	timeLimit time.Duration
}

// ScanResult is the outcome of one directory scan
type ScanResult struct {
	Files     []FileInfo
	Truncated bool
}

// NewDirectoryScanner creates a scanner with the given limits
func NewDirectoryScanner(maxDepth, fileLimit int, timeLimit time.Duration) *DirectoryScanner {
	return &DirectoryScanner{
		maxDepth:  maxDepth,
		fileLimit: fileLimit,
		timeLimit: timeLimit,
	}
}

// Scan walks root and collects .pdf and .json files. Hidden entries and
// symlinks are skipped.
func (s *DirectoryScanner) Scan(ctx context.Context, root string) (*ScanResult, error) {
	start := time.Now()
	result := &ScanResult{}

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// unreadable entries are skipped
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") || d.Type()&os.ModeSymlink != 0 {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			rel, _ := filepath.Rel(root, path)
			if s.maxDepth > 0 && strings.Count(rel, string(filepath.Separator))+1 >= s.maxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		if !isListedFile(d.Name()) {
			return nil
		}
		if (s.fileLimit > 0 && len(result.Files) >= s.fileLimit) ||
			(s.timeLimit > 0 && time.Since(start) > s.timeLimit) {
			result.Truncated = true
			return filepath.SkipAll
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		result.Files = append(result.Files, FileInfo{
			Path:         path,
			Name:         d.Name(),
			Size:         info.Size(),
			ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
		})
		return nil
	})

	sort.Slice(result.Files, func(i, j int) bool { return result.Files[i].Path < result.Files[j].Path })
	return result, err
}

func isListedFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".json":
		return true
	}
	return false
}

// ServerInfo answers form_server_info requests
type ServerInfo struct {
	cache   *DirectoryCache
	scanner *DirectoryScanner
	service *Service
}

// NewServerInfo creates the server info handler of a service
func NewServerInfo(service *Service) *ServerInfo {
	return &ServerInfo{
		cache:   NewDirectoryCache(directoryCacheTTL),
		scanner: NewDirectoryScanner(scanMaxDepth, scanFileLimit, scanTimeLimit),
		service: service,
	}
}

// GetServerInfo describes the server, its tools and the work directory
func (p *ServerInfo) GetServerInfo(ctx context.Context, serverName, version string) (*ServerInfoResult, error) {
	dir := p.service.GetDirectory()

	files, ok := p.cache.Get(dir)
	if !ok {
		scan, err := p.scanner.Scan(ctx, dir)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
		}
		files = scan.Files
		p.cache.Set(dir, files)
	}
	if files == nil {
		files = []FileInfo{}
	}

	return &ServerInfoResult{
		ServerName:        serverName,
		Version:           version,
		WorkDirectory:     dir,
		MaxFileSize:       p.service.GetMaxFileSize(),
		Library:           p.service.config.Library,
		Libraries:         wrapper.SupportedLibraries(),
		FieldKinds:        fields.Kinds,
		ZoomLevels:        geometry.ZoomLevels,
		GridSizes:         geometry.GridSizes,
		OpenSessions:      p.service.openSessions(),
		AvailableTools:    p.getAvailableTools(),
		DirectoryContents: files,
		UsageGuidance:     p.getUsageGuidance(),
	}, nil
}

// InvalidateCache forgets the cached directory listing, called after the
// service writes a file
func (p *ServerInfo) InvalidateCache() {
	p.cache.Invalidate()
}

func (p *ServerInfo) getAvailableTools() []ToolInfo {
	sessionParam := "session_id (required): id returned by form_open_document"
	return []ToolInfo{
		{
			Name:        "form_open_document",
			Description: descriptions.GetToolDescription("form_open_document"),
			Usage:       "Start here. Opens a PDF and returns the session id, page sizes and view.",
			Parameters:  "path (required): PDF in the work directory, library (optional): auto, pdfcpu or ledongthuc",
		},
		{
			Name:        "form_place_field",
			Description: descriptions.GetToolDescription("form_place_field"),
			Usage:       "Place a field where a user clicked on the rendered page.",
			Parameters: sessionParam + ", pointer_x/pointer_y (required): position in rendered pixels, " +
				"kind (optional): text or checkbox, name, page, width, height, font_size (optional)",
		},
		{
			Name:        "form_add_field",
			Description: descriptions.GetToolDescription("form_add_field"),
			Usage:       "Add a field at exact PDF coordinates (points, bottom-left origin).",
			Parameters:  sessionParam + ", name, kind, page, x, y (required), width, height, font_size (optional)",
		},
		{
			Name:        "form_update_field",
			Description: descriptions.GetToolDescription("form_update_field"),
			Usage:       "Rename, resize, retype or move a field.",
			Parameters: sessionParam + ", field_id (required), name, kind, page, x, y, width, height, font_size, " +
				"pointer_x/pointer_y (optional)",
		},
		{
			Name:        "form_remove_field",
			Description: descriptions.GetToolDescription("form_remove_field"),
			Usage:       "Delete one field, or every field with all=true.",
			Parameters:  sessionParam + ", field_id (optional), all (optional)",
		},
		{
			Name:        "form_list_fields",
			Description: descriptions.GetToolDescription("form_list_fields"),
			Usage:       "Review the current layout in placement order.",
			Parameters:  sessionParam,
		},
		{
			Name:        "form_set_view",
			Description: descriptions.GetToolDescription("form_set_view"),
			Usage:       "Change zoom, grid, snapping or the current page.",
			Parameters:  sessionParam + ", zoom, grid_size, snap, page (optional)",
		},
		{
			Name:        "form_export_json",
			Description: descriptions.GetToolDescription("form_export_json"),
			Usage:       "Save the layout so it can be reloaded or applied to another copy of the document.",
			Parameters:  sessionParam + ", output_path (optional): defaults to <document>_fields.json",
		},
		{
			Name:        "form_import_json",
			Description: descriptions.GetToolDescription("form_import_json"),
			Usage:       "Load a saved layout into a session. Entries that do not fit are reported and skipped.",
			Parameters:  sessionParam + ", path or data (one required)",
		},
		{
			Name:        "form_synthesize",
			Description: descriptions.GetToolDescription("form_synthesize"),
			Usage:       "Write the fillable PDF once the layout is final.",
			Parameters:  sessionParam + ", output_path (optional): defaults to <document>_form.pdf",
		},
		{
			Name:        "form_inspect_pdf",
			Description: descriptions.GetToolDescription("form_inspect_pdf"),
			Usage:       "Check the form fields of any PDF, for example the output of form_synthesize.",
			Parameters:  "path (required): PDF in the work directory",
		},
		{
			Name:        "form_close_session",
			Description: descriptions.GetToolDescription("form_close_session"),
			Usage:       "Discard a session and its unsaved fields.",
			Parameters:  sessionParam,
		},
		{
			Name:        "form_server_info",
			Description: descriptions.GetToolDescription("form_server_info"),
			Usage:       "Get server capabilities and the documents in the work directory.",
			Parameters:  "No parameters required",
		},
	}
}

func (p *ServerInfo) getUsageGuidance() string {
	maxFileSizeMB := p.service.GetMaxFileSize() / (1024 * 1024)

	return fmt.Sprintf(`PDF Form Designer Usage Guide:

1. OPEN A DOCUMENT:
   - Use 'form_server_info' to see the PDFs and layouts in the work directory
   - Use 'form_open_document' to start a session; keep the returned session_id

2. PLACE FIELDS:
   - Use 'form_place_field' with the pixel position a user clicked on the page
     rendered at the session zoom. Positions snap to the grid when snapping is on.
   - Use 'form_add_field' when you already know PDF coordinates
     (points, origin at the bottom-left corner of the page)
   - Use 'form_set_view' to change zoom (%s), grid (%s) or the current page

3. REVIEW AND ADJUST:
   - Use 'form_list_fields' to see the layout
   - Use 'form_update_field' to rename, resize or move a field
   - Use 'form_remove_field' to delete a field or clear the page

4. SAVE AND BAKE:
   - Use 'form_export_json' to save the layout, 'form_import_json' to restore it
   - Use 'form_synthesize' to write the fillable PDF
   - Use 'form_inspect_pdf' on the result to verify the fields

IMPORTANT NOTES:
- Field names must be unique to be filled independently; duplicates are reported
- Field kinds: %s
- Files are read from and written to the work directory only
- The server can handle files up to %dMB
- Sessions live in memory; export the layout before the server stops`,
		joinFloats(geometry.ZoomLevels), joinFloats(geometry.GridSizes), joinKinds(fields.Kinds), maxFileSizeMB)
}

func joinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return strings.Join(parts, ", ")
}

func joinKinds(kinds []fields.Kind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}
