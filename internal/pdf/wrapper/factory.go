package wrapper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// LoaderFactory creates document loaders by library name
type LoaderFactory struct {
	config FactoryConfig
}

// FactoryConfig contains configuration options for the factory
type FactoryConfig struct {
	// PreferredLibrary is used when no library is requested explicitly
	PreferredLibrary LibraryType `json:"preferred_library"`

	// MaxFileSize rejects larger documents before any parsing (in bytes)
	MaxFileSize int64 `json:"max_file_size"`

	// DebugMode enables debug logging for library operations
	DebugMode bool `json:"debug_mode"`
}

// NewLoaderFactory creates a new factory with default configuration
func NewLoaderFactory() *LoaderFactory {
	return &LoaderFactory{
		config: FactoryConfig{
			PreferredLibrary: LibraryAuto,
			MaxFileSize:      100 * 1024 * 1024, // 100MB
			DebugMode:        false,
		},
	}
}

// NewLoaderFactoryWithConfig creates a factory with custom configuration
func NewLoaderFactoryWithConfig(config FactoryConfig) *LoaderFactory {
	if config.PreferredLibrary == "" {
		config.PreferredLibrary = LibraryAuto
	}
	return &LoaderFactory{config: config}
}

// Create instantiates a loader of the specified type
func (f *LoaderFactory) Create(libType LibraryType) (DocumentLoader, error) {
	switch libType {
	case LibraryPDFCPU:
		return NewPDFCPULoader(f.config), nil
	case LibraryLedongthuc:
		return NewLedongthucLoader(f.config), nil
	case LibraryAuto:
		return &AutoLoader{
			config: f.config,
			chain:  []DocumentLoader{NewPDFCPULoader(f.config), NewLedongthucLoader(f.config)},
		}, nil
	default:
		return nil, &WrapperError{
			Library: libType,
			Op:      "create",
			Err:     fmt.Errorf("%w: %s", ErrUnsupportedLibrary.Err, libType),
		}
	}
}

// CreateDefault instantiates the preferred loader
func (f *LoaderFactory) CreateDefault() (DocumentLoader, error) {
	return f.Create(f.config.PreferredLibrary)
}

// Load checks the size limit and loads data with the preferred loader
func (f *LoaderFactory) Load(ctx context.Context, data []byte) (*DocumentInfo, error) {
	if f.config.MaxFileSize > 0 && int64(len(data)) > f.config.MaxFileSize {
		return nil, &WrapperError{
			Library: f.config.PreferredLibrary,
			Op:      "load",
			Err:     fmt.Errorf("document size %d exceeds maximum %d", len(data), f.config.MaxFileSize),
		}
	}

	loader, err := f.CreateDefault()
	if err != nil {
		return nil, err
	}
	return loader.Load(ctx, data)
}

// GetConfig returns the current factory configuration
func (f *LoaderFactory) GetConfig() FactoryConfig {
	return f.config
}

// SupportedLibraries returns all library names Create accepts
func SupportedLibraries() []LibraryType {
	return []LibraryType{LibraryAuto, LibraryPDFCPU, LibraryLedongthuc}
}

// ParseLibraryType converts a case-insensitive name into a LibraryType
func ParseLibraryType(name string) (LibraryType, error) {
	lib := LibraryType(strings.ToLower(strings.TrimSpace(name)))
	for _, supported := range SupportedLibraries() {
		if lib == supported {
			return lib, nil
		}
	}
	return "", &WrapperError{
		Library: lib,
		Op:      "validate",
		Err:     fmt.Errorf("%w: %s", ErrUnsupportedLibrary.Err, name),
	}
}

// AutoLoader tries each loader in turn and returns the first success
type AutoLoader struct {
	config FactoryConfig
	chain  []DocumentLoader
}

// GetLibraryType returns the library type
func (a *AutoLoader) GetLibraryType() LibraryType {
	return LibraryAuto
}

// Load returns the first successful result. When every loader fails the
// errors are joined, first loader first.
func (a *AutoLoader) Load(ctx context.Context, data []byte) (*DocumentInfo, error) {
	var errs []error
	for _, loader := range a.chain {
		info, err := loader.Load(ctx, data)
		if err == nil {
			return info, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if a.config.DebugMode {
			log.Printf("%s failed to load document, trying next library: %v", loader.GetLibraryType(), err)
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}
