package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-pdf-forms/internal/pdf"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/fields"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/session"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/wrapper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultLibrary     = string(wrapper.LibraryAuto)
	DefaultGridSize    = 10.0
	DefaultZoom        = 1.0

	// EnvPrefix is prepended to every environment variable
	EnvPrefix = "MCP_PDF_FORMS"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the form designer MCP server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Work directory every document and layout is read from and written to
	WorkDirectory string
	// ConfigFile is an optional YAML, TOML or JSON file read before flags
	ConfigFile string

	// Editor defaults
	Library     string
	GridSize    float64
	SnapEnabled bool
	Zoom        float64
	FontSize    float64
	MaxSessions int

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:          ModeStdio, // stdio is what MCP clients launch
		Host:          DefaultHost,
		Port:          DefaultPort,
		WorkDirectory: currentDir,
		Library:       DefaultLibrary,
		GridSize:      DefaultGridSize,
		SnapEnabled:   true,
		Zoom:          DefaultZoom,
		FontSize:      fields.DefaultFontSize,
		MaxSessions:   pdf.DefaultMaxSessions,
		Version:       "1.0.0",
		ServerName:    "mcp-pdf-forms",
		LogLevel:      DefaultLogLevel,
		MaxFileSize:   DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags, the environment and an optional
// config file and returns a validated configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	if err := readConfigFile(); err != nil {
		return nil, err
	}

	populateConfigFromViper(cfg)

	if cfg.WorkDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.WorkDirectory); err == nil {
			cfg.WorkDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.WorkDirectory)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("library", cfg.Library)
	viper.SetDefault("gridsize", cfg.GridSize)
	viper.SetDefault("snap", cfg.SnapEnabled)
	viper.SetDefault("zoom", cfg.Zoom)
	viper.SetDefault("fontsize", cfg.FontSize)
	viper.SetDefault("maxsessions", cfg.MaxSessions)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("config", "", "Config file (yaml, toml or json)")
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP/SSE server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.WorkDirectory, "Work directory for documents and layouts")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.String("library", cfg.Library, "PDF loader: auto, pdfcpu or ledongthuc")
	pflag.Float64("gridsize", cfg.GridSize, "Default snap grid in points")
	pflag.Bool("snap", cfg.SnapEnabled, "Snap placed fields to the grid")
	pflag.Float64("zoom", cfg.Zoom, "Default view zoom")
	pflag.Float64("fontsize", cfg.FontSize, "Default font size of text fields")
	pflag.Int("maxsessions", cfg.MaxSessions, "Maximum number of open documents")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, key := range []string{
		"mode", "host", "port", "dir", "loglevel", "maxfilesize",
		"library", "gridsize", "snap", "zoom", "fontsize", "maxsessions",
	} {
		_ = viper.BindPFlag(key, pflag.Lookup(key))
	}
}

// readConfigFile loads the file named by --config, if any
func readConfigFile() error {
	flag := pflag.Lookup("config")
	if flag == nil || flag.Value.String() == "" {
		return nil
	}
	viper.SetConfigFile(flag.Value.String())
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("cannot read config file: %w", err)
	}
	return nil
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP PDF Forms - A Model Context Protocol server for designing fillable PDF forms\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                         "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/forms                    "+
			"# stdio mode with custom directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --gridsize=5 --zoom=1.5                 # finer grid, larger view\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --host=0.0.0.0 --port=8081 # SSE server on all interfaces\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  %s_MODE         Server mode\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_HOST         Server host\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_PORT         Server port\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_DIR          Work directory\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_LOGLEVEL     Log level\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_MAXFILESIZE  Maximum file size\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_LIBRARY      PDF loader\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_GRIDSIZE     Snap grid\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_SNAP         Snap to grid\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_ZOOM         View zoom\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_FONTSIZE     Text field font size\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_MAXSESSIONS  Open document limit\n", EnvPrefix)
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.ConfigFile = viper.ConfigFileUsed()
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.WorkDirectory = viper.GetString("dir")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.Library = viper.GetString("library")
	cfg.GridSize = viper.GetFloat64("gridsize")
	cfg.SnapEnabled = viper.GetBool("snap")
	cfg.Zoom = viper.GetFloat64("zoom")
	cfg.FontSize = viper.GetFloat64("fontsize")
	cfg.MaxSessions = viper.GetInt("maxsessions")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Port only matters when serving over HTTP
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.WorkDirectory == "" {
		return errors.New("work directory cannot be empty")
	}

	// Create the work directory if it doesn't exist
	if _, err := os.Stat(c.WorkDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.WorkDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create work directory %s: %w", c.WorkDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access work directory %s: %w", c.WorkDirectory, err)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if _, err := wrapper.ParseLibraryType(c.Library); err != nil {
		return fmt.Errorf("invalid library: %s (must be one of: auto, pdfcpu, ledongthuc)", c.Library)
	}

	if c.GridSize <= 0 {
		return errors.New("grid size must be positive")
	}
	if c.Zoom <= 0 {
		return errors.New("zoom must be positive")
	}
	if c.FontSize <= 0 {
		return errors.New("font size must be positive")
	}
	if c.MaxSessions < 1 {
		return errors.New("max sessions must be at least 1")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// ServiceConfig returns the form service settings of this configuration
func (c *Config) ServiceConfig() pdf.ServiceConfig {
	opts := session.DefaultOptions()
	opts.Zoom = c.Zoom
	opts.GridSize = c.GridSize
	opts.SnapEnabled = c.SnapEnabled
	opts.DefaultFontSize = c.FontSize
	// an invalid name is caught by Validate; the service falls back to auto
	lib, _ := wrapper.ParseLibraryType(c.Library)

	return pdf.ServiceConfig{
		MaxFileSize: c.MaxFileSize,
		Directory:   c.WorkDirectory,
		Library:     lib,
		MaxSessions: c.MaxSessions,
		Session:     opts,
		DebugMode:   c.IsDebug(),
	}
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, WorkDirectory: %s, LogLevel: %s, MaxFileSize: %d, "+
		"Library: %s, GridSize: %g, Snap: %t, Zoom: %g, FontSize: %g, MaxSessions: %d}",
		c.Mode, c.Host, c.Port, c.WorkDirectory, c.LogLevel, c.MaxFileSize,
		c.Library, c.GridSize, c.SnapEnabled, c.Zoom, c.FontSize, c.MaxSessions)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
