package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a3tai/mcp-pdf-forms/internal/pdf/wrapper"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mode != "stdio" {
		t.Errorf("Expected default mode to be 'stdio', got '%s'", cfg.Mode)
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("Expected default host to be '127.0.0.1', got '%s'", cfg.Host)
	}
	if cfg.Port != 8080 {
		t.Errorf("Expected default port to be 8080, got %d", cfg.Port)
	}
	if cfg.ServerName != "mcp-pdf-forms" {
		t.Errorf("Expected default server name to be 'mcp-pdf-forms', got '%s'", cfg.ServerName)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level to be 'info', got '%s'", cfg.LogLevel)
	}
	if cfg.MaxFileSize != 100*1024*1024 {
		t.Errorf("Expected default max file size to be 100MB, got %d", cfg.MaxFileSize)
	}
	if cfg.Library != "auto" {
		t.Errorf("Expected default library to be 'auto', got '%s'", cfg.Library)
	}
	if cfg.GridSize != 10 || !cfg.SnapEnabled || cfg.Zoom != 1 || cfg.FontSize != 12 {
		t.Errorf("Unexpected editor defaults: %s", cfg)
	}
	if cfg.MaxSessions != 16 {
		t.Errorf("Expected default max sessions to be 16, got %d", cfg.MaxSessions)
	}

	currentDir, _ := os.Getwd()
	if cfg.WorkDirectory != currentDir {
		t.Errorf("Expected default work directory to be '%s', got '%s'", currentDir, cfg.WorkDirectory)
	}
}

func TestConfigValidate(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr string
	}{
		{name: "valid config - stdio mode"},
		{name: "valid config - server mode", modify: func(c *Config) { c.Mode = ModeServer }},
		{name: "library is case insensitive", modify: func(c *Config) { c.Library = "PDFCPU" }},
		{name: "port ignored in stdio mode", modify: func(c *Config) { c.Port = 0 }},
		{name: "invalid mode", modify: func(c *Config) { c.Mode = "http" }, wantErr: "mode must be"},
		{name: "invalid port", modify: func(c *Config) { c.Mode = ModeServer; c.Port = 70000 }, wantErr: "port must be"},
		{name: "empty directory", modify: func(c *Config) { c.WorkDirectory = "" }, wantErr: "work directory cannot be empty"},
		{name: "zero max file size", modify: func(c *Config) { c.MaxFileSize = 0 }, wantErr: "maximum file size"},
		{name: "unknown library", modify: func(c *Config) { c.Library = "poppler" }, wantErr: "invalid library"},
		{name: "zero grid", modify: func(c *Config) { c.GridSize = 0 }, wantErr: "grid size"},
		{name: "negative zoom", modify: func(c *Config) { c.Zoom = -1 }, wantErr: "zoom"},
		{name: "zero font size", modify: func(c *Config) { c.FontSize = 0 }, wantErr: "font size"},
		{name: "no sessions", modify: func(c *Config) { c.MaxSessions = 0 }, wantErr: "max sessions"},
		{name: "invalid log level", modify: func(c *Config) { c.LogLevel = "trace" }, wantErr: "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.WorkDirectory = tempDir
			if tt.modify != nil {
				tt.modify(cfg)
			}

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidateDirectoryCreation(t *testing.T) {
	newDir := filepath.Join(t.TempDir(), "forms", "inbox")

	cfg := DefaultConfig()
	cfg.WorkDirectory = newDir
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	info, err := os.Stat(newDir)
	if err != nil {
		t.Fatalf("Expected work directory to be created: %v", err)
	}
	if !info.IsDir() {
		t.Error("Expected work directory to be a directory")
	}
}

func TestConfigServiceConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorkDirectory = "/srv/forms"
	cfg.Library = "Ledongthuc"
	cfg.GridSize = 25
	cfg.SnapEnabled = false
	cfg.Zoom = 1.5
	cfg.FontSize = 9
	cfg.MaxSessions = 4
	cfg.LogLevel = "debug"

	sc := cfg.ServiceConfig()
	if sc.Directory != "/srv/forms" || sc.MaxFileSize != cfg.MaxFileSize || sc.MaxSessions != 4 {
		t.Errorf("Unexpected service config: %+v", sc)
	}
	if sc.Library != wrapper.LibraryLedongthuc {
		t.Errorf("Expected library %q, got %q", wrapper.LibraryLedongthuc, sc.Library)
	}
	if sc.Session.GridSize != 25 || sc.Session.SnapEnabled || sc.Session.Zoom != 1.5 || sc.Session.DefaultFontSize != 9 {
		t.Errorf("Unexpected session options: %+v", sc.Session)
	}
	if !sc.DebugMode {
		t.Error("Expected debug mode for log level debug")
	}
}

func TestConfigAddress(t *testing.T) {
	cfg := &Config{Host: "localhost", Port: 9090}
	if got := cfg.Address(); got != "localhost:9090" {
		t.Errorf("Address() = %s, want localhost:9090", got)
	}
}

func TestConfigModes(t *testing.T) {
	tests := []struct {
		mode       string
		wantServer bool
		wantStdio  bool
		wantDebug  bool
		logLevel   string
	}{
		{mode: ModeStdio, wantStdio: true, logLevel: "info"},
		{mode: ModeServer, wantServer: true, logLevel: "debug", wantDebug: true},
		{mode: "invalid", logLevel: "warn"},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			cfg := &Config{Mode: tt.mode, LogLevel: tt.logLevel}
			if cfg.IsServerMode() != tt.wantServer {
				t.Errorf("IsServerMode() = %v, want %v", cfg.IsServerMode(), tt.wantServer)
			}
			if cfg.IsStdioMode() != tt.wantStdio {
				t.Errorf("IsStdioMode() = %v, want %v", cfg.IsStdioMode(), tt.wantStdio)
			}
			if cfg.IsDebug() != tt.wantDebug {
				t.Errorf("IsDebug() = %v, want %v", cfg.IsDebug(), tt.wantDebug)
			}
		})
	}
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorkDirectory = "/forms"

	str := cfg.String()
	for _, want := range []string{"Mode: stdio", "WorkDirectory: /forms", "GridSize: 10", "Snap: true", "MaxSessions: 16"} {
		if !strings.Contains(str, want) {
			t.Errorf("String() = %s, missing %q", str, want)
		}
	}
}
