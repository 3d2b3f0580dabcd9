package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// loadWithArgs runs LoadFromFlags against a fresh flag set and viper
// instance with os.Args set to args
func loadWithArgs(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	originalArgs := os.Args
	t.Cleanup(func() {
		os.Args = originalArgs
		resetFlags()
	})

	os.Args = append([]string{"mcp-pdf-forms"}, args...)
	resetFlags()
	return LoadFromFlags()
}

func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	viper.Reset()
}

func TestLoadFromFlags_DefaultConfig(t *testing.T) {
	cfg, err := loadWithArgs(t)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "stdio" || cfg.Host != "127.0.0.1" || cfg.Port != 8080 {
		t.Errorf("Unexpected server defaults: %s", cfg)
	}
	if cfg.LogLevel != "info" || cfg.MaxFileSize != 100*1024*1024 {
		t.Errorf("Unexpected application defaults: %s", cfg)
	}
	if cfg.Library != "auto" || cfg.GridSize != 10 || !cfg.SnapEnabled || cfg.Zoom != 1 || cfg.FontSize != 12 {
		t.Errorf("Unexpected editor defaults: %s", cfg)
	}
	if !filepath.IsAbs(cfg.WorkDirectory) {
		t.Errorf("WorkDirectory %q is not absolute", cfg.WorkDirectory)
	}
	if cfg.ConfigFile != "" {
		t.Errorf("ConfigFile = %q, want empty", cfg.ConfigFile)
	}
}

func TestLoadFromFlags_ValidFlags(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "server mode with custom host and port",
			args: []string{"--mode=server", "--host=0.0.0.0", "--port=9090"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Address() != "0.0.0.0:9090" || !cfg.IsServerMode() {
					t.Errorf("Unexpected server settings: %s", cfg)
				}
			},
		},
		{
			name: "debug logging",
			args: []string{"--loglevel=debug"},
			check: func(t *testing.T, cfg *Config) {
				if !cfg.IsDebug() {
					t.Errorf("IsDebug() = false for %s", cfg)
				}
			},
		},
		{
			name: "editor settings",
			args: []string{"--gridsize=7.5", "--snap=false", "--zoom=2", "--fontsize=9", "--library=pdfcpu", "--maxsessions=3"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.GridSize != 7.5 || cfg.SnapEnabled || cfg.Zoom != 2 || cfg.FontSize != 9 {
					t.Errorf("Unexpected editor settings: %s", cfg)
				}
				if cfg.Library != "pdfcpu" || cfg.MaxSessions != 3 {
					t.Errorf("Unexpected service settings: %s", cfg)
				}
			},
		},
		{
			name: "custom max file size",
			args: []string{"--maxfilesize=52428800"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.MaxFileSize != 52428800 {
					t.Errorf("MaxFileSize = %d, want 52428800", cfg.MaxFileSize)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadWithArgs(t, append(tt.args, "--dir="+tempDir)...)
			if err != nil {
				t.Fatalf("LoadFromFlags() unexpected error: %v", err)
			}
			if cfg.WorkDirectory != tempDir {
				t.Errorf("WorkDirectory = %q, want %q", cfg.WorkDirectory, tempDir)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromFlags_EnvironmentVariables(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("MCP_PDF_FORMS_MODE", "server")
	t.Setenv("MCP_PDF_FORMS_PORT", "3000")
	t.Setenv("MCP_PDF_FORMS_DIR", tempDir)
	t.Setenv("MCP_PDF_FORMS_LOGLEVEL", "warn")
	t.Setenv("MCP_PDF_FORMS_GRIDSIZE", "25")
	t.Setenv("MCP_PDF_FORMS_SNAP", "false")

	cfg, err := loadWithArgs(t)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "server" || cfg.Port != 3000 || cfg.LogLevel != "warn" {
		t.Errorf("Unexpected server settings from environment: %s", cfg)
	}
	if cfg.WorkDirectory != tempDir {
		t.Errorf("WorkDirectory = %q, want %q", cfg.WorkDirectory, tempDir)
	}
	if cfg.GridSize != 25 || cfg.SnapEnabled {
		t.Errorf("Unexpected editor settings from environment: %s", cfg)
	}
}

func TestLoadFromFlags_FlagOverridesEnvironment(t *testing.T) {
	t.Setenv("MCP_PDF_FORMS_MODE", "server")
	t.Setenv("MCP_PDF_FORMS_ZOOM", "2")

	cfg, err := loadWithArgs(t, "--mode=stdio", "--zoom=1.5", "--dir="+t.TempDir())
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}
	if cfg.Mode != "stdio" {
		t.Errorf("Mode = %v, want stdio (should override env)", cfg.Mode)
	}
	if cfg.Zoom != 1.5 {
		t.Errorf("Zoom = %v, want 1.5 (should override env)", cfg.Zoom)
	}
}

func TestLoadFromFlags_ConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "forms.yaml")
	content := "gridsize: 5\nlibrary: ledongthuc\nfontsize: 10\nport: 9000\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := loadWithArgs(t, "--config="+path, "--dir="+tempDir, "--port=9100")
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}
	if cfg.GridSize != 5 || cfg.Library != "ledongthuc" || cfg.FontSize != 10 {
		t.Errorf("Unexpected settings from config file: %s", cfg)
	}
	if cfg.Port != 9100 {
		t.Errorf("Port = %d, want 9100 (flag should override file)", cfg.Port)
	}
}

func TestLoadFromFlags_Errors(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "invalid mode", args: []string{"--mode=invalid"}, wantErr: "mode must be either 'stdio' or 'server'"},
		{name: "invalid port", args: []string{"--mode=server", "--port=99999"}, wantErr: "port must be between 1 and 65535"},
		{name: "invalid log level", args: []string{"--loglevel=trace"}, wantErr: "invalid log level"},
		{name: "invalid library", args: []string{"--library=mupdf"}, wantErr: "invalid library"},
		{name: "invalid grid", args: []string{"--gridsize=0"}, wantErr: "grid size must be positive"},
		{name: "missing config file", args: []string{"--config=" + filepath.Join(tempDir, "none.yaml")}, wantErr: "cannot read config file"},
		{name: "version", args: []string{"--version"}, wantErr: "version requested"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadWithArgs(t, append(tt.args, "--dir="+tempDir)...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadFromFlags() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
