// Package security confines the files the form service reads and writes to
// one configured work directory.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator resolves user supplied paths against the work directory
type PathValidator struct {
	configuredDirectory string
}

// NewPathValidator creates a new path validator for the given directory. The
// directory does not have to exist yet.
func NewPathValidator(configuredDirectory string) (*PathValidator, error) {
	if configuredDirectory == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}

	abs, err := filepath.Abs(configuredDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configured directory: %w", err)
	}

	return &PathValidator{
		configuredDirectory: filepath.Clean(abs),
	}, nil
}

// GetConfiguredDirectory returns the absolute work directory
func (v *PathValidator) GetConfiguredDirectory() string {
	return v.configuredDirectory
}

// NormalizePath makes path absolute (relative paths are taken from the work
// directory), strips NUL bytes and checks that it stays inside the directory
func (v *PathValidator) NormalizePath(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(v.configuredDirectory, path)
	}
	absPath := filepath.Clean(path)

	within, err := v.IsPathWithinDirectory(absPath)
	if err != nil {
		return "", fmt.Errorf("path validation failed: %w", err)
	}
	if !within {
		return "", fmt.Errorf("path is outside configured directory: %s", path)
	}

	return absPath, nil
}

// ValidateInput resolves a file to read. It must exist and be a regular file
// of at most maxSize bytes (zero disables the limit).
func (v *PathValidator) ValidateInput(path string, maxSize int64) (string, error) {
	absPath, err := v.NormalizePath(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("cannot access file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("path is not a regular file: %s", path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return "", fmt.Errorf("file size %d bytes exceeds maximum allowed size %d bytes", info.Size(), maxSize)
	}

	return absPath, nil
}

// ValidateOutput resolves a file to write. An empty path means suggested
// inside the work directory. The parent directory must already exist.
func (v *PathValidator) ValidateOutput(path, suggested string) (string, error) {
	if path == "" {
		path = suggested
	}

	absPath, err := v.NormalizePath(path)
	if err != nil {
		return "", err
	}

	if absPath == v.configuredDirectory {
		return "", fmt.Errorf("output path must name a file: %s", path)
	}
	if info, err := os.Stat(absPath); err == nil && info.IsDir() {
		return "", fmt.Errorf("output path is a directory: %s", path)
	}

	parent, err := os.Stat(filepath.Dir(absPath))
	if err != nil {
		return "", fmt.Errorf("cannot access output directory: %w", err)
	}
	if !parent.IsDir() {
		return "", fmt.Errorf("output parent is not a directory: %s", filepath.Dir(absPath))
	}

	return absPath, nil
}

// IsPathWithinDirectory reports whether path lies inside the work directory,
// both lexically and after resolving symlinks. For a path that does not
// exist yet the symlinks of its parent directory are resolved.
func (v *PathValidator) IsPathWithinDirectory(path string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}
	cleanPath := filepath.Clean(absPath)
	cleanDir := v.configuredDirectory

	realDir := cleanDir
	if resolved, err := filepath.EvalSymlinks(cleanDir); err == nil {
		realDir = resolved
	}

	realPath := cleanPath
	if resolved, err := filepath.EvalSymlinks(cleanPath); err == nil {
		realPath = resolved
	} else if resolvedParent, err := filepath.EvalSymlinks(filepath.Dir(cleanPath)); err == nil {
		realPath = filepath.Join(resolvedParent, filepath.Base(cleanPath))
	}

	pathOk := within(cleanPath, cleanDir) || within(cleanPath, realDir)
	realPathOk := within(realPath, cleanDir) || within(realPath, realDir)

	return pathOk && realPathOk, nil
}

func within(path, dir string) bool {
	if path == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(path, dir)
}
