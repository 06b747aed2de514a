// Package loader reads configuration files into Go values.
//
// The format is chosen from the file extension: .toml files are decoded
// with go-toml, .yaml and .yml files with yaml.v3. Unknown fields are
// rejected in both formats.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Format is a configuration file syntax.
type Format int

const (
	// TOML is the default format.
	TOML Format = iota
	// YAML is accepted for .yaml and .yml files.
	YAML
)

// String returns "toml" or "yaml".
func (f Format) String() string {
	if f == YAML {
		return "yaml"
	}
	return "toml"
}

// FormatOf returns the format for path based on its extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return TOML, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// FileSystem is an abstraction for file system operations.
// This allows for easy testing with in-memory file systems.
type FileSystem interface {
	fs.FS
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// Open implements fs.FS.
func (OSFS) Open(name string) (fs.File, error) {
	return os.Open(name)
}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}

// Loader decodes files from a FileSystem.
type Loader struct {
	fs FileSystem
}

// New creates a loader on the OS file system.
func New() *Loader {
	return &Loader{fs: DefaultFS()}
}

// NewWithFS creates a loader on a custom file system.
func NewWithFS(fsys FileSystem) *Loader {
	return &Loader{fs: fsys}
}

// Load decodes the file at path into v.
func (l *Loader) Load(path string, v any) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := l.fs.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return Decode(format, path, data, v)
}

// Exists reports whether path names a regular file.
func (l *Loader) Exists(path string) bool {
	info, err := l.fs.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Decode decodes data in the given format into v. source names the data
// in errors.
func Decode(format Format, source string, data []byte, v any) error {
	if format == YAML {
		return decodeYAML(source, data, v)
	}
	return decodeTOML(source, data, v)
}

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
