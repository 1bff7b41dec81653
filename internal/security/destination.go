package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPathEscapes  = errors.New("path escapes destination")
	ErrAbsolutePath = errors.New("absolute paths are not allowed")
	ErrEmptyPath    = errors.New("empty path not allowed")
)

// Destination confines extraction writes to one directory using os.Root.
// Entry names come from archives and are untrusted.
type Destination struct {
	root *os.Root
	path string
}

// Open creates dir if needed and returns a Destination rooted at it.
func Open(dir string) (*Destination, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open destination: %w", err)
	}
	return &Destination{root: root, path: absPath}, nil
}

func (d *Destination) Close() error {
	if d.root != nil {
		return d.root.Close()
	}
	return nil
}

// Path is the absolute destination directory.
func (d *Destination) Path() string {
	return d.path
}

// CleanName validates an archive entry name and returns it in slash form.
// Backslashes are treated as separators so Windows-built archives cannot
// smuggle ".." past the check on Unix.
func CleanName(name string) (string, error) {
	if name == "" {
		return "", ErrEmptyPath
	}

	name = strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(name, "/") || filepath.IsAbs(filepath.FromSlash(name)) {
		return "", fmt.Errorf("%w: %s", ErrAbsolutePath, name)
	}

	platform := filepath.FromSlash(name)
	if !filepath.IsLocal(platform) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, name)
	}

	clean := filepath.Clean(platform)
	if clean == "." {
		return "", ErrEmptyPath
	}
	return filepath.ToSlash(clean), nil
}

// Target returns the on-disk path an entry name would be written to.
func (d *Destination) Target(name string) (string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(d.path, filepath.FromSlash(clean)), nil
}

// WriteFile writes an entry, creating parent directories inside the root.
func (d *Destination) WriteFile(name string, data []byte, perm os.FileMode) error {
	clean, err := CleanName(name)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	platform := filepath.FromSlash(clean)

	if dir := filepath.Dir(platform); dir != "." {
		if err := d.root.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return d.root.WriteFile(platform, data, perm)
}

// ReadFile reads an existing file under the root.
func (d *Destination) ReadFile(name string) ([]byte, error) {
	clean, err := CleanName(name)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	return d.root.ReadFile(filepath.FromSlash(clean))
}

// Exists reports whether an entry name is already present under the root.
func (d *Destination) Exists(name string) (bool, error) {
	clean, err := CleanName(name)
	if err != nil {
		return false, fmt.Errorf("invalid path: %w", err)
	}
	_, err = d.root.Stat(filepath.FromSlash(clean))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Remove deletes a file under the root. A missing file is not an error.
func (d *Destination) Remove(name string) error {
	clean, err := CleanName(name)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if err := d.root.Remove(filepath.FromSlash(clean)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
