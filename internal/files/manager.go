package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// tempPattern names the per-run temporary directories
const tempPattern = "seasonal-*"

// Workspace is the directory specification documents and output tables
// are exchanged through.
type Workspace struct {
	dir       string
	temporary bool
	released  bool
}

// Acquire returns a workspace rooted at outputDir, creating it if needed.
// When outputDir is empty a temporary directory is created under root
// (os.TempDir when root is empty) and owned by the workspace.
func Acquire(outputDir, root string) (*Workspace, error) {
	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
		}
		slog.Debug("Using caller output directory", slog.String("dir", outputDir))
		return &Workspace{dir: outputDir}, nil
	}

	if root != "" {
		if err := os.MkdirAll(root, 0755); err != nil {
			return nil, fmt.Errorf("failed to create work root %s: %w", root, err)
		}
	}

	dir, err := os.MkdirTemp(root, tempPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	slog.Debug("Created temp work directory", slog.String("dir", dir))
	return &Workspace{dir: dir, temporary: true}, nil
}

// Dir returns the workspace directory
func (w *Workspace) Dir() string {
	return w.dir
}

// Temporary reports whether Release deletes the directory
func (w *Workspace) Temporary() bool {
	return w.temporary
}

// Path joins name onto the workspace directory
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// WriteFile creates or truncates name inside the workspace
func (w *Workspace) WriteFile(name string, data []byte) (string, error) {
	path := w.Path(name)

	slog.Debug("Writing file",
		slog.String("path", path),
		slog.Int("size_bytes", len(data)))

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// ListFiles returns the names of regular files in the workspace, sorted.
// A non-empty prefix filters the result.
func (w *Workspace) ListFiles(prefix string) ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Release removes a temporary workspace and its contents. Caller-supplied
// directories are left untouched. Calling Release more than once is a no-op.
func (w *Workspace) Release() error {
	if w == nil || w.released {
		return nil
	}
	w.released = true

	if !w.temporary {
		return nil
	}

	slog.Debug("Removing temp work directory", slog.String("dir", w.dir))
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", w.dir, err)
	}
	return nil
}
