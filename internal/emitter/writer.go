// Package emitter writes generated files under an output directory. Every
// file is written to a temporary sibling first and renamed into place, so a
// failed run never leaves a truncated file behind.
package emitter

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const fileMode os.FileMode = 0o644

// PlannedFile describes a file the writer wrote, or would write in dry-run
// mode.
type PlannedFile struct {
	RelPath string
	Path    string
	Size    int
}

// Writer owns one output directory.
type Writer struct {
	root    string
	dryRun  bool
	logger  *zap.Logger
	planned []PlannedFile
}

type Option func(*Writer)

// WithDryRun makes the writer record files without touching the disk.
func WithDryRun(dryRun bool) Option { return func(w *Writer) { w.dryRun = dryRun } }

func WithLogger(l *zap.Logger) Option { return func(w *Writer) { w.logger = l } }

// New returns a writer rooted at outDir, resolved to an absolute path.
func New(outDir string, opts ...Option) (*Writer, error) {
	if outDir == "" {
		return nil, errors.New("emitter: output directory is required")
	}
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return nil, fmt.Errorf("resolve out dir: %w", err)
	}
	w := &Writer{root: abs, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named("emitter")
	return w, nil
}

func (w *Writer) Root() string { return w.root }

func (w *Writer) DryRun() bool { return w.dryRun }

// Planned returns the files handled so far, in write order.
func (w *Writer) Planned() []PlannedFile {
	return append([]PlannedFile(nil), w.planned...)
}

// Write stores content at rel, a slash-separated path inside the root, and
// returns the absolute path of the file.
func (w *Writer) Write(rel string, content []byte) (string, error) {
	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("emitter: path %q escapes the output directory", rel)
	}
	full := filepath.Join(w.root, local)
	if !w.dryRun {
		if err := writeFileAtomic(full, content); err != nil {
			return "", fmt.Errorf("write %s: %w", rel, err)
		}
	}
	w.logger.Debug("file", zap.String("path", full), zap.Int("bytes", len(content)), zap.Bool("dryRun", w.dryRun))
	w.planned = append(w.planned, PlannedFile{RelPath: filepath.ToSlash(local), Path: full, Size: len(content)})
	return full, nil
}

func writeFileAtomic(fullPath string, content []byte) error {
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure target directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-eps-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
		}
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Chmod(fileMode); err != nil {
		return fmt.Errorf("set file permissions: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmpFile = nil

	if err := os.Rename(tmpPath, fullPath); err != nil {
		return fmt.Errorf("atomic rename to %s: %w", fullPath, err)
	}
	success = true
	return nil
}

// RemoveDir deletes dir recursively. It reports false when dir did not
// exist.
func RemoveDir(dir string) (bool, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return false, fmt.Errorf("resolve dir: %w", err)
	}
	st, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !st.IsDir() {
		return false, fmt.Errorf("emitter: %s is not a directory", abs)
	}
	if err := os.RemoveAll(abs); err != nil {
		return false, fmt.Errorf("remove %s: %w", abs, err)
	}
	return true, nil
}
