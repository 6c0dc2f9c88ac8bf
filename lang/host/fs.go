package host

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FSCopyRecursive copies src to dst. A directory source is walked and
// mirrored at dst; a regular file is copied with its mode preserved.
// Grounded on original_source/src/builtin.rs's copy_all, the only one
// of the coexisting Rust copy implementations that handles
// directories (see DESIGN.md's Open Question resolution on `copy`).
func (h *DefaultHost) FSCopyRecursive(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("host: stat %s: %w", src, err)
	}
	if !info.IsDir() {
		return copyFile(src, dst, info.Mode())
	}
	return filepath.Walk(src, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if fi.IsDir() {
			return os.MkdirAll(target, fi.Mode())
		}
		return copyFile(path, target, fi.Mode())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("host: mkdir %s: %w", filepath.Dir(dst), err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("host: open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return fmt.Errorf("host: create %s: %w", dst, err)
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("host: copy %s to %s: %w", src, dst, err)
	}
	return nil
}

// FSMoveRecursive copies src to dst and then removes src, matching
// builtin.rs's move_file = copy + remove.
func (h *DefaultHost) FSMoveRecursive(src, dst string) error {
	if err := h.FSCopyRecursive(src, dst); err != nil {
		return err
	}
	if err := os.RemoveAll(src); err != nil {
		return fmt.Errorf("host: remove %s: %w", src, err)
	}
	return nil
}

func (h *DefaultHost) FSRead(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("host: read %s: %w", path, err)
	}
	return data, nil
}

func (h *DefaultHost) FSWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("host: mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("host: write %s: %w", path, err)
	}
	return nil
}

func (h *DefaultHost) FSExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (h *DefaultHost) FSMkdirAll(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("host: mkdir %s: %w", path, err)
	}
	return nil
}

func (h *DefaultHost) HomeDir() (string, error) {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("host: home dir: %w", err)
	}
	return dir, nil
}
