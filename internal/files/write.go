// Package files writes exported videos to disk without clobbering or
// following links.
package files

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/oukeidos/photomotion/internal/logger"
)

// AtomicWrite writes data to a temp file in the destination directory and
// renames it into place.
func AtomicWrite(path string, data []byte, perms os.FileMode) (err error) {
	if err := RejectSymlinkPath(path); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".photomotion-*.part")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(perms); err != nil {
		return fmt.Errorf("failed to set temp file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := replaceFile(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move video into place: %w", err)
	}
	if err := syncDir(dir); err != nil {
		logger.Warn("Directory fsync failed", "path", dir, "error", err)
	}
	return nil
}

// SaveExport writes data as name inside dir, picking a free name when one
// already exists. It returns the final path.
func SaveExport(dir, name string, data []byte) (string, error) {
	if dir == "" {
		dir = "."
	}
	if filepath.Base(name) != name || name == "." || name == ".." {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path, renamed, err := SafePath(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	if renamed {
		logger.Info("Output exists, writing to a new name", "path", path)
	}
	if err := AtomicWrite(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
