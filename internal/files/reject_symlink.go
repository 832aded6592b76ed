package files

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// RejectSymlinkPath fails when path, or any existing directory above it, is a
// symlink or reparse point.
func RejectSymlinkPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	for _, p := range lineage(abs) {
		info, err := os.Lstat(p)
		if errors.Is(err, fs.ErrNotExist) {
			// Nothing below a missing component can exist yet.
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to access path: %w", err)
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return fmt.Errorf("refusing to write through symlink: %s (symlink detected at %s)", path, p)
		}
		reparse, err := isReparsePoint(p)
		if err != nil {
			return fmt.Errorf("failed to check reparse point: %w", err)
		}
		if reparse {
			return fmt.Errorf("refusing to write through symlink: %s (reparse point detected at %s)", path, p)
		}
	}
	return nil
}

// lineage lists p and its ancestors, outermost first. The filesystem root is
// left out.
func lineage(p string) []string {
	var chain []string
	for {
		parent := filepath.Dir(p)
		if parent == p {
			break
		}
		chain = append(chain, p)
		p = parent
	}
	slices.Reverse(chain)
	return chain
}
