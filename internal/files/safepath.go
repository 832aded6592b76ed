package files

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// SafePath returns a path that does not exist yet. Collisions get _1.._9
// appended, then a time-ordered UUID. The bool reports whether path changed.
func SafePath(path string) (string, bool, error) {
	if path == "" {
		return "", false, fmt.Errorf("path is empty")
	}
	if _, err := os.Stat(path); err == nil {
		ext := filepath.Ext(path)
		base := strings.TrimSuffix(path, ext)

		for i := 1; i <= 9; i++ {
			candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
			if _, err := os.Stat(candidate); os.IsNotExist(err) {
				return candidate, true, nil
			} else if err != nil {
				return "", false, err
			}
		}

		suffix := uuid.NewString()
		if u, err := uuid.NewV7(); err == nil {
			suffix = u.String()
		}
		return fmt.Sprintf("%s_%s%s", base, suffix, ext), true, nil
	} else if os.IsNotExist(err) {
		return path, false, nil
	} else {
		return "", false, err
	}
}
