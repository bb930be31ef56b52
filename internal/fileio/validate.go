package fileio

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePath ensures path resolves to somewhere under workDir, rejecting
// absolute escapes and ".." traversal, following the teacher's
// ValidateWorkspaceFilePath check against /workspace.
func ValidatePath(workDir, path string) error {
	if path == "" {
		return fmt.Errorf("path is required")
	}
	cleaned := path
	if !filepath.IsAbs(cleaned) {
		cleaned = filepath.Join(workDir, cleaned)
	}
	cleaned = filepath.Clean(cleaned)
	if cleaned != workDir && !strings.HasPrefix(cleaned, workDir+"/") {
		return fmt.Errorf("path must be under %s", workDir)
	}
	return nil
}
