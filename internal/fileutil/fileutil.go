package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeFilename strips directory components and replaces characters that are
// unsafe in filesystems or URLs. Callers comparing the result against the input
// can detect traversal attempts.
func SanitizeFilename(filename string) string {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return unsafeChars.ReplaceAllString(base, "_")
}

// UniqueFilename generates a collision-resistant filename with the given
// extension. The name is never derived from user input.
func UniqueFilename(extension string) string {
	extension = strings.ToLower(strings.TrimSpace(extension))
	if extension != "" && !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}
	return fmt.Sprintf("%s-%s%s", uuid.NewString(), time.Now().UTC().Format("20060102"), extension)
}

// EnsureDirectories creates every directory in the list, including parents.
func EnsureDirectories(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
