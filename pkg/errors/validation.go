package errors

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// maxNameLength bounds design and component names.
const maxNameLength = 128

// ValidateDesignName validates a design name for safety and correctness.
// Design names double as store keys and default file basenames, so the rules
// reject anything that could escape a directory:
//   - No empty names
//   - No control characters or null bytes
//   - No path separators or traversal sequences
//   - Maximum length of 128 characters
func ValidateDesignName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "design name cannot be empty")
	}
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidName, "design name too long (max %d characters)", maxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "design name contains invalid control characters")
		}
	}
	for _, pattern := range []string{"..", "/", "\\"} {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidName, "design name contains invalid characters: %q", pattern)
		}
	}
	return nil
}

// componentNameRegex matches identifiers usable as component and section names.
var componentNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// ValidateComponentName validates a component or section name.
func ValidateComponentName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "component name cannot be empty")
	}
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidName, "component name too long (max %d characters)", maxNameLength)
	}
	if !componentNameRegex.MatchString(name) {
		return New(ErrCodeInvalidName, "invalid component name: %q", name)
	}
	return nil
}

// ValidateFilePath validates a local file path argument.
//
// Validation rules:
//   - Path cannot be empty
//   - No null bytes or control characters
//   - When ext is non-empty, the path must carry that extension (case-insensitive)
func ValidateFilePath(path, ext string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	if ext != "" && !strings.EqualFold(filepath.Ext(path), ext) {
		return New(ErrCodeInvalidPath, "path %q must have extension %s", path, ext)
	}
	return nil
}
