package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

// ValidatePath validates a request path relative to a configured base URL.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 2048 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
//   - No backslashes
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 2048
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// typeNameRegex matches JSON:API member names usable as resource types.
// Letters and digits anywhere, '-', '_' and ' ' only between them.
var typeNameRegex = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9_ -]*[A-Za-z0-9])?$`)

// ValidateTypeName validates a JSON:API resource type name.
func ValidateTypeName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidSchema, "type name cannot be empty")
	}
	if len(name) > 256 {
		return New(ErrCodeInvalidSchema, "type name too long (max 256 characters)")
	}
	if !typeNameRegex.MatchString(name) {
		return New(ErrCodeInvalidSchema, "invalid type name: %q", name)
	}
	return nil
}
