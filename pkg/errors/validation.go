package errors

import (
	"strings"
	"unicode"
)

// ValidateVariableName validates a variable (column) name.
//
// The rules are conservative because names end up in DOT labels, TOML
// knowledge files and cache keys:
//   - No empty names
//   - No control characters
//   - No double quotes
//   - Maximum length of 256 characters
func ValidateVariableName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidData, "variable name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidData, "variable name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidData, "variable name %q contains control characters", name)
		}
	}

	if strings.ContainsRune(name, '"') {
		return New(ErrCodeInvalidData, "variable name %q contains a double quote", name)
	}

	return nil
}

// ValidateVariableNames validates every name and rejects duplicates.
func ValidateVariableNames(names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if err := ValidateVariableName(n); err != nil {
			return err
		}
		if seen[n] {
			return New(ErrCodeInvalidData, "duplicate variable name %q", n)
		}
		seen[n] = true
	}
	return nil
}

// ValidatePath validates a user-supplied file path.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateRunID validates a run identifier supplied through the CLI or API.
// Run IDs are UUID strings; anything that could escape a directory is rejected.
func ValidateRunID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "run id cannot be empty")
	}
	if len(id) > 64 {
		return New(ErrCodeInvalidInput, "run id too long")
	}
	for _, r := range id {
		if !(r == '-' || unicode.IsDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return New(ErrCodeInvalidInput, "run id %q contains invalid characters", id)
		}
	}
	return nil
}
