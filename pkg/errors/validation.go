package errors

import (
	"strings"
	"unicode"
)

// MaxArchDescriptionLength bounds architecture descriptions accepted from users.
const MaxArchDescriptionLength = 256

// ValidateArchDescription validates a user-supplied target architecture description
// before it reaches the parser.
//
// Validation rules:
//   - Description cannot be empty or blank
//   - Maximum length of MaxArchDescriptionLength characters
//   - No control characters other than whitespace
func ValidateArchDescription(desc string) error {
	if strings.TrimSpace(desc) == "" {
		return New(ErrCodeInvalidArch, "architecture description cannot be empty")
	}

	if len(desc) > MaxArchDescriptionLength {
		return New(ErrCodeInvalidArch, "architecture description too long (max %d characters)", MaxArchDescriptionLength)
	}

	for _, r := range desc {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return New(ErrCodeInvalidArch, "architecture description contains invalid control characters")
		}
	}

	return nil
}

// ValidateGraphPayload validates the size of an inline graph submitted to the API.
// A zero limit disables the size check.
func ValidateGraphPayload(data string, limit int) error {
	if strings.TrimSpace(data) == "" {
		return New(ErrCodeInvalidGraph, "graph data cannot be empty")
	}

	if limit > 0 && len(data) > limit {
		return New(ErrCodeInvalidGraph, "graph data too large (%d bytes, max %d)", len(data), limit)
	}

	if strings.ContainsRune(data, '\x00') {
		return New(ErrCodeInvalidGraph, "graph data contains null bytes")
	}

	return nil
}
