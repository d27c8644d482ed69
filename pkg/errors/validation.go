package errors

import (
	"slices"
	"strings"
	"unicode"
)

// MaxNodeIDLength bounds node ids accepted from untrusted input.
const MaxNodeIDLength = 256

// ValidateNodeID validates a node id received from a URL, flag or query.
// It rejects ids that could be used for path traversal or injection attacks.
//
// The validation rules are intentionally conservative:
//   - No empty ids
//   - No control characters or null bytes
//   - No path separators, and not a bare "." or ".." segment
//   - Maximum length of [MaxNodeIDLength] bytes
//
// Ids read from a graph document are not checked here; the store only
// requires them to be non-empty.
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidNodeID, "node id cannot be empty")
	}

	if len(id) > MaxNodeIDLength {
		return New(ErrCodeInvalidNodeID, "node id too long (max %d characters)", MaxNodeIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidNodeID, "node id contains invalid control characters")
		}
	}

	if id == "." || id == ".." {
		return New(ErrCodeInvalidNodeID, "node id cannot be %q", id)
	}

	for _, sep := range []string{"/", "\\"} {
		if strings.Contains(id, sep) {
			return New(ErrCodeInvalidNodeID, "node id contains invalid characters: %q", sep)
		}
	}

	return nil
}

// ValidateDepth checks that a traversal depth is non-negative.
func ValidateDepth(depth int) error {
	if depth < 0 {
		return New(ErrCodeInvalidDepth, "depth must be >= 0, got %d", depth)
	}
	return nil
}

// ValidateFormat checks that format is one of allowed.
func ValidateFormat(format string, allowed ...string) error {
	if !slices.Contains(allowed, format) {
		return New(ErrCodeInvalidFormat, "unsupported format %q (want one of %s)", format, strings.Join(allowed, ", "))
	}
	return nil
}

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
