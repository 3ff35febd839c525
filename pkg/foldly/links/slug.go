package links

import (
	"regexp"
	"strings"
)

const (
	slugMinLength = 3
	slugMaxLength = 100
)

var slugStripRegex = regexp.MustCompile(`[^a-z0-9-]`)

// Slugs that would collide with application routes or read as official.
var reservedSlugs = []string{
	"api", "app", "admin", "auth", "login", "logout", "register",
	"dashboard", "settings", "health", "public", "files", "uploads",
	"branding", "workspace", "workspaces", "links", "permissions",
	"foldly", "support", "help", "www",
}

// ValidationError represents a validation error
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// SanitizeSlug normalizes a raw slug: case-folded, trimmed, with every
// character outside [a-z0-9-] stripped. Sanitization is deterministic, so
// two raw inputs can collide post-sanitization; such collisions are rejected
// as taken, never silently merged.
func SanitizeSlug(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	return slugStripRegex.ReplaceAllString(s, "")
}

// ValidateSlug checks a sanitized slug against length bounds and the
// reserved-word set.
func ValidateSlug(slug string) error {
	if len(slug) < slugMinLength {
		return &ValidationError{"Slug must be at least 3 characters after sanitization"}
	}
	if len(slug) > slugMaxLength {
		return &ValidationError{"Slug must be at most 100 characters"}
	}

	for _, r := range reservedSlugs {
		if slug == r {
			return &ValidationError{"This slug is reserved"}
		}
	}

	return nil
}
