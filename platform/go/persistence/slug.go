package persistence

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// MaxSlugLength bounds operator-supplied slugs.
const MaxSlugLength = 50

// generatedSlugLength hex characters carry 48 random bits.
const generatedSlugLength = 12

var manualSlugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// reservedSlugs collide with top-level routes.
var reservedSlugs = map[string]struct{}{
	"api":   {},
	"admin": {},
	"embed": {},
	"_next": {},
	// /embed/dashboard/db/... is kept as an alias for older embed links.
	"db": {},
}

// GenerateSlug returns a short random URL-safe token drawn from the random
// bits of a v4 UUID. Uniqueness is enforced by the table constraints.
func GenerateSlug() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return hex[:generatedSlugLength]
}

// ValidateSlug checks an operator-supplied slug: non-empty, at most
// MaxSlugLength characters from [a-z0-9-], and not a reserved word.
func ValidateSlug(candidate string) (string, error) {
	slug := strings.TrimSpace(candidate)
	switch {
	case slug == "":
		return "", errors.New("slug is required")
	case len(slug) > MaxSlugLength:
		return "", fmt.Errorf("slug must be at most %d characters", MaxSlugLength)
	}

	if _, reserved := reservedSlugs[slug]; reserved {
		return "", fmt.Errorf("slug %q is reserved", slug)
	}
	if !manualSlugPattern.MatchString(slug) {
		return "", fmt.Errorf("invalid slug %q: only lowercase letters, numbers, and hyphens are allowed", candidate)
	}

	return slug, nil
}
