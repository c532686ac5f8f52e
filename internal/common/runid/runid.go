// Package runid generates identifiers for live runs.
package runid

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	// MaxLength caps run IDs at the length of a UUID
	MaxLength     = 36
	// SuffixLength is the length of the random part of named IDs
	SuffixLength  = 6
	maxNameLength = MaxLength - SuffixLength - 1
)

var (
	invalidChars = regexp.MustCompile(`[^a-zA-Z0-9-]+`)
	hyphenRuns   = regexp.MustCompile(`-{2,}`)
)

// New returns "{sanitized-name}-{random}" or a UUID when name has no usable characters.
// Names keep only [a-zA-Z0-9-], whitespace becomes '-'.
func New(name string) string {
	slug := Sanitize(name)
	if slug == "" {
		return uuid.NewString()
	}
	if len(slug) > maxNameLength {
		slug = strings.TrimRight(slug[:maxNameLength], "-")
	}
	return slug + "-" + randomSuffix()
}

// Generator returns a func producing IDs for name, suitable for registry.WithRunIDs
func Generator(name string) func() string {
	return func() string {
		return New(name)
	}
}

// Sanitize reduces name to the characters allowed in run IDs
func Sanitize(name string) string {
	slug := strings.Join(strings.Fields(name), "-")
	slug = invalidChars.ReplaceAllString(slug, "")
	slug = hyphenRuns.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func randomSuffix() string {
	buf := make([]byte, SuffixLength/2)
	if _, err := rand.Read(buf); err != nil {
		return strings.ReplaceAll(uuid.NewString(), "-", "")[:SuffixLength]
	}
	return hex.EncodeToString(buf)
}
