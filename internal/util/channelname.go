// Package util provides common utility functions.
package util

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// Matches runs of characters outside the word-or-hyphen class.
	nonWordRe = regexp.MustCompile(`[^a-z0-9_-]+`)
	// Matches runs of underscores (replaced with hyphens).
	underscoreRe = regexp.MustCompile(`_+`)
	// Matches multiple consecutive hyphens.
	multipleHyphenRe = regexp.MustCompile(`-+`)
)

// SanitizeChannelName converts a username to a channel-name-legal slug.
// The result is the identity key for personal channel lookups, so every
// caller that creates, finds, or deletes a personal channel must go
// through this function.
//
// Normalization rules:
//  1. Lowercase
//  2. Decompose unicode (NFKD), so accented letters reduce to their ASCII base
//  3. Replace anything outside [a-z0-9_-] with a hyphen
//  4. Replace underscores with hyphens
//  5. Collapse repeated hyphens
//  6. Trim leading/trailing hyphens
//
// An input that sanitizes to nothing (all symbols) falls back to "user".
//
// Examples:
//
//	"Alice Smith"  → "alice-smith"
//	"José!"        → "jose"
//	"a__b"         → "a-b"
//	"🔥🔥🔥"       → "user"
func SanitizeChannelName(name string) string {
	// 1. Lowercase first, then decompose.
	s := strings.ToLower(name)
	s = norm.NFKD.String(s)

	// 2. Replace non-word characters (combining marks included) with hyphens.
	s = nonWordRe.ReplaceAllString(s, "-")

	// 3. Underscores become hyphens too.
	s = underscoreRe.ReplaceAllString(s, "-")

	// 4. Collapse multiple hyphens.
	s = multipleHyphenRe.ReplaceAllString(s, "-")

	// 5. Trim leading/trailing hyphens.
	s = strings.Trim(s, "-")

	if s == "" {
		return "user"
	}
	return s
}
