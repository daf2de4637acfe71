// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// unsafeChars matches anything outside the portable filename set.
var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Slug returns a filesystem-safe filename stem for an OpenAlex work ID.
// The stem is the trailing key of the ID ("https://openalex.org/W2741809807"
// gives "W2741809807"). Keys that need sanitizing get a hash suffix so two
// different IDs never share a stem; IDs with no usable key fall back to a
// hash of the whole ID.
func Slug(workID string) string {
	key := strings.TrimSpace(workID)
	key = strings.TrimRight(key, "/")
	if i := strings.LastIndex(key, "/"); i >= 0 {
		key = key[i+1:]
	}

	clean := strings.Trim(unsafeChars.ReplaceAllString(key, "_"), "._")
	switch {
	case clean == "":
		return idHashSlug(workID)
	case clean != key:
		return clean + "-" + shortHash(workID)
	default:
		return clean
	}
}

// DestPath returns the download destination for a work under outDir.
// The same work ID always yields the same path.
func DestPath(outDir, workID string) string {
	return filepath.Join(outDir, Slug(workID)+".pdf")
}

func idHashSlug(workID string) string {
	return "work-" + shortHash(workID)
}

func shortHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h[:8])
}
