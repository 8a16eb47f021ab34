package extract

import (
	"path"
	"regexp"
	"strings"
)

// nonWord is the complement of the Unicode word class: letters, nonspacing
// marks, decimal digits and connector punctuation.
var nonWord = regexp.MustCompile(`[^\p{L}\p{Mn}\p{Nd}\p{Pc}]`)

// OutputPath maps a content-relative source path to its site-relative output
// URL: a/b.md -> a/b.html. Other extensions are kept.
func OutputPath(rel string) string {
	rel = strings.TrimPrefix(path.Clean("/"+rel), "/")
	switch strings.ToLower(path.Ext(rel)) {
	case ".md", ".markdown", ".yml", ".yaml", ".json":
		return strings.TrimSuffix(rel, path.Ext(rel)) + ".html"
	}
	return rel
}

// Bookmark sanitizes a uid for use as a fragment by replacing every non-word
// character with an underscore.
func Bookmark(uid string) string {
	return nonWord.ReplaceAllString(uid, "_")
}
