// Package globs wraps doublestar matching over slash paths.
package globs

import (
	"fmt"

	"github.com/bmatcuk/doublestar"
)

// Validate returns doublestar.ErrBadPattern, wrapped, when pattern is
// malformed. doublestar only parses the parts of a pattern it needs to
// compare, so the pattern is matched against itself as well as the empty
// path to reach every term.
func Validate(pattern string) error {
	for _, name := range []string{pattern, ""} {
		if _, err := doublestar.Match(pattern, name); err != nil {
			return fmt.Errorf("invalid glob %q: %w", pattern, err)
		}
	}
	return nil
}

// Match reports whether rel matches pattern.
func Match(pattern, rel string) (bool, error) {
	ok, err := doublestar.Match(pattern, rel)
	if err != nil {
		return false, fmt.Errorf("glob %q: %w", pattern, err)
	}
	return ok, nil
}

// MatchAny reports whether rel matches any of patterns.
func MatchAny(patterns []string, rel string) (bool, error) {
	for _, pattern := range patterns {
		ok, err := Match(pattern, rel)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}
