package build

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"git.home.luguber.info/inful/docxref/internal/toc"
	"git.home.luguber.info/inful/docxref/internal/util/globs"
	"git.home.luguber.info/inful/docxref/internal/xref"
)

// Discovery is the set of files found under the content root.
type Discovery struct {
	// Sources are the files handed to extraction and rendering.
	Sources []xref.SourceFile
	// Tocs are the TOC files, content-root-relative.
	Tocs []xref.SourceFile
}

// Discover walks root and selects files matching include and not matching
// exclude. Patterns are doublestar globs over slash paths relative to root.
// Hidden directories and the skip directories are not descended into.
func Discover(root string, include, exclude []string, skip ...string) (*Discovery, error) {
	root = filepath.Clean(root)
	skipDirs := make([]string, 0, len(skip))
	for _, s := range skip {
		if s != "" {
			skipDirs = append(skipDirs, filepath.Clean(s))
		}
	}

	d := &Discovery{}
	err := filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if p != root && (strings.HasPrefix(entry.Name(), ".") || slices.Contains(skipDirs, p)) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		ok, err := globs.MatchAny(include, rel)
		if err != nil || !ok {
			return err
		}
		if excluded, err := globs.MatchAny(exclude, rel); err != nil || excluded {
			return err
		}

		f := xref.SourceFile{Path: rel, FullPath: p}
		if toc.IsTocFile(rel) {
			d.Tocs = append(d.Tocs, f)
		} else {
			d.Sources = append(d.Sources, f)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk %s: %w", ErrDiscovery, root, err)
	}
	return d, nil
}
