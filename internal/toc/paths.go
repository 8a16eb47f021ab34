package toc

import (
	"net/url"
	"path"
	"strings"
)

// WorkingFolder prefixes normalized href values.
const WorkingFolder = "~/"

type hrefKind int

const (
	hrefNone hrefKind = iota
	hrefAbsolute
	hrefRelativeFile
	hrefRelativeFolder
	hrefMarkdownToc
	hrefYamlToc
)

func classifyHref(href string) hrefKind {
	if href == "" {
		return hrefNone
	}
	if isAbsolute(href) {
		return hrefAbsolute
	}
	p, _ := splitSuffix(href)
	switch strings.ToLower(path.Base(p)) {
	case "toc.md":
		return hrefMarkdownToc
	case "toc.yml", "toc.yaml":
		return hrefYamlToc
	}
	if strings.HasSuffix(p, "/") {
		return hrefRelativeFolder
	}
	return hrefRelativeFile
}

// isAbsolute reports hrefs that are not relative to the TOC file: URLs with a
// scheme, site-rooted paths and pure fragments.
func isAbsolute(href string) bool {
	if strings.HasPrefix(href, "/") || strings.HasPrefix(href, "#") {
		return true
	}
	u, err := url.Parse(href)
	return err == nil && u.Scheme != ""
}

func isRooted(href string) bool {
	return strings.HasPrefix(href, WorkingFolder)
}

// splitSuffix separates a path from its query/fragment suffix.
func splitSuffix(href string) (string, string) {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		return href[:i], href[i:]
	}
	return href, ""
}

// joinRel resolves href relative to the directory of file, both slash paths
// relative to the working folder.
func joinRel(file, href string) string {
	p, suffix := splitSuffix(href)
	joined := path.Join(path.Dir(file), p)
	if strings.HasSuffix(p, "/") && !strings.HasSuffix(joined, "/") {
		joined += "/"
	}
	return strings.TrimPrefix(joined, "./") + suffix
}

// NormalizeHref roots a file-relative href at the working folder. Absolute
// and already rooted values are returned unchanged, so normalizing twice is a
// no-op. Hrefs leaving the working folder are kept as authored.
func NormalizeHref(file, href string) string {
	if href == "" || isRooted(href) || isAbsolute(href) || OutsideWorkingFolder(file, href) {
		return href
	}
	return WorkingFolder + joinRel(file, href)
}

// OutsideWorkingFolder reports a relative href that, resolved against file,
// climbs above the working folder.
func OutsideWorkingFolder(file, href string) bool {
	if href == "" || isRooted(href) || isAbsolute(href) {
		return false
	}
	p, _ := splitSuffix(joinRel(file, href))
	return p == ".." || strings.HasPrefix(p, "../")
}

// relativeTo returns target (working-folder relative) as seen from the
// directory of file.
func relativeTo(file, target string) string {
	p, suffix := splitSuffix(target)
	from := splitSegments(path.Dir(file))
	to := splitSegments(p)

	i := 0
	for i < len(from) && i < len(to)-1 && from[i] == to[i] {
		i++
	}
	var parts []string
	for range from[i:] {
		parts = append(parts, "..")
	}
	parts = append(parts, to[i:]...)
	rel := strings.Join(parts, "/")
	if strings.HasSuffix(p, "/") && !strings.HasSuffix(rel, "/") {
		rel += "/"
	}
	return rel + suffix
}

func splitSegments(p string) []string {
	p = strings.Trim(path.Clean(p), "/")
	if p == "." || p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
