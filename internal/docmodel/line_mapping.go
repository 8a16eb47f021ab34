package docmodel

import "strings"

// lineFinder locates successive occurrences of link destinations in a body,
// skipping fenced and indented code blocks and inline code spans.
type lineFinder struct {
	lines []string
	skip  []bool
	from  map[string]int
}

func newLineFinder(body []byte) *lineFinder {
	lines := strings.Split(string(body), "\n")
	return &lineFinder{lines: lines, skip: codeLines(lines), from: make(map[string]int)}
}

// next returns the 1-based body line of the next occurrence of target, or 1
// when it cannot be found.
func (f *lineFinder) next(target string) int {
	for i := f.from[target]; i < len(f.lines); i++ {
		if f.skip[i] {
			continue
		}
		if col := indexOutsideCode(f.lines[i], target); col >= 0 {
			f.from[target] = i + 1
			return i + 1
		}
	}
	return 1
}

func codeLines(lines []string) []bool {
	skip := make([]bool, len(lines))
	fence := ""
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		for _, marker := range []string{"```", "~~~"} {
			if strings.HasPrefix(trimmed, marker) {
				switch fence {
				case "":
					fence = marker
				case marker:
					fence = ""
					skip[i] = true
				}
			}
		}
		if fence != "" || strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t") {
			skip[i] = true
		}
	}
	return skip
}

func indexOutsideCode(line, target string) int {
	offset := 0
	for {
		idx := strings.Index(line[offset:], target)
		if idx < 0 {
			return -1
		}
		pos := offset + idx
		if strings.Count(line[:pos], "`")%2 == 0 {
			return pos
		}
		offset = pos + 1
	}
}
