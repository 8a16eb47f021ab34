package markdown

import (
	gmast "github.com/yuin/goldmark/ast"
)

// Heading is an ATX/Setext heading with the first link it contains, if any.
type Heading struct {
	Level       int
	Text        string
	Destination string
	Line        int
}

// Headings returns every heading of body in document order.
func Headings(body []byte) []Heading {
	root := ParseBody(body, Options{})
	lineStarts := lineIndex(body)

	var out []Heading
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok {
			return gmast.WalkContinue, nil
		}

		heading := Heading{Level: h.Level, Text: nodeText(h, body)}
		if lines := h.Lines(); lines.Len() > 0 {
			heading.Line = lineOf(lineStarts, lines.At(0).Start)
		}
		for c := h.FirstChild(); c != nil; c = c.NextSibling() {
			if link, ok := c.(*gmast.Link); ok {
				heading.Destination = string(link.Destination)
				heading.Text = nodeText(link, body)
				break
			}
			if auto, ok := c.(*gmast.AutoLink); ok {
				heading.Destination = string(auto.URL(body))
				break
			}
		}
		out = append(out, heading)
		return gmast.WalkSkipChildren, nil
	})
	return out
}

func lineIndex(body []byte) []int {
	starts := []int{0}
	for i, c := range body {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// lineOf maps a byte offset to a 1-based line number.
func lineOf(starts []int, offset int) int {
	lo, hi := 0, len(starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1
}
