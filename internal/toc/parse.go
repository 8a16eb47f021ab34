package toc

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docxref/internal/frontmatter"
	"git.home.luguber.info/inful/docxref/internal/markdown"
)

// ParseYAML parses toc.yml content: either a root list of items or an object
// with an items list.
func ParseYAML(content []byte) (*Item, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return &Item{}, nil
	}

	top := doc.Content[0]
	switch top.Kind {
	case yaml.SequenceNode:
		var items []*Item
		if err := top.Decode(&items); err != nil {
			return nil, err
		}
		return &Item{Items: items}, nil
	case yaml.MappingNode:
		var root Item
		if err := top.Decode(&root); err != nil {
			return nil, err
		}
		return &root, nil
	default:
		return nil, fmt.Errorf("toc must be a list or an object with items, got %s", kindName(top.Kind))
	}
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.ScalarNode:
		return "a scalar"
	case yaml.AliasNode:
		return "an alias"
	default:
		return "an unexpected node"
	}
}

// ParseMarkdown builds a TOC from the headings of toc.md. A heading may be
// plain text (name only), a link ([Name](href)), an xref link
// ([Name](xref:uid)) or an @uid reference.
func ParseMarkdown(content []byte) (*Item, error) {
	_, body, _, err := frontmatter.Split(content)
	if err != nil {
		return nil, err
	}

	root := &Item{}
	type level struct {
		depth int
		item  *Item
	}
	stack := []level{{depth: 0, item: root}}

	for _, h := range markdown.Headings(body) {
		it := headingItem(h)
		for len(stack) > 1 && stack[len(stack)-1].depth >= h.Level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1].item
		parent.Items = append(parent.Items, it)
		stack = append(stack, level{depth: h.Level, item: it})
	}
	return root, nil
}

func headingItem(h markdown.Heading) *Item {
	text := strings.TrimSpace(h.Text)
	switch {
	case h.Destination != "" && markdown.IsXrefDestination(h.Destination):
		return &Item{Name: text, TopicUID: markdown.XrefTarget(h.Destination)}
	case h.Destination != "":
		return &Item{Name: text, Href: h.Destination}
	case strings.HasPrefix(text, "@") && len(text) > 1:
		return &Item{TopicUID: strings.TrimPrefix(text, "@")}
	default:
		return &Item{Name: text}
	}
}

// IsTocFile reports whether p names a TOC file.
func IsTocFile(p string) bool {
	switch strings.ToLower(path.Base(p)) {
	case "toc.yml", "toc.yaml", "toc.md":
		return true
	}
	return false
}

// ParseFile parses a TOC file by extension.
func ParseFile(fullPath string) (*Item, error) {
	content, err := os.ReadFile(fullPath) // #nosec G304 -- discovered toc file
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(fullPath), ".md") {
		return ParseMarkdown(content)
	}
	return ParseYAML(content)
}
