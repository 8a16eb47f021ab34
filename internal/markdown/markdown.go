package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

func newMarkdown(opts Options) goldmark.Markdown {
	var rendererOpts []goldmark.Option
	if opts.Unsafe {
		rendererOpts = append(rendererOpts, goldmark.WithRendererOptions(html.WithUnsafe()))
	}
	return goldmark.New(rendererOpts...)
}

// ParseBody parses a Markdown body (frontmatter already removed) into a Goldmark AST.
func ParseBody(body []byte, opts Options) gmast.Node {
	return newMarkdown(opts).Parser().Parse(text.NewReader(body))
}

// Render converts a Markdown body to an HTML fragment.
func Render(body []byte, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := newMarkdown(opts).Convert(body, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExtractLinks parses a Markdown body and extracts link-like constructs.
// Links whose destination uses the xref: scheme are reported as LinkKindXref.
func ExtractLinks(body []byte, opts Options) []Link {
	md := newMarkdown(opts)
	ctx := parser.NewContext()
	root := md.Parser().Parse(text.NewReader(body), parser.WithContext(ctx))

	links := make([]Link, 0)
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}

		var link Link
		switch node := n.(type) {
		case *gmast.AutoLink:
			link = Link{Kind: LinkKindAuto, Destination: string(node.URL(body)), Text: string(node.Label(body))}
		case *gmast.Image:
			link = Link{Kind: LinkKindImage, Destination: string(node.Destination), Text: nodeText(node, body)}
		case *gmast.Link:
			link = Link{Kind: LinkKindInline, Destination: string(node.Destination), Text: nodeText(node, body)}
		default:
			return gmast.WalkContinue, nil
		}
		if link.Kind != LinkKindImage && IsXrefDestination(link.Destination) {
			link.Kind = LinkKindXref
		}
		links = append(links, link)
		return gmast.WalkSkipChildren, nil
	})
	return links
}

// FirstHeading returns the text of the first level-one heading, or "".
func FirstHeading(body []byte) string {
	for _, h := range Headings(body) {
		if h.Level == 1 {
			return h.Text
		}
	}
	return ""
}

// nodeText concatenates the literal text below n.
func nodeText(n gmast.Node, source []byte) string {
	var b strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gmast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.String:
			b.Write(t.Value)
		case *gmast.AutoLink:
			b.Write(t.Label(source))
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
