// Package htmlxref rewrites xref links in rendered HTML pages into plain
// anchors pointing at the resolved targets.
package htmlxref

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/docxref/internal/foundation/errors"
	"git.home.luguber.info/inful/docxref/internal/markdown"
	"git.home.luguber.info/inful/docxref/internal/report"
	"git.home.luguber.info/inful/docxref/internal/xref"
)

// HrefResolver resolves the target of an xref link on behalf of a page.
type HrefResolver interface {
	ResolveHref(href, referencingFile string) (string, string, string, error)
}

// Page identifies the page being rewritten.
type Page struct {
	// File is the content-relative source path, used for diagnostics and
	// dependency tracking.
	File string
	// OutputPath is the site-relative output path; resolved hrefs are made
	// relative to it.
	OutputPath string
}

// Result summarizes one rewrite.
type Result struct {
	Resolved   int
	Unresolved int
	Issues     []report.Issue
}

// Rewrite parses the HTML fragment in r, replaces every <xref> element and
// every anchor with an xref: href, and writes the result to w.
//
// A resolved link becomes <a class="xref" href="...">. An unresolved one
// becomes <span class="xref">, keeping the author's text or the uid.
func Rewrite(r io.Reader, w io.Writer, page Page, resolver HrefResolver) (Result, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(r, body)
	if err != nil {
		return Result{}, errors.WrapError(err, errors.CategoryValidation, "failed to parse HTML").
			At(page.File, 0).
			Build()
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	rw := &rewriter{page: page, resolver: resolver}
	rw.walk(body)

	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(w, c); err != nil {
			return rw.result, fmt.Errorf("render %s: %w", page.File, err)
		}
	}
	return rw.result, nil
}

// RewriteBytes is Rewrite over a byte slice.
func RewriteBytes(content []byte, page Page, resolver HrefResolver) ([]byte, Result, error) {
	var buf bytes.Buffer
	res, err := Rewrite(bytes.NewReader(content), &buf, page, resolver)
	if err != nil {
		return nil, res, err
	}
	return buf.Bytes(), res, nil
}

type rewriter struct {
	page     Page
	resolver HrefResolver
	result   Result
}

func (rw *rewriter) walk(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode {
			switch {
			case c.Data == "xref":
				c = rw.replaceXrefElement(c)
				continue
			case c.DataAtom == atom.A && markdown.IsXrefDestination(getAttr(c, "href")):
				rw.replaceAnchor(c)
				c = next
				continue
			}
		}
		rw.walk(c)
		c = next
	}
}

// replaceXrefElement swaps an <xref> element for an anchor. The HTML parser
// does not honor self-closing syntax on unknown elements, so any children of
// the element are hoisted to follow the replacement. It returns the next node
// to visit.
func (rw *rewriter) replaceXrefElement(n *html.Node) *html.Node {
	href := getAttr(n, "href")
	if href == "" {
		if uid := getAttr(n, "uid"); uid != "" {
			href = url.PathEscape(uid)
		}
	}

	var repl *html.Node
	if href == "" {
		repl = textNode("")
	} else {
		repl = rw.link(href, getAttr(n, "text"))
	}

	parent := n.Parent
	parent.InsertBefore(repl, n)
	first := n.FirstChild
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
		c = next
	}
	parent.RemoveChild(n)
	if first != nil {
		return first
	}
	return repl.NextSibling
}

func (rw *rewriter) replaceAnchor(n *html.Node) {
	href := getAttr(n, "href")
	text := innerText(n)
	if text == href || text == markdown.XrefTarget(href) {
		text = ""
	}

	resolvedHref, display, err := rw.resolve(href)
	if err != nil {
		span := spanNode(fallbackText(text, display))
		n.Parent.InsertBefore(span, n)
		n.Parent.RemoveChild(n)
		return
	}

	setAttr(n, "href", resolvedHref)
	addClass(n, "xref")
	if text == "" {
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			c = next
		}
		n.AppendChild(textNode(display))
	}
}

// link builds the replacement for an xref href with an optional text override.
func (rw *rewriter) link(href, text string) *html.Node {
	resolvedHref, display, err := rw.resolve(href)
	if err != nil {
		return spanNode(fallbackText(text, display))
	}
	a := &html.Node{
		Type:     html.ElementNode,
		Data:     "a",
		DataAtom: atom.A,
		Attr: []html.Attribute{
			{Key: "class", Val: "xref"},
			{Key: "href", Val: resolvedHref},
		},
	}
	a.AppendChild(textNode(fallbackText(text, display)))
	return a
}

func (rw *rewriter) resolve(href string) (string, string, error) {
	target, display, _, err := rw.resolver.ResolveHref(href, rw.page.File)
	if err != nil {
		rw.result.Unresolved++
		code := report.IssueXrefNotFound
		if stderrors.Is(err, xref.ErrCircularReference) {
			code = report.IssueCircularReference
		}
		rw.result.Issues = append(rw.result.Issues, report.Issue{
			Code:     code,
			Severity: report.SeverityWarning,
			Message:  fmt.Sprintf("unable to resolve %s: %v", href, err),
			File:     rw.page.File,
		})
		return "", display, err
	}
	rw.result.Resolved++
	return RelativeHref(rw.page.OutputPath, target), display, nil
}

func fallbackText(text, display string) string {
	if text != "" {
		return text
	}
	return display
}

func spanNode(text string) *html.Node {
	span := &html.Node{
		Type:     html.ElementNode,
		Data:     "span",
		DataAtom: atom.Span,
		Attr:     []html.Attribute{{Key: "class", Val: "xref"}},
	}
	span.AppendChild(textNode(text))
	return span
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// RelativeHref rewrites a site-relative target as seen from the page at
// pagePath. Absolute URLs, host-relative paths and bare fragments are
// returned unchanged.
func RelativeHref(pagePath, target string) string {
	if target == "" || strings.HasPrefix(target, "/") || strings.HasPrefix(target, "#") {
		return target
	}
	if u, err := url.Parse(target); err != nil || u.Scheme != "" {
		return target
	}

	p, suffix := target, ""
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		p, suffix = target[:i], target[i:]
	}
	if path.Clean(p) == path.Clean(pagePath) && strings.HasPrefix(suffix, "#") {
		return suffix
	}

	from := segments(path.Dir(pagePath))
	to := segments(p)
	i := 0
	for i < len(from) && i < len(to)-1 && from[i] == to[i] {
		i++
	}
	parts := make([]string, 0, len(from)-i+len(to)-i)
	for range from[i:] {
		parts = append(parts, "..")
	}
	parts = append(parts, to[i:]...)
	return strings.Join(parts, "/") + suffix
}

func segments(p string) []string {
	p = strings.Trim(path.Clean(p), "/")
	if p == "." || p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
