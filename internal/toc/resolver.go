package toc

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"git.home.luguber.info/inful/docxref/internal/foundation/errors"
	"git.home.luguber.info/inful/docxref/internal/logfields"
	"git.home.luguber.info/inful/docxref/internal/markdown"
	"git.home.luguber.info/inful/docxref/internal/report"
	"git.home.luguber.info/inful/docxref/internal/util/sets"
	"git.home.luguber.info/inful/docxref/internal/xref"
)

// XrefResolver resolves topicUid values.
type XrefResolver interface {
	Resolve(ctx *xref.ResolutionContext, q xref.Query, referencingFile string) (*xref.Resolved, error)
	Property(ctx *xref.ResolutionContext, rec *xref.XrefRecord, name, referencingFile string) (any, bool, error)
}

// Options configures a Resolver.
type Options struct {
	// Roots are the TOC files built as top-level outputs. When empty every
	// TOC that is not embedded elsewhere is a root.
	Roots []string
	// CaseInsensitive folds path keys for case-insensitive file systems.
	CaseInsensitive bool
}

type result struct {
	root *Node
	err  error
}

// Resolver resolves parsed TOC files into Node trees. It is not safe for
// concurrent use; TOC resolution is a single deterministic pass.
type Resolver struct {
	tocs     map[string]*Item
	paths    map[string]string // key -> path as registered
	xrefs    XrefResolver
	fold     cases.Caser
	caseFold bool
	roots    sets.Set[string]

	done     map[string]result
	embedded sets.Set[string]
	issues   []report.Issue
}

// NewResolver returns a resolver over tocs, keyed by working-folder relative
// slash path. xrefs may be nil, in which case topicUid values stay unresolved.
func NewResolver(tocs map[string]*Item, xrefs XrefResolver, opts Options) *Resolver {
	r := &Resolver{
		tocs:     make(map[string]*Item, len(tocs)),
		paths:    make(map[string]string, len(tocs)),
		xrefs:    xrefs,
		fold:     cases.Fold(),
		caseFold: opts.CaseInsensitive,
		roots:    sets.New[string](),
		done:     make(map[string]result),
		embedded: sets.New[string](),
	}
	for p, it := range tocs {
		k := r.key(p)
		r.tocs[k] = it
		r.paths[k] = p
	}
	for _, p := range opts.Roots {
		r.roots.Add(r.key(p))
	}
	return r
}

func (r *Resolver) key(p string) string {
	p = strings.TrimPrefix(p, WorkingFolder)
	p = strings.TrimPrefix(p, "./")
	if r.caseFold {
		return r.fold.String(p)
	}
	return p
}

// Issues returns the diagnostics collected so far.
func (r *Resolver) Issues() []report.Issue {
	return slices.Clone(r.issues)
}

func (r *Resolver) warn(code report.IssueCode, file, msg string) {
	r.issues = append(r.issues, report.Issue{Code: code, Severity: report.SeverityWarning, Message: msg, File: file})
	slog.Warn(msg, logfields.Toc(file), slog.String("code", string(code)))
}

// ResolveAll resolves every registered TOC file in path order. Files that are
// only embedded by other TOCs are flagged IsReferenceToc. Failures are
// reported as issues and the file is skipped.
func (r *Resolver) ResolveAll() []*Resolved {
	keys := make([]string, 0, len(r.tocs))
	for k := range r.tocs {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var out []*Resolved
	for _, k := range keys {
		res, err := r.Resolve(r.paths[k])
		if err != nil {
			code := report.IssueTocNotFound
			if isCircular(err) {
				code = report.IssueCircularReference
			}
			r.issues = append(r.issues, report.Issue{Code: code, Severity: report.SeverityError, Message: err.Error(), File: r.paths[k]})
			continue
		}
		out = append(out, res)
	}
	for _, res := range out {
		res.IsReferenceToc = r.isReference(r.key(res.File))
	}
	return out
}

func (r *Resolver) isReference(k string) bool {
	if r.roots.Has(k) {
		return false
	}
	return r.embedded.Has(k) || r.roots.Len() > 0
}

// Resolve resolves file. A TOC that includes itself, directly or through
// other TOC files, fails with xref.ErrCircularReference.
func (r *Resolver) Resolve(file string) (*Resolved, error) {
	root, err := r.resolveFile(file, nil)
	if err != nil {
		return nil, err
	}
	return &Resolved{File: file, Root: root, IsReferenceToc: r.isReference(r.key(file))}, nil
}

func (r *Resolver) resolveFile(file string, stack []string) (*Node, error) {
	k := r.key(file)
	for i, s := range stack {
		if r.key(s) == k {
			chain := append(slices.Clone(stack[i:]), file)
			return nil, errors.TocError("circular reference: "+strings.Join(chain, " -> ")).
				WithCause(xref.ErrCircularReference).
				WithContext("chain", chain).
				Build()
		}
	}
	if res, ok := r.done[k]; ok {
		return res.root, res.err
	}
	item, ok := r.tocs[k]
	if !ok {
		return nil, errors.TocError(fmt.Sprintf("toc file %s not found", file)).
			WithContext("toc", file).
			Build()
	}
	file = r.paths[k]

	stack = append(stack, file)
	root, err := r.resolveItem(item, file, stack)
	r.done[k] = result{root: root, err: err}
	return root, err
}

// resolveItem applies, in order: deprecated field normalization, href
// validation, topicUid resolution, href dispatch (including referenced TOC
// files), homepage inference and normalization.
func (r *Resolver) resolveItem(it *Item, file string, stack []string) (*Node, error) {
	n := &Node{Name: it.Name}
	href, topicHref, topicUID, tocHref := it.Href, it.TopicHref, it.TopicUID, it.TocHref

	// 1. Deprecated fields.
	if it.UID != "" && topicUID == "" {
		topicUID = it.UID
	}
	if it.HomepageUID != "" {
		r.warn(report.IssueDeprecatedField, file, fmt.Sprintf("homepageUid %q is deprecated, use topicUid", it.HomepageUID))
		if topicUID == "" {
			topicUID = it.HomepageUID
		}
	}
	if it.Homepage != "" {
		if topicHref == "" {
			r.warn(report.IssueDeprecatedField, file, fmt.Sprintf("homepage %q is deprecated, use topicHref", it.Homepage))
			topicHref = it.Homepage
		} else {
			r.warn(report.IssueDeprecatedField, file, fmt.Sprintf("homepage %q is ignored because topicHref is set", it.Homepage))
		}
	}
	if markdown.IsXrefDestination(href) {
		if topicUID == "" {
			topicUID = markdown.XrefTarget(href)
		}
		href = ""
	}

	// 2. TOC and folder hrefs cannot carry a query or fragment.
	href = r.stripSuffix(file, "href", href)
	tocHref = r.stripSuffix(file, "tocHref", tocHref)

	hrefOutside := r.outside(file, "href", href)
	r.outside(file, "topicHref", topicHref)
	tocHrefOutside := r.outside(file, "tocHref", tocHref)

	n.OriginalHref, n.OriginalTopicHref, n.OriginalTocHref = href, topicHref, tocHref
	n.TopicHref = topicHref
	n.TopicUID = topicUID
	n.TocHref = tocHref

	// 3. topicUid.
	if topicUID != "" {
		r.resolveTopicUID(n, file, href == "")
	}

	// 4. Dispatch on the href type.
	for _, child := range it.Items {
		c, err := r.resolveItem(child, file, stack)
		if err != nil {
			return nil, err
		}
		n.Items = append(n.Items, c)
	}

	switch kind := classifyHref(href); {
	case hrefOutside, kind == hrefAbsolute, kind == hrefRelativeFile:
		n.Href = href
	case kind == hrefMarkdownToc, kind == hrefYamlToc:
		target := joinRel(file, href)
		included, err := r.resolveFile(target, stack)
		if err != nil {
			if isCircular(err) {
				return nil, err
			}
			r.warn(report.IssueTocNotFound, file, fmt.Sprintf("referenced toc %s not found", href))
			n.Href = href
			break
		}
		r.embedded.Add(r.key(target))
		n.Items = append(n.Items, r.embed(included, file, r.paths[r.key(target)])...)
	case kind == hrefRelativeFolder:
		if target, ok := r.folderToc(joinRel(file, href)); ok {
			if err := r.reference(n, file, target, stack); err != nil {
				return nil, err
			}
		} else {
			r.warn(report.IssueTocNotFound, file, fmt.Sprintf("no toc.yml or toc.md in folder %s", href))
			n.Href = href
		}
	}

	switch kind := classifyHref(tocHref); {
	case kind == hrefNone, tocHrefOutside:
	case kind == hrefMarkdownToc, kind == hrefYamlToc:
		if err := r.reference(n, file, joinRel(file, tocHref), stack); err != nil {
			return nil, err
		}
	case kind == hrefRelativeFolder:
		if target, ok := r.folderToc(joinRel(file, tocHref)); ok {
			if err := r.reference(n, file, target, stack); err != nil {
				return nil, err
			}
		} else {
			r.warn(report.IssueTocNotFound, file, fmt.Sprintf("no toc.yml or toc.md in folder %s", tocHref))
		}
	default:
		r.warn(report.IssueInvalidTocHref, file, fmt.Sprintf("tocHref %q does not point to a toc file or folder", tocHref))
		n.TocHref = ""
	}

	// 6. Homepage inference.
	if n.Href == "" && n.TopicHref == "" && n.TopicUID == "" && len(n.Items) > 0 {
		if h := firstHomepage(n.Items); h != nil {
			n.AggregatedHref = h.Href
			n.AggregatedUID = h.TopicUID
		}
	}

	// 7. Normalization.
	Normalize(n, file)
	return n, nil
}

// reference links n to a separate TOC file: TocHref points at it and, when n
// has no href of its own, Href takes the referenced TOC's homepage.
func (r *Resolver) reference(n *Node, file, target string, stack []string) error {
	resolved, err := r.resolveFile(target, stack)
	if err != nil {
		if isCircular(err) {
			return err
		}
		r.warn(report.IssueTocNotFound, file, fmt.Sprintf("referenced toc %s not found", relativeTo(file, target)))
		return nil
	}
	target = r.paths[r.key(target)]
	n.TocHref = WorkingFolder + target
	if n.Href == "" {
		if h := firstHomepage(resolved.Items); h != nil {
			n.Href = h.Href
			n.HrefFromUID = h.HrefFromUID
		}
	}
	return nil
}

func (r *Resolver) folderToc(folder string) (string, bool) {
	folder = strings.TrimSuffix(folder, "/")
	for _, name := range []string{"toc.yml", "toc.yaml", "toc.md"} {
		candidate := name
		if folder != "" && folder != "." {
			candidate = folder + "/" + name
		}
		if _, ok := r.tocs[r.key(candidate)]; ok {
			return r.paths[r.key(candidate)], true
		}
	}
	return "", false
}

// embed deep-clones the items of an included TOC and rewrites every relative
// Original* href so it reads as if authored in including.
func (r *Resolver) embed(included *Node, including, source string) []*Node {
	out := make([]*Node, 0, len(included.Items))
	for _, item := range included.Items {
		c := item.Clone()
		c.Walk(func(n *Node) {
			n.OriginalHref = rebase(source, including, n.OriginalHref)
			n.OriginalTopicHref = rebase(source, including, n.OriginalTopicHref)
			n.OriginalTocHref = rebase(source, including, n.OriginalTocHref)
			if n.IncludedFrom == "" {
				n.IncludedFrom = source
			}
		})
		out = append(out, c)
	}
	return out
}

func rebase(source, including, href string) string {
	if href == "" || isAbsolute(href) || isRooted(href) {
		return href
	}
	return relativeTo(including, joinRel(source, href))
}

// outside warns about a relative href leaving the working folder.
func (r *Resolver) outside(file, field, href string) bool {
	if !OutsideWorkingFolder(file, href) {
		return false
	}
	r.warn(report.IssueInvalidTocHref, file, fmt.Sprintf("%s %q points outside the working folder", field, href))
	return true
}

func (r *Resolver) stripSuffix(file, field, href string) string {
	switch classifyHref(href) {
	case hrefMarkdownToc, hrefYamlToc, hrefRelativeFolder:
	default:
		return href
	}
	p, suffix := splitSuffix(href)
	if suffix == "" {
		return href
	}
	r.warn(report.IssueInvalidTocHref, file, fmt.Sprintf("%s %q must not contain a query or fragment; %q is ignored", field, href, suffix))
	return p
}

func (r *Resolver) resolveTopicUID(n *Node, file string, setHref bool) {
	if r.xrefs == nil {
		if n.Name == "" {
			n.Name = n.TopicUID
		}
		return
	}
	ctx := xref.NewResolutionContext(file)
	q, err := xref.ParseQuery(n.TopicUID)
	var res *xref.Resolved
	if err == nil {
		res, err = r.xrefs.Resolve(ctx, q, file)
	}
	if err != nil {
		r.warn(report.IssueXrefNotFound, file, fmt.Sprintf("unable to resolve topicUid %q: %v", n.TopicUID, err))
		if n.Name == "" {
			n.Name = n.TopicUID
		}
		return
	}

	if setHref {
		n.Href = res.Href
		n.HrefFromUID = true
	}
	if n.Name == "" {
		n.Name = res.DisplayText
	}
	n.NameVariants = r.nameVariants(ctx, res, file)
}

func (r *Resolver) nameVariants(ctx *xref.ResolutionContext, res *xref.Resolved, file string) map[string]string {
	out := map[string]string{}
	switch {
	case res.Record != nil:
		for _, name := range res.Record.PropertyNames() {
			if !strings.HasPrefix(name, "name.") {
				continue
			}
			if v, ok, err := r.xrefs.Property(ctx, res.Record, name, file); err == nil && ok {
				out[strings.TrimPrefix(name, "name.")] = fmt.Sprint(v)
			}
		}
	case res.External != nil:
		for name, v := range res.External.Properties {
			if strings.HasPrefix(name, "name.") {
				out[strings.TrimPrefix(name, "name.")] = fmt.Sprint(v)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// firstHomepage returns the first pre-order node with a single-file href or a topicUid.
func firstHomepage(items []*Node) *Node {
	for _, it := range items {
		if it.TopicUID != "" || (it.HrefFromUID && it.Href != "") || (isRooted(it.Href) && classifyHref(strings.TrimPrefix(it.Href, WorkingFolder)) == hrefRelativeFile) {
			return it
		}
		if h := firstHomepage(it.Items); h != nil {
			return h
		}
	}
	return nil
}

// Normalize roots the source-relative href fields of n at the working folder.
// Rooted and absolute values are left untouched, so Normalize is idempotent.
func Normalize(n *Node, file string) {
	if !n.HrefFromUID {
		n.Href = NormalizeHref(file, n.Href)
	}
	n.TopicHref = NormalizeHref(file, n.TopicHref)
	n.TocHref = NormalizeHref(file, n.TocHref)
}

func isCircular(err error) bool {
	return stderrors.Is(err, xref.ErrCircularReference)
}
