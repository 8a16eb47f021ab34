package xref

import (
	"fmt"
	"net/url"
	"strings"

	"git.home.luguber.info/inful/docxref/internal/markdown"
)

// Query parameters consumed by the resolver.
const (
	ParamView            = "view"
	ParamText            = "text"
	ParamDisplayProperty = "displayProperty"
)

// Query is a parsed xref link: uid?view=<moniker>&text=<text>&displayProperty=<name>#fragment.
type Query struct {
	Raw             string
	UID             string
	Moniker         string
	Text            string
	DisplayProperty string
	// Params are the remaining query parameters, passed through to the href.
	Params      url.Values
	Fragment    string
	HasFragment bool
}

// ParseQuery parses an xref target. A leading xref: scheme is accepted.
func ParseQuery(raw string) (Query, error) {
	q := Query{Raw: raw, Params: url.Values{}}
	s := raw
	if markdown.IsXrefDestination(s) {
		s = markdown.XrefTarget(s)
	}

	if i := strings.IndexByte(s, '#'); i >= 0 {
		q.Fragment, q.HasFragment = s[i+1:], true
		s = s[:i]
	}
	rawQuery := ""
	if i := strings.IndexByte(s, '?'); i >= 0 {
		rawQuery = s[i+1:]
		s = s[:i]
	}

	uid, err := url.PathUnescape(s)
	if err != nil {
		uid = s
	}
	q.UID = strings.TrimSpace(uid)
	if q.UID == "" {
		return q, fmt.Errorf("xref %q has an empty uid", raw)
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return q, fmt.Errorf("xref %q has an invalid query: %w", raw, err)
	}
	q.Moniker = values.Get(ParamView)
	q.Text = values.Get(ParamText)
	q.DisplayProperty = values.Get(ParamDisplayProperty)
	for k, vs := range values {
		switch k {
		case ParamView, ParamText, ParamDisplayProperty:
			continue
		}
		q.Params[k] = vs
	}
	return q, nil
}

// mergeHref combines a record href with the caller's pass-through parameters
// and fragment. The caller's fragment replaces the record's when present.
// Absolute hrefs on siteHost become host-relative.
func mergeHref(recordHref string, q Query, siteHost string) string {
	base := recordHref
	fragment := ""
	hasFragment := false
	if i := strings.IndexByte(base, '#'); i >= 0 {
		fragment, hasFragment = base[i+1:], true
		base = base[:i]
	}
	rawQuery := ""
	if i := strings.IndexByte(base, '?'); i >= 0 {
		rawQuery = base[i+1:]
		base = base[:i]
	}

	if siteHost != "" {
		if u, err := url.Parse(base); err == nil && u.IsAbs() && strings.EqualFold(u.Host, siteHost) {
			base = u.EscapedPath()
			if base == "" {
				base = "/"
			}
		}
	}

	if len(q.Params) > 0 {
		values, err := url.ParseQuery(rawQuery)
		if err != nil {
			values = url.Values{}
		}
		for k, vs := range q.Params {
			values[k] = vs
		}
		rawQuery = values.Encode()
	}
	if q.HasFragment {
		fragment, hasFragment = q.Fragment, true
	}

	var b strings.Builder
	b.WriteString(base)
	if rawQuery != "" {
		b.WriteByte('?')
		b.WriteString(rawQuery)
	}
	if hasFragment {
		b.WriteByte('#')
		b.WriteString(fragment)
	}
	return b.String()
}
