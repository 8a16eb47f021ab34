package extract

import (
	"fmt"
	"maps"
	"slices"

	"github.com/ohler55/ojg/jp"

	"git.home.luguber.info/inful/docxref/internal/xref"
)

// SchemaXref is one uid published by a schema document.
type SchemaXref struct {
	IsRoot     bool
	Properties map[string]any
}

// SchemaTransformer extracts the published uids of a parsed schema document.
type SchemaTransformer interface {
	TransformXref(file xref.SourceFile, doc any) (map[string]SchemaXref, error)
}

// Schema describes how uids are published by documents of one type.
type Schema struct {
	// Name matches the "### YamlMime:<Name>" header or the "$schema" name.
	Name string
	// Files are doublestar globs over content-relative paths. Documents that
	// declare no schema are bound to the first schema whose glob matches.
	Files []string
	// Items are JSONPath selectors for objects that carry a uid. When empty
	// every object with a string uid is published.
	Items []string
	// Properties maps a property name to a JSONPath evaluated against the item.
	Properties map[string]string
}

var defaultProperties = map[string]string{
	"name":         "$.name",
	"fullName":     "$.fullName",
	"nameWithType": "$.nameWithType",
}

// JSONPathTransformer implements SchemaTransformer with compiled JSONPath selectors.
type JSONPathTransformer struct {
	items []jp.Expr
	props map[string]jp.Expr
	names []string
}

// NewJSONPathTransformer compiles the selectors of s.
func NewJSONPathTransformer(s Schema) (*JSONPathTransformer, error) {
	t := &JSONPathTransformer{props: make(map[string]jp.Expr)}
	for _, sel := range s.Items {
		x, err := jp.ParseString(sel)
		if err != nil {
			return nil, fmt.Errorf("schema %s: invalid items selector '%s': %w", s.Name, sel, err)
		}
		t.items = append(t.items, x)
	}
	props := s.Properties
	if len(props) == 0 {
		props = defaultProperties
	}
	for name, sel := range props {
		x, err := jp.ParseString(sel)
		if err != nil {
			return nil, fmt.Errorf("schema %s: invalid selector '%s' for %s: %w", s.Name, sel, name, err)
		}
		t.props[name] = x
	}
	t.names = slices.Sorted(maps.Keys(t.props))
	return t, nil
}

// TransformXref returns the uids of doc. The root object's uid, if any, is the root record.
func (t *JSONPathTransformer) TransformXref(_ xref.SourceFile, doc any) (map[string]SchemaXref, error) {
	out := make(map[string]SchemaXref)

	rootUID := ""
	if root, ok := doc.(map[string]any); ok {
		if uid, ok := root["uid"].(string); ok && uid != "" {
			rootUID = uid
			out[uid] = SchemaXref{IsRoot: true, Properties: t.properties(root)}
		}
	}

	var items []any
	if len(t.items) == 0 {
		items = collectUIDObjects(doc, nil)
	} else {
		for _, x := range t.items {
			items = append(items, x.Get(doc)...)
		}
	}
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		uid, ok := obj["uid"].(string)
		if !ok || uid == "" || uid == rootUID {
			continue
		}
		if _, dup := out[uid]; dup {
			return nil, fmt.Errorf("uid %q is declared more than once", uid)
		}
		out[uid] = SchemaXref{Properties: t.properties(obj)}
	}
	return out, nil
}

func (t *JSONPathTransformer) properties(obj map[string]any) map[string]any {
	props := make(map[string]any, len(t.names))
	for _, name := range t.names {
		if v := t.props[name].First(obj); v != nil {
			props[name] = v
		}
	}
	for k, v := range obj {
		// Language specific names (name.csharp, name.vb) are always published.
		if len(k) > len("name.") && k[:len("name.")] == "name." {
			props[k] = v
		}
	}
	return props
}

func collectUIDObjects(v any, acc []any) []any {
	switch t := v.(type) {
	case map[string]any:
		if _, ok := t["uid"].(string); ok {
			acc = append(acc, t)
		}
		for _, k := range slices.Sorted(maps.Keys(t)) {
			acc = collectUIDObjects(t[k], acc)
		}
	case []any:
		for _, item := range t {
			acc = collectUIDObjects(item, acc)
		}
	}
	return acc
}
