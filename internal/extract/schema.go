package extract

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/ohler55/ojg/oj"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docxref/internal/foundation/errors"
	"git.home.luguber.info/inful/docxref/internal/report"
	"git.home.luguber.info/inful/docxref/internal/util/globs"
	"git.home.luguber.info/inful/docxref/internal/xref"
)

const yamlMimePrefix = "### YamlMime:"

// SchemaExtractor publishes the uids of YAML and JSON schema documents.
type SchemaExtractor struct {
	transformers map[string]SchemaTransformer
	routes       []schemaRoute
	monikers     MonikerProvider
}

type schemaRoute struct {
	schema string
	globs  []string
}

// NewSchemaExtractor compiles a JSONPathTransformer per schema.
func NewSchemaExtractor(schemas []Schema, monikers MonikerProvider) (*SchemaExtractor, error) {
	e := &SchemaExtractor{transformers: make(map[string]SchemaTransformer), monikers: monikers}
	for _, s := range schemas {
		t, err := NewJSONPathTransformer(s)
		if err != nil {
			return nil, err
		}
		e.transformers[strings.ToLower(s.Name)] = t
		if len(s.Files) == 0 {
			continue
		}
		for _, g := range s.Files {
			if err := globs.Validate(g); err != nil {
				return nil, fmt.Errorf("schema %s: %w", s.Name, err)
			}
		}
		e.routes = append(e.routes, schemaRoute{schema: s.Name, globs: s.Files})
	}
	return e, nil
}

// schemaFor returns the first schema whose files globs match rel.
func (e *SchemaExtractor) schemaFor(rel string) string {
	for _, r := range e.routes {
		for _, g := range r.globs {
			if ok, _ := globs.Match(g, rel); ok {
				return r.schema
			}
		}
	}
	return ""
}

// Register installs a custom transformer for schema name.
func (e *SchemaExtractor) Register(name string, t SchemaTransformer) {
	e.transformers[strings.ToLower(name)] = t
}

// Extract parses file and returns one record per published uid. A document
// without a schema declaration is bound through the files globs; when none
// matches it publishes nothing.
func (e *SchemaExtractor) Extract(file xref.SourceFile) ([]*xref.XrefRecord, error) {
	content, err := os.ReadFile(file.FullPath) // #nosec G304 -- discovered content file
	if err != nil {
		return nil, &FileError{Code: report.IssueExtractFailure, File: file.Path, Err: err}
	}

	doc, schemaName, err := parseSchemaDocument(file.Path, content)
	if err != nil {
		return nil, &FileError{
			Code: report.IssueSchemaParse,
			File: file.Path,
			Err:  errors.SchemaError("failed to parse schema document").WithCause(err).Build(),
		}
	}
	if schemaName == "" {
		schemaName = e.schemaFor(file.Path)
	}
	if schemaName == "" {
		return nil, nil
	}
	t, ok := e.transformers[strings.ToLower(schemaName)]
	if !ok {
		return nil, &FileError{
			Code: report.IssueSchemaNotFound,
			File: file.Path,
			Err:  errors.SchemaError(fmt.Sprintf("schema %q is not configured", schemaName)).Build(),
		}
	}

	xrefs, err := t.TransformXref(file, doc)
	if err != nil {
		return nil, &FileError{
			Code: report.IssueSchemaParse,
			File: file.Path,
			Err:  errors.SchemaError("failed to transform schema document").WithCause(err).Build(),
		}
	}

	var docMonikers []string
	if root, ok := doc.(map[string]any); ok {
		docMonikers = stringSlice(root["monikers"])
	}
	var monikers []string
	if e.monikers != nil {
		monikers = e.monikers.FileMonikers(file.Path, docMonikers)
	} else {
		monikers = docMonikers
	}

	fileURL := OutputPath(file.Path)
	recs := make([]*xref.XrefRecord, 0, len(xrefs))
	for uid, sx := range xrefs {
		href := fileURL
		if !sx.IsRoot {
			href = fileURL + "#" + Bookmark(uid)
		}
		rec := xref.NewRecord(uid, href, file.Path).WithMonikers(monikers...)
		for name, v := range sx.Properties {
			rec.Set(name, lazyValue(v))
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// lazyValue turns {xref: <uid>, property: <name>} into a deferred value.
func lazyValue(v any) xref.LazyValue {
	if m, ok := v.(map[string]any); ok {
		if uid, ok := m["xref"].(string); ok && uid != "" {
			prop, _ := m["property"].(string)
			if prop == "" {
				prop = "name"
			}
			return xref.Deferred(uid, prop)
		}
	}
	return xref.Literal(v)
}

// parseSchemaDocument decodes content and returns the declared schema name.
func parseSchemaDocument(rel string, content []byte) (any, string, error) {
	switch strings.ToLower(path.Ext(rel)) {
	case ".json":
		doc, err := oj.Parse(content)
		if err != nil {
			return nil, "", err
		}
		name := ""
		if root, ok := doc.(map[string]any); ok {
			if s, ok := root["$schema"].(string); ok {
				name = schemaNameFromURL(s)
			}
		}
		return doc, name, nil
	default:
		var doc any
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return nil, "", err
		}
		return doc, yamlMime(content), nil
	}
}

func yamlMime(content []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(content))
	if sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, yamlMimePrefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, yamlMimePrefix))
		}
	}
	return ""
}

// schemaNameFromURL returns "RestApi" for ".../RestApi.schema.json".
func schemaNameFromURL(s string) string {
	base := path.Base(s)
	base = strings.TrimSuffix(base, ".json")
	base = strings.TrimSuffix(base, ".schema")
	return base
}

func stringSlice(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
