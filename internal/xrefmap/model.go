package xrefmap

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Record is one reference from an external map.
type Record struct {
	UID        string
	Href       string
	Properties map[string]any
}

// Property returns a property value; uid and href are addressable too.
func (r *Record) Property(name string) (any, bool) {
	switch name {
	case "uid":
		return r.UID, true
	case "href":
		return r.Href, true
	}
	v, ok := r.Properties[name]
	return v, ok
}

// Model is the serialized form of an xref map.
type Model struct {
	References []map[string]any `json:"references" yaml:"references"`
}

func recordFromFields(fields map[string]any) (*Record, error) {
	uid, ok := fields["uid"].(string)
	if !ok || uid == "" {
		return nil, fmt.Errorf("reference without uid")
	}
	href, _ := fields["href"].(string)
	props := maps.Clone(fields)
	delete(props, "uid")
	delete(props, "href")
	return &Record{UID: uid, Href: href, Properties: props}, nil
}

// Save writes m to path as JSON, or YAML when path ends in .yml/.yaml.
func Save(path string, m *Model) error {
	if m.References == nil {
		m.References = []map[string]any{}
	}
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		data, err = yaml.Marshal(m)
	default:
		data, err = json.MarshalIndent(m, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal xref map: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
