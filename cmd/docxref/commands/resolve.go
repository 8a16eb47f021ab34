package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"git.home.luguber.info/inful/docxref/internal/build"
	"git.home.luguber.info/inful/docxref/internal/config"
	"git.home.luguber.info/inful/docxref/internal/foundation/errors"
	"git.home.luguber.info/inful/docxref/internal/xref"
)

// ResolveCmd implements the 'resolve' command.
type ResolveCmd struct {
	Query    string   `arg:"" help:"Uid or xref query, e.g. 'System.String?displayProperty=fullName#remarks'"`
	From     string   `help:"Referencing file, relative to the content root"`
	Property []string `short:"p" help:"Additional properties to print"`
	JSON     bool     `name:"json" help:"Print the result as JSON"`
}

type resolveOutput struct {
	UID           string         `json:"uid"`
	Href          string         `json:"href"`
	Text          string         `json:"text"`
	Source        string         `json:"source"`
	DeclaringFile string         `json:"declaringFile,omitempty"`
	Properties    map[string]any `json:"properties,omitempty"`
}

func (r *ResolveCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	sess, err := build.NewService().Prepare(ctx, cfg)
	if err != nil {
		return err
	}
	out, err := r.resolve(sess.Resolver)
	if err != nil {
		return err
	}
	return r.print(os.Stdout, out)
}

func (r *ResolveCmd) resolve(resolver *xref.Resolver) (*resolveOutput, error) {
	q, err := xref.ParseQuery(r.Query)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "invalid xref query").
			WithContext("query", r.Query).
			Build()
	}
	rctx := xref.NewResolutionContext(r.From)
	res, err := resolver.Resolve(rctx, q, r.From)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryXref, "unable to resolve uid").
			ForUID(q.UID).
			Build()
	}

	out := &resolveOutput{
		UID:           res.UID,
		Href:          res.Href,
		Text:          res.DisplayText,
		Source:        "internal",
		DeclaringFile: res.DeclaringFile,
	}
	if res.External != nil {
		out.Source = "external"
	}
	for _, name := range r.Property {
		var (
			v  any
			ok bool
		)
		switch {
		case res.Record != nil:
			v, ok, err = resolver.Property(rctx, res.Record, name, r.From)
			if err != nil {
				return nil, errors.WrapError(err, errors.CategoryXref, "unable to evaluate property").
					WithContext("property", name).
					Build()
			}
		case res.External != nil:
			v, ok = res.External.Property(name)
		}
		if !ok {
			continue
		}
		if out.Properties == nil {
			out.Properties = map[string]any{}
		}
		out.Properties[name] = v
	}
	return out, nil
}

func (r *ResolveCmd) print(w io.Writer, out *resolveOutput) error {
	if r.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	_, _ = fmt.Fprintf(w, "uid:    %s\nhref:   %s\ntext:   %s\nsource: %s\n", out.UID, out.Href, out.Text, out.Source)
	if out.DeclaringFile != "" {
		_, _ = fmt.Fprintf(w, "file:   %s\n", out.DeclaringFile)
	}
	names := make([]string, 0, len(out.Properties))
	for name := range out.Properties {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "%s: %v\n", name, out.Properties[name])
	}
	return nil
}
