package xref

import (
	stderrors "errors"

	"git.home.luguber.info/inful/docxref/internal/xrefmap"
)

// ToXrefMapModel serializes the registry into the external map shape:
// references sorted by uid and then registry order, properties evaluated and
// monikers listed for conditional records. Properties that fail to evaluate
// are omitted and their errors returned alongside the model.
func (r *Resolver) ToXrefMapModel() (*xrefmap.Model, error) {
	model := &xrefmap.Model{References: []map[string]any{}}
	var errs []error

	for _, uid := range r.registry.UIDs() {
		for _, rec := range r.registry.Lookup(uid) {
			ref := map[string]any{
				"uid":  rec.UID,
				"href": rec.Href,
			}
			if rec.IsConditional() {
				ref["monikers"] = rec.MonikerList()
			}
			ctx := NewResolutionContext(rec.DeclaringFile)
			for _, name := range rec.PropertyNames() {
				if name == "uid" || name == "href" {
					continue
				}
				v, ok, err := r.Property(ctx, rec, name, rec.DeclaringFile)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				if ok {
					ref[name] = v
				}
			}
			model.References = append(model.References, ref)
		}
	}
	return model, stderrors.Join(errs...)
}

// WriteXrefMap writes the registry as an xref map to path. Property
// evaluation errors do not prevent writing; they are returned afterwards.
func (r *Resolver) WriteXrefMap(path string) error {
	model, evalErr := r.ToXrefMapModel()
	if err := xrefmap.Save(path, model); err != nil {
		return err
	}
	return evalErr
}
