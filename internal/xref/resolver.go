package xref

import (
	stderrors "errors"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"git.home.luguber.info/inful/docxref/internal/logfields"
	"git.home.luguber.info/inful/docxref/internal/metrics"
	"git.home.luguber.info/inful/docxref/internal/xrefmap"
)

// DefaultCacheSize bounds the resolver result cache when Options.CacheSize is zero.
const DefaultCacheSize = 4096

// ExternalSource answers uids missing from the registry.
type ExternalSource interface {
	Lookup(uid string) (*xrefmap.Record, bool, error)
}

// Options configures a Resolver.
type Options struct {
	// SiteHost turns absolute hrefs on the site's own host into host-relative ones.
	SiteHost     string
	CacheSize    int
	Dependencies DependencyRecorder
	Recorder     metrics.Recorder
}

// Resolved is the outcome of a successful resolution.
type Resolved struct {
	UID           string
	Href          string
	DisplayText   string
	DeclaringFile string
	// Record is set for internal hits, External for external map hits.
	Record   *XrefRecord
	External *xrefmap.Record
}

// Resolver resolves xref queries against the registry and the external maps.
// It is safe for concurrent use as long as every goroutine uses its own
// ResolutionContext.
type Resolver struct {
	registry *Registry
	external ExternalSource
	siteHost string
	deps     DependencyRecorder
	recorder metrics.Recorder
	cache    *lru.Cache[string, *Resolved]
}

// NewResolver returns a resolver over reg and ext. ext may be nil.
func NewResolver(reg *Registry, ext ExternalSource, opts Options) (*Resolver, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *Resolved](size)
	if err != nil {
		return nil, fmt.Errorf("create resolver cache: %w", err)
	}
	deps := opts.Dependencies
	if deps == nil {
		deps = nopDependencies{}
	}
	return &Resolver{
		registry: reg,
		external: ext,
		siteHost: opts.SiteHost,
		deps:     deps,
		recorder: metrics.OrNoop(opts.Recorder),
		cache:    cache,
	}, nil
}

// Registry returns the registry the resolver reads.
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// Resolve resolves q for a link in referencingFile.
func (r *Resolver) Resolve(ctx *ResolutionContext, q Query, referencingFile string) (*Resolved, error) {
	if q.Raw != "" {
		if cached, ok := r.cache.Get(q.Raw); ok {
			r.recorder.IncXrefCacheHit()
			r.recordDependency(referencingFile, cached)
			return cached, nil
		}
	}

	res, err := r.resolve(ctx, q, referencingFile)
	if err != nil {
		return nil, err
	}
	r.recordDependency(referencingFile, res)
	if q.Raw != "" {
		r.cache.Add(q.Raw, res)
	}
	return res, nil
}

func (r *Resolver) resolve(ctx *ResolutionContext, q Query, referencingFile string) (*Resolved, error) {
	if rec, ok := r.registry.Select(q.UID, q.Moniker); ok {
		text, err := displayText(q, func(name string) (any, bool, error) {
			return r.Property(ctx, rec, name, referencingFile)
		})
		if err != nil {
			if stderrors.Is(err, ErrCircularReference) {
				r.recorder.IncXrefResolution(metrics.XrefCycle)
			}
			return nil, err
		}
		r.recorder.IncXrefResolution(metrics.XrefInternal)
		return &Resolved{
			UID:           rec.UID,
			Href:          mergeHref(rec.Href, q, r.siteHost),
			DisplayText:   text,
			DeclaringFile: rec.DeclaringFile,
			Record:        rec,
		}, nil
	}

	if ext, ok, err := r.lookupExternal(q.UID); err != nil {
		return nil, err
	} else if ok {
		text, err := displayText(q, func(name string) (any, bool, error) {
			v, ok := ext.Property(name)
			return v, ok, nil
		})
		if err != nil {
			return nil, err
		}
		r.recorder.IncXrefResolution(metrics.XrefExternal)
		return &Resolved{
			UID:         ext.UID,
			Href:        mergeHref(ext.Href, q, r.siteHost),
			DisplayText: text,
			External:    ext,
		}, nil
	}

	r.recorder.IncXrefResolution(metrics.XrefNotFound)
	return nil, notFoundError(q.UID)
}

func (r *Resolver) lookupExternal(uid string) (*xrefmap.Record, bool, error) {
	if r.external == nil {
		return nil, false, nil
	}
	rec, ok, err := r.external.Lookup(uid)
	if err != nil {
		return nil, false, fmt.Errorf("external xref %q: %w", uid, err)
	}
	return rec, ok && rec != nil, nil
}

// displayText applies text=, then displayProperty=, then name, then the uid.
func displayText(q Query, prop func(string) (any, bool, error)) (string, error) {
	if q.Text != "" {
		return q.Text, nil
	}
	if q.DisplayProperty != "" {
		v, ok, err := prop(q.DisplayProperty)
		if err != nil {
			return "", err
		}
		if s := displayString(v); ok && s != "" {
			return s, nil
		}
	}
	v, ok, err := prop("name")
	if err != nil {
		return "", err
	}
	if s := displayString(v); ok && s != "" {
		return s, nil
	}
	return q.UID, nil
}

func displayString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func (r *Resolver) recordDependency(from string, res *Resolved) {
	if from == "" || res.DeclaringFile == "" || from == res.DeclaringFile {
		return
	}
	r.deps.RecordDependency(from, res.DeclaringFile)
}

// Property evaluates property name of rec. Deferred values are resolved
// through the registry or the external maps and memoized on rec after the
// first successful evaluation. Re-entering the same property of the same uid
// within ctx fails with ErrCircularReference.
func (r *Resolver) Property(ctx *ResolutionContext, rec *XrefRecord, name, referencingFile string) (any, bool, error) {
	if v, ok := rec.memo.Load(name); ok {
		return v, true, nil
	}
	lv, ok := rec.Properties[name]
	if !ok {
		return nil, false, nil
	}
	ref, deferred := lv.Ref()
	if !deferred {
		return lv.Value(), true, nil
	}

	if err := ctx.push(name, rec.UID, referencingFile); err != nil {
		return nil, false, err
	}
	defer ctx.pop()

	v, found, err := r.deferredValue(ctx, ref, rec.DeclaringFile)
	if err != nil {
		return nil, false, err
	}
	if found {
		rec.memo.Store(name, v)
	}
	return v, found, nil
}

func (r *Resolver) deferredValue(ctx *ResolutionContext, ref PropertyRef, declaringFile string) (any, bool, error) {
	if target, ok := r.registry.Select(ref.UID, ""); ok {
		return r.Property(ctx, target, ref.Property, declaringFile)
	}
	ext, ok, err := r.lookupExternal(ref.UID)
	if err != nil {
		return nil, false, err
	}
	if ok {
		v, found := ext.Property(ref.Property)
		return v, found, nil
	}
	// A dangling reference leaves the property unset.
	slog.Debug("Deferred property target not found", logfields.UID(ref.UID), logfields.File(declaringFile))
	return nil, false, nil
}

// ResolveHref resolves an xref href for the rendering layer and returns the
// final href, display text and declaring file. On failure the display text is
// the raw uid so callers can degrade the link.
func (r *Resolver) ResolveHref(href, referencingFile string) (string, string, string, error) {
	q, err := ParseQuery(href)
	if err != nil {
		return "", q.UID, "", err
	}
	res, err := r.Resolve(NewResolutionContext(referencingFile), q, referencingFile)
	if err != nil {
		text := q.UID
		if q.Text != "" {
			text = q.Text
		}
		if !stderrors.Is(err, ErrXrefNotFound) {
			slog.Warn("Xref resolution failed", logfields.UID(q.UID), logfields.File(referencingFile), logfields.Error(err))
		}
		return "", text, "", err
	}
	return res.Href, res.DisplayText, res.DeclaringFile, nil
}
