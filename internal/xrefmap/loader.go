package xrefmap

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docxref/internal/foundation/errors"
	"git.home.luguber.info/inful/docxref/internal/logfields"
	"git.home.luguber.info/inful/docxref/internal/retry"
)

// Loader loads xref maps from local paths or http(s) URLs.
type Loader struct {
	// CacheDir holds restored copies of remote maps and JSON index sidecars.
	CacheDir string
	// Offline forbids network fetches; remote maps must already be restored.
	Offline bool
	// Refresh re-fetches remote maps even when a restored copy exists.
	Refresh bool
	// Sidecar enables the persisted JSON index.
	Sidecar bool
	// Retry governs re-fetching remote maps after network failures and
	// server errors.
	Retry  retry.Policy
	Client *http.Client
}

// NewLoader returns a loader that caches under cacheDir.
func NewLoader(cacheDir string) *Loader {
	return &Loader{
		CacheDir: cacheDir,
		Sidecar:  true,
		Retry:    retry.DefaultPolicy(),
		Client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Load reads every source in order. A uid present in several sources
// resolves to the first source that declares it. Any failure is fatal.
func (l *Loader) Load(ctx context.Context, sources []string) (*Map, error) {
	m := newMap()
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()

		local, err := l.localPath(ctx, src)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryXrefMap, "failed to restore xref map").
				Fatal().
				WithContext("source", src).
				Build()
		}

		var added int
		switch ext := strings.ToLower(filepath.Ext(local)); ext {
		case ".yml", ".yaml":
			added, err = l.loadYAML(m, local)
		case ".json":
			added, err = l.loadJSON(m, local)
		default:
			err = fmt.Errorf("unsupported xref map extension %q", ext)
		}
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryXrefMap, "invalid xref map").
				Fatal().
				WithContext("source", src).
				Build()
		}
		m.sources = append(m.sources, local)

		slog.Debug("Loaded xref map",
			logfields.Source(src),
			logfields.Count(added),
			logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	}
	return m, nil
}

func (l *Loader) loadYAML(m *Map, local string) (int, error) {
	raw, err := os.ReadFile(local) // #nosec G304 -- configured xref map
	if err != nil {
		return 0, err
	}
	var doc struct {
		References []map[string]any `yaml:"references"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return 0, err
	}
	if doc.References == nil {
		return 0, fmt.Errorf("missing top-level references array")
	}

	added, skipped := 0, 0
	for _, fields := range doc.References {
		rec, err := recordFromFields(fields)
		if err != nil {
			skipped++
			continue
		}
		if m.add(rec.UID, &entry{path: local, record: rec}) {
			added++
		}
	}
	warnSkipped(local, skipped)
	return added, nil
}

// warnSkipped reports references dropped for lacking a string uid.
func warnSkipped(local string, skipped int) {
	if skipped > 0 {
		slog.Warn("Skipping xref map references without a uid", logfields.Path(local), logfields.Count(skipped))
	}
}

func (l *Loader) loadJSON(m *Map, local string) (int, error) {
	info, err := os.Stat(local)
	if err != nil {
		return 0, err
	}

	var entries []indexEntry
	var cached bool
	var scPath string
	if l.Sidecar && l.CacheDir != "" {
		scPath = sidecarPath(l.CacheDir, local)
		entries, cached, err = readSidecar(scPath, info)
		if err != nil {
			slog.Warn("Ignoring unreadable xref map index", logfields.Path(scPath), logfields.Error(err))
			cached = false
		}
	}

	if !cached {
		f, err := os.Open(local) // #nosec G304 -- configured xref map
		if err != nil {
			return 0, err
		}
		var skipped int
		entries, skipped, err = scanReferences(f)
		_ = f.Close()
		if err != nil {
			return 0, err
		}
		warnSkipped(local, skipped)
		if scPath != "" {
			if err := writeSidecar(scPath, info, entries); err != nil {
				slog.Warn("Failed to persist xref map index", logfields.Path(scPath), logfields.Error(err))
			}
		}
	}

	added := 0
	for _, ie := range entries {
		if m.add(ie.UID, &entry{path: local, span: span{Start: ie.Start, End: ie.End}}) {
			added++
		}
	}
	return added, nil
}

// localPath returns a local file for src, restoring remote maps into the cache.
func (l *Loader) localPath(ctx context.Context, src string) (string, error) {
	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		if _, err := os.Stat(src); err != nil {
			return "", err
		}
		return src, nil
	}

	dir := l.CacheDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "docxref-xrefmap")
	}
	sum := sha256.Sum256([]byte(src))
	target := filepath.Join(dir, "remote", hex.EncodeToString(sum[:])+restoredExt(u))

	if _, err := os.Stat(target); err == nil && (l.Offline || !l.Refresh) {
		return target, nil
	}
	if l.Offline {
		return "", fmt.Errorf("xref map %s is not restored and offline mode is set", src)
	}
	attempt := 0
	err = l.Retry.Do(ctx, isRetryable, func() error {
		attempt++
		if attempt > 1 {
			slog.Warn("Retrying xref map fetch", logfields.Source(src), slog.Int("attempt", attempt))
		}
		return l.fetch(ctx, src, target)
	})
	if err != nil {
		return "", err
	}
	return target, nil
}

func isRetryable(err error) bool {
	classified, ok := errors.AsClassified(err)
	return ok && classified.CanRetry()
}

func restoredExt(u *url.URL) string {
	switch ext := strings.ToLower(path.Ext(u.Path)); ext {
	case ".yml", ".yaml", ".json":
		return ext
	default:
		return ".json"
	}
}

func (l *Loader) fetch(ctx context.Context, src, target string) error {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "xref map fetch failed").
			Retryable().
			WithContext("url", src).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		b := errors.NetworkError(fmt.Sprintf("xref map fetch returned %s", resp.Status)).
			WithContext("url", src)
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			b = b.Retryable()
		}
		return b.Build()
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(target), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	slog.Info("Restored remote xref map", logfields.Source(src), logfields.Path(target))
	return os.Rename(tmp, target)
}
