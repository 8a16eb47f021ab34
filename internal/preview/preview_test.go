package preview

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldIgnoreEvent(t *testing.T) {
	assert.True(t, shouldIgnoreEvent("/tmp/.hidden.md"))
	assert.True(t, shouldIgnoreEvent("/tmp/#foo#"))
	assert.True(t, shouldIgnoreEvent("/tmp/foo.swp"))
	assert.True(t, shouldIgnoreEvent("/tmp/foo.md~"))
	assert.False(t, shouldIgnoreEvent("/tmp/visible.md"))
}

func TestIsUnder(t *testing.T) {
	dirs := []string{filepath.FromSlash("/site/out")}
	assert.True(t, isUnder(filepath.FromSlash("/site/out"), dirs))
	assert.True(t, isUnder(filepath.FromSlash("/site/out/a.html"), dirs))
	assert.False(t, isUnder(filepath.FromSlash("/site/outside/a.html"), dirs))
}

func TestDebouncer_CoalescesTriggers(t *testing.T) {
	req, trigger := setupRebuildDebouncer(20 * time.Millisecond)
	for range 5 {
		trigger()
	}
	select {
	case <-req:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced request not delivered")
	}
	select {
	case <-req:
		t.Fatal("expected a single request")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHandler_UnavailableUntilGoodBuild(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("hello"), 0o600))
	s := New(Options{OutputDir: out, Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "metrics")
	})}, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/index.html", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.status.record(errors.New("boom"))
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/index.html", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "boom")

	s.status.record(nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/index.html", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"builds":2`)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "metrics", rec.Body.String())
}

func TestRun_RebuildsOnChange(t *testing.T) {
	content := t.TempDir()
	out := filepath.Join(content, "_site")
	require.NoError(t, os.MkdirAll(out, 0o750))

	var builds atomic.Int32
	s := New(Options{
		Addr:       "127.0.0.1:0",
		ContentDir: content,
		OutputDir:  out,
		Ignore:     []string{out},
		Debounce:   20 * time.Millisecond,
	}, func(context.Context) error {
		builds.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Addr() != "" }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), builds.Load())

	// Output writes do not trigger a rebuild.
	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(content, "page.md"), []byte("# Page\n"), 0o600))
	require.Eventually(t, func() bool { return builds.Load() == 2 }, 5*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + s.Addr() + "/index.html")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_MissingContentDir(t *testing.T) {
	s := New(Options{ContentDir: filepath.Join(t.TempDir(), "missing")}, func(context.Context) error { return nil })
	require.Error(t, s.Run(t.Context()))
}
