// Package preview serves a built site and rebuilds it when content changes.
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docxref/internal/logfields"
)

// BuildFunc runs one build of the site.
type BuildFunc func(ctx context.Context) error

// Options configures a preview Server.
type Options struct {
	// Addr is the HTTP listen address.
	Addr string
	// ContentDir is watched recursively for changes.
	ContentDir string
	// OutputDir is served over HTTP.
	OutputDir string
	// Ignore lists directories whose events never trigger a rebuild.
	Ignore []string
	// Debounce delays rebuilds until changes settle. Defaults to 300ms.
	Debounce time.Duration
	// Metrics, when set, is mounted at /metrics.
	Metrics http.Handler
}

type buildStatus struct {
	mu           sync.RWMutex
	lastError    error
	hasGoodBuild bool
	builds       int
	lastBuild    time.Time
}

func (bs *buildStatus) record(err error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.builds++
	bs.lastBuild = time.Now()
	bs.lastError = err
	if err == nil {
		bs.hasGoodBuild = true
	}
}

func (bs *buildStatus) snapshot() (hasGoodBuild bool, builds int, last time.Time, err error) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return bs.hasGoodBuild, bs.builds, bs.lastBuild, bs.lastError
}

// Server is a watch-rebuild-serve loop.
type Server struct {
	opts   Options
	build  BuildFunc
	status buildStatus

	mu   sync.Mutex
	addr string
}

// New returns a Server that runs build on start and after every change.
func New(opts Options, build BuildFunc) *Server {
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	return &Server{opts: opts, build: build}
}

// Addr returns the bound listen address once Run has started serving.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Handler serves the output directory, /healthz and optionally /metrics.
// Until a build succeeds, site requests get 503 with the last build error.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	files := http.FileServer(http.Dir(s.opts.OutputDir))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		good, _, _, err := s.status.snapshot()
		if !good {
			msg := "site not built yet"
			if err != nil {
				msg = fmt.Sprintf("build failed: %v", err)
			}
			http.Error(w, msg, http.StatusServiceUnavailable)
			return
		}
		files.ServeHTTP(w, r)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		good, builds, last, err := s.status.snapshot()
		body := map[string]any{
			"status": "ok",
			"builds": builds,
		}
		if !last.IsZero() {
			body["last_build"] = last.UTC().Format(time.RFC3339)
		}
		if err != nil {
			body["status"] = "error"
			body["error"] = err.Error()
		}
		w.Header().Set("Content-Type", "application/json")
		if !good {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(body)
	})
	if s.opts.Metrics != nil {
		mux.Handle("/metrics", s.opts.Metrics)
	}
	return mux
}

// Run builds once, starts the HTTP server and rebuilds on content changes
// until ctx is done. A failing build does not stop the loop.
func (s *Server) Run(ctx context.Context) error {
	absContent, err := filepath.Abs(s.opts.ContentDir)
	if err != nil {
		return fmt.Errorf("resolve content dir: %w", err)
	}
	if st, statErr := os.Stat(absContent); statErr != nil || !st.IsDir() {
		return fmt.Errorf("content dir not found or not a directory: %s", absContent)
	}

	s.rebuild(ctx)

	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if serr := srv.Serve(ln); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			slog.Error("Preview server stopped", logfields.Error(serr))
		}
	}()
	slog.Info("Preview server listening", slog.String("url", "http://"+s.Addr()))

	watcher, err := setupFileWatcher(absContent, s.ignored())
	if err != nil {
		_ = srv.Close()
		return err
	}
	defer func() { _ = watcher.Close() }()

	rebuildReq, trigger := setupRebuildDebouncer(s.opts.Debounce)
	s.startRebuildWorker(ctx, rebuildReq)

	return s.runLoop(ctx, watcher, trigger, srv)
}

func (s *Server) ignored() []string {
	out := make([]string, 0, len(s.opts.Ignore))
	for _, dir := range s.opts.Ignore {
		if abs, err := filepath.Abs(dir); err == nil {
			out = append(out, abs)
		}
	}
	return out
}

func (s *Server) rebuild(ctx context.Context) {
	err := s.build(ctx)
	s.status.record(err)
	if err != nil {
		slog.Warn("Rebuild failed", logfields.Error(err))
	}
}

func setupFileWatcher(root string, ignored []string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	if err := addDirsRecursive(watcher, root, ignored); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	return watcher, nil
}

// setupRebuildDebouncer returns a request channel and a trigger that fires
// the channel once changes have been quiet for delay.
func setupRebuildDebouncer(delay time.Duration) (chan struct{}, func()) {
	var mu sync.Mutex
	var timer *time.Timer
	rebuildReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(delay, func() {
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		})
	}
	return rebuildReq, trigger
}

func (s *Server) startRebuildWorker(ctx context.Context, rebuildReq <-chan struct{}) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-rebuildReq:
				slog.Info("Change detected; rebuilding site")
				s.rebuild(ctx)
			}
		}
	}()
}

func (s *Server) runLoop(ctx context.Context, watcher *fsnotify.Watcher, trigger func(), srv *http.Server) error {
	ignored := s.ignored()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Shutting down preview server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Warn("HTTP server shutdown error", logfields.Error(err))
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			handleFileEvent(watcher, ev, ignored, trigger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func handleFileEvent(watcher *fsnotify.Watcher, ev fsnotify.Event, ignored []string, trigger func()) {
	if shouldIgnoreEvent(ev.Name) || isUnder(ev.Name, ignored) {
		return
	}
	if ev.Op.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(watcher, ev.Name, ignored)
		}
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	trigger()
}

func addDirsRecursive(w *fsnotify.Watcher, root string, ignored []string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if p != root && (strings.HasPrefix(d.Name(), ".") || isUnder(p, ignored)) {
			return filepath.SkipDir
		}
		if err := w.Add(p); err != nil {
			slog.Warn("Watch add failed", logfields.Path(p), logfields.Error(err))
		}
		return nil
	})
}

func isUnder(p string, dirs []string) bool {
	for _, dir := range dirs {
		if p == dir || strings.HasPrefix(p, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// shouldIgnoreEvent reports editor temp files and other noise.
func shouldIgnoreEvent(p string) bool {
	base := filepath.Base(p)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
