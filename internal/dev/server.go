package dev

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	vanillaextract "github.com/Zhangdroid/vanilla-extract"
	"github.com/Zhangdroid/vanilla-extract/internal/config"
	"github.com/Zhangdroid/vanilla-extract/internal/errors"
	"github.com/Zhangdroid/vanilla-extract/pkg/virtualmod"
)

// ServerOptions configures the development server.
type ServerOptions struct {
	// Config is the project configuration.
	Config *config.Config

	// Plugin is the transform pipeline, not yet configured; the server
	// resolves it for serve mode and wires its collaborators.
	Plugin *vanillaextract.Plugin

	// Logger receives server logs. Defaults to a no-op logger.
	Logger *zap.Logger

	// Gatherer backs the /metrics endpoint. Defaults to the global
	// prometheus gatherer.
	Gatherer prometheus.Gatherer
}

// Server is the development server.
type Server struct {
	cfg      *config.Config
	plugin   *vanillaextract.Plugin
	log      *zap.Logger
	gatherer prometheus.Gatherer

	hub     *Hub
	watcher *Watcher
	graph   *Graph
	root    string

	httpServer *http.Server
	changeCh   chan string

	mu      sync.Mutex
	running bool
	// entries maps served style source paths to their URL paths, so
	// changes retransform exactly the modules browsers have loaded.
	entries map[string]string
}

// NewServer creates a development server and configures the plugin for
// serve mode.
func NewServer(opts ServerOptions) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	cfg := opts.Config
	root := cfg.Dir()
	if root == "" {
		root, _ = os.Getwd()
	}

	s := &Server{
		cfg:      cfg,
		plugin:   opts.Plugin,
		log:      log,
		gatherer: gatherer,
		graph:    NewGraph(),
		root:     root,
		entries:  make(map[string]string),
	}

	if cfg.HotReload() {
		s.hub = NewHub()
	}
	s.watcher = NewWatcher(WatcherConfig{
		Dirs:   cfg.WatchPaths(),
		Ignore: append(append([]string{}, DefaultIgnore...), cfg.Dev.Ignore...),
	})

	s.plugin.ConfigResolved(vanillaextract.ResolvedConfig{
		Root:       root,
		Production: false,
		Serve:      true,
	})
	var hub vanillaextract.Broadcaster
	if s.hub != nil {
		hub = s.hub
	}
	s.plugin.ConfigureServer(s.graph, hub, s.watcher)

	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	if s.hub != nil {
		r.Get("/__hmr", s.hub.HandleWebSocket)
	}
	r.Get(vanillaextract.RuntimePath, s.handleRuntime)
	r.Get("/@id/*", s.handleVirtual)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/*", s.handleFile)

	return r
}

// Start starts the development server. It blocks until the context is
// canceled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	s.changeCh = make(chan string, 64)
	s.watcher.OnChange(func(path string) {
		select {
		case s.changeCh <- path:
		default:
		}
	})

	go s.watcher.Start(ctx)
	go s.processChanges(ctx)

	s.httpServer = &http.Server{
		Addr:    s.cfg.DevAddress(),
		Handler: s.Handler(),
	}

	s.log.Info("dev server listening",
		zap.String("url", s.cfg.DevURL()),
		zap.Bool("hotReload", s.hub != nil))

	errCh := make(chan error, 1)
	go func() {
		err := s.httpServer.ListenAndServe()
		if err == http.ErrServerClosed {
			err = nil
		}
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		s.Stop()
		return nil
	case err := <-errCh:
		s.Stop()
		return err
	}
}

// Stop stops the development server.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false

	s.watcher.Stop()
	if s.hub != nil {
		s.hub.Close()
	}
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(ctx)
	}
}

// processChanges serializes file change handling and coalesces bursts.
func (s *Server) processChanges(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case first := <-s.changeCh:
			changed := []string{first}
			draining := true
			for draining {
				select {
				case next := <-s.changeCh:
					changed = append(changed, next)
				default:
					draining = false
				}
			}
			s.handleChanges(ctx, changed)
		}
	}
}

// handleChanges retransforms served style modules after style-relevant
// changes, and asks browsers for a full reload on anything else. The
// pipeline's own change detection keeps unchanged scopes silent, so
// retransforming every served entry stays cheap on the client side.
func (s *Server) handleChanges(ctx context.Context, changed []string) {
	styleRelated := false
	fullReload := false
	for _, p := range changed {
		s.log.Debug("file changed", zap.String("path", p))
		if s.plugin.IsStyleFile(p) || strings.HasSuffix(p, ".css") {
			styleRelated = true
		} else {
			fullReload = true
		}
	}

	if styleRelated {
		s.retransformEntries(ctx)
	}
	if fullReload && s.hub != nil {
		s.hub.Broadcast("full-reload", "")
		s.log.Info("full reload", zap.Int("clients", s.hub.ClientCount()))
	}
}

// retransformEntries recompiles every served style entry.
func (s *Server) retransformEntries(ctx context.Context) {
	s.mu.Lock()
	entries := make(map[string]string, len(s.entries))
	for abs, urlPath := range s.entries {
		entries[abs] = urlPath
	}
	s.mu.Unlock()

	for abs, urlPath := range entries {
		src, err := os.ReadFile(abs)
		if err != nil {
			s.log.Warn("style entry unreadable", zap.String("path", abs), zap.Error(err))
			continue
		}
		res, err := s.plugin.Transform(ctx, string(src), abs, false)
		if err != nil {
			s.log.Error("transform failed", zap.String("path", abs), zap.Error(err))
			continue
		}
		s.graph.Put(urlPath, Module{
			Code:        rewriteVirtualImports(res.Code),
			ContentType: "application/javascript; charset=utf-8",
		})
	}
}

// handleRuntime serves the browser runtime module.
func (s *Server) handleRuntime(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write([]byte(RuntimeScript))
}

// handleVirtual serves virtual modules mounted under /@id/.
func (s *Server) handleVirtual(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "*")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}

	if m, ok := s.graph.Get(raw); ok {
		w.Header().Set("Content-Type", m.ContentType)
		w.Write([]byte(m.Code))
		return
	}

	code, owned, err := s.plugin.Load(raw)
	if !owned {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.IsCode(err, errors.CodeUnregisteredScope) {
			status = http.StatusNotFound
		} else if errors.IsCode(err, errors.CodeMalformedIdentifier) {
			status = http.StatusBadRequest
		}
		s.log.Error("virtual module load failed", zap.String("id", raw), zap.Error(err))
		http.Error(w, err.Error(), status)
		return
	}

	contentType := "application/javascript; charset=utf-8"
	if strings.HasSuffix(raw, ".css") {
		contentType = "text/css; charset=utf-8"
	}
	s.graph.Put(raw, Module{Code: code, ContentType: contentType})

	w.Header().Set("Content-Type", contentType)
	w.Write([]byte(code))
}

// handleFile serves project files, transforming style sources into JS
// modules on the way out.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	urlPath := path.Clean(r.URL.Path)
	if urlPath == "/" {
		urlPath = "/index.html"
	}

	abs := filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(urlPath, "/")))
	if !withinDir(abs, s.root) {
		http.NotFound(w, r)
		return
	}

	if s.plugin.IsStyleFile(abs) {
		s.serveStyle(w, r, abs, urlPath)
		return
	}

	http.ServeFile(w, r, abs)
}

// serveStyle transforms a style source and serves it as a JS module.
func (s *Server) serveStyle(w http.ResponseWriter, r *http.Request, abs, urlPath string) {
	if m, ok := s.graph.Get(urlPath); ok {
		w.Header().Set("Content-Type", m.ContentType)
		w.Write([]byte(m.Code))
		return
	}

	src, err := os.ReadFile(abs)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	res, err := s.plugin.Transform(r.Context(), string(src), abs, false)
	if err != nil {
		s.log.Error("transform failed", zap.String("path", abs), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m := Module{
		Code:        rewriteVirtualImports(res.Code),
		ContentType: "application/javascript; charset=utf-8",
	}
	s.graph.Put(urlPath, m)

	s.mu.Lock()
	s.entries[abs] = urlPath
	s.mu.Unlock()

	w.Header().Set("Content-Type", m.ContentType)
	w.Write([]byte(m.Code))
}

// requestLogger logs each request at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// rewriteVirtualImports mounts virtual import specifiers under /@id/ so
// browsers can fetch them as plain URLs.
func rewriteVirtualImports(code string) string {
	return strings.ReplaceAll(code, `"`+virtualmod.Prefix, `"/@id/`+virtualmod.Prefix)
}

func withinDir(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}
