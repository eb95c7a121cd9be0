package dev

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	vanillaextract "github.com/Zhangdroid/vanilla-extract"
	"github.com/Zhangdroid/vanilla-extract/internal/config"
	"github.com/Zhangdroid/vanilla-extract/internal/metrics"
	"github.com/Zhangdroid/vanilla-extract/pkg/cssregistry"
	"github.com/Zhangdroid/vanilla-extract/pkg/filescope"
)

func TestWatcher_DetectsChange(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "theme.css.ts")
	if err := os.WriteFile(testFile, []byte(".a{}"), 0644); err != nil {
		t.Fatal(err)
	}

	watcher := NewWatcher(WatcherConfig{
		Dirs:     []string{tmpDir},
		Interval: 20 * time.Millisecond,
	})

	changes := make(chan string, 10)
	watcher.OnChange(func(p string) {
		changes <- p
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Start(ctx)
	defer watcher.Stop()

	// Wait for the initial scan.
	time.Sleep(100 * time.Millisecond)

	// mtime granularity on some filesystems is one second
	future := time.Now().Add(2 * time.Second)
	if err := os.WriteFile(testFile, []byte(".a{color:red}"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(testFile, future, future); err != nil {
		t.Fatal(err)
	}

	select {
	case p := <-changes:
		if p != testFile {
			t.Errorf("changed path = %q, want %q", p, testFile)
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for change")
	}
}

func TestWatcher_WatchFile(t *testing.T) {
	tmpDir := t.TempDir()
	dep := filepath.Join(tmpDir, "colors.css")
	if err := os.WriteFile(dep, []byte(".b{}"), 0644); err != nil {
		t.Fatal(err)
	}

	// No watched dirs; only the registered file is polled.
	watcher := NewWatcher(WatcherConfig{Interval: 20 * time.Millisecond})
	watcher.WatchFile(dep)

	changes := make(chan string, 10)
	watcher.OnChange(func(p string) {
		changes <- p
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Start(ctx)
	defer watcher.Stop()

	time.Sleep(100 * time.Millisecond)

	future := time.Now().Add(2 * time.Second)
	if err := os.WriteFile(dep, []byte(".b{color:blue}"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(dep, future, future); err != nil {
		t.Fatal(err)
	}

	select {
	case p := <-changes:
		if p != dep {
			t.Errorf("changed path = %q, want %q", p, dep)
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for registered file change")
	}
}

func TestWatcher_Ignore(t *testing.T) {
	w := NewWatcher(WatcherConfig{Ignore: DefaultIgnore})

	tests := []struct {
		path string
		want bool
	}{
		{"/p/node_modules/pkg/index.js", true},
		{"/p/.git/HEAD", true},
		{"/p/src/theme.css.ts", false},
		{"/p/src/editor.swp", true},
		{"/p/dist/out.css", true},
	}
	for _, tt := range tests {
		if got := w.ignored(tt.path); got != tt.want {
			t.Errorf("ignored(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestGraph(t *testing.T) {
	g := NewGraph()

	if _, ok := g.Get("a"); ok {
		t.Error("empty graph returned a module")
	}
	if g.Invalidate("a") {
		t.Error("Invalidate on missing id reported true")
	}

	g.Put("a", Module{Code: "x", ContentType: "text/css"})
	if m, ok := g.Get("a"); !ok || m.Code != "x" {
		t.Errorf("Get = %+v, %v", m, ok)
	}
	if g.Len() != 1 {
		t.Errorf("Len = %d", g.Len())
	}

	if !g.Invalidate("a") {
		t.Error("Invalidate on present id reported false")
	}
	if _, ok := g.Get("a"); ok {
		t.Error("module survived invalidation")
	}
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Broadcast("vanilla-extract-style-update:src/a.css.ts.ts", ".a{color:red}")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if frame.Event != "vanilla-extract-style-update:src/a.css.ts.ts" {
		t.Errorf("event = %q", frame.Event)
	}
	if frame.Data != ".a{color:red}" {
		t.Errorf("data = %q", frame.Data)
	}
}

func TestHub_ConcurrentBroadcast(t *testing.T) {
	// Concurrent transforms broadcast from separate request goroutines;
	// the per-connection write lock must keep every frame intact.
	hub := NewHub()
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Broadcast("vanilla-extract-style-update:src/a.css.ts.ts",
				".a{--n:"+strconv.Itoa(i)+"}")
		}()
	}
	wg.Wait()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := 0; i < n; i++ {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("frame %d corrupt: %v", i, err)
		}
		if frame.Event != "vanilla-extract-style-update:src/a.css.ts.ts" {
			t.Errorf("frame %d event = %q", i, frame.Event)
		}
	}
}

// staticCompiler emits a fixed fragment for whatever file it is asked
// to compile.
type staticCompiler struct {
	css   string
	calls int
}

func (c *staticCompiler) Compile(ctx context.Context, req vanillaextract.CompileRequest) (vanillaextract.CompileResult, error) {
	c.calls++
	rel, err := filepath.Rel(req.Cwd, req.FilePath)
	if err != nil {
		rel = filepath.Base(req.FilePath)
	}
	embedded, err := vanillaextract.EmitCSSFragment(vanillaextract.Fragment{
		Scope: filescope.Scope{FilePath: filepath.ToSlash(rel)},
		CSS:   c.css,
	})
	if err != nil {
		return vanillaextract.CompileResult{}, err
	}
	return vanillaextract.CompileResult{Source: embedded}, nil
}

func newTestServer(t *testing.T, css string) (*Server, *httptest.Server, string) {
	t.Helper()

	root := t.TempDir()
	cfgPath := filepath.Join(root, config.ConfigFileName)
	if err := os.WriteFile(cfgPath, []byte(`{"dev":{"watch":["src"]}}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		t.Fatal(err)
	}

	reg := prometheus.NewRegistry()
	plugin := vanillaextract.New(vanillaextract.Options{
		Registry: cssregistry.New(),
		Compiler: &staticCompiler{css: css},
		Metrics:  metrics.New(metrics.Config{Registry: reg}),
	})

	s := NewServer(ServerOptions{
		Config:   cfg,
		Plugin:   plugin,
		Gatherer: reg,
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts, root
}

func get(t *testing.T, ts *httptest.Server, path string) (int, string, string) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(body), resp.Header.Get("Content-Type")
}

func TestServer_ServesTransformedStyle(t *testing.T) {
	_, ts, root := newTestServer(t, ".a{color:red}")

	src := filepath.Join(root, "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "theme.css.ts"), []byte(".a{color:red}"), 0644); err != nil {
		t.Fatal(err)
	}

	status, body, contentType := get(t, ts, "/src/theme.css.ts")
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %s", status, body)
	}
	if !strings.Contains(contentType, "javascript") {
		t.Errorf("content type = %q", contentType)
	}
	want := `"/@id/virtual:vanilla-extract:src/theme.css.ts.ts.js"`
	if !strings.Contains(body, want) {
		t.Errorf("body missing %s:\n%s", want, body)
	}

	// The dev-mode JS module injects and subscribes.
	status, body, contentType = get(t, ts, "/@id/virtual:vanilla-extract:src/theme.css.ts.ts.js")
	if status != http.StatusOK {
		t.Fatalf("virtual js status = %d, body %s", status, body)
	}
	if !strings.Contains(contentType, "javascript") {
		t.Errorf("virtual js content type = %q", contentType)
	}
	if !strings.Contains(body, "injectStyle") || !strings.Contains(body, "onStyleUpdate") {
		t.Errorf("shim missing runtime hooks:\n%s", body)
	}

	// The CSS flavor serves the raw sheet.
	status, body, contentType = get(t, ts, "/@id/virtual:vanilla-extract:src/theme.css.ts.ts.css")
	if status != http.StatusOK {
		t.Fatalf("virtual css status = %d", status)
	}
	if !strings.Contains(contentType, "text/css") {
		t.Errorf("virtual css content type = %q", contentType)
	}
	if body != ".a{color:red}" {
		t.Errorf("virtual css body = %q", body)
	}
}

func TestServer_UnknownVirtualModule(t *testing.T) {
	_, ts, _ := newTestServer(t, ".a{}")

	status, _, _ := get(t, ts, "/@id/virtual:vanilla-extract:never/compiled.css.ts.ts.css")
	if status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
}

func TestServer_RuntimeModule(t *testing.T) {
	_, ts, _ := newTestServer(t, ".a{}")

	status, body, contentType := get(t, ts, vanillaextract.RuntimePath)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(contentType, "javascript") {
		t.Errorf("content type = %q", contentType)
	}
	for _, export := range []string{"export function injectStyle", "export function onStyleUpdate"} {
		if !strings.Contains(body, export) {
			t.Errorf("runtime missing %q", export)
		}
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	_, ts, _ := newTestServer(t, ".a{}")

	status, _, _ := get(t, ts, "/metrics")
	if status != http.StatusOK {
		t.Errorf("status = %d", status)
	}
}

func TestServer_StaticFile(t *testing.T) {
	_, ts, root := newTestServer(t, ".a{}")

	if err := os.WriteFile(filepath.Join(root, "index.html"), []byte("<html></html>"), 0644); err != nil {
		t.Fatal(err)
	}

	status, body, _ := get(t, ts, "/")
	if status != http.StatusOK || !strings.Contains(body, "<html>") {
		t.Errorf("status = %d, body = %q", status, body)
	}
}

func TestRewriteVirtualImports(t *testing.T) {
	in := `import "virtual:vanilla-extract:a.css.ts.ts.js";` + "\n" + `import "./other.js";`
	out := rewriteVirtualImports(in)
	if !strings.Contains(out, `"/@id/virtual:vanilla-extract:a.css.ts.ts.js"`) {
		t.Errorf("virtual import not rewritten: %s", out)
	}
	if !strings.Contains(out, `"./other.js"`) {
		t.Errorf("plain import altered: %s", out)
	}
}
