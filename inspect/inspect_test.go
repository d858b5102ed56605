package inspect

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/odvcencio/furry-rx/registry"
	"github.com/odvcencio/furry-rx/rx"
)

func populated(t *testing.T, opts ...registry.Option) *registry.Registry {
	t.Helper()
	reg := registry.Make(opts...)
	count := rx.Make(2, rx.WithLabel("count"))
	double := rx.Readable(func(ctx rx.Context) int {
		return rx.Get(ctx, count) * 2
	}, rx.WithLabel("double"))
	t.Cleanup(reg.Subscribe(double, nil))
	return reg
}

func expectContains(t *testing.T, s, want string) {
	t.Helper()
	if !strings.Contains(s, want) {
		t.Fatalf("expected %q in %q", want, s)
	}
}

func TestSnapshot(t *testing.T) {
	entries := Snapshot(populated(t))
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	byLabel := map[string]Entry{}
	for _, e := range entries {
		byLabel[e.Label] = e
	}
	if got := byLabel["count"]; got.Value != "2" || got.Dependents != 1 {
		t.Fatalf("expected count value 2 with 1 dependent, got %+v", got)
	}
	got := byLabel["double"]
	if got.Value != "4" || got.Listeners != 1 || got.Dependencies != 1 || got.State != "valid" {
		t.Fatalf("expected valid double 4 with 1 listener and 1 dependency, got %+v", got)
	}
}

func TestJSON(t *testing.T) {
	data, err := JSON(nil)
	if err != nil {
		t.Fatalf("JSON(nil): %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("expected [], got %s", data)
	}

	data, err = JSON(Snapshot(populated(t)))
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var decoded []Entry
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(decoded))
	}
}

func TestMarkdownEscapesCells(t *testing.T) {
	md := Markdown([]Entry{{ID: "01", Label: "a|b", State: "valid", Value: "x\ny"}})
	lines := strings.Split(strings.TrimSpace(md), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header, rule and 1 row, got %q", lines)
	}
	expectContains(t, lines[0], "| ID | Label |")
	expectContains(t, lines[2], `a\|b`)
	expectContains(t, lines[2], "x y")
}

func TestHTMLTable(t *testing.T) {
	out, err := HTML([]Entry{{ID: "01", Label: "count", State: "valid", Value: "<2>"}})
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	html := string(out)
	expectContains(t, html, "<table>")
	expectContains(t, html, "<td>count</td>")
	expectContains(t, html, "&lt;2&gt;")
}

func TestHighlight(t *testing.T) {
	src := []byte(`{"label": "count"}`)

	var term bytes.Buffer
	if err := Highlight(&term, src, "terminal256"); err != nil {
		t.Fatalf("terminal256: %v", err)
	}
	expectContains(t, term.String(), "\x1b[")

	var html bytes.Buffer
	if err := Highlight(&html, src, "html"); err != nil {
		t.Fatalf("html: %v", err)
	}
	expectContains(t, html.String(), "<pre")

	var plain bytes.Buffer
	if err := Highlight(&plain, src, "no-such-formatter"); err != nil {
		t.Fatalf("fallback: %v", err)
	}
	if got := strings.TrimSpace(plain.String()); got != string(src) {
		t.Fatalf("expected source unchanged, got %q", got)
	}
}

func TestServerRoutes(t *testing.T) {
	promReg := prometheus.NewRegistry()
	metrics := registry.NewMetrics(registry.WithRegisterer(promReg))
	reg := populated(t, registry.WithMetrics(metrics))

	srv := httptest.NewServer(NewServer(reg, WithGatherer(promReg)).Handler())
	defer srv.Close()

	get := func(path string, status int) (*http.Response, string) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if resp.StatusCode != status {
			t.Fatalf("expected GET %s to return %d, got %d", path, status, resp.StatusCode)
		}
		return resp, string(body)
	}

	resp, body := get("/debug/rx.json", http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json, got %q", ct)
	}
	expectContains(t, body, `"label": "double"`)

	_, body = get("/debug/rx", http.StatusOK)
	expectContains(t, body, "<table>")
	expectContains(t, body, "2 nodes")

	_, body = get("/metrics", http.StatusOK)
	expectContains(t, body, "furry_rx_registry_nodes 2")

	get("/nope", http.StatusNotFound)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- NewServer(registry.Make()).Serve(ctx, ln) }()

	up := false
	for deadline := time.Now().Add(time.Second); time.Now().Before(deadline); time.Sleep(10 * time.Millisecond) {
		resp, err := http.Get("http://" + ln.Addr().String() + "/debug/rx.json")
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			up = true
			break
		}
	}
	if !up {
		t.Fatalf("server never answered")
	}

	cancel()
	select {
	case err := <-errs:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}
