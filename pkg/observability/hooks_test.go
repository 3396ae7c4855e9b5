package observability

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Pipeline hooks
	p := NoopPipelineHooks{}
	p.OnLoadStart(ctx, "sachs.csv")
	p.OnLoadComplete(ctx, "sachs.csv", 11, 853, time.Second, nil)
	p.OnSearchStart(ctx, "tuck", 11)
	p.OnSearchComplete(ctx, "tuck", -1234.5, time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "result")
	c.OnCacheMiss(ctx, "result")
	c.OnCacheSet(ctx, "result", 1024)

	// Search hooks
	s := NoopSearchHooks{}
	s.OnRestartStart(ctx, 0, -10)
	s.OnSweep(ctx, SweepEvent{Start: 0, Sweep: 1, Accepted: 2, Tried: 9, Total: -5})
	s.OnRestartComplete(ctx, 0, -5, 3, false)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "POST", "/v1/search")
	h.OnResponse(ctx, "POST", "/v1/search", 200, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	// Set custom hooks
	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testPipelineHooks{}
	SetPipelineHooks(custom)

	// Setting nil should be ignored
	SetPipelineHooks(nil)

	if Pipeline() != custom {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testPipelineHooks struct{ NoopPipelineHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }

func TestPrometheusHooks(t *testing.T) {
	ctx := context.Background()
	p := NewPrometheus()

	p.OnLoadComplete(ctx, "d.csv", 3, 100, time.Millisecond, nil)
	p.OnSearchComplete(ctx, "tuck", -42, time.Millisecond, nil)
	p.OnCacheHit(ctx, "result")
	p.OnCacheMiss(ctx, "result")
	p.OnCacheSet(ctx, "result", 512)
	p.OnSweep(ctx, SweepEvent{Accepted: 1, Tried: 4})
	p.OnRestartComplete(ctx, 0, -42, 2, true)
	p.OnResponse(ctx, "GET", "/healthz", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`causeway_searches_total{status="ok",strategy="tuck"} 1`,
		`causeway_cache_hits_total{type="result"} 1`,
		`causeway_moves_tried_total 4`,
		`causeway_restarts_total{outcome="interrupted"} 1`,
		`causeway_search_last_score -42`,
		`causeway_http_requests_total{method="GET",route="/healthz",status="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestPrometheusWriteTextfile(t *testing.T) {
	p := NewPrometheus()
	p.OnSweep(context.Background(), SweepEvent{Accepted: 1, Tried: 1})

	path := filepath.Join(t.TempDir(), "causeway.prom")
	if err := p.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "causeway_sweeps_total 1") {
		t.Error("textfile missing sweep counter")
	}
}
