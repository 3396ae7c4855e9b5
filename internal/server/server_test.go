package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/causeway/pkg/cache"
	"github.com/matzehuels/causeway/pkg/errors"
	"github.com/matzehuels/causeway/pkg/observability"
	"github.com/matzehuels/causeway/pkg/pipeline"
	"github.com/matzehuels/causeway/pkg/store"
)

func chainCSV(n int) string {
	rng := rand.New(rand.NewPCG(1, 2))
	var b strings.Builder
	b.WriteString("X,Y,Z\n")
	for i := 0; i < n; i++ {
		x := rng.NormFloat64()
		y := 2*x + rng.NormFloat64()
		z := -1.5*y + rng.NormFloat64()
		fmt.Fprintf(&b, "%.6f,%.6f,%.6f\n", x, y, z)
	}
	return b.String()
}

func newTestServer(t *testing.T, st store.Store, opts Options) *httptest.Server {
	t.Helper()
	logger := log.New(io.Discard)
	runner := pipeline.NewRunner(cache.NewNullCache(), nil, st, logger)
	ts := httptest.NewServer(New(runner, opts).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil, Options{})
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[map[string]string](t, resp)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestSearchAndRuns(t *testing.T) {
	st := store.NewMemoryStore()
	ts := newTestServer(t, st, Options{})

	resp := postJSON(t, ts.URL+"/v1/search", map[string]any{"data": chainCSV(500)})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search status = %d", resp.StatusCode)
	}
	res := decode[SearchResponse](t, resp)
	if res.Edges != 2 || len(res.CPDAG.Edges) != 2 {
		t.Errorf("edges = %d, cpdag = %+v", res.Edges, res.CPDAG)
	}
	if len(res.Order) != 3 || res.RunID == "" || res.DataHash == "" {
		t.Errorf("response = %+v", res)
	}

	resp, err := http.Get(ts.URL + "/v1/runs")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	list := decode[struct{ Runs []store.Run }](t, resp)
	if len(list.Runs) != 1 || list.Runs[0].ID != res.RunID {
		t.Fatalf("runs = %+v", list.Runs)
	}

	resp, err = http.Get(ts.URL + "/v1/runs/" + res.RunID)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	run := decode[store.Run](t, resp)
	if run.DataHash != res.DataHash || run.Score != res.Score {
		t.Errorf("run = %+v", run)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/runs/"+res.RunID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	if _, err := st.Get(context.Background(), res.RunID); !errors.Is(err, errors.ErrCodeRunNotFound) {
		t.Errorf("run still stored: %v", err)
	}
}

func TestSearchErrors(t *testing.T) {
	ts := newTestServer(t, store.NewMemoryStore(), Options{})
	tests := []struct {
		name string
		body any
		want int
		code errors.Code
	}{
		{"no data", map[string]any{}, http.StatusBadRequest, errors.ErrCodeInvalidConfig},
		{"server path", map[string]any{"data_path": "/etc/passwd"}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"unknown field", map[string]any{"data": "A\n1\n", "bogus": 1}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad strategy", map[string]any{"data": chainCSV(10), "strategy": "anneal"}, http.StatusBadRequest, errors.ErrCodeInvalidConfig},
		{"unknown variable", map[string]any{"data": chainCSV(10), "initial_order": []string{"X", "Y", "Q"}}, http.StatusBadRequest, errors.ErrCodeUnknownVariable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/v1/search", tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			body := decode[errorBody](t, resp)
			if body.Code != tt.code {
				t.Errorf("code = %q, want %q (%s)", body.Code, tt.code, body.Error)
			}
		})
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name  string
		store store.Store
		path  string
		want  int
	}{
		{"missing run", store.NewMemoryStore(), "/v1/runs/0123abcd", http.StatusNotFound},
		{"bad id", store.NewMemoryStore(), "/v1/runs/bad.id", http.StatusBadRequest},
		{"bad limit", store.NewMemoryStore(), "/v1/runs?limit=x", http.StatusBadRequest},
		{"no store", nil, "/v1/runs", http.StatusNotImplemented},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.store, Options{})
			resp, err := http.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	prom := observability.NewPrometheus()
	observability.SetHTTPHooks(prom)
	t.Cleanup(observability.Reset)

	ts := newTestServer(t, nil, Options{Metrics: prom.Handler()})
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `causeway_http_requests_total{method="GET",route="/healthz",status="200"} 1`) {
		t.Errorf("request not counted:\n%s", body)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New(errors.ErrCodeInvalidData, "x"), http.StatusBadRequest},
		{errors.New(errors.ErrCodeRunNotFound, "x"), http.StatusNotFound},
		{errors.New(errors.ErrCodeUnsupported, "x"), http.StatusNotImplemented},
		{errors.New(errors.ErrCodeTimeout, "x"), http.StatusGatewayTimeout},
		{errors.New(errors.ErrCodeNetwork, "x"), http.StatusBadGateway},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
