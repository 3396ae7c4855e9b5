package pipeline

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/matzehuels/causeway/pkg/cache"
	"github.com/matzehuels/causeway/pkg/errors"
	"github.com/matzehuels/causeway/pkg/knowledge"
	"github.com/matzehuels/causeway/pkg/store"
)

// chainCSV samples X → Y → Z with Gaussian noise.
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

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"dot", false},
		{"json", false},
		{"png", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateStrategy(t *testing.T) {
	for _, s := range []string{"tuck", "best-move"} {
		if err := ValidateStrategy(s); err != nil {
			t.Errorf("ValidateStrategy(%q) = %v", s, err)
		}
	}
	if err := ValidateStrategy("anneal"); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("unknown strategy should fail with INVALID_CONFIG: %v", err)
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{DataPath: "data.csv"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("Valid options should pass: %v", err)
	}

	if opts.Strategy != DefaultStrategy {
		t.Errorf("Strategy should be %s, got %s", DefaultStrategy, opts.Strategy)
	}
	if opts.Penalty != DefaultPenalty {
		t.Errorf("Penalty should be %g, got %g", DefaultPenalty, opts.Penalty)
	}
	if opts.NumStarts != DefaultNumStarts {
		t.Errorf("NumStarts should be %d, got %d", DefaultNumStarts, opts.NumStarts)
	}
	if opts.Seed != DefaultSeed {
		t.Errorf("Seed should be %d, got %d", DefaultSeed, opts.Seed)
	}
	if opts.CacheSize != DefaultCacheSize {
		t.Errorf("CacheSize should be %d, got %d", DefaultCacheSize, opts.CacheSize)
	}
	if opts.Logger == nil || opts.SearchHooks == nil {
		t.Error("Logger and SearchHooks should be defaulted")
	}
}

func TestOptionsValidateAndSetDefaultsIdempotent(t *testing.T) {
	opts := Options{Data: "a,b\n1,2\n3,4\n"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("First validation failed: %v", err)
	}
	before := opts.Settings(false)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("Second validation failed: %v", err)
	}
	if opts.Settings(false) != before {
		t.Error("settings changed on second call")
	}
}

func TestOptionsValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"no data", Options{}},
		{"both inputs", Options{DataPath: "a.csv", Data: "x"}},
		{"both knowledge", Options{DataPath: "a.csv", KnowledgePath: "k.toml", Knowledge: &knowledge.File{}}},
		{"strategy", Options{DataPath: "a.csv", Strategy: "anneal"}},
		{"penalty", Options{DataPath: "a.csv", Penalty: -1}},
		{"starts", Options{DataPath: "a.csv", NumStarts: MaxNumStarts + 1}},
		{"sweeps", Options{DataPath: "a.csv", MaxSweeps: -2}},
		{"timeout", Options{DataPath: "a.csv", TimeoutSec: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			if err := opts.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("got %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestResolveOrder(t *testing.T) {
	cols := []string{"A", "B", "C"}
	order, err := resolveOrder(cols, []string{"C", "A", "B"})
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(order) != "[2 0 1]" {
		t.Errorf("order = %v", order)
	}
	if order, _ := resolveOrder(cols, nil); order != nil {
		t.Errorf("nil names should give nil order, got %v", order)
	}

	tests := []struct {
		names []string
		code  errors.Code
	}{
		{[]string{"A", "B"}, errors.ErrCodeInvalidOrder},
		{[]string{"A", "B", "B"}, errors.ErrCodeInvalidOrder},
		{[]string{"A", "B", "Q"}, errors.ErrCodeUnknownVariable},
	}
	for _, tt := range tests {
		if _, err := resolveOrder(cols, tt.names); !errors.Is(err, tt.code) {
			t.Errorf("resolveOrder(%v) = %v, want %s", tt.names, err, tt.code)
		}
	}
}

func TestExecuteRecoversChain(t *testing.T) {
	runs := store.NewMemoryStore()
	r := NewRunner(nil, nil, runs, nil)

	res, err := r.Execute(context.Background(), Options{Data: chainCSV(500)})
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.Variables != 3 || res.Stats.Rows != 500 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if res.Stats.Edges != 2 {
		t.Errorf("edges = %d, want 2 (%s)", res.Stats.Edges, res.CPDAG)
	}
	if !res.CPDAG.Adjacent(0, 1) || !res.CPDAG.Adjacent(1, 2) || res.CPDAG.Adjacent(0, 2) {
		t.Errorf("CPDAG = %s, want X - Y - Z", res.CPDAG)
	}
	if res.CacheInfo.SearchHit {
		t.Error("first run should not hit the cache")
	}
	if res.CacheInfo.Scores.Misses == 0 {
		t.Error("score cache should have been used")
	}

	run, err := runs.Get(context.Background(), res.RunID)
	if err != nil {
		t.Fatalf("run not stored: %v", err)
	}
	if run.Score != res.Score || run.NumEdges() != 2 || run.Settings.Strategy != DefaultStrategy {
		t.Errorf("stored run = %+v", run)
	}
}

func TestExecuteUsesCache(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, nil, nil)
	opts := Options{Data: chainCSV(200), NumStarts: 2}

	first, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.SearchHit {
		t.Error("second run should hit the cache")
	}
	if second.Score != first.Score || !second.CPDAG.Equal(first.CPDAG) {
		t.Errorf("cached result differs: %s vs %s", second.CPDAG, first.CPDAG)
	}

	opts.Refresh = true
	third, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheInfo.SearchHit {
		t.Error("refresh should bypass the cache")
	}

	opts.Refresh = false
	opts.Penalty = 4
	fourth, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if fourth.CacheInfo.SearchHit {
		t.Error("a different penalty must not hit the cache")
	}
}

func TestExecuteKnowledge(t *testing.T) {
	r := NewRunner(nil, nil, nil, nil)
	k := knowledge.New().WithTier(0, "Z").WithTier(1, "X", "Y").File()

	res, err := r.Execute(context.Background(), Options{Data: chainCSV(300), Knowledge: &k})
	if err != nil {
		t.Fatal(err)
	}
	if res.Order[0] != "Z" {
		t.Errorf("tier 0 variable should come first, order = %v", res.Order)
	}

	bad := knowledge.New().Forbid("X", "Q").File()
	_, err = r.Execute(context.Background(), Options{Data: chainCSV(50), Knowledge: &bad})
	if !errors.Is(err, errors.ErrCodeUnknownVariable) {
		t.Errorf("unknown knowledge variable = %v", err)
	}
}

func TestExecuteErrors(t *testing.T) {
	r := NewRunner(nil, nil, nil, nil)
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"missing file", Options{DataPath: "/does/not/exist.csv"}, errors.ErrCodeFileNotFound},
		{"bad cell", Options{Data: "a,b\n1,x\n2,3\n"}, errors.ErrCodeInvalidData},
		{"bad order", Options{Data: chainCSV(20), InitialOrder: []string{"X", "Y", "W"}}, errors.ErrCodeUnknownVariable},
		{"bad delimiter", Options{Data: chainCSV(20), Delimiter: "pipe"}, errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Execute(context.Background(), tt.opts)
			if !errors.Is(err, tt.code) {
				t.Errorf("got %v, want %s", err, tt.code)
			}
		})
	}
}

func TestExecuteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, nil, nil)
	res, err := r.Execute(ctx, Options{Data: chainCSV(100), InitialOrder: []string{"Z", "Y", "X"}})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Interrupted {
		t.Error("cancelled run should be interrupted")
	}
	if n, _ := c.Len(); n != 0 {
		t.Error("interrupted results must not be cached")
	}
}

func TestRenderWithCacheInfo(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, nil, nil)
	res, err := r.Execute(context.Background(), Options{Data: chainCSV(200)})
	if err != nil {
		t.Fatal(err)
	}

	opts := RenderOptions{Formats: []string{FormatDOT, FormatJSON}, Title: "chain"}
	out, hit, err := r.RenderWithCacheInfo(context.Background(), res.CPDAG, opts)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("first render should miss")
	}
	if !strings.Contains(string(out[FormatDOT]), `label="chain"`) {
		t.Errorf("dot output missing title:\n%s", out[FormatDOT])
	}
	if !strings.Contains(string(out[FormatJSON]), `"nodes"`) {
		t.Errorf("json output: %s", out[FormatJSON])
	}

	again, hit, err := r.RenderWithCacheInfo(context.Background(), res.CPDAG, opts)
	if err != nil || !hit {
		t.Fatalf("second render: hit %v, err %v", hit, err)
	}
	if string(again[FormatDOT]) != string(out[FormatDOT]) {
		t.Error("cached artifact differs")
	}

	if _, _, err := r.RenderWithCacheInfo(context.Background(), res.CPDAG, RenderOptions{Formats: []string{"png"}}); err == nil {
		t.Error("png should be rejected")
	}
}
