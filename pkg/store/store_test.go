package store

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/matzehuels/causeway/pkg/errors"
	"github.com/matzehuels/causeway/pkg/graph"
)

func sampleRun(hash string, at time.Time) *Run {
	g := graph.New([]string{"X", "Y"})
	g.AddUndirected(0, 1)
	r := NewRun()
	r.CreatedAt = at
	r.Source = "data.csv"
	r.DataHash = hash
	r.Variables = []string{"X", "Y"}
	r.Rows = 100
	r.Settings = Settings{Strategy: "tuck", Penalty: 2, NumStarts: 1, Seed: 42}
	r.Score = -12.5
	r.Order = []string{"X", "Y"}
	r.CPDAG = g.Document()
	return r
}

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	old := sampleRun("h1", base)
	mid := sampleRun("h2", base.Add(time.Minute))
	recent := sampleRun("h1", base.Add(2*time.Minute))
	for _, r := range []*Run{old, mid, recent} {
		if err := s.Save(ctx, r); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	got, err := s.Get(ctx, mid.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != mid.ID || got.Score != mid.Score || got.NumEdges() != 1 {
		t.Errorf("Get returned %+v", got)
	}
	if _, err := got.CPDAG.Graph(); err != nil {
		t.Errorf("stored CPDAG does not round-trip: %v", err)
	}

	runs, err := s.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 3 || runs[0].ID != recent.ID || runs[2].ID != old.ID {
		t.Errorf("List order wrong: %v", ids(runs))
	}

	runs, _ = s.List(ctx, ListOptions{Limit: 1})
	if len(runs) != 1 || runs[0].ID != recent.ID {
		t.Errorf("List limit: %v", ids(runs))
	}

	runs, _ = s.List(ctx, ListOptions{DataHash: "h1"})
	if len(runs) != 2 {
		t.Errorf("List by hash: %v", ids(runs))
	}

	mid.Score = 3
	if err := s.Save(ctx, mid); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get(ctx, mid.ID); got.Score != 3 {
		t.Errorf("Save should replace, score = %v", got.Score)
	}

	if err := s.Delete(ctx, old.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err = s.Get(ctx, old.ID)
	if !stderrors.Is(err, ErrNotFound) || !errors.Is(err, errors.ErrCodeRunNotFound) {
		t.Errorf("Get after Delete = %v", err)
	}
	if err := s.Delete(ctx, old.ID); !stderrors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v", err)
	}

	if err := s.Save(ctx, &Run{ID: "../escape"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Save with bad id = %v", err)
	}
	if _, err := s.Get(ctx, "../escape"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Get with bad id = %v", err)
	}
}

func ids(runs []*Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	testStore(t, s)
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(context.Background(), "../../etc/passwd"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Get traversal = %v", err)
	}
}

func TestNewRun(t *testing.T) {
	a, b := NewRun(), NewRun()
	if a.ID == b.ID {
		t.Error("NewRun IDs should be unique")
	}
	if err := errors.ValidateRunID(a.ID); err != nil {
		t.Errorf("NewRun ID invalid: %v", err)
	}
	if a.CreatedAt.IsZero() {
		t.Error("NewRun should set CreatedAt")
	}
}

func TestNewMongoStoreConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := NewMongoStore(ctx, MongoConfig{}); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("empty uri = %v", err)
	}
	if _, err := NewMongoStore(ctx, MongoConfig{URI: "http://localhost"}); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("bad scheme = %v", err)
	}

	cfg := MongoConfig{URI: "mongodb://localhost"}.withDefaults()
	if cfg.Database != DefaultMongoDatabase || cfg.Collection != DefaultMongoCollection || cfg.Timeout != DefaultMongoTimeout {
		t.Errorf("defaults = %+v", cfg)
	}
}
