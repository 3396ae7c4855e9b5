package dataset

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/causeway/pkg/errors"
)

func TestReadComma(t *testing.T) {
	in := "A,B\n1,2\n2,4\n3,6\n"
	ds, err := Read(strings.NewReader(in), 0)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}

	if ds.NumVariables() != 2 || ds.NumRows() != 3 {
		t.Fatalf("shape = %dx%d, want 3x2", ds.NumRows(), ds.NumVariables())
	}
	if got := ds.Names(); got[0] != "A" || got[1] != "B" {
		t.Errorf("Names() = %v", got)
	}

	cov := ds.Covariance()
	if math.Abs(cov[0][0]-1) > 1e-12 {
		t.Errorf("var(A) = %v, want 1", cov[0][0])
	}
	if math.Abs(cov[0][1]-2) > 1e-12 || cov[0][1] != cov[1][0] {
		t.Errorf("cov(A,B) = %v/%v, want 2", cov[0][1], cov[1][0])
	}
}

func TestReadTabSniffed(t *testing.T) {
	in := "X\tY\tZ\n1\t0\t1\n0\t1\t1\n1\t1\t0\n"
	ds, err := Read(strings.NewReader(in), 0)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if ds.NumVariables() != 3 {
		t.Errorf("NumVariables() = %d, want 3", ds.NumVariables())
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"header only", "A,B\n"},
		{"one row", "A,B\n1,2\n"},
		{"non numeric", "A,B\n1,2\n3,x\n"},
		{"ragged", "A,B\n1,2\n3\n"},
		{"duplicate names", "A,A\n1,2\n3,4\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.in), ',')
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrCodeInvalidData) {
				t.Errorf("code = %q, want %q", errors.GetCode(err), errors.ErrCodeInvalidData)
			}
		})
	}
}

func TestHashStable(t *testing.T) {
	a, _ := New([]string{"A", "B"}, [][]float64{{1, 2}, {3, 4}})
	b, _ := New([]string{"A", "B"}, [][]float64{{1, 2}, {3, 4}})
	c, _ := New([]string{"A", "B"}, [][]float64{{1, 2}, {3, 5}})

	if a.Hash() != b.Hash() {
		t.Error("equal datasets should hash equally")
	}
	if a.Hash() == c.Hash() {
		t.Error("different datasets should hash differently")
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.csv")
	if err := os.WriteFile(path, []byte("A,B\n1,2\n2,3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(path, 0); err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}

	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.csv"), 0)
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file code = %q, want %q", errors.GetCode(err), errors.ErrCodeFileNotFound)
	}
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{"", 0, false},
		{"comma", ',', false},
		{"tab", '\t', false},
		{";", ';', false},
		{"pipe", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseDelimiter(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDelimiter(%q) = %q, %v; want %q, wantErr %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}
