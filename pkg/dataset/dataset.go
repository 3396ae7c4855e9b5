// Package dataset loads continuous tabular data for structure search.
//
// A DataSet is a column-major matrix of float64 observations with one name
// per column. Files are delimited text with a header row; comma and tab
// delimiters are supported, and the delimiter is sniffed from the header
// when not given explicitly.
//
//	ds, err := dataset.ReadFile("sachs.csv", 0)
//	if err != nil {
//	    return err
//	}
//	cov := ds.Covariance()
package dataset

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/matzehuels/causeway/pkg/errors"
)

// DataSet holds named continuous columns of equal length.
// A DataSet is immutable after construction and safe for concurrent reads.
type DataSet struct {
	names   []string
	columns [][]float64
	rows    int
	cov     [][]float64
}

// New builds a DataSet from column-major data. Every column must have the
// same length, there must be at least two rows, and names must be valid and
// unique.
func New(names []string, columns [][]float64) (*DataSet, error) {
	if len(names) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidData, "dataset has no variables")
	}
	if len(names) != len(columns) {
		return nil, errors.New(errors.ErrCodeInvalidData, "%d names for %d columns", len(names), len(columns))
	}
	if err := errors.ValidateVariableNames(names); err != nil {
		return nil, err
	}
	rows := len(columns[0])
	for i, c := range columns {
		if len(c) != rows {
			return nil, errors.New(errors.ErrCodeInvalidData, "column %q has %d rows, want %d", names[i], len(c), rows)
		}
	}
	if rows < 2 {
		return nil, errors.New(errors.ErrCodeInvalidData, "dataset needs at least 2 rows, got %d", rows)
	}
	ds := &DataSet{
		names:   append([]string(nil), names...),
		columns: columns,
		rows:    rows,
	}
	ds.cov = covariance(columns, rows)
	return ds, nil
}

// Names returns the variable names in column order.
func (d *DataSet) Names() []string { return append([]string(nil), d.names...) }

// NumVariables returns the number of columns.
func (d *DataSet) NumVariables() int { return len(d.names) }

// NumRows returns the sample size.
func (d *DataSet) NumRows() int { return d.rows }

// Column returns column i. The slice must not be modified.
func (d *DataSet) Column(i int) []float64 { return d.columns[i] }

// Covariance returns the unbiased sample covariance matrix.
// The returned rows must not be modified.
func (d *DataSet) Covariance() [][]float64 { return d.cov }

// Hash returns a SHA-256 content hash over names and values. It is stable
// across runs and used as part of result cache keys.
func (d *DataSet) Hash() string {
	h := sha256.New()
	var buf [8]byte
	for i, n := range d.names {
		h.Write([]byte(n))
		h.Write([]byte{0})
		for _, v := range d.columns[i] {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Read parses delimited text with a header row. A zero delimiter selects
// tab when the header contains one and comma otherwise. Empty lines are
// skipped; any non-numeric cell is an INVALID_DATA error naming the row
// and column.
func Read(r io.Reader, delimiter rune) (*DataSet, error) {
	br := bufio.NewReader(r)
	if delimiter == 0 {
		head, _ := br.Peek(4096)
		delimiter = sniff(head)
	}

	cr := csv.NewReader(br)
	cr.Comma = delimiter
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrCodeInvalidData, "empty input")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidData, err, "read header")
	}
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}

	columns := make([][]float64, len(names))
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidData, err, "read row %d", line)
		}
		for j, cell := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, errors.New(errors.ErrCodeInvalidData, "row %d column %q: %q is not a number", line, names[j], cell)
			}
			columns[j] = append(columns[j], v)
		}
	}
	return New(names, columns)
}

// ReadFile opens path and parses it with Read.
func ReadFile(path string, delimiter rune) (*DataSet, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, delimiter)
}

// ParseDelimiter maps a flag value ("", "comma", "tab", ",", "\t") to a rune.
// The empty string selects auto-detection (zero rune).
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "", "auto":
		return 0, nil
	case ",", "comma":
		return ',', nil
	case "\t", "tab", `\t`:
		return '\t', nil
	case ";", "semicolon":
		return ';', nil
	}
	return 0, errors.New(errors.ErrCodeInvalidConfig, "unsupported delimiter %q (must be one of: comma, tab, semicolon)", s)
}

func sniff(head []byte) rune {
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	if bytes.IndexByte(head, '\t') >= 0 {
		return '\t'
	}
	return ','
}

func covariance(columns [][]float64, n int) [][]float64 {
	p := len(columns)
	means := make([]float64, p)
	for i, c := range columns {
		var s float64
		for _, v := range c {
			s += v
		}
		means[i] = s / float64(n)
	}
	cov := make([][]float64, p)
	for i := range cov {
		cov[i] = make([]float64, p)
	}
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			var s float64
			ci, cj := columns[i], columns[j]
			for k := 0; k < n; k++ {
				s += (ci[k] - means[i]) * (cj[k] - means[j])
			}
			s /= float64(n - 1)
			cov[i][j], cov[j][i] = s, s
		}
	}
	return cov
}
