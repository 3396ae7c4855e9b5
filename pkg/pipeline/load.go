package pipeline

import (
	"strings"

	"github.com/matzehuels/causeway/pkg/cache"
	"github.com/matzehuels/causeway/pkg/dataset"
	"github.com/matzehuels/causeway/pkg/errors"
	"github.com/matzehuels/causeway/pkg/knowledge"
)

// LoadDataset reads the dataset named by opts.
func LoadDataset(opts Options) (*dataset.DataSet, error) {
	delim, err := dataset.ParseDelimiter(opts.Delimiter)
	if err != nil {
		return nil, err
	}
	if opts.DataPath != "" {
		return dataset.ReadFile(opts.DataPath, delim)
	}
	return dataset.Read(strings.NewReader(opts.Data), delim)
}

// LoadKnowledge returns the knowledge named by opts, or empty knowledge.
func LoadKnowledge(opts Options) (knowledge.Knowledge, error) {
	switch {
	case opts.KnowledgePath != "":
		return knowledge.Load(opts.KnowledgePath)
	case opts.Knowledge != nil:
		k := opts.Knowledge.Knowledge()
		if err := k.Validate(); err != nil {
			return knowledge.Knowledge{}, err
		}
		return k, nil
	}
	return knowledge.New(), nil
}

// knowledgeHash identifies knowledge for cache keys. Empty knowledge hashes
// to "".
func knowledgeHash(k knowledge.Knowledge) string {
	if k.Empty() {
		return ""
	}
	data, err := k.Encode()
	if err != nil {
		return ""
	}
	return cache.Hash(data)
}

// resolveOrder maps variable names to column indices. A nil or empty names
// slice yields nil, the natural column order.
func resolveOrder(columns, names []string) ([]int, error) {
	if len(names) == 0 {
		return nil, nil
	}
	if len(names) != len(columns) {
		return nil, errors.New(errors.ErrCodeInvalidOrder, "initial order names %d variables, data has %d", len(names), len(columns))
	}
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	order := make([]int, len(names))
	seen := make([]bool, len(columns))
	for i, n := range names {
		v, ok := index[n]
		if !ok {
			return nil, errors.New(errors.ErrCodeUnknownVariable, "initial order names unknown variable %q", n)
		}
		if seen[v] {
			return nil, errors.New(errors.ErrCodeInvalidOrder, "initial order repeats %q", n)
		}
		seen[v] = true
		order[i] = v
	}
	return order, nil
}
