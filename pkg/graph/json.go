package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Document is the canonical serialization format for graphs. It is used
// for result files, API responses, cached results and stored runs.
type Document struct {
	Nodes []NodeDoc `json:"nodes" bson:"nodes"`
	Edges []EdgeDoc `json:"edges" bson:"edges"`
}

// NodeDoc is one serialised variable.
type NodeDoc struct {
	ID string `json:"id" bson:"id"`
}

// EdgeDoc is one serialised edge. Undirected edges list the endpoint with
// the lower index first.
type EdgeDoc struct {
	From string   `json:"from" bson:"from"`
	To   string   `json:"to" bson:"to"`
	Type EdgeType `json:"type" bson:"type"`
}

// Document converts g to its serialization form. Nodes follow index order
// and edges follow [Graph.Edges], so output is deterministic.
func (g *Graph) Document() Document {
	doc := Document{
		Nodes: make([]NodeDoc, len(g.names)),
		Edges: []EdgeDoc{},
	}
	for i, n := range g.names {
		doc.Nodes[i] = NodeDoc{ID: n}
	}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, EdgeDoc{From: g.names[e.From], To: g.names[e.To], Type: e.Type})
	}
	return doc
}

// Graph converts a document back to a Graph. Repeated identical edges are
// accepted; self-loops, duplicate node IDs and two different edges between
// one pair are errors.
func (d Document) Graph() (*Graph, error) {
	names := make([]string, len(d.Nodes))
	idx := make(map[string]int, len(d.Nodes))
	for i, n := range d.Nodes {
		if _, dup := idx[n.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateNode, n.ID)
		}
		names[i] = n.ID
		idx[n.ID] = i
	}
	g := New(names)
	for _, e := range d.Edges {
		a, ok := idx[e.From]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownNode, e.From)
		}
		b, ok := idx[e.To]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownNode, e.To)
		}
		if a == b {
			return nil, fmt.Errorf("%w: %q", ErrSelfLoop, e.From)
		}
		switch e.Type {
		case Directed, "":
			if g.Adjacent(a, b) && !g.IsDirected(a, b) {
				return nil, fmt.Errorf("%w: %s -> %s", ErrConflictingEdge, e.From, e.To)
			}
			g.AddDirected(a, b)
		case Undirected:
			if g.Adjacent(a, b) && !g.IsUndirected(a, b) {
				return nil, fmt.Errorf("%w: %s --- %s", ErrConflictingEdge, e.From, e.To)
			}
			g.AddUndirected(a, b)
		default:
			return nil, fmt.Errorf("unknown edge type %q", e.Type)
		}
	}
	return g, nil
}

// MarshalJSON implements json.Marshaler.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Document())
}

// UnmarshalJSON implements json.Unmarshaler.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	decoded, err := doc.Graph()
	if err != nil {
		return err
	}
	*g = *decoded
	return nil
}

// MarshalGraph converts a graph to indented JSON bytes.
func MarshalGraph(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteGraph(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGraph writes a graph as indented JSON to w.
func WriteGraph(g *Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(g.Document())
}

// WriteGraphFile writes a graph to a JSON file.
func WriteGraphFile(g *Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteGraph(g, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadGraph decodes a JSON graph from r.
func ReadGraph(r io.Reader) (*Graph, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	return doc.Graph()
}

// ReadGraphFile reads a JSON graph file.
func ReadGraphFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadGraph(f)
}
