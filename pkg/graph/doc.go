// Package graph provides the causal graph types produced by structure search.
//
// A [Graph] is a partially directed graph over a fixed, named variable set.
// Each pair of variables is either non-adjacent, joined by a directed edge
// a→b, or joined by an undirected edge a---b. DAGs have only directed edges;
// CPDAGs mix both kinds.
//
// # Core Operations
//
//   - [FromParents]: build a DAG from a per-variable parent map
//   - [CPDAG]: keep the v-structures of a DAG and complete with [MeekOrient]
//   - [ExtendToDAG]: pick a consistent DAG member of a PDAG (Dor–Tarsi)
//   - [TopologicalOrder], [IsAcyclic]: order queries over directed edges
//
// # Serialization
//
// Graphs use a node-link JSON format with deterministic ordering, so two
// identical graphs always marshal to identical bytes:
//
//	{
//	  "nodes": [{"id": "X"}, {"id": "Y"}],
//	  "edges": [{"from": "X", "to": "Y", "type": "directed"}]
//	}
//
// [ToDOT] exports Graphviz DOT and [RenderSVG] renders it with go-graphviz.
//
// # Variables
//
// Variables are addressed by integer index 0..Size()-1. Out-of-range
// indices are programmer errors and panic.
package graph
