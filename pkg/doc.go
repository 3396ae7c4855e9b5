// Package pkg provides the core libraries for Causeway causal structure
// discovery.
//
// # Overview
//
// Causeway learns a causal graph from tabular observational data. It
// searches over orders of the variables, derives the best-scoring DAG for
// each order and reports the Markov equivalence class of the winner as a
// CPDAG. The pkg directory is organized into these areas:
//
//  1. [search] - The permutation search core (order scorer, GST, engine)
//  2. [score] - Local decomposable scores (SEM-BIC, additive test scores)
//  3. [dataset] and [knowledge] - Inputs: columns of data and background constraints
//  4. [graph] - Mixed graphs, CPDAG construction, JSON and DOT serialization
//  5. [pipeline] - Orchestration (load → search → render) with caching and run history
//
// # Architecture
//
// The typical data flow through Causeway:
//
//	CSV/TSV data + optional knowledge TOML
//	         ↓
//	    [dataset] + [knowledge] packages (parse, validate, compile)
//	         ↓
//	    [score] package (SEM-BIC local scores)
//	         ↓
//	    [search/boss] package (tuck or best-move sweeps, optional BES)
//	         ↓
//	    [graph] package (DAG → CPDAG)
//	         ↓
//	    JSON/DOT/SVG/PNG output
//
// # Quick Start
//
// Learn a CPDAG from a CSV file:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/causeway/pkg/dataset"
//	    "github.com/matzehuels/causeway/pkg/score"
//	    "github.com/matzehuels/causeway/pkg/search/boss"
//	)
//
//	// 1. Load the data
//	ds, _ := dataset.ReadFile("data.csv", ',')
//
//	// 2. Build the score
//	s := score.NewSemBIC(ds, 2)
//
//	// 3. Search
//	res, _ := boss.New(s, boss.Options{NumStarts: 4}).Search(context.Background(), nil)
//
//	// 4. Inspect the equivalence class
//	fmt.Println(res.CPDAG)
//
// # Main Packages
//
// ## Search Core
//
// [search/varset] - Compact bitsets of variable indices used for the
// "available before" sets of the growth trees.
//
// [search/gst] - Grow-shrink trees. One tree per variable memoises the
// greedy forward-backward parent selection so that repeated queries for the
// same prefix cost a walk rather than a rescoring.
//
// [search/scorer] - The order scorer. Keeps an order, the parents each
// variable gets from its prefix and the running total, with tuck, move,
// swap and numbered bookmarks for cheap rollback.
//
// [search/boss] - The search engine: restarts, sweeps, knowledge checks
// and backward equivalence search.
//
// ## Inputs
//
// [dataset] - Numeric columns read from delimited text, with sniffing of
// the delimiter and a stable content hash.
//
// [knowledge] - Required and forbidden edges plus temporal tiers, loaded
// from TOML and compiled against a variable list.
//
// ## Serialization
//
// [graph] - Mixed directed/undirected graphs, Meek rules, DAG extension,
// node-link JSON and Graphviz rendering.
//
// ## Infrastructure
//
// [pipeline] - Complete search pipeline used by both the CLI and the HTTP
// API. Ensures consistent behavior across all entry points.
//
// [cache] - Result caching keyed by a hash of the data and the options.
// FileCache for the CLI, RedisCache for shared deployments, NullCache to
// disable.
//
// [store] - Run history. FileStore for the CLI, MongoStore for shared
// deployments, MemoryStore for testing.
//
// [config] - TOML configuration with XDG paths.
//
// [observability] - Hooks for search, cache and HTTP events, with a
// Prometheus implementation.
//
// [errors] - Coded errors shared by every package.
//
// [buildinfo] - Version information injected at build time.
package pkg
