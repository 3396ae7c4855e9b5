package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/causeway/pkg/config"
	"github.com/matzehuels/causeway/pkg/observability"
	"github.com/matzehuels/causeway/pkg/pipeline"
)

// searchFlags holds the search command's flags. Search settings left
// unset on the command line keep the config file's values.
type searchFlags struct {
	knowledge   string
	delimiter   string
	strategy    string
	starts      int
	seed        uint64
	shuffle     bool
	penalty     float64
	maxSweeps   int
	bes         bool
	noShrink    bool
	parallelism int
	order       string
	timeout     int
	refresh     bool
	noCache     bool
	noStore     bool
	output      string
	formats     string
	title       string
	rankDir     string
	dag         bool
	metricsFile string
	quiet       bool
}

func (c *CLI) searchCommand() *cobra.Command {
	var f searchFlags

	cmd := &cobra.Command{
		Use:   "search [data.csv|-]",
		Short: "Learn a CPDAG from a CSV dataset",
		Long: `Learn a causal graph from a delimited dataset with a header row.

The search keeps a permutation of the variables and improves it with tuck
or best-move sweeps until no move raises the SEM-BIC score. The best order
is turned into a DAG and reported as its equivalence class (CPDAG).

Results are cached by data hash and settings, and every run is recorded in
the run history (see 'causeway runs').

Examples:
  causeway search data.csv
  causeway search data.csv --starts 8 --shuffle --bes
  causeway search data.csv --knowledge tiers.toml -f svg,json -o graph
  cat data.tsv | causeway search - --delimiter tab`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts, err := f.options(cmd, cfg, args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			return c.runSearch(cmd.Context(), cmd, cfg, args[0], opts, &f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.knowledge, "knowledge", "k", "", "knowledge file (TOML) with forbidden/required edges and tiers")
	fl.StringVar(&f.delimiter, "delimiter", "", "column delimiter: auto (default), comma, tab, semicolon, or a single character")
	fl.StringVar(&f.strategy, "strategy", "", "move operator: tuck (default), best-move")
	fl.IntVar(&f.starts, "starts", 0, "number of restarts")
	fl.Uint64Var(&f.seed, "seed", 0, "random seed for shuffled restarts")
	fl.BoolVar(&f.shuffle, "shuffle", false, "shuffle the first restart too")
	fl.Float64Var(&f.penalty, "penalty", 0, "SEM-BIC penalty discount")
	fl.IntVar(&f.maxSweeps, "max-sweeps", 0, "cap sweeps per restart (0 = until converged)")
	fl.BoolVar(&f.bes, "bes", false, "run backward equivalence search when sweeps stall")
	fl.BoolVar(&f.noShrink, "no-shrink", false, "skip the shrink phase of parent selection")
	fl.IntVar(&f.parallelism, "parallel", 0, "restarts run concurrently (0 = GOMAXPROCS)")
	fl.StringVar(&f.order, "order", "", "initial order as comma-separated variable names")
	fl.IntVar(&f.timeout, "timeout", 0, "stop after this many seconds and keep the best order so far")
	fl.BoolVar(&f.refresh, "refresh", false, "ignore cached results")
	fl.BoolVar(&f.noCache, "no-cache", false, "disable the result cache")
	fl.BoolVar(&f.noStore, "no-store", false, "do not record the run")
	fl.StringVarP(&f.output, "output", "o", "", "output file (single format) or base path (multiple)")
	fl.StringVarP(&f.formats, "format", "f", "", "write the graph as svg, dot or json (comma-separated)")
	fl.StringVar(&f.title, "title", "", "graph title for dot/svg output")
	fl.StringVar(&f.rankDir, "rankdir", "", "Graphviz rank direction (TB, LR, ...)")
	fl.BoolVar(&f.dag, "dag", false, "write the DAG instead of the CPDAG")
	fl.StringVar(&f.metricsFile, "metrics-textfile", "", "write Prometheus metrics to this file after the search")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "only print the CPDAG")

	return cmd
}

// options merges the config file's search settings with the flags that
// were set explicitly.
func (f *searchFlags) options(cmd *cobra.Command, cfg config.Config, input string, stdin io.Reader) (pipeline.Options, error) {
	opts := cfg.SearchOptions()
	changed := cmd.Flags().Changed

	if input == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return opts, fmt.Errorf("read stdin: %w", err)
		}
		opts.Data = string(data)
	} else {
		opts.DataPath = input
	}
	opts.KnowledgePath = f.knowledge
	opts.Delimiter = f.delimiter
	opts.Refresh = f.refresh
	opts.InitialOrder = parseList(f.order)

	if changed("strategy") {
		opts.Strategy = f.strategy
	}
	if changed("starts") {
		opts.NumStarts = f.starts
	}
	if changed("seed") {
		opts.Seed = f.seed
	}
	if changed("shuffle") {
		opts.Shuffle = f.shuffle
	}
	if changed("penalty") {
		opts.Penalty = f.penalty
	}
	if changed("max-sweeps") {
		opts.MaxSweeps = f.maxSweeps
	}
	if changed("bes") {
		opts.UseBES = f.bes
	}
	if changed("no-shrink") {
		opts.DisableShrink = f.noShrink
	}
	if changed("parallel") {
		opts.Parallelism = f.parallelism
	}
	if changed("timeout") {
		opts.TimeoutSec = f.timeout
	}
	if f.metricsFile == "" {
		f.metricsFile = cfg.Server.MetricsTextfile
	}
	return opts, opts.ValidateAndSetDefaults()
}

// wantsArtifacts reports whether graph files should be written.
func (f *searchFlags) wantsArtifacts() bool {
	return f.formats != "" || f.output != ""
}

func (c *CLI) runSearch(ctx context.Context, cmd *cobra.Command, cfg config.Config, input string, opts pipeline.Options, f *searchFlags) error {
	var formats []string
	if f.wantsArtifacts() {
		formats = parseFormats(f.formats)
		ro := pipeline.RenderOptions{Formats: formats}
		if err := ro.Validate(); err != nil {
			return err
		}
	}

	var prom *observability.Prometheus
	if f.metricsFile != "" {
		prom = observability.NewPrometheus()
		observability.SetPipelineHooks(prom)
		observability.SetCacheHooks(prom)
		opts.SearchHooks = prom
		defer observability.Reset()
	}

	runner, err := c.newRunner(ctx, cfg, f.noCache, f.noStore)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger
	prog := newProgress(c.Logger)

	var spinner *Spinner
	if !f.quiet {
		spinner = newSpinnerWithContext(ctx, fmt.Sprintf("Searching %s...", opts.Source()))
		spinner.Start()
	}
	res, err := runner.Execute(ctx, opts)
	if err != nil {
		if spinner != nil {
			spinner.StopWithError("Search failed")
		}
		return fmt.Errorf("search: %w", err)
	}
	if spinner != nil {
		spinner.Stop()
	}

	if prom != nil {
		if err := prom.WriteTextfile(f.metricsFile); err != nil {
			c.Logger.Warn("could not write metrics", "path", f.metricsFile, "err", err)
		}
	}

	out := cmd.OutOrStdout()
	if f.quiet {
		fmt.Fprintln(out, res.CPDAG.String())
	} else {
		prog.done(fmt.Sprintf("Searched %d variables over %d rows", res.Stats.Variables, res.Stats.Rows))
		printSearchResult(out, res)
	}

	if len(formats) == 0 {
		return nil
	}
	g := res.CPDAG
	if f.dag {
		g = res.DAG
	}
	artifacts, cacheHit, err := runner.RenderWithCacheInfo(ctx, g, pipeline.RenderOptions{
		Formats: formats,
		Title:   f.title,
		RankDir: f.rankDir,
	})
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return writeArtifacts(out, artifactWriteParams{
		artifacts: artifacts,
		formats:   formats,
		input:     stdinName(input),
		output:    f.output,
		cacheHit:  cacheHit,
	})
}

func stdinName(input string) string {
	if input == "-" {
		return "causeway"
	}
	return input
}
