package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/causeway/pkg/errors"
	"github.com/matzehuels/causeway/pkg/graph"
	"github.com/matzehuels/causeway/pkg/store"
)

// prefixScanLimit bounds the runs scanned when resolving a short ID.
const prefixScanLimit = 10000

// runsCommand creates the run-history command.
func (c *CLI) runsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse the history of past searches",
	}

	cmd.AddCommand(c.runsListCommand())
	cmd.AddCommand(c.runsShowCommand())
	cmd.AddCommand(c.runsDeleteCommand())

	return cmd
}

func (c *CLI) runsListCommand() *cobra.Command {
	var (
		limit       int
		dataHash    string
		interactive bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.List(cmd.Context(), store.ListOptions{Limit: limit, DataHash: dataHash})
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			w := cmd.OutOrStdout()
			if len(runs) == 0 {
				printInfo(w, "No runs recorded")
				return nil
			}
			if !interactive {
				printRunTable(w, runs)
				return nil
			}

			final, err := tea.NewProgram(NewRunListModel(runs), tea.WithContext(cmd.Context())).Run()
			if err != nil {
				return fmt.Errorf("run browser: %w", err)
			}
			if m, ok := final.(RunListModel); ok && m.Selected != nil {
				printRun(w, m.Selected)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultListLimit, "maximum runs to list")
	cmd.Flags().StringVar(&dataHash, "data-hash", "", "only runs over this dataset hash")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse runs interactively")
	return cmd
}

func (c *CLI) runsShowCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run; IDs may be abbreviated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			run, err := resolveRun(cmd.Context(), st, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeRunGraph(cmd.OutOrStdout(), run)
			}
			printRun(cmd.OutOrStdout(), run)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the CPDAG as graph JSON (input for 'causeway render')")
	return cmd
}

func (c *CLI) runsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete one run",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			run, err := resolveRun(cmd.Context(), st, args[0])
			if err != nil {
				return err
			}
			if err := st.Delete(cmd.Context(), run.ID); err != nil {
				return fmt.Errorf("delete run: %w", err)
			}
			printSuccess(cmd.OutOrStdout(), "Deleted run %s", run.ID)
			return nil
		},
	}
}

// openStore opens the configured run store; "none" is an error here.
func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	st, err := cfg.OpenStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	if st == nil {
		return nil, errors.New(errors.ErrCodeUnsupported, "run history is disabled (store backend is none)")
	}
	return st, nil
}

// resolveRun fetches a run by full ID or by a unique ID prefix.
func resolveRun(ctx context.Context, st store.Store, id string) (*store.Run, error) {
	run, err := st.Get(ctx, id)
	if err == nil || !errors.Is(err, errors.ErrCodeRunNotFound) {
		return run, err
	}
	runs, lerr := st.List(ctx, store.ListOptions{Limit: prefixScanLimit})
	if lerr != nil {
		return nil, err
	}
	var match *store.Run
	for _, r := range runs {
		if !strings.HasPrefix(r.ID, id) {
			continue
		}
		if match != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "run id %q is ambiguous", id)
		}
		match = r
	}
	if match == nil {
		return nil, err
	}
	return match, nil
}

func writeRunGraph(w io.Writer, r *store.Run) error {
	g, err := r.CPDAG.Graph()
	if err != nil {
		return fmt.Errorf("stored graph: %w", err)
	}
	return graph.WriteGraph(g, w)
}
