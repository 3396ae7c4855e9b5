package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/causeway/pkg/graph"
	"github.com/matzehuels/causeway/pkg/pipeline"
	"github.com/matzehuels/causeway/pkg/store"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // primary actions
	colorGreen  = lipgloss.Color("35")  // success
	colorYellow = lipgloss.Color("220") // warnings
	colorRed    = lipgloss.Color("167") // errors
	colorWhite  = lipgloss.Color("255") // values
	colorGray   = lipgloss.Color("245") // secondary text
	colorDim    = lipgloss.Color("240") // muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
	styleHeader   = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

func printFile(w io.Writer, path string) {
	fmt.Fprintln(w, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

func printKeyValue(w io.Writer, key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Fprintln(w, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// printStats prints variable and edge counts on one line, tagged cached
// or fresh.
func printStats(w io.Writer, variables, edges int, cached bool) {
	parts := []string{
		fmt.Sprintf("%d variables", variables),
		fmt.Sprintf("%d edges", edges),
	}
	status, statusStyle := iconFresh, styleComputed
	if cached {
		status, statusStyle = iconCached, styleCached
	}

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	line += StyleDim.Render(" · ") + statusStyle.Render(status)
	fmt.Fprintln(w, line)
}

// =============================================================================
// Results
// =============================================================================

// printSearchResult prints the summary of a search and its CPDAG, one edge
// per line.
func printSearchResult(w io.Writer, res *pipeline.Result) {
	printSuccess(w, "Learned CPDAG")
	printStats(w, res.Stats.Variables, res.Stats.Edges, res.CacheInfo.SearchHit)
	if res.Interrupted {
		printWarning(w, "Search was interrupted; showing the best order found so far")
	}
	printKeyValue(w, "score", StyleNumber.Render(fmt.Sprintf("%.4f", res.Score)))
	printKeyValue(w, "order", strings.Join(res.Order, " < "))
	if res.RunID != "" {
		printKeyValue(w, "run", res.RunID)
	}
	if !res.CacheInfo.SearchHit {
		s := res.Search
		printKeyValue(w, "sweeps", fmt.Sprintf("%d over %d restart(s), %d of %d moves kept", s.Sweeps, s.Restarts, s.Accepted, s.MovesTried))
	}
	fmt.Fprintln(w)
	printEdges(w, res.CPDAG)
}

// printEdges prints one edge per line, or a note for an empty graph.
func printEdges(w io.Writer, g *graph.Graph) {
	if g.NumEdges() == 0 {
		printDetail(w, "no edges")
		return
	}
	for _, e := range strings.Split(g.String(), "; ") {
		fmt.Fprintln(w, "  "+e)
	}
}

// runRows formats runs for the list table and the interactive browser.
func runRows(runs []*store.Run) [][]string {
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			shortID(r.ID),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Source,
			fmt.Sprintf("%d", len(r.Variables)),
			fmt.Sprintf("%d", r.NumEdges()),
			fmt.Sprintf("%.2f", r.Score),
			r.Settings.Strategy,
		}
	}
	return rows
}

var runHeaders = []string{"ID", "Created", "Source", "Vars", "Edges", "Score", "Strategy"}

// printRunTable renders runs as a bordered table.
func printRunTable(w io.Writer, runs []*store.Run) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(runHeaders...).
		Rows(runRows(runs)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 { // header
				return styleHeader
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Fprintln(w, t.Render())
}

// printRun prints one run in detail.
func printRun(w io.Writer, r *store.Run) {
	fmt.Fprintln(w, StyleTitle.Render("Run "+r.ID))
	printKeyValue(w, "created", r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	printKeyValue(w, "source", r.Source)
	printKeyValue(w, "data hash", shortID(r.DataHash))
	printKeyValue(w, "rows", fmt.Sprintf("%d", r.Rows))
	printKeyValue(w, "score", StyleNumber.Render(fmt.Sprintf("%.4f", r.Score)))
	printKeyValue(w, "strategy", fmt.Sprintf("%s, %d start(s), seed %d, penalty %g", r.Settings.Strategy, r.Settings.NumStarts, r.Settings.Seed, r.Settings.Penalty))
	printKeyValue(w, "order", strings.Join(r.Order, " < "))
	if r.Interrupted {
		printWarning(w, "interrupted before convergence")
	}
	fmt.Fprintln(w)
	g, err := r.CPDAG.Graph()
	if err != nil {
		printError(w, "stored graph is invalid: %v", err)
		return
	}
	printEdges(w, g)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
