package racecondition

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cheynewallace/tabby"
	"github.com/dustin/go-humanize"
)

// Report collects the iterations of one experiment.
type Report struct {
	Strategy   Strategy
	Workers    int
	Expected   int64 // per iteration
	Iterations []IterationResult

	// MainValue is the creator's own copy after a Local experiment. It stays
	// at its initial value no matter what the workers did.
	MainValue int64
}

// LostIterations counts the iterations that lost at least one update.
func (r *Report) LostIterations() int {
	n := 0
	for _, it := range r.Iterations {
		if it.Lost != 0 {
			n++
		}
	}
	return n
}

// TotalLost sums the lost updates over all iterations.
func (r *Report) TotalLost() int64 {
	var n int64
	for _, it := range r.Iterations {
		n += it.Lost
	}
	return n
}

// Worst returns the iteration with the most lost updates. ok is false when
// the report is empty.
func (r *Report) Worst() (worst IterationResult, ok bool) {
	for i, it := range r.Iterations {
		if i == 0 || it.Lost > worst.Lost {
			worst = it
		}
	}
	return worst, len(r.Iterations) > 0
}

// PrintIteration writes the one-line result that follows every join.
func PrintIteration(w io.Writer, it IterationResult) {
	if len(it.WorkerValues) == 0 {
		fmt.Fprintf(w, "  iteration %3d: count = %d\n", it.Iteration, it.Got)
		return
	}
	for i, v := range it.WorkerValues {
		fmt.Fprintf(w, "  iteration %3d: local count in worker %d = %d\n", it.Iteration, i+1, v)
	}
}

// Print writes a summary table of reports, one row per strategy.
func Print(w io.Writer, reports ...*Report) {
	t := tabby.NewCustom(tabwriter.NewWriter(w, 0, 0, 2, ' ', 0))
	t.AddHeader("Strategy", "Iterations", "Expected", "Lossy", "Lost total", "Worst", "Main value")
	for _, r := range reports {
		worst := "-"
		if it, ok := r.Worst(); ok && it.Lost > 0 {
			worst = fmt.Sprintf("%s (iteration %d)", humanize.Comma(it.Got), it.Iteration)
		}
		mainValue := "-"
		if r.Strategy == Local {
			mainValue = humanize.Comma(r.MainValue)
		}
		t.AddLine(
			r.Strategy,
			len(r.Iterations),
			humanize.Comma(r.Expected),
			r.LostIterations(),
			humanize.Comma(r.TotalLost()),
			worst,
			mainValue,
		)
	}
	t.Print()
}
