package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/aretw0/ternlab/pkg/metrics"
)

// RunReport summarizes a headless run.
type RunReport struct {
	Experiment string
	Seed       string
	Thresholds domain.Thresholds
	Steps      int
	Elapsed    time.Duration
	Metrics    domain.MetricsReport
}

// Markdown renders the report as a markdown document.
func (r RunReport) Markdown() string {
	var b strings.Builder
	title := "Run report"
	if r.Experiment != "" {
		title = "Run report: " + r.Experiment
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	fmt.Fprintf(&b, "| parameter | value |\n|---|---|\n")
	fmt.Fprintf(&b, "| grid | %dx%d |\n", r.Metrics.Size, r.Metrics.Size)
	if r.Seed != "" {
		fmt.Fprintf(&b, "| seed | %s |\n", r.Seed)
	}
	fmt.Fprintf(&b, "| thresholds | pos %d, neg %d |\n", r.Thresholds.Pos, r.Thresholds.Neg)
	fmt.Fprintf(&b, "| steps | %d |\n", r.Steps)
	if r.Elapsed > 0 {
		fmt.Fprintf(&b, "| elapsed | %s |\n", r.Elapsed.Round(time.Microsecond))
	}

	c := r.Metrics.Counts
	fmt.Fprintf(&b, "\n## Final state\n\n")
	fmt.Fprintf(&b, "| ⊕ | ⊖ | · | entropy (bits) |\n|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %.4f |\n", c.Pos, c.Neg, c.Zero, r.Metrics.Entropy)

	if h := r.Metrics.EntropyHistory; len(h) > 1 {
		lo, hi := h[0], h[0]
		for _, v := range h {
			lo = min(lo, v)
			hi = max(hi, v)
		}
		fmt.Fprintf(&b, "\nEntropy over the last %d values ranged from %.4f to %.4f bits (ceiling %.4f).\n",
			len(h), lo, hi, metrics.MaxEntropy)
	}
	if c.Pos+c.Neg == 0 {
		fmt.Fprintf(&b, "\n> The grid decayed to neutral.\n")
	}
	return b.String()
}
