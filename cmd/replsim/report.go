package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"gonum.org/v1/gonum/stat"

	"github.com/sarchlab/emissary/timing/cache"
)

// replayReport summarizes one replay.
type replayReport struct {
	RunID  string
	Config cache.Config
	Stats  cache.Statistics

	// Miss distribution across sets.
	SetMissMean   float64
	SetMissStdDev float64
	MaxSetMisses  uint64
	HottestSet    int
}

func newReport(
	runID string,
	config cache.Config,
	stats cache.Statistics,
	setMisses []uint64,
) replayReport {
	r := replayReport{
		RunID:      runID,
		Config:     config,
		Stats:      stats,
		HottestSet: -1,
	}

	if len(setMisses) == 0 {
		return r
	}

	samples := make([]float64, len(setMisses))
	for i, m := range setMisses {
		samples[i] = float64(m)
		if m > r.MaxSetMisses {
			r.MaxSetMisses = m
			r.HottestSet = i
		}
	}

	if len(samples) > 1 {
		r.SetMissMean, r.SetMissStdDev = stat.MeanStdDev(samples, nil)
	} else {
		r.SetMissMean = samples[0]
	}

	return r
}

// Print writes the report in a human readable form.
func (r replayReport) Print(w io.Writer) {
	heading := color.New(color.Bold)
	good := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)

	heading.Fprintf(w, "Run %s\n", r.RunID)
	fmt.Fprintf(w, "  policy:        %s\n", r.Config.Policy)
	fmt.Fprintf(w, "  geometry:      %d cpus x %d sets x %d ways, %dB lines\n",
		r.Config.NumCPUs, r.Config.NumSets(), r.Config.Associativity,
		r.Config.BlockSize)

	heading.Fprintln(w, "Accesses")
	fmt.Fprintf(w, "  reads:         %d\n", r.Stats.Reads)
	fmt.Fprintf(w, "  writes:        %d\n", r.Stats.Writes)
	fmt.Fprintf(w, "  hits:          %d\n", r.Stats.Hits)
	fmt.Fprintf(w, "  misses:        %d\n", r.Stats.Misses)

	rate := r.Stats.HitRate()
	printer := good
	if rate < 0.5 {
		printer = warn
	}
	fmt.Fprint(w, "  hit rate:      ")
	printer.Fprintf(w, "%.2f%%\n", rate*100)

	heading.Fprintln(w, "Replacement")
	fmt.Fprintf(w, "  evictions:     %d\n", r.Stats.Evictions)
	fmt.Fprintf(w, "  writebacks:    %d\n", r.Stats.Writebacks)
	fmt.Fprintf(w, "  protected:     %d\n", r.Stats.ProtectedVictims)
	fmt.Fprintf(w, "  fallbacks:     %d\n", r.Stats.PolicyFallbacks)

	heading.Fprintln(w, "Set misses")
	fmt.Fprintf(w, "  mean:          %.2f\n", r.SetMissMean)
	fmt.Fprintf(w, "  stddev:        %.2f\n", r.SetMissStdDev)
	if r.HottestSet >= 0 {
		fmt.Fprintf(w, "  hottest set:   %d (%d misses)\n", r.HottestSet, r.MaxSetMisses)
	}
}
