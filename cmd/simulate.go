package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/QoPMLProject/AQoPA-sub000/sim"
	"github.com/QoPMLProject/AQoPA-sub000/sim/builder"
	"github.com/QoPMLProject/AQoPA-sub000/sim/trace"
)

// runOptions configures the simulation of every selected version.
type runOptions struct {
	Versions  []string
	MaxSteps  int64
	Trace     trace.TraceLevel
	CostParam string
	// Parallel bounds concurrent versions; 0 or 1 runs them one by one.
	Parallel int
}

// versionResult is the outcome of one version. Err is the runtime error that
// aborted the run, if any.
type versionResult struct {
	Version string
	Report  sim.Report
	Trace   *trace.ExecutionTrace
	Err     error
}

// simulateVersion builds a fresh environment for version and runs it to
// completion. Definition problems are returned; runtime errors are recorded
// in the result.
func simulateVersion(m *builder.ModelFile, version string, opts runOptions) (*versionResult, error) {
	env, err := builder.Build(m, version)
	if err != nil {
		return nil, fmt.Errorf("building version %s: %w", version, err)
	}
	s := sim.NewSimulator(env.Context)
	s.MaxSteps = opts.MaxSteps

	var tr *trace.ExecutionTrace
	if opts.Trace != "" && opts.Trace != trace.TraceLevelNone {
		tr = trace.NewExecutionTrace(trace.TraceConfig{Level: opts.Trace, CostParam: opts.CostParam})
		sim.AttachTrace(s, tr)
	}

	logrus.Infof("simulating version %s with %d host(s)", version, len(env.Context.Hosts))
	runErr := s.Run()
	if runErr != nil {
		logrus.Warnf("version %s aborted: %v", version, runErr)
	}
	return &versionResult{Version: version, Report: s.Report(), Trace: tr, Err: runErr}, nil
}

// simulateAll runs every version in opts (all declared versions when empty).
// Results keep the version order. Each goroutine owns its environment.
func simulateAll(m *builder.ModelFile, opts runOptions) ([]*versionResult, error) {
	versions := opts.Versions
	if len(versions) == 0 {
		versions = m.VersionNames()
	}
	results := make([]*versionResult, len(versions))

	g := new(errgroup.Group)
	limit := opts.Parallel
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, v := range versions {
		i, v := i, v
		g.Go(func() error {
			res, err := simulateVersion(m, v, opts)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// printReport writes the final state of one version.
func printReport(w io.Writer, res *versionResult) {
	r := res.Report
	fmt.Fprintf(w, "=== Version %s ===\n", res.Version)
	fmt.Fprintf(w, "Steps                : %d\n", r.Steps)
	fmt.Fprintf(w, "Epochs               : %d\n", r.Epochs)
	fmt.Fprintf(w, "Infinite loop        : %t\n", r.InfiniteLoop)
	if res.Err != nil {
		fmt.Fprintf(w, "Aborted              : %v\n", res.Err)
	}
	for _, h := range r.Hosts {
		if h.Error != "" {
			fmt.Fprintf(w, "  %-18s : %s (%s)\n", h.Name, h.Status, h.Error)
			continue
		}
		fmt.Fprintf(w, "  %-18s : %s\n", h.Name, h.Status)
	}
	channels := make([]string, 0, len(r.DroppedMessages))
	for name, n := range r.DroppedMessages {
		if n > 0 {
			channels = append(channels, name)
		}
	}
	sort.Strings(channels)
	for _, name := range channels {
		fmt.Fprintf(w, "Dropped on %-10s: %d\n", name, r.DroppedMessages[name])
	}
	if res.Trace != nil {
		printTraceSummary(w, trace.Summarize(res.Trace))
	}
}

func printTraceSummary(w io.Writer, s *trace.TraceSummary) {
	fmt.Fprintln(w, "--- Trace ---")
	fmt.Fprintf(w, "Instructions         : %d\n", s.TotalInstructions)
	fmt.Fprintf(w, "CPU ticks            : %d\n", s.TotalCPUTicks)
	fmt.Fprintf(w, "Epochs               : %d\n", s.Epochs)

	kinds := make([]string, 0, len(s.KindDistribution))
	for k := range s.KindDistribution {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-18s : %d\n", k, s.KindDistribution[k])
	}

	hosts := make([]string, 0, len(s.Hosts))
	for h := range s.Hosts {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	for _, h := range hosts {
		hs := s.Hosts[h]
		fmt.Fprintf(w, "  %-18s : %d instruction(s), %d tick(s), cost %.4f\n", h, hs.Instructions, hs.CPUTicks, hs.TotalCost)
	}
}
