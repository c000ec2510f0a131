package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/QoPMLProject/AQoPA-sub000/sim/builder"
	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
	"github.com/QoPMLProject/AQoPA-sub000/sim/trace"
)

var (
	modelPath    string   // Path to the YAML model file
	defaultsPath string   // Optional run defaults file
	logLevel     string   // Log verbosity level
	versions     []string // Versions to simulate; all when empty
	maxSteps     int64    // Abort a run after this many steps (0 = unlimited)
	traceLevel   string   // Trace verbosity: none, epochs, instructions
	costParam    string   // Metric parameter summed per host when tracing
	parallel     int      // Versions simulated concurrently
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "aqopa",
	Short: "Quality of Protection model simulator",
}

// runCmd simulates every version of a model file
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate the versions of a QoP-ML model",
	Run: func(cmd *cobra.Command, args []string) {
		if defaultsPath != "" {
			cfg, err := loadRunDefaults(defaultsPath)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			applyRunDefaults(cmd, cfg)
		}
		setLogLevel()
		opts, err := buildRunOptions()
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		m, err := builder.LoadModelFile(modelPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		results, err := simulateAll(m, opts)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		aborted := 0
		for _, res := range results {
			printReport(os.Stdout, res)
			if res.Err != nil {
				aborted++
			}
		}
		if aborted > 0 {
			logrus.Fatalf("%d of %d version(s) aborted with a runtime error", aborted, len(results))
		}
	},
}

// validateCmd builds every version and lists all definition problems
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a QoP-ML model without simulating it",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		m, err := builder.LoadModelFile(modelPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if n := validateModel(os.Stdout, m, versions); n > 0 {
			logrus.Fatalf("model %s has %d problem(s)", modelPath, n)
		}
	},
}

// validateModel builds each version and prints every problem found. Returns
// the number of problems.
func validateModel(w io.Writer, m *builder.ModelFile, selected []string) int {
	if len(selected) == 0 {
		selected = m.VersionNames()
	}
	problems := 0
	for _, v := range selected {
		_, err := builder.Build(m, v)
		if err == nil {
			fmt.Fprintf(w, "version %s: ok\n", v)
			continue
		}
		var envErr *model.EnvironmentError
		if !errors.As(err, &envErr) {
			fmt.Fprintf(w, "version %s: %v\n", v, err)
			problems++
			continue
		}
		for _, e := range envErr.Errors() {
			fmt.Fprintf(w, "version %s: %v\n", v, e)
			problems++
		}
	}
	return problems
}

// applyRunDefaults copies file values into flags the user did not set.
func applyRunDefaults(cmd *cobra.Command, cfg *RunDefaults) {
	flags := cmd.Flags()
	if !flags.Changed("version") && len(cfg.Versions) > 0 {
		versions = cfg.Versions
	}
	if !flags.Changed("max-steps") && cfg.MaxSteps > 0 {
		maxSteps = cfg.MaxSteps
	}
	if !flags.Changed("trace") && cfg.Trace != "" {
		traceLevel = cfg.Trace
	}
	if !flags.Changed("cost-param") && cfg.CostParam != "" {
		costParam = cfg.CostParam
	}
	if !flags.Changed("parallel") && cfg.Parallel > 0 {
		parallel = cfg.Parallel
	}
	if !flags.Changed("log") && cfg.Log != "" {
		logLevel = cfg.Log
	}
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

func buildRunOptions() (runOptions, error) {
	if modelPath == "" {
		return runOptions{}, fmt.Errorf("--model is required")
	}
	if !trace.IsValidTraceLevel(traceLevel) {
		return runOptions{}, fmt.Errorf("unknown trace level %q; valid: none, epochs, instructions", traceLevel)
	}
	if maxSteps < 0 {
		return runOptions{}, fmt.Errorf("--max-steps must be >= 0, got %d", maxSteps)
	}
	if parallel < 1 {
		return runOptions{}, fmt.Errorf("--parallel must be >= 1, got %d", parallel)
	}
	return runOptions{
		Versions:  versions,
		MaxSteps:  maxSteps,
		Trace:     trace.TraceLevel(traceLevel),
		CostParam: costParam,
		Parallel:  parallel,
	}, nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVarP(&modelPath, "model", "m", "", "Path to the YAML model file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringSliceVar(&versions, "version", nil, "Versions to use (repeatable; default all)")

	runCmd.Flags().StringVar(&defaultsPath, "defaults", "", "YAML file with default run options")
	runCmd.Flags().Int64Var(&maxSteps, "max-steps", 0, "Abort a version after this many steps (0 = unlimited)")
	runCmd.Flags().StringVar(&traceLevel, "trace", string(trace.TraceLevelNone), "Trace level: none, epochs, instructions")
	runCmd.Flags().StringVar(&costParam, "cost-param", "", "Metric parameter summed per host in the trace summary (e.g. time)")
	runCmd.Flags().IntVar(&parallel, "parallel", 1, "Number of versions simulated concurrently")

	_ = rootCmd.MarkPersistentFlagRequired("model")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
