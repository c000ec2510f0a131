// Package testutil provides shared test infrastructure for the simulator.
// It loads the golden outcomes recorded for the example models under
// testdata/ and offers assertion helpers for them.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one example model with its expected outcome.
type GoldenTestCase struct {
	Name string `json:"name"`
	// Model is a file name under testdata/models/.
	Model string `json:"model"`
	// Version defaults to the model's default version.
	Version string `json:"version"`
	// CostParam, when set, traces the run and checks HostCosts.
	CostParam string        `json:"cost_param"`
	Outcome   GoldenOutcome `json:"outcome"`
}

// GoldenOutcome is the expected final state of a run.
type GoldenOutcome struct {
	InfiniteLoop bool               `json:"infinite_loop"`
	Hosts        map[string]string  `json:"hosts"`       // host → status
	HostErrors   map[string]string  `json:"host_errors"` // host → finish error
	Dropped      map[string]int     `json:"dropped"`     // channel → dropped messages
	HostCosts    map[string]float64 `json:"host_costs"`  // host → summed CostParam
}

func testdataDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// Navigate from sim/internal/testutil/ to repo root testdata/
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata")
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	path := filepath.Join(testdataDir(t), "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}
	if len(dataset.Tests) == 0 {
		t.Fatal("golden dataset has no tests")
	}

	return &dataset
}

// ModelPath returns the path of an example model under testdata/models/.
func ModelPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(testdataDir(t), "models", name)
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
