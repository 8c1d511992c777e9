package main

import (
	"strings"
	"testing"
)

const baselineOutput = `goos: linux
goarch: amd64
pkg: github.com/MrEthical07/goAuthGate
BenchmarkValidateAccess-8    	  500000	      2000 ns/op	     640 B/op	      10 allocs/op
BenchmarkValidateAccess-8    	  500000	      2100 ns/op	     640 B/op	      10 allocs/op
BenchmarkAuthenticate-8      	   50000	     20000 ns/op
BenchmarkRefresh-8           	   50000	     30000 ns/op
BenchmarkThrottleAllow-8     	 1000000	       300 ns/op	       0 B/op	       0 allocs/op
BenchmarkUntracked-8         	 1000000	         1 ns/op
PASS
`

func TestParseBenchmarks(t *testing.T) {
	samples, err := parseBenchmarks(strings.NewReader(baselineOutput))
	if err != nil {
		t.Fatalf("parseBenchmarks error: %v", err)
	}

	if got := samples["BenchmarkValidateAccess"]["ns/op"]; len(got) != 2 || got[0] != 2000 || got[1] != 2100 {
		t.Fatalf("unexpected ns/op samples: %v", got)
	}
	if _, ok := samples["BenchmarkUntracked"]; ok {
		t.Fatal("untracked benchmark must be ignored")
	}
}

func TestCompareDetectsRegression(t *testing.T) {
	base, _ := parseBenchmarks(strings.NewReader(baselineOutput))
	candidate, _ := parseBenchmarks(strings.NewReader(strings.Replace(baselineOutput, "30000 ns/op", "45000 ns/op", 1)))

	rows, failures := compare(base, candidate, 0.30)
	if len(failures) != 1 || !strings.Contains(failures[0], "BenchmarkRefresh ns/op") {
		t.Fatalf("unexpected failures: %v", failures)
	}
	if len(rows) == 0 || !strings.HasPrefix(rows[0], "BenchmarkAuthenticate") {
		t.Fatalf("rows must be sorted by benchmark name: %v", rows)
	}
}

func TestCompareZeroAllocBaseline(t *testing.T) {
	base, _ := parseBenchmarks(strings.NewReader(baselineOutput))
	candidate, _ := parseBenchmarks(strings.NewReader(strings.Replace(baselineOutput,
		"0 B/op	       0 allocs/op", "16 B/op	       1 allocs/op", 1)))

	_, failures := compare(base, candidate, 0.30)
	if len(failures) != 1 || !strings.Contains(failures[0], "BenchmarkThrottleAllow allocs/op rose from zero") {
		t.Fatalf("unexpected failures: %v", failures)
	}
}

func TestCompareMissingSamples(t *testing.T) {
	base, _ := parseBenchmarks(strings.NewReader(baselineOutput))
	_, failures := compare(base, sampleSet{}, 0.30)
	if len(failures) == 0 {
		t.Fatal("expected missing samples to fail")
	}
}

func TestNormalizeBenchmarkName(t *testing.T) {
	tests := map[string]string{
		"BenchmarkRefresh-8":      "BenchmarkRefresh",
		"BenchmarkRefresh":        "BenchmarkRefresh",
		"BenchmarkRefresh-shared": "BenchmarkRefresh-shared",
	}
	for in, want := range tests {
		if got := normalizeBenchmarkName(in); got != want {
			t.Fatalf("normalizeBenchmarkName(%q) = %q, want %q", in, got, want)
		}
	}
}
