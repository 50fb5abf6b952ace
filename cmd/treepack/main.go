// treepack refines, cascades, scores and renders tree-packing submissions.
//
// Build:
//   go build -o treepack ./cmd/treepack
//
// Usage:
//   treepack refine  -in best.csv -out refined.csv -groups 1-50
//   treepack cascade -in 'runs/*.csv' -out merged.csv -beam-width 8
//   treepack score   -in merged.csv
//   treepack render  -in merged.csv -out report.pdf -format pdf
//   treepack serve   -addr :8080
package main

import (
	"fmt"
	"os"
	"sort"

	"k8s.io/klog/v2"
)

type command struct {
	summary string
	run     func(args []string) error
}

var commands = map[string]command{
	"score":   {"validate and score submissions", runScore},
	"refine":  {"simulated-annealing refinement per group", runRefine},
	"cascade": {"merge submissions, then backward pass and deletion cascade", runCascade},
	"rotate":  {"rotate whole groups to shrink their square", runRotate},
	"render":  {"write a PDF report, QR labels, DXF drawing or PNG previews", runRender},
	"compare": {"compare refiner settings on one group", runCompare},
	"config":  {"print or write the run configuration", runConfig},
	"serve":   {"serve the HTTP scoring API", runServe},
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: treepack <command> [flags]\n\ncommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", name, commands[name].summary)
	}
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		usage()
		os.Exit(2)
	}

	err := cmd.run(os.Args[2:])
	klog.Flush()
	if err != nil {
		klog.Errorf("%s: %v", os.Args[1], err)
		klog.Flush()
		os.Exit(1)
	}
}
