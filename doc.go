/*
Package ternlab is a laboratory for a ternary cellular automaton.

An N×N grid of cells, each negative (-1), neutral (0) or positive (+1), evolves in
discrete synchronous steps under a threshold rule on the eight-cell Moore neighborhood.
The lab tracks the Shannon entropy of the cell distribution at every step so the
emergence and decay of order can be studied over time.

# Concept

A cell becomes positive when at least PosThreshold of its neighbors are positive,
otherwise negative when at least NegThreshold are negative, otherwise neutral.
The grid is bounded: cells beyond the edge do not exist, so there is no wraparound.

The core packages are pure (rule, metrics, seed, snapshot). The lab package owns the
single mutable simulation state and serializes every mutation behind one lock, emitting
lifecycle events after each change. Adapters expose the lab over HTTP, MCP and the CLI,
and persist snapshots to files, Redis or SQLite.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/ternlab/pkg/lab"
	)

	func main() {
		ctx := context.Background()

		l, err := lab.New(lab.WithSize(32))
		if err != nil {
			log.Fatal(err)
		}

		seed := int64(42)
		if _, err := l.RunExperiment(ctx, "chaos-2-4", &seed); err != nil {
			log.Fatal(err)
		}

		view, err := l.StepN(ctx, 50)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("step %d: %.3f bits\n", view.Metrics.Step, view.Metrics.Entropy)
	}

The ternlab binary wraps the same API:

	ternlab run --experiment chaos-2-4 --steps 50 --plot entropy.png
	ternlab serve
	ternlab mcp
*/
package ternlab
